package fixtures

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"
)

// updateGolden controls whether golden files should be rewritten.
// Use: go test ./... -run TestGolden -update
var updateGolden = flag.Bool("update", false, "update golden files")

// ShouldUpdate reports whether golden files should be updated this run.
func ShouldUpdate() bool {
	return *updateGolden
}

// CompareGolden normalizes got relative to root and compares it
// against testdata/<name>.golden.json, failing with a diff on
// mismatch. With -update, it rewrites the golden file instead.
func CompareGolden(t *testing.T, root, name string, got any) {
	t.Helper()

	normalized := MarshalNormalized(t, root, got)
	goldenPath := filepath.Join("testdata", name+".golden.json")

	if *updateGolden {
		writeGolden(t, goldenPath, normalized)
		t.Logf("updated golden: %s", goldenPath)
		return
	}

	expected, err := os.ReadFile(goldenPath)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("golden file missing: %s\n\ngot:\n%s\n\nrun with -update to create it", goldenPath, normalized)
		}
		t.Fatalf("read golden file: %v", err)
	}

	if !bytes.Equal(normalized, expected) {
		t.Fatalf("golden mismatch for %s:\n--- want (%s)\n%s\n--- got\n%s", name, goldenPath, expected, normalized)
	}
}

func writeGolden(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for golden file: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden file: %v", err)
	}
}
