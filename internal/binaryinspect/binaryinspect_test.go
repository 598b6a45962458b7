package binaryinspect

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"sysdsnap/internal/config"
)

// writeStubTool writes an executable shell script that ignores its
// arguments and prints output verbatim, simulating readelf/strings.
func writeStubTool(t *testing.T, dir, name, output string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\ncat <<'EOF'\n" + output + "\nEOF\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInspectExtractsNeededAndStrings(t *testing.T) {
	dir := t.TempDir()
	elfOut := "  0x0000000000000001 (NEEDED)             Shared library: [libc.so.6]\n" +
		"  0x0000000000000001 (NEEDED)             Shared library: [libpthread.so.0]\n"
	stringsOut := "key=/etc/foo.conf /usr/bin/foo some garbage /var/log/app.log\n"

	elfTool := writeStubTool(t, dir, "fake-readelf", elfOut)
	stringsTool := writeStubTool(t, dir, "fake-strings", stringsOut)

	binPath := filepath.Join(dir, "target-bin")
	if err := os.WriteFile(binPath, []byte("not really an elf"), 0o755); err != nil {
		t.Fatal(err)
	}

	ins := New("", config.ToolsConfig{ELFTool: elfTool, StringsTool: stringsTool}, nil, nil)

	result, err := ins.Inspect(context.Background(), binPath)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}

	if len(result.Needed) != 2 || result.Needed[0] != "libc.so.6" {
		t.Errorf("Needed = %v", result.Needed)
	}
	if len(result.Files) != 2 {
		t.Errorf("Files = %v, want 2 entries", result.Files)
	}
	foundConf := false
	for _, f := range result.Files {
		if f == "/etc/foo.conf" {
			foundConf = true
		}
	}
	if !foundConf {
		t.Errorf("expected /etc/foo.conf in Files, got %v", result.Files)
	}
}

func TestInspectMissingTool(t *testing.T) {
	dir := t.TempDir()
	binPath := filepath.Join(dir, "target-bin")
	if err := os.WriteFile(binPath, []byte("x"), 0o755); err != nil {
		t.Fatal(err)
	}

	ins := New("", config.ToolsConfig{ELFTool: "/no/such/tool-xyz", StringsTool: "/no/such/tool-xyz"}, nil, nil)
	if _, err := ins.Inspect(context.Background(), binPath); err == nil {
		t.Error("expected error for missing tool binary")
	}
}

func TestStripKeyPrefix(t *testing.T) {
	if got := stripKeyPrefix("OPTIONS=/etc/foo.conf"); got != "/etc/foo.conf" {
		t.Errorf("stripKeyPrefix() = %q", got)
	}
	if got := stripKeyPrefix("/etc/foo.conf"); got != "/etc/foo.conf" {
		t.Errorf("stripKeyPrefix() = %q", got)
	}
}

func TestFileLikeAndPathLikePatterns(t *testing.T) {
	if !fileLikeRe.MatchString("/etc/app.conf") {
		t.Error("expected .conf to match file-like pattern")
	}
	if !pathLikeRe.MatchString("/usr/bin/foo") {
		t.Error("expected plain path to match path-like pattern")
	}
	if pathLikeRe.MatchString("not-a-path") {
		t.Error("bare token should not match path-like pattern")
	}
}
