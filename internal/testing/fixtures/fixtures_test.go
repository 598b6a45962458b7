package fixtures

import (
	"os"
	"testing"
)

func TestTreeWriteUnitAndSymlink(t *testing.T) {
	tr := NewTree(t)
	unitPath := tr.WriteUnit("etc/systemd/system/foo.service", "[Unit]\nDescription=foo\n")
	if _, err := os.Stat(unitPath); err != nil {
		t.Fatalf("unit file not written: %v", err)
	}

	linkPath := tr.Symlink("../foo.service", "etc/systemd/system/multi-user.target.wants/foo.service")
	target, err := os.Readlink(linkPath)
	if err != nil {
		t.Fatalf("symlink not created: %v", err)
	}
	if target != "../foo.service" {
		t.Errorf("symlink target = %q", target)
	}
}

func TestNormalizeReplacesRoot(t *testing.T) {
	root := "/tmp/abc123"
	got := map[string]string{"path": root + "/etc/systemd/system/foo.service"}

	normalized := Normalize(t, root, got)
	m, ok := normalized.(map[string]any)
	if !ok {
		t.Fatalf("normalized = %T", normalized)
	}
	if m["path"] != "<root>/etc/systemd/system/foo.service" {
		t.Errorf("path = %v", m["path"])
	}
}
