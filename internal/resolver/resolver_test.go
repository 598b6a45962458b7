package resolver

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveAbsoluteTarget(t *testing.T) {
	root := t.TempDir()
	systemDir := filepath.Join(root, "etc", "systemd", "system")
	if err := os.MkdirAll(systemDir, 0o755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(systemDir, "default.target")
	if err := os.Symlink("/lib/systemd/system/graphical.target", link); err != nil {
		t.Fatal(err)
	}

	res, err := Resolve(root, link)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.TargetDir != "/lib/systemd/system/" {
		t.Errorf("TargetDir = %q", res.TargetDir)
	}
	if res.TargetBasename != "graphical.target" {
		t.Errorf("TargetBasename = %q", res.TargetBasename)
	}
}

func TestResolveRelativeTarget(t *testing.T) {
	root := t.TempDir()
	wantsDir := filepath.Join(root, "etc", "systemd", "system", "multi-user.target.wants")
	if err := os.MkdirAll(wantsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(wantsDir, "foo.service")
	if err := os.Symlink("../foo.service", link); err != nil {
		t.Fatal(err)
	}

	res, err := Resolve(root, link)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.TargetDir != "/etc/systemd/system/" {
		t.Errorf("TargetDir = %q", res.TargetDir)
	}
	if res.TargetBasename != "foo.service" {
		t.Errorf("TargetBasename = %q", res.TargetBasename)
	}
}

func TestResolveEmptyAltRoot(t *testing.T) {
	root := t.TempDir()
	link := filepath.Join(root, "default.target")
	if err := os.Symlink("/lib/systemd/system/graphical.target", link); err != nil {
		t.Fatal(err)
	}

	res, err := Resolve("", link)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Target() != "/lib/systemd/system/graphical.target" {
		t.Errorf("Target() = %q", res.Target())
	}
}

func TestResolveTargetOutsideAltRoot(t *testing.T) {
	// Target happens to share no prefix with altRoot: recorded verbatim.
	root := t.TempDir()
	link := filepath.Join(root, "weird.target")
	if err := os.Symlink("/opt/other/unit.target", link); err != nil {
		t.Fatal(err)
	}

	res, err := Resolve(root, link)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Target() != "/opt/other/unit.target" {
		t.Errorf("Target() = %q, want verbatim absolute target", res.Target())
	}
}

func TestResolveNotASymlink(t *testing.T) {
	root := t.TempDir()
	regular := filepath.Join(root, "not-a-link")
	if err := os.WriteFile(regular, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Resolve(root, regular); err == nil {
		t.Error("expected error for non-symlink entry")
	}
}

func TestResolveTargetEqualsAltRoot(t *testing.T) {
	root := t.TempDir()
	link := filepath.Join(root, "link-to-root")
	if err := os.Symlink(root, link); err != nil {
		t.Fatal(err)
	}

	res, err := Resolve(root, link)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Target() != "/" {
		t.Errorf("Target() = %q, want \"/\"", res.Target())
	}
}
