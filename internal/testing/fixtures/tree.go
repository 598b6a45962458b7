// Package fixtures builds synthetic init-system trees under a
// t.TempDir() and compares analyzer output against golden files, the
// domain-adapted counterpart of the language-fixture/SCIP harness the
// original test utilities were built around.
package fixtures

import (
	"os"
	"path/filepath"
	"testing"
)

// Tree is a synthetic init-system tree rooted at a temp directory,
// built up with WriteUnit/Symlink/WriteFstab before being handed to a
// component under test the same way a real --root path would be.
type Tree struct {
	t    *testing.T
	Root string
}

// NewTree creates an empty Tree under t.TempDir().
func NewTree(t *testing.T) *Tree {
	t.Helper()
	return &Tree{t: t, Root: t.TempDir()}
}

// WriteUnit writes a unit file at relPath (relative to Root) with the
// given contents, creating parent directories as needed.
func (tr *Tree) WriteUnit(relPath, contents string) string {
	tr.t.Helper()
	full := filepath.Join(tr.Root, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		tr.t.Fatalf("mkdir for %s: %v", relPath, err)
	}
	if err := os.WriteFile(full, []byte(contents), 0o644); err != nil {
		tr.t.Fatalf("write %s: %v", relPath, err)
	}
	return full
}

// Symlink creates a symlink at relPath (relative to Root) pointing at
// target, which may itself be tree-relative or an arbitrary path.
func (tr *Tree) Symlink(target, relPath string) string {
	tr.t.Helper()
	full := filepath.Join(tr.Root, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		tr.t.Fatalf("mkdir for %s: %v", relPath, err)
	}
	if err := os.Symlink(target, full); err != nil {
		tr.t.Fatalf("symlink %s -> %s: %v", relPath, target, err)
	}
	return full
}

// WriteFstab writes /etc/fstab with the given contents.
func (tr *Tree) WriteFstab(contents string) string {
	return tr.WriteUnit("etc/fstab", contents)
}

// Path joins relPath onto Root.
func (tr *Tree) Path(relPath string) string {
	return filepath.Join(tr.Root, relPath)
}
