package differ

import "testing"

func TestCompareReflexive(t *testing.T) {
	a := map[string]any{
		"remote_path": "/srv/snap-1",
		"binaries": map[string]any{
			"/usr/bin/foo": []any{"libc.so.6", "libssl.so.3"},
		},
	}
	if got := Compare(a, a); len(got) != 0 {
		t.Errorf("Compare(X, X) = %v, want empty", got)
	}
}

func TestComparePresentInOriginOnly(t *testing.T) {
	a := map[string]any{"remote_path": "/srv/a", "entries": map[string]any{}}
	b := map[string]any{"entries": map[string]any{}}

	got := Compare(a, b)
	if got["remote_path"] != "present in origin only" {
		t.Errorf("remote_path = %v, want present-in-origin-only note", got["remote_path"])
	}
}

func TestComparePresentInComparisonOnly(t *testing.T) {
	a := map[string]any{"entries": map[string]any{}}
	b := map[string]any{"entries": map[string]any{}, "remote_path": "/srv/b"}

	got := Compare(a, b)
	if got["remote_path"] != "present in comparison only" {
		t.Errorf("remote_path = %v, want present-in-comparison-only note", got["remote_path"])
	}
}

func TestCompareStringDiffers(t *testing.T) {
	a := map[string]any{"remote_path": "/srv/a"}
	b := map[string]any{"remote_path": "/srv/b"}

	got := Compare(a, b)
	vc, ok := got["remote_path"].(ValueChange)
	if !ok {
		t.Fatalf("remote_path = %T, want ValueChange", got["remote_path"])
	}
	if vc.Origin != "/srv/a" || vc.Comparison != "/srv/b" {
		t.Errorf("ValueChange = %+v", vc)
	}
}

func TestCompareUnusualType(t *testing.T) {
	a := map[string]any{"weird": float64(3)}
	b := map[string]any{"weird": float64(4)}

	got := Compare(a, b)
	s, ok := got["weird"].(string)
	if !ok || s != "unusual type: float64" {
		t.Errorf("weird = %v, want unusual type note", got["weird"])
	}
}

func TestCompareSubMappingListDifference(t *testing.T) {
	a := map[string]any{
		"entries": map[string]any{
			"foo.service": map[string]any{"Requires": []any{"bar.service"}},
		},
	}
	b := map[string]any{
		"entries": map[string]any{
			"foo.service": map[string]any{"Requires": []any{"baz.service"}},
		},
	}

	got := Compare(a, b)
	entries, ok := got["entries"].(Diff)
	if !ok {
		t.Fatalf("entries = %T", got["entries"])
	}
	foo, ok := entries["foo.service"].(Diff)
	if !ok {
		t.Fatalf("foo.service = %T", entries["foo.service"])
	}
	ld, ok := foo["Requires"].(ListDiff)
	if !ok {
		t.Fatalf("Requires = %T", foo["Requires"])
	}
	if len(ld.UniqueToOrigin) != 1 || ld.UniqueToOrigin[0] != "bar.service" {
		t.Errorf("UniqueToOrigin = %v", ld.UniqueToOrigin)
	}
	if len(ld.UniqueToComparison) != 1 || ld.UniqueToComparison[0] != "baz.service" {
		t.Errorf("UniqueToComparison = %v", ld.UniqueToComparison)
	}
}

func TestCompareLibraryVersionSuppression(t *testing.T) {
	a := map[string]any{
		"libraries": map[string]any{
			"/usr/bin/foo": []any{"libc.so.6", "libssl.so.3"},
		},
	}
	b := map[string]any{
		"libraries": map[string]any{
			"/usr/bin/foo": []any{"libc.so.7", "libssl.so.3"},
		},
	}

	got := Compare(a, b)
	libs, ok := got["libraries"].(Diff)
	if !ok {
		t.Fatalf("libraries = %T", got["libraries"])
	}
	if _, stillThere := libs["/usr/bin/foo"]; stillThere {
		t.Errorf("/usr/bin/foo should have been fully suppressed, got %v", libs["/usr/bin/foo"])
	}
	updates, ok := libs["updates"].(map[string]string)
	if !ok {
		t.Fatalf("updates = %T, want map[string]string", libs["updates"])
	}
	if updates["libc"] != "Changed from libc.so.6 to libc.so.7" {
		t.Errorf("updates[libc] = %q", updates["libc"])
	}
}

func TestCompareLibraryVersionSuppressionLeavesGenuineDiffs(t *testing.T) {
	a := map[string]any{
		"libraries": map[string]any{
			"/usr/bin/foo": []any{"libc.so.6", "libextra.so.1"},
		},
	}
	b := map[string]any{
		"libraries": map[string]any{
			"/usr/bin/foo": []any{"libc.so.7"},
		},
	}

	got := Compare(a, b)
	libs := got["libraries"].(Diff)
	foo, ok := libs["/usr/bin/foo"].(ListDiff)
	if !ok {
		t.Fatalf("/usr/bin/foo = %T, want remaining ListDiff", libs["/usr/bin/foo"])
	}
	if len(foo.UniqueToOrigin) != 1 || foo.UniqueToOrigin[0] != "libextra.so.1" {
		t.Errorf("UniqueToOrigin = %v", foo.UniqueToOrigin)
	}
	if len(foo.UniqueToComparison) != 0 {
		t.Errorf("UniqueToComparison = %v, want empty", foo.UniqueToComparison)
	}
	updates := libs["updates"].(map[string]string)
	if updates["libc"] != "Changed from libc.so.6 to libc.so.7" {
		t.Errorf("updates[libc] = %q", updates["libc"])
	}
}

func TestToGenericRoundTrips(t *testing.T) {
	type sample struct {
		RemotePath string              `json:"remote_path"`
		Binaries   map[string][]string `json:"binaries"`
	}
	s := sample{RemotePath: "/srv/a", Binaries: map[string][]string{"/usr/bin/foo": {"libc.so.6"}}}

	m, err := ToGeneric(s)
	if err != nil {
		t.Fatalf("ToGeneric: %v", err)
	}
	if m["remote_path"] != "/srv/a" {
		t.Errorf("remote_path = %v", m["remote_path"])
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/for/sysdsnap/differ/test.json")
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoadRejectsDirectory(t *testing.T) {
	_, err := Load(t.TempDir())
	if err == nil {
		t.Fatal("expected an error when the input path is a directory")
	}
}
