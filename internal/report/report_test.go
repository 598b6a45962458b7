package report

import (
	"strings"
	"testing"

	"sysdsnap/internal/depclosure"
)

func TestRenderOrdersUnitsAndRelations(t *testing.T) {
	dm := &depclosure.DependencyMap{
		Units: map[string]*depclosure.Record{
			"zeta.service": {
				Name:    "zeta.service",
				Forward: map[string][]string{"Wants": {"alpha.service"}},
			},
			"alpha.service": {
				Name:    "alpha.service",
				Forward: map[string][]string{"Requires": {"beta.service"}, "Wants": {"gamma.service"}},
				Reverse: map[string][]string{"wanted_by": {"zeta.service"}},
			},
		},
	}

	out := Render(dm)

	alphaPos := strings.Index(out, "alpha.service")
	zetaPos := strings.Index(out, "zeta.service")
	if alphaPos < 0 || zetaPos < 0 || alphaPos > zetaPos {
		t.Errorf("expected alpha.service before zeta.service, got:\n%s", out)
	}

	requiresPos := strings.Index(out, "Requires:")
	wantsPos := strings.Index(out, "Wants:")
	if requiresPos < 0 || wantsPos < 0 || requiresPos > wantsPos {
		t.Errorf("expected Requires before Wants within alpha.service, got:\n%s", out)
	}

	if !strings.Contains(out, "wanted_by:") || !strings.Contains(out, "zeta.service") {
		t.Errorf("expected a reverse wanted_by section, got:\n%s", out)
	}
}

func TestRenderSkipsEmptyRelations(t *testing.T) {
	dm := &depclosure.DependencyMap{
		Units: map[string]*depclosure.Record{
			"foo.service": {Name: "foo.service", Forward: map[string][]string{"Before": {}}},
		},
	}

	out := Render(dm)
	if strings.Contains(out, "Before") {
		t.Errorf("empty relation should be skipped, got:\n%s", out)
	}
}

func TestRenderIncludesDynamicMountPoints(t *testing.T) {
	dm := &depclosure.DependencyMap{
		Units: map[string]*depclosure.Record{},
		DynamicMountPoints: map[string]depclosure.MountPointInfo{
			"mnt-data.mount": {What: "/dev/sdb1", Where: "/mnt/data", Type: "ext4"},
		},
	}

	out := Render(dm)
	if !strings.Contains(out, "mnt-data.mount") || !strings.Contains(out, "/mnt/data") {
		t.Errorf("expected dynamic mount point rendered, got:\n%s", out)
	}
}

func TestRenderIncludesCommands(t *testing.T) {
	dm := &depclosure.DependencyMap{
		Units: map[string]*depclosure.Record{
			"foo.service": {Name: "foo.service", Commands: []string{"/usr/bin/foo --flag"}},
		},
	}

	out := Render(dm)
	if !strings.Contains(out, "/usr/bin/foo --flag") {
		t.Errorf("expected command listed, got:\n%s", out)
	}
}
