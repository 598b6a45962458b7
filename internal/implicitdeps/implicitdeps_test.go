package implicitdeps

import (
	"testing"

	"sysdsnap/internal/artifact"
	"sysdsnap/internal/unitkind"
)

func newRec(kind unitkind.Kind) *artifact.Record {
	return &artifact.Record{Metadata: artifact.Metadata{FileType: artifact.UnitFile, Kind: kind}}
}

func TestAutomountSynthesizesBefore(t *testing.T) {
	rec := newRec(unitkind.Automount)
	Apply("home.automount", rec)

	got := rec.Metadata.Synthesized["Before"]
	if len(got) != 1 || got[0] != "home.mount" {
		t.Errorf("Before = %v", got)
	}
}

func TestPathWithoutUnitSynthesizesIPathFor(t *testing.T) {
	rec := newRec(unitkind.Path)
	Apply("foo.path", rec)

	if got := rec.Metadata.Synthesized["iPath_for"]; len(got) != 1 || got[0] != "foo.service" {
		t.Errorf("iPath_for = %v", got)
	}
	if got := rec.Metadata.Synthesized["Before"]; len(got) != 1 || got[0] != "foo.service" {
		t.Errorf("Before = %v", got)
	}
}

func TestPathWithUnitSkipsRule(t *testing.T) {
	rec := newRec(unitkind.Path)
	rec.AddDirective("Unit", "explicit.service")
	Apply("foo.path", rec)

	if _, ok := rec.Metadata.Synthesized["iPath_for"]; ok {
		t.Error("expected no iPath_for when Unit= is present")
	}
}

func TestSocketBindToDevice(t *testing.T) {
	rec := newRec(unitkind.Socket)
	rec.AddDirective("BindToDevice", "eth0.device")
	Apply("foo.socket", rec)

	if got := rec.Metadata.Synthesized["BindsTo"]; len(got) != 1 || got[0] != "eth0.device" {
		t.Errorf("BindsTo = %v", got)
	}
	if got := rec.Metadata.Synthesized["After"]; len(got) != 1 || got[0] != "foo.service" {
		t.Errorf("After = %v", got)
	}
}

func TestServiceTypeDbus(t *testing.T) {
	rec := newRec(unitkind.Service)
	rec.AddDirective("Type", "dbus")
	Apply("foo.service", rec)

	if got := rec.Metadata.Synthesized["Requires"]; len(got) != 1 || got[0] != "dbus.socket" {
		t.Errorf("Requires = %v", got)
	}
}

func TestServiceSockets(t *testing.T) {
	rec := newRec(unitkind.Service)
	rec.AddDirective("Sockets", "foo.socket", "bar.socket")
	Apply("foo.service", rec)

	wants := rec.Metadata.Synthesized["Wants"]
	if len(wants) != 2 {
		t.Errorf("Wants = %v", wants)
	}
	after := rec.Metadata.Synthesized["After"]
	if len(after) != 2 {
		t.Errorf("After = %v", after)
	}
}

func TestTTYPathRule(t *testing.T) {
	rec := newRec(unitkind.Service)
	rec.AddDirective("TTYPath", "/dev/tty1")
	Apply("getty.service", rec)

	got := rec.Metadata.Synthesized["After"]
	found := false
	for _, v := range got {
		if v == "systemd-vconsole-setup.service" {
			found = true
		}
	}
	if !found {
		t.Errorf("After = %v, missing systemd-vconsole-setup.service", got)
	}
}

func TestSliceRule(t *testing.T) {
	rec := newRec(unitkind.Service)
	rec.AddDirective("Slice", "custom.slice")
	Apply("foo.service", rec)

	if got := rec.Metadata.Synthesized["Requires"]; len(got) != 1 || got[0] != "custom.slice" {
		t.Errorf("Requires = %v", got)
	}
}

func TestTemplateInstanceRule(t *testing.T) {
	rec := newRec(unitkind.Service)
	Apply("getty@tty1.service", rec)

	if got := rec.Metadata.Synthesized["iTemplate_of"]; len(got) != 1 || got[0] != "getty@.service" {
		t.Errorf("iTemplate_of = %v", got)
	}
	if got := rec.Metadata.Synthesized["iSlice_of"]; len(got) != 1 || got[0] != "getty.slice" {
		t.Errorf("iSlice_of = %v", got)
	}
}

func TestNonTemplateNameSkipsRule(t *testing.T) {
	rec := newRec(unitkind.Service)
	Apply("foo.service", rec)

	if _, ok := rec.Metadata.Synthesized["iTemplate_of"]; ok {
		t.Error("expected no iTemplate_of for a non-template unit name")
	}
}
