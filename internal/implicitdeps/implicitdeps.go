// Package implicitdeps holds the fixed rule table that mirrors the
// init manager's own built-in implicit-dependency behavior, applied
// to a Unit-File record right after it is parsed.
package implicitdeps

import (
	"strings"

	"sysdsnap/internal/artifact"
	"sysdsnap/internal/unitkind"
)

// Apply runs every applicable rule against rec, unioning results into
// rec.Metadata.Synthesized. name is the unit's basename, including
// its suffix (e.g. "getty@tty1.service").
func Apply(name string, rec *artifact.Record) {
	kind := rec.Metadata.Kind
	stem := stemOf(name)

	switch kind {
	case unitkind.Automount:
		rec.Metadata.AddSynthesized("Before", stem+".mount")

	case unitkind.Path:
		if !present(rec, "Unit") {
			rec.Metadata.AddSynthesized("iPath_for", stem+".service")
			rec.Metadata.AddSynthesized("Before", stem+".service")
		}

	case unitkind.Socket:
		if !present(rec, "Service") {
			rec.Metadata.AddSynthesized("iSocket_of", stem+".service")
		}
		if bind := firstValue(rec, "BindToDevice"); bind != "" {
			rec.Metadata.AddSynthesized("BindsTo", bind)
			rec.Metadata.AddSynthesized("After", stem+".service")
		}

	case unitkind.Service:
		if firstValue(rec, "Type") == "dbus" {
			rec.Metadata.AddSynthesized("Requires", "dbus.socket")
			rec.Metadata.AddSynthesized("After", "dbus.socket")
		}
		if sockets := rec.Directives["Sockets"]; len(sockets) > 0 {
			rec.Metadata.AddSynthesized("Wants", sockets...)
			rec.Metadata.AddSynthesized("After", sockets...)
		}

	case unitkind.Timer:
		if !present(rec, "Unit") {
			rec.Metadata.AddSynthesized("iTimer_for", stem+".service")
			rec.Metadata.AddSynthesized("Before", stem+".service")
		}
	}

	if present(rec, "TTYPath") {
		rec.Metadata.AddSynthesized("After", "systemd-vconsole-setup.service")
	}
	if present(rec, "LogNamespace") {
		rec.Metadata.AddSynthesized("Requires", "systemd-journald@.service")
	}
	if slice := firstValue(rec, "Slice"); slice != "" {
		rec.Metadata.AddSynthesized("Requires", slice)
		rec.Metadata.AddSynthesized("After", slice)
	}

	if prefix, ok := templateInstance(name); ok {
		rec.Metadata.AddSynthesized("iTemplate_of", prefix+"@."+string(kind))
		rec.Metadata.AddSynthesized("iSlice_of", prefix+".slice")
	}
}

func present(rec *artifact.Record, directive string) bool {
	return len(rec.Directives[directive]) > 0
}

func firstValue(rec *artifact.Record, directive string) string {
	vals := rec.Directives[directive]
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// stemOf returns name with its suffix (the text after the last '.')
// removed.
func stemOf(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[:idx]
	}
	return name
}

// templateInstance reports whether name is an instantiated template
// unit ("prefix@instance.kind" with a non-empty instance), returning
// the template prefix if so.
func templateInstance(name string) (prefix string, ok bool) {
	at := strings.Index(name, "@")
	if at < 0 {
		return "", false
	}
	dot := strings.LastIndex(name, ".")
	if dot < at {
		return "", false
	}
	if name[at+1:dot] == "" {
		return "", false
	}
	return name[:at], true
}
