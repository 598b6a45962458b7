// Package unitkind holds the fixed per-unit-kind directive tables: for
// each of the eleven systemd unit kinds (plus the catch-all "conf"
// kind used for drop-ins and other *.conf files), which config-file
// sections it accepts and which directive names are valid inside each
// section. The table is data, not code, so it ships as an embedded
// TOML asset rather than a Go literal.
package unitkind

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed options.toml
var optionsTOML []byte

// Kind identifies one of the eleven unit kinds spec'd out by systemd,
// plus "conf" for drop-in and plain config files.
type Kind string

const (
	Target    Kind = "target"
	Device    Kind = "device"
	Slice     Kind = "slice"
	Scope     Kind = "scope"
	Service   Kind = "service"
	Socket    Kind = "socket"
	Mount     Kind = "mount"
	Automount Kind = "automount"
	Swap      Kind = "swap"
	Path      Kind = "path"
	Timer     Kind = "timer"
	Conf      Kind = "conf"
)

// KindForSuffix maps a unit file's extension (without the leading
// dot) to its Kind. A suffix with no entry here is not a recognized
// unit kind; the parser warns and falls back to target for such
// files.
var KindForSuffix = map[string]Kind{
	"target":    Target,
	"device":    Device,
	"slice":     Slice,
	"scope":     Scope,
	"service":   Service,
	"socket":    Socket,
	"mount":     Mount,
	"automount": Automount,
	"swap":      Swap,
	"path":      Path,
	"timer":     Timer,
	"conf":      Conf,
}

type kindSpec struct {
	Groups []string `toml:"groups"`
}

type groupSpec struct {
	Directives []string `toml:"directives"`
}

type document struct {
	Target    kindSpec             `toml:"target"`
	Device    kindSpec             `toml:"device"`
	Slice     kindSpec             `toml:"slice"`
	Scope     kindSpec             `toml:"scope"`
	Service   kindSpec             `toml:"service"`
	Socket    kindSpec             `toml:"socket"`
	Mount     kindSpec             `toml:"mount"`
	Automount kindSpec             `toml:"automount"`
	Swap      kindSpec             `toml:"swap"`
	Path      kindSpec             `toml:"path"`
	Timer     kindSpec             `toml:"timer"`
	Conf      kindSpec             `toml:"conf"`
	Groups    map[string]groupSpec `toml:"groups"`
}

// Table is the parsed, queryable form of options.toml.
type Table struct {
	kindGroups map[Kind][]string
	groupDirs  map[string]map[string]bool
}

var loaded *Table

func init() {
	t, err := parse(optionsTOML)
	if err != nil {
		panic(fmt.Sprintf("unitkind: embedded options.toml is invalid: %v", err))
	}
	loaded = t
}

func parse(data []byte) (*Table, error) {
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing options.toml: %w", err)
	}

	kinds := map[Kind]kindSpec{
		Target: doc.Target, Device: doc.Device, Slice: doc.Slice,
		Scope: doc.Scope, Service: doc.Service, Socket: doc.Socket,
		Mount: doc.Mount, Automount: doc.Automount, Swap: doc.Swap,
		Path: doc.Path, Timer: doc.Timer, Conf: doc.Conf,
	}

	t := &Table{
		kindGroups: make(map[Kind][]string, len(kinds)),
		groupDirs:  make(map[string]map[string]bool, len(doc.Groups)),
	}
	for k, spec := range kinds {
		t.kindGroups[k] = spec.Groups
	}
	for name, spec := range doc.Groups {
		set := make(map[string]bool, len(spec.Directives))
		for _, d := range spec.Directives {
			set[d] = true
		}
		t.groupDirs[name] = set
	}
	return t, nil
}

// Default returns the Table parsed from the embedded options.toml.
func Default() *Table {
	return loaded
}

// AcceptsGroup reports whether kind's unit files accept the named
// config-file section (e.g. "Service", "Install").
func (t *Table) AcceptsGroup(kind Kind, group string) bool {
	for _, g := range t.kindGroups[kind] {
		if strings.EqualFold(g, group) {
			return true
		}
	}
	return false
}

// KnowsDirective reports whether directive is a recognized option
// name within group, regardless of which kind the caller reached it
// through. A group this table has never heard of is treated as
// accepting anything. "conf" files are checked against the Unit,
// Service and Install groups like any other kind.
func (t *Table) KnowsDirective(group, directive string) bool {
	dirs, ok := t.groupDirs[group]
	if !ok {
		return true
	}
	return dirs[directive]
}

// Groups returns the ordered group-name list accepted by kind.
func (t *Table) Groups(kind Kind) []string {
	return t.kindGroups[kind]
}
