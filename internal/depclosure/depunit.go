// Package depclosure builds the Dependency Map: DependencyUnit is the
// per-unit accumulator consumed as each edge triple is dequeued, and
// Engine drives the breadth-first worklist that expands the map
// outward from an origin unit.
package depclosure

import (
	"path/filepath"
	"sort"

	"sysdsnap/internal/artifact"
)

// NoParent and NoReverseKind are the sentinel values carried by the
// origin unit's seed triple.
const (
	NoParent      = "None"
	NoReverseKind = "None"
)

// execDirectiveSet is the fixed command-directive set whose argument
// lists feed DependencyUnit.Commands.
var execDirectiveSet = map[string]bool{
	"ExecStart": true, "ExecCondition": true, "ExecStartPre": true,
	"ExecStartPost": true, "ExecReload": true, "ExecStop": true, "ExecStopPost": true,
}

// orderingKeys are forward-set attributes with no reverse-kind: they
// land in Forward (and thus in the Dependency Map's record) but never
// contribute to Dependencies or to emitted edge triples.
var orderingKeys = map[string]bool{"Before": true, "After": true}

// forwardAttrSet is every directive name DependencyUnit recognizes as
// a forward-set attribute: the relation catalog plus the two ordering
// directives.
var forwardAttrSet = buildForwardAttrSet()

func buildForwardAttrSet() map[string]bool {
	set := make(map[string]bool, len(artifact.ForwardRelations)+2)
	for _, r := range artifact.ForwardRelations {
		set[r] = true
	}
	set["Before"] = true
	set["After"] = true
	return set
}

type logger interface {
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}

// Triple is an edge triple: the dependency's name, the owner that
// induces it, and the reverse-kind label the dependency should
// attach to the owner.
type Triple struct {
	Dependency  string
	Owner       string
	ReverseKind string
}

// DependencyUnit is the per-unit aggregator, constructed fresh for
// each edge triple the engine dequeues.
type DependencyUnit struct {
	Name        string
	ParentPath  string
	ReverseKind string

	Parents     []string
	ReverseDeps []string
	Forward     map[string][]string
	Reverse     map[string][]string

	Commands  []string
	Binaries  []string
	Libraries []string
	Files     []string
	Strings   []string

	log logger
}

// NewDependencyUnit constructs the aggregator for the triple (name,
// parentPath, reverseKind): the parent's basename lands in Parents,
// the reverse-kind in ReverseDeps, and the parent in the set the
// reverse-kind names (the full parent path for sym_linked_from).
func NewDependencyUnit(name, parentPath, reverseKind string, log logger) *DependencyUnit {
	if log == nil {
		log = nopLogger{}
	}
	d := &DependencyUnit{
		Name:        name,
		ParentPath:  parentPath,
		ReverseKind: reverseKind,
		Forward:     make(map[string][]string),
		Reverse:     make(map[string][]string),
		log:         log,
	}

	if parentPath != NoParent {
		d.Parents = appendUnique(d.Parents, filepath.Base(parentPath))
	}

	if reverseKind != NoReverseKind {
		if !isKnownReverseKind(reverseKind) {
			log.Warn("unrecognized reverse-kind", "reverse_kind", reverseKind, "unit", name)
			d.ReverseDeps = appendUnique(d.ReverseDeps, reverseKind)
			return d
		}
		d.ReverseDeps = appendUnique(d.ReverseDeps, reverseKind)
		value := filepath.Base(parentPath)
		if reverseKind == "sym_linked_from" {
			value = parentPath
		}
		d.Reverse[reverseKind] = appendUnique(d.Reverse[reverseKind], value)
	}

	return d
}

func isKnownReverseKind(kind string) bool {
	for _, v := range artifact.ReverseOf {
		if v == kind {
			return true
		}
	}
	return false
}

// ConsumeArtifact folds one Master-Structure Artifact record into D,
// dispatching on the record's file type.
func (d *DependencyUnit) ConsumeArtifact(rec *artifact.Record) {
	switch rec.Metadata.FileType {
	case artifact.DepDir:
		for _, key := range []string{"Wants", "Requires"} {
			if vals := rec.Directives[key]; len(vals) > 0 {
				d.unionForward(key, vals...)
			}
		}

	case artifact.SymLink:
		if rec.SymLink != nil {
			d.unionForward("sym_linked_to", rec.SymLink.TargetPath())
		}

	case artifact.UnitFile, artifact.FstabUnit:
		for key, vals := range rec.Directives {
			if key == "Where" {
				continue
			}
			if forwardAttrSet[key] {
				d.unionForward(key, vals...)
			} else {
				d.log.Debug("directive has no forward-set attribute", "unit", d.Name, "directive", key)
			}
			if execDirectiveSet[key] {
				d.Commands = appendUniqueAll(d.Commands, vals)
			}
		}
		for key, vals := range rec.Metadata.Synthesized {
			d.unionForward(key, vals...)
		}
	}
}

// ConsumePrior merges an already-recorded Dependency-Unit (the same
// unit reached via another path) into D. The forensic sets are left
// alone: those are re-derived from Commands.
func (d *DependencyUnit) ConsumePrior(prior *Record) {
	for relation, values := range prior.Forward {
		d.unionForward(relation, values...)
	}
	for kind, values := range prior.Reverse {
		d.Reverse[kind] = appendUniqueAll(d.Reverse[kind], values)
	}
	d.ReverseDeps = appendUniqueAll(d.ReverseDeps, prior.ReverseDeps)
	d.Parents = appendUniqueAll(d.Parents, prior.Parents)
	d.Commands = appendUniqueAll(d.Commands, prior.Commands)
}

func (d *DependencyUnit) unionForward(relation string, values ...string) {
	d.Forward[relation] = appendUniqueAll(d.Forward[relation], values)
}

// Dependencies is the union of every forward relation except the two
// ordering directives.
func (d *DependencyUnit) Dependencies() []string {
	var out []string
	for relation, values := range d.Forward {
		if orderingKeys[relation] {
			continue
		}
		out = appendUniqueAll(out, values)
	}
	return out
}

// EmitNonSymlinkTriples emits one triple per element of every forward
// relation that carries a reverse-kind, excluding sym_linked_to
// (emitted immediately at scan time instead, with the full artifact
// path as owner). The owner position is the unit's own basename.
func (d *DependencyUnit) EmitNonSymlinkTriples(unitName string) []Triple {
	var out []Triple
	for relation, values := range d.Forward {
		if relation == "sym_linked_to" {
			continue
		}
		reverseKind, ok := artifact.ReverseOf[relation]
		if !ok {
			continue
		}
		for _, v := range values {
			out = append(out, Triple{Dependency: v, Owner: unitName, ReverseKind: reverseKind})
		}
	}
	return out
}

// Record is the Dependency Map's serialized form of a DependencyUnit:
// sets rendered as sorted sequences.
type Record struct {
	Name         string              `json:"name"`
	Parents      []string            `json:"parents,omitempty"`
	ReverseDeps  []string            `json:"reverse_deps,omitempty"`
	Forward      map[string][]string `json:"forward,omitempty"`
	Reverse      map[string][]string `json:"reverse,omitempty"`
	Dependencies []string            `json:"dependencies,omitempty"`
	Commands     []string            `json:"commands,omitempty"`
	Binaries     []string            `json:"binaries,omitempty"`
	Libraries    []string            `json:"libraries,omitempty"`
	Files        []string            `json:"files,omitempty"`
	Strings      []string            `json:"strings,omitempty"`
}

// ToRecord finalizes D into its serialized Record form.
func (d *DependencyUnit) ToRecord() *Record {
	return &Record{
		Name:         d.Name,
		Parents:      sortedCopy(d.Parents),
		ReverseDeps:  sortedCopy(d.ReverseDeps),
		Forward:      sortedMapCopy(d.Forward),
		Reverse:      sortedMapCopy(d.Reverse),
		Dependencies: sortedCopy(d.Dependencies()),
		Commands:     sortedCopy(d.Commands),
		Binaries:     sortedCopy(d.Binaries),
		Libraries:    sortedCopy(d.Libraries),
		Files:        sortedCopy(d.Files),
		Strings:      sortedCopy(d.Strings),
	}
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

func appendUniqueAll(list []string, values []string) []string {
	for _, v := range values {
		list = appendUnique(list, v)
	}
	return list
}

func sortedCopy(list []string) []string {
	out := append([]string{}, list...)
	sort.Strings(out)
	return out
}

func sortedMapCopy(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = sortedCopy(v)
	}
	return out
}
