// Package artifact defines the Artifact record: the parsed,
// immutable-once-built form of one filesystem entry under a unit
// search directory. The unit parser constructs these, the implicit-
// dependency rules and the fstab emulator populate or synthesize
// them, the master-structure builder catalogs them, and the closure
// engine consumes them to build the Dependency Map.
package artifact

import "sysdsnap/internal/unitkind"

// FileType is the record's discriminant, exactly one of the four
// kinds a Master Structure entry can be.
type FileType string

const (
	DepDir    FileType = "dep_dir"
	SymLink   FileType = "sym_link"
	UnitFile  FileType = "unit_file"
	FstabUnit FileType = "fstab_unit"
)

// spaceDelimited is the fixed set of directive names whose argument
// text is split on whitespace into multiple list elements rather than
// kept as one element: dependency lists, documentation, mount-for,
// reload/stop/propagation lists, and sockets.
var spaceDelimited = map[string]bool{
	"Wants": true, "Requires": true, "Requisite": true, "BindsTo": true,
	"PartOf": true, "Upholds": true, "Conflicts": true, "Before": true,
	"After": true, "OnFailure": true, "OnSuccess": true,
	"PropagatesReloadTo": true, "ReloadPropagatedFrom": true,
	"JoinsNamespaceOf": true, "RequiresMountsFor": true,
	"Documentation": true, "Sockets": true,
	"WantedBy": true, "RequiredBy": true, "UpheldBy": true, "Also": true,
}

// IsSpaceDelimited reports whether directive's argument text should
// be split on whitespace.
func IsSpaceDelimited(directive string) bool {
	return spaceDelimited[directive]
}

// ForwardRelations is the fixed set of directive names that are
// forward relations contributing to Dependencies, in the order
// they're listed in the relation catalog. Before/After are ordering
// edges, not relations, and are excluded per the Dependencies
// invariant.
var ForwardRelations = []string{
	"Wants", "Requires", "Requisite", "BindsTo", "PartOf", "Upholds",
	"OnSuccess", "Sockets", "Service",
	"iTimer_for", "iSocket_of", "iPath_for", "iTemplate_of", "iSlice_of",
}

// ReverseOf maps a forward relation name to its reverse-edge label.
// Before/After have no reverse label and are absent here.
var ReverseOf = map[string]string{
	"sym_linked_to": "sym_linked_from",
	"Wants":         "wanted_by",
	"Requires":      "required_by",
	"Requisite":     "requisite_of",
	"BindsTo":       "bound_by",
	"PartOf":        "has_part",
	"Upholds":       "upheld_by",
	"OnSuccess":     "on_success_of",
	"Sockets":       "socket_of",
	"Service":       "uses_service",
	"iTimer_for":    "has_timer",
	"iSocket_of":    "has_socket",
	"iPath_for":     "needs_path",
	"iTemplate_of":  "uses_template",
	"iSlice_of":     "uses_slice",
}

// SymLinkData is the payload carried by a Symbolic-Link record.
type SymLinkData struct {
	LinkBasename   string `json:"link_basename"`
	TargetDir      string `json:"target_dir"` // absolute, alt-root stripped, trailing "/"
	TargetBasename string `json:"target_basename"`
}

// TargetPath returns TargetDir+TargetBasename.
func (s SymLinkData) TargetPath() string {
	return s.TargetDir + s.TargetBasename
}

// Metadata is an Artifact record's metadata sub-mapping: the file
// type discriminant, the unit kind (for unit_file/fstab_unit), and
// any directives synthesized by the implicit-dependency rules.
type Metadata struct {
	FileType    FileType            `json:"file_type"`
	Kind        unitkind.Kind       `json:"kind,omitempty"`
	Synthesized map[string][]string `json:"synthesized,omitempty"`
}

// AddSynthesized unions values into the synthesized directive named
// key; an existing key's set is unioned, never overwritten.
func (m *Metadata) AddSynthesized(key string, values ...string) {
	if m.Synthesized == nil {
		m.Synthesized = make(map[string][]string)
	}
	existing := m.Synthesized[key]
	for _, v := range values {
		if !contains(existing, v) {
			existing = append(existing, v)
		}
	}
	m.Synthesized[key] = existing
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// Record is the parsed form of one filesystem entry.
type Record struct {
	Path     string   `json:"path,omitempty"`
	Metadata Metadata `json:"metadata"`

	// Dependency-Directory fields.
	Entries []string `json:"entries,omitempty"`

	// Symbolic-Link field.
	SymLink *SymLinkData `json:"sym_link,omitempty"`

	// Unit-File / fstab_unit field: recognized directive name to its
	// argument list, keyed exactly as written in the file (including
	// "config_files" for .d directories' synthetic key).
	Directives map[string][]string `json:"directives,omitempty"`
}

// AddDirective appends values to the directive's argument list,
// implementing "duplicate directive lines append (do not overwrite)".
func (r *Record) AddDirective(name string, values ...string) {
	if r.Directives == nil {
		r.Directives = make(map[string][]string)
	}
	r.Directives[name] = append(r.Directives[name], values...)
}

// Dependencies computes the union of every forward relation except
// Before/After, satisfying the record-level half of the Dependencies
// invariant (the full invariant also covers sym_linked_to, handled by
// the caller since it lives outside Directives for symlink records).
func (r *Record) Dependencies() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(values []string) {
		for _, v := range values {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	for _, rel := range ForwardRelations {
		add(r.Directives[rel])
		if r.Metadata.Synthesized != nil {
			add(r.Metadata.Synthesized[rel])
		}
	}
	return out
}
