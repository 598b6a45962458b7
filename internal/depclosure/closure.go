package depclosure

import (
	"encoding/json"
	"sort"
	"strings"

	"sysdsnap/internal/artifact"
	"sysdsnap/internal/masterstructure"
)

// MountPointInfo describes one fstab-synthesized mount/swap unit for
// the Dependency Map's dynamic_mount_points entry.
type MountPointInfo struct {
	GeneratorName string `json:"generator_name,omitempty"`
	What          string `json:"what"`
	Where         string `json:"where"`
	Type          string `json:"type"`
}

// DependencyMap is the closure's output: the recorded Dependency-Unit
// for every unit reached during the expansion, plus the synthesized
// fstab mount-point ledger.
type DependencyMap struct {
	Units              map[string]*Record
	DynamicMountPoints map[string]MountPointInfo
}

// MarshalJSON flattens Units to the top level, keyed by unit name,
// with dynamic_mount_points as the one reserved sibling key.
func (dm *DependencyMap) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(dm.Units)+1)
	for name, rec := range dm.Units {
		out[name] = rec
	}
	out["dynamic_mount_points"] = dm.DynamicMountPoints
	return json.Marshal(out)
}

// UnmarshalJSON reverses MarshalJSON.
func (dm *DependencyMap) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	dm.Units = make(map[string]*Record)
	dm.DynamicMountPoints = make(map[string]MountPointInfo)

	for key, v := range raw {
		if key == "dynamic_mount_points" {
			if err := json.Unmarshal(v, &dm.DynamicMountPoints); err != nil {
				return err
			}
			continue
		}
		var rec Record
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		dm.Units[key] = &rec
	}
	return nil
}

// Engine drives the single-threaded BFS worklist over a Master
// Structure.
type Engine struct {
	ms      *masterstructure.MasterStructure
	altRoot string
	log     logger
}

// New builds an Engine over ms. altRoot is needed only to resolve
// non-absolute command paths when attaching binary metadata.
func New(ms *masterstructure.MasterStructure, altRoot string, log logger) *Engine {
	if log == nil {
		log = nopLogger{}
	}
	return &Engine{ms: ms, altRoot: altRoot, log: log}
}

// Build runs the closure starting at origin and returns the completed
// Dependency Map.
func (e *Engine) Build(origin string) *DependencyMap {
	dm := &DependencyMap{Units: make(map[string]*Record)}

	unrecorded := []Triple{{Dependency: origin, Owner: NoParent, ReverseKind: NoReverseKind}}
	recorded := make(map[Triple]bool)
	queued := make(map[Triple]bool)
	queued[unrecorded[0]] = true

	entryKeys := sortedKeys(e.ms.Entries)

	for len(unrecorded) > 0 {
		t := unrecorded[0]
		unrecorded = unrecorded[1:]

		du := NewDependencyUnit(t.Dependency, t.Owner, t.ReverseKind, e.log)
		var pending []Triple

		if existing, ok := dm.Units[t.Dependency]; ok {
			du.ConsumePrior(existing)
		} else {
			for _, key := range entryKeys {
				last := lastPathSegment(key)
				if !strings.Contains(last, t.Dependency) {
					continue
				}
				rec := e.ms.Entries[key]
				du.ConsumeArtifact(rec)
				if rec.Metadata.FileType == artifact.SymLink && rec.SymLink != nil {
					pending = append(pending, Triple{
						Dependency:  rec.SymLink.TargetBasename,
						Owner:       key,
						ReverseKind: "sym_linked_from",
					})
				}
			}
		}

		e.attachBinaryMetadata(du)
		dm.Units[t.Dependency] = du.ToRecord()

		pending = append(pending, du.EmitNonSymlinkTriples(t.Dependency)...)

		for _, nt := range pending {
			if nt.ReverseKind == "sym_linked_from" && !strings.Contains(nt.Owner, "/") {
				continue
			}
			if recorded[nt] || queued[nt] {
				continue
			}
			queued[nt] = true
			unrecorded = append(unrecorded, nt)
		}

		recorded[t] = true
	}

	e.applyFstabPostPass(dm)
	e.applyNestedMountPostPass(dm)
	return dm
}

func (e *Engine) attachBinaryMetadata(d *DependencyUnit) {
	for _, cmd := range d.Commands {
		bin := masterstructure.ExtractExecutablePath(cmd)
		bin = masterstructure.ResolveExecPath(e.altRoot, bin)
		if bin == "" {
			continue
		}
		needed, ok := e.ms.Binaries[bin]
		if !ok {
			continue
		}
		d.Binaries = appendUnique(d.Binaries, bin)
		e.expandLibraries(d, needed, make(map[string]bool))
		d.Files = appendUniqueAll(d.Files, e.ms.Files[bin])
		d.Strings = appendUniqueAll(d.Strings, e.ms.Strings[bin])
	}
}

// expandLibraries recurses through the NEEDED closure, guarding
// against cycles both via seen (this call's recursion) and via
// d.Libraries (already recorded for this unit).
func (e *Engine) expandLibraries(d *DependencyUnit, libs []string, seen map[string]bool) {
	for _, lib := range libs {
		if seen[lib] || containsString(d.Libraries, lib) {
			continue
		}
		seen[lib] = true
		d.Libraries = appendUnique(d.Libraries, lib)
		if children, ok := e.ms.Libraries[lib]; ok {
			e.expandLibraries(d, children, seen)
		}
	}
}

// applyFstabPostPass inserts one Dependency-Unit per fstab-
// synthesized record and records the dynamic_mount_points ledger.
func (e *Engine) applyFstabPostPass(dm *DependencyMap) {
	dm.DynamicMountPoints = make(map[string]MountPointInfo)
	for _, key := range sortedKeys(e.ms.Entries) {
		rec := e.ms.Entries[key]
		if rec.Metadata.FileType != artifact.FstabUnit {
			continue
		}
		name := lastPathSegment(key)

		du := NewDependencyUnit(name, NoParent, NoReverseKind, e.log)
		du.ConsumeArtifact(rec)
		dm.Units[name] = du.ToRecord()

		dm.DynamicMountPoints[name] = MountPointInfo{
			GeneratorName: name,
			What:          firstOrEmpty(rec.Directives["What"]),
			Where:         firstOrEmpty(rec.Directives["Where"]),
			Type:          firstOrEmpty(rec.Directives["Type"]),
		}
	}
}

// applyNestedMountPostPass wires the manager's mount-nesting
// convention by name: for every pair of units a and b whose names end
// in "mount", if a's name before its first dot is non-empty and occurs
// as a substring of b's (as "mnt" does in "mnt-data"), b gains a in
// its Requires and After relations.
func (e *Engine) applyNestedMountPostPass(dm *DependencyMap) {
	var mounts []string
	for name := range dm.Units {
		if strings.HasSuffix(name, "mount") {
			mounts = append(mounts, name)
		}
	}
	sort.Strings(mounts)

	for _, a := range mounts {
		for _, b := range mounts {
			if a == b {
				continue
			}
			stemA := stemBeforeFirstDot(a)
			stemB := stemBeforeFirstDot(b)
			if stemA == "" || !strings.Contains(stemB, stemA) {
				continue
			}
			rb := dm.Units[b]
			rb.addRequires(a)
			rb.addAfter(a)
		}
	}
}

func (r *Record) addRequires(dep string) {
	r.Forward["Requires"] = appendUnique(r.Forward["Requires"], dep)
	r.Dependencies = appendUnique(r.Dependencies, dep)
	sort.Strings(r.Forward["Requires"])
	sort.Strings(r.Dependencies)
}

func (r *Record) addAfter(dep string) {
	r.Forward["After"] = appendUnique(r.Forward["After"], dep)
	sort.Strings(r.Forward["After"])
}

func lastPathSegment(key string) string {
	trimmed := strings.TrimSuffix(key, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

func stemBeforeFirstDot(name string) string {
	if idx := strings.Index(name, "."); idx >= 0 {
		return name[:idx]
	}
	return name
}

func firstOrEmpty(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

func containsString(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]*artifact.Record) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
