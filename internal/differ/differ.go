// Package differ structurally compares two artifacts of identical
// shape (two Master Structures, or two Dependency Maps), with a
// library-version noise suppression pass over the four
// binary-forensics catalogs.
package differ

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"sysdsnap/internal/errors"
)

// binaryCatalogs is the set of top-level keys that get the
// library-version suppression pass applied to their list-differences.
var binaryCatalogs = map[string]bool{
	"binaries": true, "libraries": true, "files": true, "strings": true,
}

// Diff is a nested mapping recording every difference found between
// an origin and a comparison artifact. Values are one of: a plain
// string note ("present in origin only", "unusual type: ..."), a
// ValueChange, a ListDiff, or a nested Diff.
type Diff map[string]any

// ValueChange records a string-valued key that differs between the
// two inputs.
type ValueChange struct {
	Origin     string `json:"origin"`
	Comparison string `json:"comparison"`
}

// ListDiff is the result of comparing two list-valued keys: the items
// unique to each side. UniqueToOrigin/UniqueToComparison are nil (not
// empty) once every member has either matched or been folded into
// Updates, so an empty ListDiff marshals without either field.
type ListDiff struct {
	UniqueToOrigin     []string          `json:"unique_to_origin,omitempty"`
	UniqueToComparison []string          `json:"unique_to_comparison,omitempty"`
	Updates            map[string]string `json:"updates,omitempty"`
}

func (ld ListDiff) empty() bool {
	return len(ld.UniqueToOrigin) == 0 && len(ld.UniqueToComparison) == 0 && len(ld.Updates) == 0
}

// Load reads path as a JSON-encoded artifact. Any failure to find,
// open, or parse it is InputLoadFailure, the one fatal error kind.
func Load(path string) (map[string]any, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(errors.InputLoadFailure, "cannot stat input", err).WithSubject(path)
	}
	if info.IsDir() {
		return nil, errors.New(errors.InputLoadFailure, "input is a directory").WithSubject(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.InputLoadFailure, "cannot read input", err).WithSubject(path)
	}
	m, err := decode(data)
	if err != nil {
		return nil, errors.Wrap(errors.InputLoadFailure, "input is not valid JSON", err).WithSubject(path)
	}
	return m, nil
}

// ToGeneric normalizes a typed artifact (a *masterstructure.MasterStructure
// or a *depclosure.DependencyMap) into the generic map[string]any shape
// Compare walks, by round-tripping it through JSON.
func ToGeneric(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(errors.InputLoadFailure, "cannot marshal input for comparison", err)
	}
	m, err := decode(data)
	if err != nil {
		return nil, errors.Wrap(errors.InputLoadFailure, "cannot normalize input for comparison", err)
	}
	return m, nil
}

func decode(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Compare walks origin's top-level key set against comparison's, then
// repeats the walk keyed on comparison to pick up keys present there
// only.
func Compare(origin, comparison map[string]any) Diff {
	out := Diff{}
	for k, av := range origin {
		bv, ok := comparison[k]
		if !ok {
			out[k] = "present in origin only"
			continue
		}
		if d := compareTopLevel(k, av, bv); d != nil {
			out[k] = d
		}
	}
	for k := range comparison {
		if _, ok := origin[k]; ok {
			continue
		}
		out[k] = "present in comparison only"
	}
	return out
}

func compareTopLevel(key string, av, bv any) any {
	switch a := av.(type) {
	case string:
		b, ok := bv.(string)
		if !ok || a != b {
			return ValueChange{Origin: a, Comparison: fmt.Sprint(bv)}
		}
		return nil
	case map[string]any:
		b, ok := bv.(map[string]any)
		if !ok {
			return fmt.Sprintf("unusual type: comparison value is %T", bv)
		}
		sub := compareSubMapping(key, a, b)
		if binaryCatalogs[key] {
			sub = suppressLibraryVersionNoise(sub)
		}
		if len(sub) == 0 {
			return nil
		}
		return sub
	default:
		return fmt.Sprintf("unusual type: %T", av)
	}
}

// compareSubMapping recurses by type on every sub-key, then repeats
// the walk keyed on b to pick up sub-keys present there only.
func compareSubMapping(topKey string, a, b map[string]any) Diff {
	out := Diff{}
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			out[k] = "present in origin only"
			continue
		}
		if d := compareSubValue(av, bv); d != nil {
			out[k] = d
		}
	}
	for k := range b {
		if _, ok := a[k]; ok {
			continue
		}
		out[k] = "present in comparison only"
	}
	return out
}

func compareSubValue(av, bv any) any {
	switch a := av.(type) {
	case string:
		b, ok := bv.(string)
		if !ok || a != b {
			return ValueChange{Origin: a, Comparison: fmt.Sprint(bv)}
		}
		return nil
	case []any:
		b, ok := bv.([]any)
		if !ok {
			return fmt.Sprintf("unusual type: comparison value is %T", bv)
		}
		ld := listDiff(toStrings(a), toStrings(b))
		if ld.empty() {
			return nil
		}
		return ld
	case map[string]any:
		b, ok := bv.(map[string]any)
		if !ok {
			return fmt.Sprintf("unusual type: comparison value is %T", bv)
		}
		sub := compareSubMapping("", a, b)
		if len(sub) == 0 {
			return nil
		}
		return sub
	default:
		return fmt.Sprintf("unusual type: %T", av)
	}
}

func toStrings(items []any) []string {
	out := make([]string, 0, len(items))
	for _, v := range items {
		out = append(out, fmt.Sprint(v))
	}
	return out
}

func listDiff(a, b []string) ListDiff {
	inB := make(map[string]bool, len(b))
	for _, v := range b {
		inB[v] = true
	}
	inA := make(map[string]bool, len(a))
	for _, v := range a {
		inA[v] = true
	}

	var uniqueA, uniqueB []string
	for _, v := range a {
		if !inB[v] {
			uniqueA = append(uniqueA, v)
		}
	}
	for _, v := range b {
		if !inA[v] {
			uniqueB = append(uniqueB, v)
		}
	}
	sort.Strings(uniqueA)
	sort.Strings(uniqueB)
	return ListDiff{UniqueToOrigin: uniqueA, UniqueToComparison: uniqueB}
}

// suppressLibraryVersionNoise scans every list-difference recorded
// under a binary catalog's sub-keys and folds basename-before-first-
// dot matches (libc.so.6 vs libc.so.7) into a single catalog-level
// "updates" entry.
func suppressLibraryVersionNoise(sub Diff) Diff {
	updates := map[string]string{}

	for subKey, v := range sub {
		ld, ok := v.(ListDiff)
		if !ok {
			continue
		}
		usedComp := make([]bool, len(ld.UniqueToComparison))
		var remainOrigin []string
		for _, origin := range ld.UniqueToOrigin {
			stem := stemBeforeFirstDot(origin)
			matched := false
			for i, comp := range ld.UniqueToComparison {
				if usedComp[i] {
					continue
				}
				if stemBeforeFirstDot(comp) == stem {
					updates[stem] = fmt.Sprintf("Changed from %s to %s", origin, comp)
					usedComp[i] = true
					matched = true
					break
				}
			}
			if !matched {
				remainOrigin = append(remainOrigin, origin)
			}
		}
		var remainComp []string
		for i, comp := range ld.UniqueToComparison {
			if !usedComp[i] {
				remainComp = append(remainComp, comp)
			}
		}

		newLd := ListDiff{UniqueToOrigin: remainOrigin, UniqueToComparison: remainComp}
		if newLd.empty() {
			delete(sub, subKey)
		} else {
			sub[subKey] = newLd
		}
	}

	if len(updates) > 0 {
		sub["updates"] = updates
	}
	return sub
}

func stemBeforeFirstDot(name string) string {
	base := name
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		base = name[i+1:]
	}
	if i := strings.IndexByte(base, '.'); i >= 0 {
		return base[:i]
	}
	return base
}
