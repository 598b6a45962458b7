// Package report renders a Dependency Map into a human-readable,
// indented plain-text form — unit, then relation, then dependents —
// as a terminal-friendly alternative to piping the JSON sink through
// a query tool.
package report

import (
	"fmt"
	"sort"
	"strings"

	"sysdsnap/internal/depclosure"
)

// Render writes dm as an indented report: units sorted lexicographically,
// each followed by its forward relations (outgoing dependencies) and
// reverse relations (incoming dependents), each in turn sorted by
// relation name and then by target.
func Render(dm *depclosure.DependencyMap) string {
	var b strings.Builder

	for _, name := range sortedKeys(dm.Units) {
		rec := dm.Units[name]
		fmt.Fprintf(&b, "%s\n", name)

		writeRelationGroup(&b, "forward", rec.Forward)
		writeRelationGroup(&b, "reverse", rec.Reverse)

		if len(rec.Commands) > 0 {
			fmt.Fprintf(&b, "  commands:\n")
			for _, c := range rec.Commands {
				fmt.Fprintf(&b, "    %s\n", c)
			}
		}
	}

	if len(dm.DynamicMountPoints) > 0 {
		fmt.Fprintf(&b, "dynamic mount points\n")
		names := make([]string, 0, len(dm.DynamicMountPoints))
		for name := range dm.DynamicMountPoints {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			mp := dm.DynamicMountPoints[name]
			fmt.Fprintf(&b, "  %s: %s -> %s (%s)\n", name, mp.What, mp.Where, mp.Type)
		}
	}

	return b.String()
}

func writeRelationGroup(b *strings.Builder, label string, relations map[string][]string) {
	keys := sortedKeys(relations)
	var withValues []string
	for _, k := range keys {
		if len(relations[k]) > 0 {
			withValues = append(withValues, k)
		}
	}
	if len(withValues) == 0 {
		return
	}
	fmt.Fprintf(b, "  %s:\n", label)
	for _, relation := range withValues {
		fmt.Fprintf(b, "    %s:\n", relation)
		targets := append([]string(nil), relations[relation]...)
		sort.Strings(targets)
		for _, target := range targets {
			fmt.Fprintf(b, "      %s\n", target)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
