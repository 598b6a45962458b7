package graph

import (
	"path/filepath"
	"strings"

	"sysdsnap/internal/artifact"
	"sysdsnap/internal/masterstructure"
)

var execDirectives = []string{
	"ExecStart", "ExecCondition", "ExecStartPre", "ExecStartPost",
	"ExecReload", "ExecStop", "ExecStopPost",
}

// Build assembles the typed multigraph for ms.
func Build(ms *masterstructure.MasterStructure) *Graph {
	g := New()

	for path, rec := range ms.Entries {
		switch rec.Metadata.FileType {
		case artifact.SymLink:
			addAlias(g, path, rec)
		case artifact.UnitFile, artifact.FstabUnit:
			addUnit(g, path, rec, ms)
		}
	}

	return g
}

func addAlias(g *Graph, path string, rec *artifact.Record) {
	if rec.SymLink == nil {
		return
	}
	aliasID := VertexID{ID: filepath.Base(path), Kind: KindAlias}
	g.AddVertex(aliasID, aliasID.ID)

	target := VertexID{ID: rec.SymLink.TargetBasename, Kind: KindUnit}
	g.AddVertex(target, target.ID)
	g.AddEdge(aliasID, target, "ALIAS")
}

func addUnit(g *Graph, path string, rec *artifact.Record, ms *masterstructure.MasterStructure) {
	owner := unitVertex(path)
	g.AddVertex(owner, ownerLabel(owner, path))

	for _, directive := range execDirectives {
		lines := rec.Directives[directive]
		if len(lines) == 0 {
			continue
		}
		addCommand(g, owner, directive, lines, ms)
	}

	for _, relation := range artifact.ForwardRelations {
		for _, name := range directiveValues(rec, relation) {
			drawRelationEdge(g, owner, relation, name)
		}
	}
	for _, name := range directiveValues(rec, "Before") {
		to := referencedUnitVertex(g, name)
		g.AddEdge(owner, to, "Before")
	}
	for _, name := range directiveValues(rec, "After") {
		from := referencedUnitVertex(g, name)
		g.AddEdge(from, owner, "After")
	}
}

// directiveValues reads both the record's own directives and any
// synthesized values the implicit-dependency rules added for the
// named attribute.
func directiveValues(rec *artifact.Record, name string) []string {
	out := append([]string{}, rec.Directives[name]...)
	if rec.Metadata.Synthesized != nil {
		out = append(out, rec.Metadata.Synthesized[name]...)
	}
	return out
}

func drawRelationEdge(g *Graph, owner VertexID, relation, name string) {
	to := referencedUnitVertex(g, name)
	g.AddEdge(owner, to, relation)
}

// referencedUnitVertex adds the UNIT vertex a relation/ordering edge
// points at if it isn't already present, giving it a generic label
// ("UNKNOWN", or "TEMPLATE" for instantiated names). A unit already
// present as an owner keeps its own label untouched.
func referencedUnitVertex(g *Graph, name string) VertexID {
	id := VertexID{ID: name, Kind: KindUnit}
	if g.HasVertex(id) {
		return id
	}
	label := "UNKNOWN"
	if masterstructure.IsTemplateInstance(name) {
		label = "TEMPLATE"
	}
	g.AddVertex(id, label)
	return id
}

// unitVertex classifies path into a UNIT (keyed by basename) or,
// when its parent directory is a .d drop-in directory, a DROPIN
// (keyed by full path).
func unitVertex(path string) VertexID {
	if filepath.Ext(filepath.Dir(path)) == ".d" {
		return VertexID{ID: path, Kind: KindDropin}
	}
	return VertexID{ID: filepath.Base(path), Kind: KindUnit}
}

func ownerLabel(id VertexID, path string) string {
	if id.Kind == KindDropin {
		return path
	}
	return id.ID
}

func addCommand(g *Graph, owner VertexID, directive string, lines []string, ms *masterstructure.MasterStructure) {
	joined := strings.Join(lines, "; ")
	cmdID := VertexID{ID: joined, Kind: CommandKind(directive)}
	label := strings.ReplaceAll(joined, ";", "\n")
	g.AddVertex(cmdID, label)
	g.AddEdge(owner, cmdID, directive)

	for _, line := range lines {
		bin := masterstructure.ExtractExecutablePath(line)
		if bin == "" {
			continue
		}
		bin = masterstructure.ResolveExecPath(ms.RemotePath, bin)
		addExecutable(g, cmdID, bin, ms)
	}
}

func addExecutable(g *Graph, cmdID VertexID, bin string, ms *masterstructure.MasterStructure) {
	execID := VertexID{ID: bin, Kind: KindExecutable}
	g.AddVertex(execID, bin)
	g.AddEdge(cmdID, execID, "EXECUTABLE")

	for _, lib := range ms.Binaries[bin] {
		libID := VertexID{ID: lib, Kind: KindLibrary}
		g.AddVertex(libID, lib)
		g.AddEdge(execID, libID, "LIBRARY")
	}
	for _, f := range ms.Files[bin] {
		strID := VertexID{ID: f, Kind: StringKind("FILE")}
		g.AddVertex(strID, f)
		g.AddEdge(execID, strID, "STRING")
	}
	for _, s := range ms.Strings[bin] {
		strID := VertexID{ID: s, Kind: StringKind("PATH")}
		g.AddVertex(strID, s)
		g.AddEdge(execID, strID, "STRING")
	}
}
