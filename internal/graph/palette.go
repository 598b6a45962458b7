package graph

import "strings"

// Style carries the rendering attributes attached to vertices/edges
// for downstream sinks. Not semantically significant, but real.
type Style struct {
	FillColor string
	Shape     string
}

// elementFillColors mirrors colors.py's element_fill_colors table: one
// color per vertex family. COMMAND.<suffix> and STRING.<category> kinds
// look up by their family prefix (text before the first '.').
var elementFillColors = map[VertexKind]string{
	"ELEMENT":      "#c0c0c0",
	KindAlias:      "#9f9f9f",
	KindUnit:       "#000000",
	KindDropin:     "#424242",
	"COMMAND":      "#c9df8a",
	KindExecutable: "#77ab59",
	KindLibrary:    "#2b6a97",
	"STRING":       "#b3cbdc",
}

var shapeByFamily = map[VertexKind]string{
	KindAlias:      "ROUND_RECTANGLE",
	KindUnit:       "RECTANGLE",
	KindDropin:     "RECTANGLE",
	"COMMAND":      "RECTANGLE",
	KindExecutable: "ROUND_RECTANGLE",
	KindLibrary:    "ROUND_RECTANGLE",
	"STRING":       "ROUND_RECTANGLE",
}

// PaletteFor returns the fill color and shape for a vertex kind,
// resolving COMMAND.<suffix>/STRING.<category> to their family entry.
func PaletteFor(kind VertexKind) Style {
	family := familyOf(kind)
	color, ok := elementFillColors[family]
	if !ok {
		color = elementFillColors["ELEMENT"]
	}
	shape, ok := shapeByFamily[family]
	if !ok {
		shape = "ROUND_RECTANGLE"
	}
	return Style{FillColor: color, Shape: shape}
}

func familyOf(kind VertexKind) VertexKind {
	s := string(kind)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return VertexKind(s[:i])
	}
	return kind
}

// edgeColorByKind mirrors element.py's per-type edge_attrs: ordering
// edges (Before/After) and relation edges each get a distinct line
// color. Anything not listed falls back to a neutral default.
var edgeColorByKind = map[string]string{
	"ALIAS":   "#4e4e94", // purple dark
	"Before":  "#238b45", // green dark
	"After":   "#238b45",
	"COMMAND": "#c45f00", // orange dark
}

// PaletteForEdge returns the line color for an edge kind. Relation
// names not explicitly listed (Wants, Requires, Sockets, ...) use the
// same neutral solid-line color as the manager's own dependency edges.
func PaletteForEdge(kind string) Style {
	color, ok := edgeColorByKind[kind]
	if !ok {
		color = "#000000"
	}
	return Style{FillColor: color, Shape: "SOLID"}
}
