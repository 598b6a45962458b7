package graph

import "testing"

func buildChain() *Graph {
	g := New()
	a := VertexID{ID: "a.service", Kind: KindUnit}
	b := VertexID{ID: "b.service", Kind: KindUnit}
	c := VertexID{ID: "c.service", Kind: KindUnit}
	g.AddEdge(a, b, "Wants")
	g.AddEdge(b, c, "Wants")
	return g
}

func TestReachableUnlimitedDepth(t *testing.T) {
	g := buildChain()
	origin := VertexID{ID: "a.service", Kind: KindUnit}

	sub := g.Reachable(origin, -1)
	if sub.NumVertices() != 3 {
		t.Errorf("NumVertices = %d, want 3", sub.NumVertices())
	}
	if sub.NumEdges() != 2 {
		t.Errorf("NumEdges = %d, want 2", sub.NumEdges())
	}
}

func TestReachableBoundedDepth(t *testing.T) {
	g := buildChain()
	origin := VertexID{ID: "a.service", Kind: KindUnit}

	sub := g.Reachable(origin, 1)
	if sub.NumVertices() != 2 {
		t.Errorf("NumVertices = %d, want 2 (a, b)", sub.NumVertices())
	}
	if !sub.HasVertex(origin) || !sub.HasVertex(VertexID{ID: "b.service", Kind: KindUnit}) {
		t.Error("expected a.service and b.service in the depth-1 subgraph")
	}
	if sub.HasVertex(VertexID{ID: "c.service", Kind: KindUnit}) {
		t.Error("c.service should be outside depth-1")
	}
}

func TestReachableUnknownOriginReturnsEmpty(t *testing.T) {
	g := buildChain()
	sub := g.Reachable(VertexID{ID: "missing.service", Kind: KindUnit}, -1)
	if sub.NumVertices() != 0 {
		t.Errorf("NumVertices = %d, want 0", sub.NumVertices())
	}
}
