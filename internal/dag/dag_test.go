package dag

import (
	"errors"
	"testing"
)

func chain(t *testing.T, names ...string) *Graph {
	t.Helper()
	g := NewGraph()
	for _, n := range names {
		g.AddNode(n)
	}
	for i := 0; i+1 < len(names); i++ {
		if err := g.AddEdge(i, i+1); err != nil {
			t.Fatalf("failed to add edge: %v", err)
		}
	}
	return g
}

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := chain(t, "top", "middle", "bottom")

	if g.NodeCount() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.NodeCount())
	}
	if g.EdgeCount() != 2 {
		t.Errorf("expected 2 edges, got %d", g.EdgeCount())
	}
	if g.Name(1) != "middle" {
		t.Errorf("expected name middle, got %q", g.Name(1))
	}
}

func TestGraph_AddEdge_InvalidNodes(t *testing.T) {
	g := NewGraph()
	g.AddNode("a")

	if err := g.AddEdge(0, 5); err == nil {
		t.Error("expected error for nonexistent downstream node")
	}
	if err := g.AddEdge(-1, 0); err == nil {
		t.Error("expected error for nonexistent upstream node")
	}
}

func TestGraph_AddEdge_SelfLoop(t *testing.T) {
	g := NewGraph()
	g.AddNode("a")

	if err := g.AddEdge(0, 0); err == nil {
		t.Error("expected error for self-loop")
	}
}

func TestGraph_DuplicateEdges(t *testing.T) {
	g := NewGraph()
	g.AddNode("a")
	g.AddNode("b")

	_ = g.AddEdge(0, 1)
	_ = g.AddEdge(0, 1)

	if g.EdgeCount() != 1 {
		t.Errorf("expected 1 edge (no duplicates), got %d", g.EdgeCount())
	}
}

func TestGraph_UpstreamAndDownstream(t *testing.T) {
	g := NewGraph()
	for _, n := range []string{"a", "b", "c"} {
		g.AddNode(n)
	}
	// a and b both drain into c
	_ = g.AddEdge(0, 2)
	_ = g.AddEdge(1, 2)

	if got := g.Upstream(2); len(got) != 2 {
		t.Errorf("expected c to have 2 upstream nodes, got %v", got)
	}
	if got := g.Downstream(0); len(got) != 1 || got[0] != 2 {
		t.Errorf("expected a to drain into c, got %v", got)
	}
	if got := g.Upstream(42); got != nil {
		t.Errorf("expected nil for unknown node, got %v", got)
	}
}

func TestGraph_HasCycle(t *testing.T) {
	g := chain(t, "a", "b", "c")
	if has, path := g.HasCycle(); has {
		t.Errorf("expected no cycle, but found: %v", path)
	}

	_ = g.AddEdge(2, 0)
	has, path := g.HasCycle()
	if !has {
		t.Fatal("expected cycle to be detected")
	}
	if len(path) < 2 || path[0] != path[len(path)-1] {
		t.Errorf("expected closed cycle path, got %v", path)
	}
}

func TestGraph_TopologicalSort_WithCycle(t *testing.T) {
	g := chain(t, "a", "b")
	_ = g.AddEdge(1, 0)

	_, err := g.TopologicalSort()
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if len(cycleErr.Names) == 0 {
		t.Error("expected cycle names to be reported")
	}
}

func TestGraph_TopologicalSort_Diamond(t *testing.T) {
	// 0 -> 1, 0 -> 2, 1 -> 3, 2 -> 3
	g := NewGraph()
	for _, n := range []string{"a", "b", "c", "d"} {
		g.AddNode(n)
	}
	_ = g.AddEdge(0, 1)
	_ = g.AddEdge(0, 2)
	_ = g.AddEdge(1, 3)
	_ = g.AddEdge(2, 3)

	sorted, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("failed to sort: %v", err)
	}

	pos := make(map[int]int)
	for i, id := range sorted {
		pos[id] = i
	}
	if pos[0] != 0 {
		t.Error("a should be first")
	}
	if pos[3] != 3 {
		t.Error("d should be last")
	}
}

func TestGraph_TopologicalSort_ReverseDeclared(t *testing.T) {
	// Node order in the arena runs against the flow direction.
	g := NewGraph()
	for _, n := range []string{"outlet", "middle", "headwater"} {
		g.AddNode(n)
	}
	_ = g.AddEdge(2, 1)
	_ = g.AddEdge(1, 0)

	sorted, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("failed to sort: %v", err)
	}
	want := []int{2, 1, 0}
	for i := range want {
		if sorted[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, sorted)
		}
	}
}

func TestGraph_TopologicalSort_AfterAllUpstream(t *testing.T) {
	// Tree: 0,1 -> 2; 3 -> 4; 2,4 -> 5; 6 isolated
	g := NewGraph()
	for i := 0; i < 7; i++ {
		g.AddNode(string(rune('a' + i)))
	}
	edges := [][2]int{{0, 2}, {1, 2}, {3, 4}, {2, 5}, {4, 5}}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("failed to add edge: %v", err)
		}
	}

	sorted, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("failed to sort: %v", err)
	}
	pos := make(map[int]int)
	for i, id := range sorted {
		pos[id] = i
	}
	for id := 0; id < g.NodeCount(); id++ {
		for _, up := range g.AllUpstream(id) {
			if pos[up] >= pos[id] {
				t.Errorf("node %d placed before upstream node %d", id, up)
			}
		}
	}
}

func TestGraph_ExecutionLevels(t *testing.T) {
	g := NewGraph()
	for _, n := range []string{"head1", "head2", "mid1", "mid2", "outlet"} {
		g.AddNode(n)
	}
	_ = g.AddEdge(0, 2)
	_ = g.AddEdge(1, 3)
	_ = g.AddEdge(2, 4)
	_ = g.AddEdge(3, 4)

	levels, err := g.ExecutionLevels()
	if err != nil {
		t.Fatalf("failed to get levels: %v", err)
	}
	if len(levels) != 3 {
		t.Fatalf("expected 3 levels, got %d", len(levels))
	}
	if len(levels[0]) != 2 || len(levels[1]) != 2 {
		t.Errorf("unexpected levels %v", levels)
	}
	if len(levels[2]) != 1 || levels[2][0] != 4 {
		t.Errorf("expected [4] at level 2, got %v", levels[2])
	}
}

func TestGraph_ExecutionLevels_Empty(t *testing.T) {
	levels, err := NewGraph().ExecutionLevels()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(levels) != 0 {
		t.Errorf("expected no levels, got %v", levels)
	}
}

func TestGraph_AllUpstream(t *testing.T) {
	g := NewGraph()
	for _, n := range []string{"a", "b", "c", "d"} {
		g.AddNode(n)
	}
	_ = g.AddEdge(0, 2)
	_ = g.AddEdge(1, 2)
	_ = g.AddEdge(2, 3)

	if up := g.AllUpstream(3); len(up) != 3 {
		t.Errorf("expected 3 upstream nodes, got %v", up)
	}
	if up := g.AllUpstream(0); len(up) != 0 {
		t.Errorf("expected no upstream nodes, got %v", up)
	}
}

func TestGraph_RootsAndLeaves(t *testing.T) {
	g := NewGraph()
	for _, n := range []string{"a", "b", "c", "d"} {
		g.AddNode(n)
	}
	// two disconnected chains: a->b and c->d
	_ = g.AddEdge(0, 1)
	_ = g.AddEdge(2, 3)

	if roots := g.Roots(); len(roots) != 2 {
		t.Errorf("expected 2 roots, got %v", roots)
	}
	if leaves := g.Leaves(); len(leaves) != 2 || leaves[0] != 1 || leaves[1] != 3 {
		t.Errorf("expected leaves [1 3], got %v", leaves)
	}
}
