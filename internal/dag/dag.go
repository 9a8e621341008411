// Package dag provides directed acyclic graph operations for the reach network.
// Nodes are dense integer indices (one per HRU) so that edges can be stored
// as plain slices alongside the arena of reaches they describe.
package dag

import (
	"fmt"
	"slices"
	"strings"
)

// Graph is a directed graph over node indices 0..n-1. An edge u -> v means
// that v receives the outflow of u (u is upstream of v).
type Graph struct {
	names      []string
	downstream [][]int // node -> nodes it drains into
	upstream   [][]int // node -> nodes draining into it
}

// CycleError reports a cycle found in the graph. Path starts and ends on the
// same node.
type CycleError struct {
	Path  []int
	Names []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %s", strings.Join(e.Names, " -> "))
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

// AddNode appends a node and returns its index.
func (g *Graph) AddNode(name string) int {
	g.names = append(g.names, name)
	g.downstream = append(g.downstream, nil)
	g.upstream = append(g.upstream, nil)
	return len(g.names) - 1
}

// Name returns the label of a node.
func (g *Graph) Name(id int) string {
	if !g.valid(id) {
		return fmt.Sprintf("#%d", id)
	}
	return g.names[id]
}

func (g *Graph) valid(id int) bool {
	return id >= 0 && id < len(g.names)
}

// AddEdge adds a directed edge from an upstream node to a downstream node.
// Duplicate edges are ignored.
func (g *Graph) AddEdge(from, to int) error {
	if !g.valid(from) {
		return fmt.Errorf("upstream node %d does not exist", from)
	}
	if !g.valid(to) {
		return fmt.Errorf("downstream node %d does not exist", to)
	}
	if from == to {
		return fmt.Errorf("self-loop detected: %s", g.names[from])
	}

	if !slices.Contains(g.downstream[from], to) {
		g.downstream[from] = append(g.downstream[from], to)
	}
	if !slices.Contains(g.upstream[to], from) {
		g.upstream[to] = append(g.upstream[to], from)
	}
	return nil
}

// Upstream returns the direct upstream neighbours of a node.
func (g *Graph) Upstream(id int) []int {
	if !g.valid(id) {
		return nil
	}
	return g.upstream[id]
}

// Downstream returns the direct downstream neighbours of a node.
func (g *Graph) Downstream(id int) []int {
	if !g.valid(id) {
		return nil
	}
	return g.downstream[id]
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.names)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, out := range g.downstream {
		count += len(out)
	}
	return count
}

// FindCycle returns the first cycle found by a depth-first search, or nil.
func (g *Graph) FindCycle() *CycleError {
	const (
		unvisited = iota
		onStack
		done
	)
	state := make([]int, len(g.names))
	parent := make([]int, len(g.names))

	var found *CycleError
	var dfs func(id int) bool
	dfs = func(id int) bool {
		state[id] = onStack
		for _, next := range g.downstream[id] {
			switch state[next] {
			case unvisited:
				parent[next] = id
				if dfs(next) {
					return true
				}
			case onStack:
				path := []int{next}
				for curr := id; curr != next; curr = parent[curr] {
					path = append([]int{curr}, path...)
				}
				path = append([]int{next}, path...)
				found = &CycleError{Path: path, Names: g.labels(path)}
				return true
			}
		}
		state[id] = done
		return false
	}

	for id := range g.names {
		if state[id] == unvisited && dfs(id) {
			return found
		}
	}
	return nil
}

// HasCycle reports whether the graph contains a cycle, along with the cycle path.
func (g *Graph) HasCycle() (bool, []int) {
	if c := g.FindCycle(); c != nil {
		return true, c.Path
	}
	return false, nil
}

// TopologicalSort returns node indices with every node after all of its
// upstream nodes. Ties are broken by index so the order is deterministic.
func (g *Graph) TopologicalSort() ([]int, error) {
	if c := g.FindCycle(); c != nil {
		return nil, c
	}

	visited := make([]bool, len(g.names))
	result := make([]int, 0, len(g.names))

	var visit func(id int)
	visit = func(id int) {
		if visited[id] {
			return
		}
		visited[id] = true
		parents := slices.Clone(g.upstream[id])
		slices.Sort(parents)
		for _, p := range parents {
			visit(p)
		}
		result = append(result, id)
	}

	for id := range g.names {
		visit(id)
	}
	return result, nil
}

// ExecutionLevels groups nodes by depth in the network. Level 0 holds the
// headwater nodes; nodes at level N only depend on nodes at levels < N and
// can therefore be solved in parallel once level N-1 is complete.
func (g *Graph) ExecutionLevels() ([][]int, error) {
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	level := make([]int, len(g.names))
	maxLevel := 0
	for _, id := range order {
		for _, p := range g.upstream[id] {
			if level[p]+1 > level[id] {
				level[id] = level[p] + 1
			}
		}
		if level[id] > maxLevel {
			maxLevel = level[id]
		}
	}

	if len(order) == 0 {
		return [][]int{}, nil
	}
	levels := make([][]int, maxLevel+1)
	for id := range g.names {
		levels[level[id]] = append(levels[level[id]], id)
	}
	return levels, nil
}

// AllUpstream returns every node that drains, directly or transitively, into id.
func (g *Graph) AllUpstream(id int) []int {
	if !g.valid(id) {
		return nil
	}
	seen := make([]bool, len(g.names))
	var walk func(n int)
	walk = func(n int) {
		for _, p := range g.upstream[n] {
			if !seen[p] {
				seen[p] = true
				walk(p)
			}
		}
	}
	walk(id)

	var result []int
	for n, ok := range seen {
		if ok {
			result = append(result, n)
		}
	}
	return result
}

// Roots returns nodes with no upstream neighbours (headwaters).
func (g *Graph) Roots() []int {
	var roots []int
	for id := range g.names {
		if len(g.upstream[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// Leaves returns nodes with no downstream neighbours (outlets).
func (g *Graph) Leaves() []int {
	var leaves []int
	for id := range g.names {
		if len(g.downstream[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	return leaves
}

func (g *Graph) labels(ids []int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = g.Name(id)
	}
	return out
}
