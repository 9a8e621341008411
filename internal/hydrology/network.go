package hydrology

import (
	"errors"
	"fmt"
	"slices"

	"github.com/incawqmodels/persist/internal/dag"
	"github.com/incawqmodels/persist/internal/params"
)

// Network is the validated reach topology of a catchment.
type Network struct {
	graph   *dag.Graph
	order   []int
	levels  [][]int
	outlets []int
}

// buildNetwork wires the reach graph from the declared outflow and inflow
// indices. Both declarations must describe the same edges and the result
// must be acyclic.
func buildNetwork(names []string, g params.ReachGeneral) (*Network, error) {
	n := len(names)
	graph := dag.NewGraph()
	for _, name := range names {
		graph.AddNode(name)
	}

	var errs []error
	outflow := make([]int, n)
	for i := range outflow {
		outflow[i] = NoOutflow
	}

	for i, o := range g.Outflow {
		if o == nil {
			continue
		}
		path := fmt.Sprintf("reach.general.outflow[%d]", i)
		switch {
		case *o < 0 || *o >= n:
			errs = append(errs, params.Errorf(path, "reach index %d out of range [0, %d)", *o, n))
		case *o == i:
			errs = append(errs, params.Errorf(path, "reach %q drains into itself", names[i]))
		default:
			outflow[i] = *o
			if err := graph.AddEdge(i, *o); err != nil {
				errs = append(errs, params.Errorf(path, "%v", err))
			}
		}
	}

	declared := make([][]int, n)
	for i, inflows := range g.Inflows {
		path := fmt.Sprintf("reach.general.inflows[%d]", i)
		for _, in := range inflows {
			if in == nil {
				continue
			}
			switch {
			case *in < 0 || *in >= n:
				errs = append(errs, params.Errorf(path, "reach index %d out of range [0, %d)", *in, n))
			case *in == i:
				errs = append(errs, params.Errorf(path, "reach %q receives its own outflow", names[i]))
			case outflow[*in] != i:
				errs = append(errs, params.Errorf(path,
					"lists %q as an inflow but its outflow is %s", names[*in], describeOutflow(names, outflow[*in])))
			default:
				declared[i] = append(declared[i], *in)
			}
		}
	}

	// Every outflow edge must also be declared as an inflow.
	for i, o := range outflow {
		if o != NoOutflow && !slices.Contains(declared[o], i) {
			errs = append(errs, params.Errorf(fmt.Sprintf("reach.general.inflows[%d]", o),
				"missing inflow from %q, which declares it as its outflow", names[i]))
		}
	}

	if cycle := graph.FindCycle(); cycle != nil {
		errs = append(errs, params.Errorf("reach.general.outflow", "%v", cycle))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	order, err := graph.TopologicalSort()
	if err != nil {
		return nil, params.Errorf("reach.general.outflow", "%v", err)
	}
	levels, err := graph.ExecutionLevels()
	if err != nil {
		return nil, params.Errorf("reach.general.outflow", "%v", err)
	}

	return &Network{
		graph:   graph,
		order:   order,
		levels:  levels,
		outlets: graph.Leaves(),
	}, nil
}

func describeOutflow(names []string, o int) string {
	if o == NoOutflow {
		return "none"
	}
	return fmt.Sprintf("%q", names[o])
}

// Order returns the reach indices with every reach after all of its
// upstream reaches.
func (n *Network) Order() []int { return n.order }

// Levels groups reach indices into sets that can be solved concurrently.
func (n *Network) Levels() [][]int { return n.levels }

// Outlets returns the reaches that drain out of the catchment.
func (n *Network) Outlets() []int { return n.outlets }

// Upstream returns the reaches draining directly into reach id.
func (n *Network) Upstream(id int) []int { return n.graph.Upstream(id) }

// Downstream returns the reach that id drains into, if any.
func (n *Network) Downstream(id int) []int { return n.graph.Downstream(id) }

// AllUpstream returns every reach draining into reach id, directly or not.
func (n *Network) AllUpstream(id int) []int { return n.graph.AllUpstream(id) }

// Name returns the name of reach id.
func (n *Network) Name(id int) string { return n.graph.Name(id) }

// Size returns the number of reaches.
func (n *Network) Size() int { return n.graph.NodeCount() }
