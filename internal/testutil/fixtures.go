package testutil

import (
	"fmt"

	"github.com/incawqmodels/persist/internal/params"
)

// ChainParameters returns a valid parameter set with n HRUs whose reaches
// drain in a chain from HRU 0 to HRU n-1. It has two buckets and one land
// cover.
func ChainParameters(n int) *params.ParameterSet {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("HRU %d", i)
	}
	return params.Generate(params.Layout{
		Buckets:       params.Identifier{Name: []string{"Quick", "Soil"}, Abbreviation: []string{"Q", "S"}},
		LandCovers:    params.Identifier{Name: []string{"Forest"}, Abbreviation: []string{"F"}},
		Subcatchments: params.Identifier{Name: names},
	})
}

// TreeParameters returns a valid parameter set where HRUs 0 and 1 drain into
// HRU 2, which drains into the outlet HRU 3.
func TreeParameters() *params.ParameterSet {
	ps := ChainParameters(4)
	g := &ps.Reach.General
	g.Outflow = []*int{intPtr(2), intPtr(2), intPtr(3), nil}
	g.Inflows = [][]*int{{}, {}, {intPtr(0), intPtr(1)}, {intPtr(2)}}
	return ps
}

func intPtr(i int) *int { return &i }
