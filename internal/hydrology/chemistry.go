package hydrology

import "github.com/incawqmodels/persist/internal/params"

// ChemistryState carries the chemicals held by a store. Components of a
// hydrology-only model have a nil state.
type ChemistryState struct {
	Chemicals []ChemicalMass
}

// ChemicalMass is the amount of one chemical in a store.
type ChemicalMass struct {
	Name         string
	Abbreviation string
	MolarMass    float64
	Mass         float64
}

// newChemistryState returns a fresh state for ps, or nil when ps declares
// no chemicals. Each store gets its own copy.
func newChemistryState(ps *params.ParameterSet) *ChemistryState {
	if !ps.HasChemicals() {
		return nil
	}
	cs := &ChemistryState{Chemicals: make([]ChemicalMass, len(ps.Chemicals.Chemical))}
	for i, c := range ps.Chemicals.Chemical {
		cs.Chemicals[i] = ChemicalMass{Name: c.Name, Abbreviation: c.Abbreviation, MolarMass: c.Mass}
	}
	return cs
}

// Find returns the chemical with the given name or abbreviation.
func (cs *ChemistryState) Find(key string) (*ChemicalMass, bool) {
	if cs == nil {
		return nil, false
	}
	for i := range cs.Chemicals {
		if cs.Chemicals[i].Name == key || cs.Chemicals[i].Abbreviation == key {
			return &cs.Chemicals[i], true
		}
	}
	return nil, false
}
