// Package gmc implements the Gillespie mass-action model: reactions over
// a species-count vector, with a lazily discovered reaction dependency
// graph shared across trajectories.
package gmc

// Reaction consumes up to two reactant species and produces up to two
// product species. Unused slots hold -1.
type Reaction struct {
	NumberOfReactants int
	NumberOfProducts  int
	Reactants         [2]int
	Products          [2]int
	Rate              float64
}

// Factors scale the propensity formulas: Zero for reactions with no
// reactants, Two for bimolecular reactions, Duplicate additionally for
// reactions of the form A + A -> ...
type Factors struct {
	Zero      float64
	Two       float64
	Duplicate float64
}

// Record is one trajectory history entry.
type Record struct {
	ReactionID int
	Time       float64
}

type ReactionNetwork struct {
	reactions           []Reaction
	initialState        []int
	initialPropensities []float64
	factors             Factors
	dependencyThreshold int
	nodes               []dependentsNode
}

func New(reactions []Reaction, initialState []int, factors Factors, dependencyThreshold int) *ReactionNetwork {
	n := &ReactionNetwork{
		reactions:           reactions,
		initialState:        initialState,
		factors:             factors,
		dependencyThreshold: dependencyThreshold,
		nodes:               make([]dependentsNode, len(reactions)),
	}

	n.initialPropensities = make([]float64, len(reactions))
	for i := range reactions {
		n.initialPropensities[i] = n.Propensity(initialState, i)
	}
	return n
}

func (n *ReactionNetwork) ReactionCount() int { return len(n.reactions) }

func (n *ReactionNetwork) SpeciesCount() int { return len(n.initialState) }

func (n *ReactionNetwork) InitialState() []int { return n.initialState }

// Propensity computes the firing rate of a reaction in the given state.
// Pure: it reads only the state vector and the static reaction table.
func (n *ReactionNetwork) Propensity(state []int, reaction int) float64 {
	r := &n.reactions[reaction]

	switch r.NumberOfReactants {
	case 0:
		return n.factors.Zero * r.Rate
	case 1:
		return float64(state[r.Reactants[0]]) * r.Rate
	default:
		if r.Reactants[0] == r.Reactants[1] {
			count := state[r.Reactants[0]]
			return n.factors.Duplicate * n.factors.Two *
				float64(count) * float64(count-1) * r.Rate
		}
		return n.factors.Two *
			float64(state[r.Reactants[0]]) * float64(state[r.Reactants[1]]) * r.Rate
	}
}

// UpdateState fires a reaction: each reactant count drops by one and each
// product count rises by one. A legally sampled reaction cannot drive a
// count negative because its propensity would have been zero.
func (n *ReactionNetwork) UpdateState(state []int, reaction int) {
	r := &n.reactions[reaction]
	for m := 0; m < r.NumberOfReactants; m++ {
		state[r.Reactants[m]]--
	}
	for m := 0; m < r.NumberOfProducts; m++ {
		state[r.Products[m]]++
	}
}
