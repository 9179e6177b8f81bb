package gmc

import "github.com/san-kum/kmcsim/internal/solver"

// Instance is the per-trajectory view of the network: a private copy of
// the species counts over the shared reaction table.
type Instance struct {
	net   *ReactionNetwork
	state []int
}

func (n *ReactionNetwork) Instance() *Instance {
	state := make([]int, len(n.initialState))
	copy(state, n.initialState)
	return &Instance{net: n, state: state}
}

func (in *Instance) Propensities() []float64 {
	p := make([]float64, len(in.net.initialPropensities))
	copy(p, in.net.initialPropensities)
	return p
}

func (in *Instance) State() []int { return in.state }

func (in *Instance) Apply(reaction int) error {
	in.net.UpdateState(in.state, reaction)
	return nil
}

// PushUpdates recomputes propensities after a firing. If the fired
// reaction's dependency node is known, only its dependents are touched;
// otherwise every reaction is refreshed.
func (in *Instance) PushUpdates(emit func(solver.Update), reaction int) error {
	if dependents, ok := in.net.Dependents(reaction); ok {
		for _, q := range dependents {
			emit(solver.Update{Index: q, Propensity: in.net.Propensity(in.state, q)})
		}
		return nil
	}

	for q := range in.net.reactions {
		emit(solver.Update{Index: q, Propensity: in.net.Propensity(in.state, q)})
	}
	return nil
}

func (in *Instance) Record(reaction int, time float64) Record {
	return Record{ReactionID: reaction, Time: time}
}
