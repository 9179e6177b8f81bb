package npmc

import (
	"fmt"

	"github.com/san-kum/kmcsim/internal/solver"
)

// Instance is the per-trajectory view: a private copy of the site
// states, the live reaction set, and the site→reaction index.
type Instance struct {
	np        *NanoParticle
	state     []int
	reactions []Reaction
	siteDeps  []reactionSet
}

func (np *NanoParticle) Instance() *Instance {
	state := make([]int, len(np.initialState))
	copy(state, np.initialState)

	reactions := make([]Reaction, len(np.initialReactions))
	copy(reactions, np.initialReactions)

	siteDeps := make([]reactionSet, len(np.initialSiteDeps))
	for i := range siteDeps {
		siteDeps[i] = np.initialSiteDeps[i].clone()
	}

	return &Instance{np: np, state: state, reactions: reactions, siteDeps: siteDeps}
}

func (in *Instance) Propensities() []float64 {
	p := make([]float64, len(in.reactions))
	for i := range in.reactions {
		p[i] = in.reactions[i].Rate
	}
	return p
}

func (in *Instance) State() []int { return in.state }

func (in *Instance) Reactions() []Reaction { return in.reactions }

// SiteReactions returns the ids of live reactions touching a site, in
// ascending order.
func (in *Instance) SiteReactions(site int) []int {
	return in.siteDeps[site].ids
}

// Apply fires a reaction: each participating site must still hold the
// interaction's left state (anything else means the live set has drifted
// from the state, which is unrecoverable) and moves to the right state.
func (in *Instance) Apply(reaction int) error {
	r := &in.reactions[reaction]
	inter := r.Interaction

	for k := 0; k < inter.NumberOfSites; k++ {
		site := r.SiteID[k]
		if in.state[site] != inter.LeftState[k] {
			return fmt.Errorf("state mismatch for site %d: expected state %d, found state %d",
				site, inter.LeftState[k], in.state[site])
		}
	}
	for k := 0; k < inter.NumberOfSites; k++ {
		in.state[r.SiteID[k]] = inter.RightState[k]
	}
	return nil
}

// PushUpdates rewrites the live reaction set after a firing and streams
// the corresponding propensity edits to the solver: a zero for every
// invalidated id, the new rate for every replacement or append, and a
// move pair for every tail reaction relocated during compaction.
func (in *Instance) PushUpdates(emit func(solver.Update), reaction int) error {
	fired := in.reactions[reaction]

	fresh := in.enumerateReplacements(fired)
	doomed := in.collectRemovals(fired)

	for _, id := range doomed {
		emit(solver.Update{Index: id, Propensity: 0})
	}

	// Splice: replacements overwrite invalidated slots lowest-first,
	// the rest append to the tail.
	used := 0
	for _, nr := range fresh {
		var id int
		if used < len(doomed) {
			id = doomed[used]
			used++
			in.reactions[id] = nr
		} else {
			id = len(in.reactions)
			in.reactions = append(in.reactions, nr)
		}
		for k := 0; k < nr.Interaction.NumberOfSites; k++ {
			in.siteDeps[nr.SiteID[k]].add(id)
		}
		emit(solver.Update{Index: id, Propensity: nr.Rate})
	}

	return in.compact(emit, doomed[used:])
}

// enumerateReplacements lists every reaction the mutated sites can now
// participate in. For each mutated site both donor orderings are
// generated, except toward the other fired site for the direction the
// other site's own scan will produce.
func (in *Instance) enumerateReplacements(fired Reaction) []Reaction {
	inter := fired.Interaction
	var fresh []Reaction

	for k := 0; k < inter.NumberOfSites; k++ {
		site := fired.SiteID[k]
		other := fired.SiteID[1-k]
		state0 := inter.RightState[k]
		species0 := in.np.sites[site].SpeciesID

		for _, cand := range in.np.oneSite[species0][state0] {
			fresh = append(fresh, Reaction{
				SiteID:      [2]int{site, -1},
				Interaction: cand,
				Rate:        cand.Rate * in.np.oneSiteFactor,
			})
		}

		for j := range in.np.sites {
			if j == site {
				continue
			}
			d := in.np.distances[site][j]
			if d >= in.np.radiusBound {
				continue
			}
			state1 := in.state[j]
			species1 := in.np.sites[j].SpeciesID

			for _, cand := range in.np.twoSite[species0][species1][state0][state1] {
				fresh = append(fresh, Reaction{
					SiteID:      [2]int{site, j},
					Interaction: cand,
					Rate:        in.np.distanceFactor(d) * cand.Rate * in.np.twoSiteFactor,
				})
			}
			if j != other {
				for _, cand := range in.np.twoSite[species1][species0][state1][state0] {
					fresh = append(fresh, Reaction{
						SiteID:      [2]int{j, site},
						Interaction: cand,
						Rate:        in.np.distanceFactor(d) * cand.Rate * in.np.twoSiteFactor,
					})
				}
			}
		}
	}
	return fresh
}

// collectRemovals gathers every live reaction touching a mutated site,
// unregistering each from the site index as it goes. Returns the ids in
// ascending order.
func (in *Instance) collectRemovals(fired Reaction) []int {
	var doomed reactionSet

	for k := 0; k < fired.Interaction.NumberOfSites; k++ {
		site := fired.SiteID[k]
		ids := make([]int, len(in.siteDeps[site].ids))
		copy(ids, in.siteDeps[site].ids)

		for _, id := range ids {
			doomed.add(id)
			dead := &in.reactions[id]
			in.siteDeps[dead.SiteID[0]].remove(id)
			if dead.Interaction.NumberOfSites == 2 {
				in.siteDeps[dead.SiteID[1]].remove(id)
			}
		}
	}
	return doomed.ids
}

// compact fills the leftover tombstones by swapping live reactions down
// from the tail, then truncates. Stops early once the remaining
// tombstones are themselves at the tail.
func (in *Instance) compact(emit func(solver.Update), tombstones []int) error {
	if len(tombstones) == 0 {
		return nil
	}

	moves := len(tombstones)
	moved := 0
	ti := 0
	idx := len(in.reactions) - 1

	for moved < moves {
		if containsSorted(tombstones, idx) {
			idx--
			continue
		}
		if idx < tombstones[ti] {
			break
		}

		moving := in.reactions[idx]
		slot := tombstones[ti]
		in.reactions[slot] = moving

		for k := 0; k < moving.Interaction.NumberOfSites; k++ {
			site := moving.SiteID[k]
			if !in.siteDeps[site].remove(idx) {
				return fmt.Errorf("reaction %d missing from site %d reaction index", idx, site)
			}
			in.siteDeps[site].add(slot)
		}
		emit(solver.Update{Index: slot, Propensity: moving.Rate})
		emit(solver.Update{Index: idx, Propensity: 0})

		idx--
		ti++
		moved++
	}

	in.reactions = in.reactions[:len(in.reactions)-moves]
	return nil
}

func (in *Instance) Record(reaction int, time float64) Record {
	r := &in.reactions[reaction]
	return Record{Sites: r.SiteID, InteractionID: r.Interaction.ID, Time: time}
}
