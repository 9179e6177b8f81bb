package npmc

import (
	"fmt"
	"math"
)

// Params carries everything loaded from the nano-particle and initial
// state databases.
type Params struct {
	DegreesOfFreedom []int // per species
	Sites            []Site
	Interactions     []Interaction
	InitialState     []int // per site

	OneSiteFactor  float64
	TwoSiteFactor  float64
	RadiusBound    float64
	DistanceFactor DistanceFactorKind
}

// NanoParticle is the shared, immutable model: site geometry, interaction
// lookup maps, the distance matrix, and the reaction set implied by the
// initial state. Trajectories clone the mutable parts through Instance.
type NanoParticle struct {
	degreesOfFreedom []int
	sites            []Site
	distances        [][]float64

	// oneSite[species][state] and twoSite[sa][sb][stateA][stateB] list
	// the interactions applicable to sites in those states.
	oneSite [][][]*Interaction
	twoSite [][][][][]*Interaction

	initialState     []int
	initialReactions []Reaction
	initialSiteDeps  []reactionSet

	oneSiteFactor float64
	twoSiteFactor float64
	radiusBound   float64
	factorKind    DistanceFactorKind
}

func New(p Params) (*NanoParticle, error) {
	np := &NanoParticle{
		degreesOfFreedom: p.DegreesOfFreedom,
		sites:            p.Sites,
		initialState:     p.InitialState,
		oneSiteFactor:    p.OneSiteFactor,
		twoSiteFactor:    p.TwoSiteFactor,
		radiusBound:      p.RadiusBound,
		factorKind:       p.DistanceFactor,
	}

	if len(p.InitialState) != len(p.Sites) {
		return nil, fmt.Errorf("initial state covers %d sites, model has %d", len(p.InitialState), len(p.Sites))
	}
	for i, s := range p.Sites {
		if s.SpeciesID < 0 || s.SpeciesID >= len(p.DegreesOfFreedom) {
			return nil, fmt.Errorf("site %d references unknown species %d", i, s.SpeciesID)
		}
	}

	if err := np.buildInteractionMaps(p.Interactions); err != nil {
		return nil, err
	}
	np.computeDistanceMatrix()
	np.computeInitialReactions()
	return np, nil
}

func (np *NanoParticle) SiteCount() int      { return len(np.sites) }
func (np *NanoParticle) InitialState() []int { return np.initialState }

func (np *NanoParticle) Distance(i, j int) float64 {
	return np.distances[i][j]
}

// buildInteractionMaps indexes interactions by species and left state.
// The state axes are sized by the largest degrees-of-freedom value, the
// upper bound on any site-local level.
func (np *NanoParticle) buildInteractionMaps(interactions []Interaction) error {
	numSpecies := len(np.degreesOfFreedom)
	numStates := 0
	for _, dof := range np.degreesOfFreedom {
		if dof > numStates {
			numStates = dof
		}
	}

	np.oneSite = make([][][]*Interaction, numSpecies)
	for i := range np.oneSite {
		np.oneSite[i] = make([][]*Interaction, numStates)
	}
	np.twoSite = make([][][][][]*Interaction, numSpecies)
	for i := range np.twoSite {
		np.twoSite[i] = make([][][][]*Interaction, numSpecies)
		for j := range np.twoSite[i] {
			np.twoSite[i][j] = make([][][]*Interaction, numStates)
			for k := range np.twoSite[i][j] {
				np.twoSite[i][j][k] = make([][]*Interaction, numStates)
			}
		}
	}

	for i := range interactions {
		inter := &interactions[i]
		switch inter.NumberOfSites {
		case 1:
			sp, st := inter.SpeciesID[0], inter.LeftState[0]
			if sp < 0 || sp >= numSpecies || st < 0 || st >= numStates {
				return fmt.Errorf("interaction %d out of range: species %d state %d", inter.ID, sp, st)
			}
			np.oneSite[sp][st] = append(np.oneSite[sp][st], inter)
		case 2:
			sa, sb := inter.SpeciesID[0], inter.SpeciesID[1]
			la, lb := inter.LeftState[0], inter.LeftState[1]
			if sa < 0 || sa >= numSpecies || sb < 0 || sb >= numSpecies ||
				la < 0 || la >= numStates || lb < 0 || lb >= numStates {
				return fmt.Errorf("interaction %d out of range: species (%d,%d) states (%d,%d)", inter.ID, sa, sb, la, lb)
			}
			np.twoSite[sa][sb][la][lb] = append(np.twoSite[sa][sb][la][lb], inter)
		default:
			return fmt.Errorf("interaction %d has %d sites, want 1 or 2", inter.ID, inter.NumberOfSites)
		}
	}
	return nil
}

func (np *NanoParticle) computeDistanceMatrix() {
	n := len(np.sites)
	np.distances = make([][]float64, n)
	for i := range np.distances {
		np.distances[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			dx := np.sites[i].X - np.sites[j].X
			dy := np.sites[i].Y - np.sites[j].Y
			dz := np.sites[i].Z - np.sites[j].Z
			np.distances[i][j] = math.Sqrt(dx*dx + dy*dy + dz*dz)
		}
	}
}

// computeInitialReactions enumerates the live set for the initial state.
// Two-site reactions are generated donor-first over ordered site pairs,
// so each donor direction enters exactly once.
func (np *NanoParticle) computeInitialReactions() {
	np.initialSiteDeps = make([]reactionSet, len(np.sites))

	for i := range np.sites {
		state0 := np.initialState[i]
		species0 := np.sites[i].SpeciesID

		for _, inter := range np.oneSite[species0][state0] {
			np.appendInitial(Reaction{
				SiteID:      [2]int{i, -1},
				Interaction: inter,
				Rate:        inter.Rate * np.oneSiteFactor,
			})
		}

		for j := range np.sites {
			if j == i {
				continue
			}
			d := np.distances[i][j]
			if d >= np.radiusBound {
				continue
			}
			state1 := np.initialState[j]
			species1 := np.sites[j].SpeciesID
			for _, inter := range np.twoSite[species0][species1][state0][state1] {
				np.appendInitial(Reaction{
					SiteID:      [2]int{i, j},
					Interaction: inter,
					Rate:        np.distanceFactor(d) * inter.Rate * np.twoSiteFactor,
				})
			}
		}
	}
}

func (np *NanoParticle) appendInitial(r Reaction) {
	id := len(np.initialReactions)
	np.initialReactions = append(np.initialReactions, r)
	for k := 0; k < r.Interaction.NumberOfSites; k++ {
		np.initialSiteDeps[r.SiteID[k]].add(id)
	}
}
