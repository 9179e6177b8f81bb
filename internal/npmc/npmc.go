// Package npmc implements the nano-particle model: per-site discrete
// levels evolved by one- and two-site interactions, with a live reaction
// set that is edited in place after every firing.
package npmc

// Site is a point in space occupied by one species.
type Site struct {
	X, Y, Z   float64
	SpeciesID int
}

// Interaction is a template reaction: it applies to any site (or pair of
// sites within the interaction radius) whose species and current states
// match the left-hand side.
type Interaction struct {
	ID            int
	NumberOfSites int
	SpeciesID     [2]int
	LeftState     [2]int
	RightState    [2]int
	Rate          float64
}

// Reaction is a concrete instantiation of an interaction at one or two
// sites. SiteID[1] is -1 for one-site reactions. Rate is fully
// precomputed, including interaction factors and the distance factor, so
// the solver stores it as the propensity directly.
type Reaction struct {
	SiteID      [2]int
	Interaction *Interaction
	Rate        float64
}

// Record is one trajectory history entry, captured at fire time because
// reaction ids are rewritten as the live set is edited.
type Record struct {
	Sites         [2]int
	InteractionID int
	Time          float64
}
