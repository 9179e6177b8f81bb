// Package solver samples events from a propensity vector using the
// Gillespie direct method. Two interchangeable implementations are
// provided: Linear keeps a running total and scans for the selected
// reaction, Tree keeps a Fenwick tree for O(log R) selection.
package solver

import (
	"fmt"
	"math/rand"
)

// Event is the next reaction to fire and the time until it does.
type Event struct {
	Index int
	Dt    float64
}

// Update sets the propensity of a single reaction. An update at index
// len(propensities) appends a new reaction slot.
type Update struct {
	Index      int
	Propensity float64
}

type Solver interface {
	// Event samples the next event. It reports false when the total
	// propensity is zero, which ends the trajectory.
	Event() (Event, bool)
	Update(Update)
}

// Factory builds a solver for one trajectory from its seed and the
// model's initial propensities.
type Factory func(seed uint64, propensities []float64) Solver

func NewFactory(name string) (Factory, error) {
	switch name {
	case "linear":
		return func(seed uint64, propensities []float64) Solver {
			return NewLinear(seed, propensities)
		}, nil
	case "tree":
		return func(seed uint64, propensities []float64) Solver {
			return NewTree(seed, propensities)
		}, nil
	default:
		return nil, fmt.Errorf("unknown solver: %s", name)
	}
}

func Names() []string {
	return []string{"linear", "tree"}
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(int64(seed)))
}

// unit draws from (0,1]. Float64 returns [0,1), so the complement never
// yields zero and -log of it is always finite.
func unit(rng *rand.Rand) float64 {
	return 1 - rng.Float64()
}
