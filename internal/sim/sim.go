// Package sim runs trajectories: the per-trajectory Gillespie loop and
// the dispatcher that fans independent trajectories across workers.
package sim

import (
	"github.com/san-kum/kmcsim/internal/solver"
)

// Instance is one trajectory's view of a model. E is the model's history
// record type.
type Instance[E any] interface {
	// Propensities returns the initial propensity vector; the solver
	// takes ownership of its contents.
	Propensities() []float64
	// Apply executes the state update for a fired reaction.
	Apply(reaction int) error
	// PushUpdates streams the propensity edits implied by the firing.
	PushUpdates(emit func(solver.Update), reaction int) error
	// Record captures the history entry for a firing. Called before
	// Apply, while the reaction id still names the fired reaction.
	Record(reaction int, time float64) E
}

// Simulation drives one trajectory. The history buffer is bounded by the
// step cutoff up front; a trajectory never records more events than that.
type Simulation[E any] struct {
	inst       Instance[E]
	slv        solver.Solver
	seed       uint64
	time       float64
	timeCutoff float64
	step       int
	stepCutoff int
	history    []E
}

func New[E any](inst Instance[E], newSolver solver.Factory, seed uint64, stepCutoff int, timeCutoff float64) *Simulation[E] {
	return &Simulation[E]{
		inst:       inst,
		slv:        newSolver(seed, inst.Propensities()),
		seed:       seed,
		timeCutoff: timeCutoff,
		stepCutoff: stepCutoff,
		history:    make([]E, stepCutoff+1),
	}
}

// ExecuteStep advances the trajectory by one event. It reports false
// when the trajectory is over: no event is possible or the time cutoff
// has been reached.
func (s *Simulation[E]) ExecuteStep() (bool, error) {
	event, ok := s.slv.Event()
	if !ok {
		return false, nil
	}

	s.time += event.Dt
	s.history[s.step] = s.inst.Record(event.Index, s.time)
	s.step++

	if err := s.inst.Apply(event.Index); err != nil {
		return false, err
	}
	if err := s.inst.PushUpdates(s.slv.Update, event.Index); err != nil {
		return false, err
	}

	if s.time >= s.timeCutoff {
		return false, nil
	}
	return true, nil
}

// Run executes steps until the trajectory ends or the step cutoff is
// exhausted.
func (s *Simulation[E]) Run() error {
	for {
		more, err := s.ExecuteStep()
		if err != nil {
			return err
		}
		if !more || s.step >= s.stepCutoff {
			return nil
		}
	}
}

// History returns the recorded events, one per executed step.
func (s *Simulation[E]) History() []E { return s.history[:s.step] }

func (s *Simulation[E]) Seed() uint64 { return s.seed }

func (s *Simulation[E]) Step() int { return s.step }

func (s *Simulation[E]) Time() float64 { return s.time }
