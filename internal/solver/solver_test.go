package solver

import (
	"math"
	"testing"
)

func factories() map[string]Factory {
	linear, _ := NewFactory("linear")
	tree, _ := NewFactory("tree")
	return map[string]Factory{"linear": linear, "tree": tree}
}

func TestNewFactoryUnknown(t *testing.T) {
	if _, err := NewFactory("quadratic"); err == nil {
		t.Error("expected error for unknown solver name")
	}
}

func TestEventZeroTotal(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			for _, propensities := range [][]float64{nil, {}, {0, 0, 0}} {
				s := factory(0, propensities)
				if _, ok := s.Event(); ok {
					t.Errorf("propensities %v: expected no event", propensities)
				}
			}
		})
	}
}

func TestEventSelectsOnlyPositiveReaction(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			s := factory(3, []float64{0, 5, 0})
			for i := 0; i < 200; i++ {
				event, ok := s.Event()
				if !ok {
					t.Fatal("expected an event")
				}
				if event.Index != 1 {
					t.Fatalf("draw %d: selected reaction %d, want 1", i, event.Index)
				}
				if event.Dt <= 0 {
					t.Fatalf("draw %d: dt %f not positive", i, event.Dt)
				}
			}
		})
	}
}

func TestUpdateZeroesOutTrajectory(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			s := factory(1, []float64{2, 3})
			s.Update(Update{Index: 0, Propensity: 0})
			s.Update(Update{Index: 1, Propensity: 0})
			if _, ok := s.Event(); ok {
				t.Error("expected no event after zeroing all propensities")
			}
		})
	}
}

func TestUpdateAppends(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			s := factory(1, []float64{1})
			s.Update(Update{Index: 1, Propensity: 2})
			s.Update(Update{Index: 2, Propensity: 4})
			s.Update(Update{Index: 0, Propensity: 0})
			s.Update(Update{Index: 1, Propensity: 0})

			// only index 2 has mass left
			for i := 0; i < 100; i++ {
				event, ok := s.Event()
				if !ok {
					t.Fatal("expected an event")
				}
				if event.Index != 2 {
					t.Fatalf("selected reaction %d, want 2", event.Index)
				}
			}
		})
	}
}

func TestSamplingDistribution(t *testing.T) {
	const n = 30000
	propensities := []float64{1, 2, 3}
	total := 6.0

	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			s := factory(42, propensities)

			counts := make([]int, len(propensities))
			dtSum := 0.0
			for i := 0; i < n; i++ {
				event, ok := s.Event()
				if !ok {
					t.Fatal("expected an event")
				}
				counts[event.Index]++
				dtSum += event.Dt
			}

			for i, p := range propensities {
				got := float64(counts[i]) / n
				want := p / total
				if math.Abs(got-want) > 0.01 {
					t.Errorf("reaction %d: frequency %.4f, want %.4f", i, got, want)
				}
			}

			meanDt := dtSum / n
			if math.Abs(meanDt-1/total) > 0.05/total {
				t.Errorf("mean dt %.5f, want %.5f", meanDt, 1/total)
			}
		})
	}
}

// The two solvers must be interchangeable: same seed, same updates, same
// event sequence.
func TestTreeMatchesLinear(t *testing.T) {
	propensities := []float64{0.5, 1.5, 0, 2, 1}
	linear := NewLinear(99, propensities)
	tree := NewTree(99, propensities)

	for step := 0; step < 500; step++ {
		le, lok := linear.Event()
		te, tok := tree.Event()
		if lok != tok {
			t.Fatalf("step %d: linear ok=%v, tree ok=%v", step, lok, tok)
		}
		if le != te {
			t.Fatalf("step %d: linear %+v, tree %+v", step, le, te)
		}

		if step%7 == 3 {
			u := Update{Index: step % 5, Propensity: float64(step % 3)}
			linear.Update(u)
			tree.Update(u)
		}
	}

	if linear.Total() != tree.Total() {
		t.Errorf("totals diverged: linear %f, tree %f", linear.Total(), tree.Total())
	}
}

func TestTreeGrowth(t *testing.T) {
	s := NewTree(5, []float64{1})
	for i := 1; i < 40; i++ {
		s.Update(Update{Index: i, Propensity: float64(i)})
	}
	want := 1.0
	for i := 1; i < 40; i++ {
		want += float64(i)
	}
	if s.Total() != want {
		t.Errorf("total %f after growth, want %f", s.Total(), want)
	}

	// mass sits overwhelmingly at high indices; selection must reach them
	seen := false
	for i := 0; i < 200; i++ {
		event, ok := s.Event()
		if !ok {
			t.Fatal("expected an event")
		}
		if event.Index >= 32 {
			seen = true
		}
	}
	if !seen {
		t.Error("selection never reached appended reactions")
	}
}
