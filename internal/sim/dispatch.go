package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/san-kum/kmcsim/internal/solver"
)

// HistoryPacket is one finished trajectory.
type HistoryPacket[E any] struct {
	Seed    uint64
	History []E
}

type DispatchOptions struct {
	Simulations int
	BaseSeed    uint64
	Threads     int
	StepCutoff  int
	TimeCutoff  float64

	// Progress, if set, is called from the drain loop after each
	// trajectory is handed to the sink.
	Progress func(done, total int)
}

// Dispatch runs Simulations trajectories with seeds BaseSeed,
// BaseSeed+1, ... across Threads workers. Finished histories are passed
// to sink one at a time from a single goroutine, so the sink needs no
// locking. The first worker or sink error aborts the run.
func Dispatch[E any](ctx context.Context, newInstance func() Instance[E], newSolver solver.Factory, opts DispatchOptions, sink func(HistoryPacket[E]) error) error {
	if opts.Simulations <= 0 {
		return fmt.Errorf("simulations must be positive, got %d", opts.Simulations)
	}
	threads := opts.Threads
	if threads <= 0 {
		threads = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	seeds := make(chan uint64, opts.Simulations)
	for i := 0; i < opts.Simulations; i++ {
		seeds <- opts.BaseSeed + uint64(i)
	}
	close(seeds)

	packets := make(chan HistoryPacket[E], threads)
	errs := make(chan error, threads)

	var wg sync.WaitGroup
	for w := 0; w < threads; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seed := range seeds {
				if ctx.Err() != nil {
					return
				}
				s := New(newInstance(), newSolver, seed, opts.StepCutoff, opts.TimeCutoff)
				if err := s.Run(); err != nil {
					errs <- fmt.Errorf("trajectory %d: %w", seed, err)
					cancel()
					return
				}
				select {
				case packets <- HistoryPacket[E]{Seed: seed, History: s.History()}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(packets)
		close(errs)
	}()

	var firstErr error
	done := 0
	for packet := range packets {
		if firstErr != nil {
			continue
		}
		if err := sink(packet); err != nil {
			firstErr = err
			cancel()
			continue
		}
		done++
		if opts.Progress != nil {
			opts.Progress(done, opts.Simulations)
		}
	}
	for err := range errs {
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
