// Package solver defines the solver plug-in contract and runs solvers on behalf
// of the platform.
package solver

import (
	"context"
	"errors"
	"sync"
	"time"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/matrix"
)

// Config is handed to every solver run.
type Config struct {
	TimeLimit time.Duration
}

// Solver is implemented by optimization engines.
//
// SolveFlow improves on initial until ctx is done or it has nothing left to try,
// calling emit with every candidate it finds. Candidates may arrive in any order
// and at any rate; Solve filters them. SolveFlow must return promptly once ctx
// is cancelled.
type Solver interface {
	Name() string
	SolveFlow(ctx context.Context, initial domain.VrpSolution, m matrix.Matrix, cfg Config, emit func(domain.VrpSolution)) error
}

// Stream is the filtered output of one run.
type Stream struct {
	// C yields improving solutions and is closed when the run ends.
	C <-chan domain.VrpSolution

	done chan struct{}
	mu   sync.Mutex
	err  error
}

// Err reports why the run failed, or nil. Valid once C is closed.
func (s *Stream) Err() error {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Solve runs s in its own goroutine, bounded by cfg.TimeLimit, and returns the
// monotonic stream of its emissions. Reaching the time limit or cancelling ctx
// ends the stream normally.
func Solve(ctx context.Context, s Solver, initial domain.VrpSolution, m matrix.Matrix, cfg Config) *Stream {
	out := make(chan domain.VrpSolution)
	stream := &Stream{C: out, done: make(chan struct{})}

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if cfg.TimeLimit > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cfg.TimeLimit)
	}

	go func() {
		defer close(stream.done)
		defer close(out)
		defer cancel()

		var mu sync.Mutex
		filter := NewMonotonicFilter()
		emit := func(sol domain.VrpSolution) {
			mu.Lock()
			defer mu.Unlock()

			next, ok := filter.Offer(sol)
			if !ok {
				return
			}
			// The time limit only stops the solver; its last results still go out.
			select {
			case out <- next:
			case <-ctx.Done():
			}
		}

		err := s.SolveFlow(runCtx, initial, m, cfg, emit)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			stream.mu.Lock()
			stream.err = err
			stream.mu.Unlock()
		}
	}()

	return stream
}
