// Package recovery runs the periodic sweeps that terminate solver requests
// whose worker died or whose command was never consumed.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"
	"go.uber.org/atomic"
)

var (
	errEmptyName     = errors.New("recovery work name cannot be empty")
	errDuplicateName = errors.New("duplicate recovery work name")
	errBadPeriod     = errors.New("recovery work period must be positive")
)

// Work is a named job run with a fixed delay between the end of one run and
// the start of the next.
type Work struct {
	Name   string
	Func   func(ctx context.Context) (int, error)
	Period time.Duration
}

// Locker grants cluster-wide leases. redisbus.Locker satisfies it.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

// Scheduler starts and stops registered works together.
type Scheduler struct {
	locker Locker
	scope  tally.Scope

	mu      sync.Mutex
	runners map[string]*runner
}

// NewScheduler returns a scheduler. locker may be nil, in which case every
// process runs every work.
func NewScheduler(locker Locker, scope tally.Scope) *Scheduler {
	if scope == nil {
		scope = tally.NoopScope
	}
	return &Scheduler{
		locker:  locker,
		scope:   scope.SubScope("recovery"),
		runners: make(map[string]*runner),
	}
}

func (s *Scheduler) Register(works ...Work) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, work := range works {
		if work.Name == "" {
			return errEmptyName
		}
		if work.Period <= 0 {
			return fmt.Errorf("register %q: %w", work.Name, errBadPeriod)
		}
		if _, ok := s.runners[work.Name]; ok {
			return fmt.Errorf("register %q: %w", work.Name, errDuplicateName)
		}

		tagged := s.scope.Tagged(map[string]string{"work": work.Name})
		s.runners[work.Name] = &runner{
			work:      work,
			locker:    s.locker,
			refreshed: tagged.Counter("refreshed"),
			skipped:   tagged.Counter("skipped"),
			failed:    tagged.Counter("failed"),
		}
	}
	return nil
}

// Start launches every registered work. Runs stop when ctx is done or on Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.runners {
		r.start(ctx)
	}
}

// Stop halts every work and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.runners {
		r.stop()
	}
}

type runner struct {
	work   Work
	locker Locker

	refreshed tally.Counter
	skipped   tally.Counter
	failed    tally.Counter

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func (r *runner) start(parent context.Context) {
	logger := log.WithField("name", r.work.Name)
	if !r.running.CompareAndSwap(false, true) {
		logger.Info("Recovery work is already running, no-op.")
		return
	}
	logger.WithField("interval_secs", r.work.Period.Seconds()).Info("Starting recovery work.")

	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		defer r.running.Store(false)

		timer := time.NewTimer(0)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info("Recovery work stopped.")
				return
			case <-timer.C:
			}
			r.runOnce(ctx)
			timer.Reset(r.work.Period)
		}
	}()
}

func (r *runner) stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel = nil
}

// runOnce executes the work if this process holds the lease for the period.
// The lease is left to expire so peers skip the same period.
func (r *runner) runOnce(ctx context.Context) {
	logger := log.WithField("name", r.work.Name)

	if r.locker != nil {
		_, ok, err := r.locker.TryLock(ctx, r.work.Name, r.work.Period)
		if err != nil {
			r.failed.Inc(1)
			logger.WithError(err).Warn("recovery lock failed")
			return
		}
		if !ok {
			r.skipped.Inc(1)
			logger.Debug("recovery work held by another process")
			return
		}
	}

	n, err := r.work.Func(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.failed.Inc(1)
		logger.WithError(err).Error("recovery work failed")
		return
	}
	r.refreshed.Inc(int64(n))
	logger.WithField("updated", n).Info("recovery work done")
}
