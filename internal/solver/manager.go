package solver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"
	"go.uber.org/atomic"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/matrix"
)

// DefaultBlacklistTTL bounds how long a key cancelled while ENQUEUED is remembered.
const DefaultBlacklistTTL = 30 * time.Minute

var ErrMissingMatrix = errors.New("detailed solution has no matrix")

type run struct {
	cancel context.CancelFunc
	done   chan struct{}
	clear  atomic.Bool
}

type managerMetrics struct {
	started    tally.Counter
	cancelled  tally.Counter
	failed     tally.Counter
	terminated tally.Counter
	active     tally.Gauge
}

func newManagerMetrics(scope tally.Scope) managerMetrics {
	s := scope.SubScope("solver")
	return managerMetrics{
		started:    s.Counter("started"),
		cancelled:  s.Counter("cancelled"),
		failed:     s.Counter("failed"),
		terminated: s.Counter("terminated"),
		active:     s.Gauge("active"),
	}
}

// Manager owns the solver runs of one process, at most one per solver key.
type Manager struct {
	registry *Registry
	cfg      Config
	metrics  managerMetrics

	mu        sync.Mutex
	runs      map[uuid.UUID]*run
	blacklist map[uuid.UUID]time.Time

	blacklistTTL time.Duration
	now          func() time.Time
}

func NewManager(registry *Registry, cfg Config, scope tally.Scope) *Manager {
	if scope == nil {
		scope = tally.NoopScope
	}
	return &Manager{
		registry:     registry,
		cfg:          cfg,
		metrics:      newManagerMetrics(scope),
		runs:         make(map[uuid.UUID]*run),
		blacklist:    make(map[uuid.UUID]time.Time),
		blacklistTTL: DefaultBlacklistTTL,
		now:          time.Now,
	}
}

// Solve starts solverName on detailed under key.
//
// The returned channel yields a RUNNING command per improving solution and ends
// with one TERMINATED command holding the last best solution; it must be drained
// until closed. A key that is already running yields a closed, empty channel.
// A key cancelled before it started yields only the TERMINATED command.
func (m *Manager) Solve(key uuid.UUID, detailed domain.VrpDetailedSolution, solverName string) (<-chan domain.SolutionRequestCommand, error) {
	if detailed.Matrix == nil {
		return nil, fmt.Errorf("solve %s: %w", key, ErrMissingMatrix)
	}
	s, err := m.registry.CreateSolver(solverName, key, m.cfg)
	if err != nil {
		return nil, fmt.Errorf("solve %s: %w", key, err)
	}

	logger := log.WithFields(log.Fields{"solver_key": key, "solver": solverName})

	m.mu.Lock()
	m.pruneBlacklistLocked()

	if _, busy := m.runs[key]; busy {
		m.mu.Unlock()
		logger.Warn("solver key already running, ignoring solve")
		out := make(chan domain.SolutionRequestCommand)
		close(out)
		return out, nil
	}

	if _, cancelled := m.blacklist[key]; cancelled {
		delete(m.blacklist, key)
		m.mu.Unlock()
		logger.Info("solver key was cancelled while enqueued, terminating without solving")
		out := make(chan domain.SolutionRequestCommand, 1)
		out <- domain.SolutionRequestCommand{
			SolutionRequest: domain.NewSolutionRequest(detailed.Solution, domain.StatusTerminated, key),
		}
		close(out)
		m.metrics.terminated.Inc(1)
		return out, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{cancel: cancel, done: make(chan struct{})}
	m.runs[key] = r
	m.metrics.active.Update(float64(len(m.runs)))
	m.mu.Unlock()

	m.metrics.started.Inc(1)
	logger.Info("solver started")

	out := make(chan domain.SolutionRequestCommand)
	go m.execute(ctx, key, r, s, detailed, out, logger)
	return out, nil
}

func (m *Manager) execute(
	ctx context.Context,
	key uuid.UUID,
	r *run,
	s Solver,
	detailed domain.VrpDetailedSolution,
	out chan<- domain.SolutionRequestCommand,
	logger *log.Entry,
) {
	defer func() {
		m.mu.Lock()
		delete(m.runs, key)
		m.metrics.active.Update(float64(len(m.runs)))
		m.mu.Unlock()

		close(out)
		close(r.done)
	}()
	defer r.cancel()

	best := detailed.Solution
	stream := Solve(ctx, s, detailed.Solution, matrix.NewCachedMatrix(detailed.Matrix), m.cfg)
	for sol := range stream.C {
		best = sol
		if ctx.Err() != nil {
			continue
		}
		out <- domain.SolutionRequestCommand{
			SolutionRequest: domain.NewSolutionRequest(sol, domain.StatusRunning, key),
		}
	}

	if err := stream.Err(); err != nil {
		m.metrics.failed.Inc(1)
		logger.WithError(err).Error("solver failed")
	}
	if ctx.Err() != nil {
		m.metrics.cancelled.Inc(1)
	}

	cleared := r.clear.Load()
	out <- domain.SolutionRequestCommand{
		SolutionRequest: domain.NewSolutionRequest(best, domain.StatusTerminated, key),
		Clear:           cleared,
	}
	m.metrics.terminated.Inc(1)
	logger.WithField("clear", cleared).Info("solver terminated")
}

// CancelSolver stops the run of key and waits until it has emitted its last command.
//
// When nothing runs under key and currentStatus is ENQUEUED the key is
// remembered, so a start that arrives later terminates immediately. Any other
// unknown key is ignored.
func (m *Manager) CancelSolver(ctx context.Context, key uuid.UUID, currentStatus domain.SolverStatus, clear bool) error {
	m.mu.Lock()
	m.pruneBlacklistLocked()
	r, ok := m.runs[key]
	if !ok {
		if currentStatus == domain.StatusEnqueued {
			m.blacklist[key] = m.now()
		}
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	if clear {
		r.clear.Store(true)
	}
	r.cancel()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("cancel solver %s: %w", key, ctx.Err())
	}
}

// IsRunning reports whether key has a run in this process.
func (m *Manager) IsRunning(key uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.runs[key]
	return ok
}

// Destroy cancels every run and waits for all of them.
func (m *Manager) Destroy() {
	m.mu.Lock()
	pending := make([]*run, 0, len(m.runs))
	for _, r := range m.runs {
		pending = append(pending, r)
	}
	m.mu.Unlock()

	for _, r := range pending {
		r.cancel()
	}
	for _, r := range pending {
		<-r.done
	}
}

func (m *Manager) pruneBlacklistLocked() {
	cutoff := m.now().Add(-m.blacklistTTL)
	for key, at := range m.blacklist {
		if at.Before(cutoff) {
			delete(m.blacklist, key)
		}
	}
}
