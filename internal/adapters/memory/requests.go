package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/ports"
)

type RequestStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]domain.VrpSolverRequest
	// creation order, so the latest request of a problem is unambiguous
	// even when two share a timestamp
	order map[uuid.UUID]uint64
	seq   uint64
	now   func() time.Time
}

func NewRequestStore() *RequestStore {
	return &RequestStore{
		requests: make(map[uuid.UUID]domain.VrpSolverRequest),
		order:    make(map[uuid.UUID]uint64),
		now:      time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *RequestStore) WithClock(now func() time.Time) *RequestStore {
	s.now = now
	return s
}

func (s *RequestStore) CreateRequest(_ context.Context, req domain.VrpSolverRequest) (*domain.VrpSolverRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.requests {
		if r.ProblemID == req.ProblemID && r.Status.Active() {
			return nil, fmt.Errorf("create request for problem %d: %w", req.ProblemID, ports.ErrActiveRequest)
		}
	}
	if _, dup := s.requests[req.RequestKey]; dup {
		return nil, fmt.Errorf("create request: duplicated key %s", req.RequestKey)
	}

	now := s.now().UTC()
	req.CreatedAt, req.UpdatedAt = now, now
	s.requests[req.RequestKey] = req
	s.seq++
	s.order[req.RequestKey] = s.seq
	return &req, nil
}

func (s *RequestStore) CurrentByProblem(_ context.Context, problemID int64) (*domain.VrpSolverRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		current *domain.VrpSolverRequest
		latest  uint64
	)
	for key, r := range s.requests {
		if r.ProblemID != problemID || s.order[key] <= latest {
			continue
		}
		current, latest = &r, s.order[key]
	}
	return current, nil
}

func (s *RequestStore) CurrentByKey(_ context.Context, key uuid.UUID) (*domain.VrpSolverRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *RequestStore) UpdateStatus(_ context.Context, key uuid.UUID, status domain.SolverStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[key]
	if !ok {
		return fmt.Errorf("update request %s: %w", key, ports.ErrNotFound)
	}
	if status == domain.StatusRunning && !r.Status.Active() {
		return fmt.Errorf("update request %s to %s from %s: %w", key, status, r.Status, ports.ErrStaleSnapshot)
	}

	r.Status = status
	r.UpdatedAt = s.now().UTC()
	s.requests[key] = r
	return nil
}

func (s *RequestStore) RefreshRunning(_ context.Context, timeout time.Duration) (int, error) {
	return s.terminateOlder(domain.StatusRunning, timeout, func(r domain.VrpSolverRequest) time.Time { return r.UpdatedAt }), nil
}

func (s *RequestStore) RefreshEnqueued(_ context.Context, timeout time.Duration) (int, error) {
	return s.terminateOlder(domain.StatusEnqueued, timeout, func(r domain.VrpSolverRequest) time.Time { return r.CreatedAt }), nil
}

func (s *RequestStore) terminateOlder(status domain.SolverStatus, timeout time.Duration, age func(domain.VrpSolverRequest) time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	cutoff := now.Add(-timeout)
	n := 0
	for key, r := range s.requests {
		if r.Status != status || !age(r).Before(cutoff) {
			continue
		}
		r.Status = domain.StatusTerminated
		r.UpdatedAt = now
		s.requests[key] = r
		n++
	}
	return n
}
