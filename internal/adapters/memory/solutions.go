package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/ports"
)

type snapshot struct {
	key       uuid.UUID
	status    domain.SolverStatus
	routes    []domain.Route
	objective float64
}

type SolutionStore struct {
	mu        sync.RWMutex
	snapshots map[int64]snapshot
}

func NewSolutionStore() *SolutionStore {
	return &SolutionStore{snapshots: make(map[int64]snapshot)}
}

func (s *SolutionStore) CurrentRoutes(_ context.Context, problemID int64) ([]domain.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[problemID]
	if !ok {
		return []domain.Route{}, nil
	}
	return append([]domain.Route{}, snap.routes...), nil
}

func (s *SolutionStore) Upsert(
	_ context.Context,
	problemID int64,
	status domain.SolverStatus,
	routes []domain.Route,
	objective float64,
	clear bool,
	key uuid.UUID,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.snapshots[problemID]; ok && status == domain.StatusRunning && prev.key == key &&
		(prev.status == domain.StatusTerminated || prev.status == domain.StatusNotSolved) {
		return fmt.Errorf("upsert solution of problem %d: %w", problemID, ports.ErrStaleSnapshot)
	}

	snap := snapshot{key: key, status: status, routes: append([]domain.Route{}, routes...), objective: objective}
	if clear {
		snap.status = domain.StatusNotSolved
		snap.routes = []domain.Route{}
		snap.objective = 0
	}
	s.snapshots[problemID] = snap
	return nil
}

func (s *SolutionStore) Clear(_ context.Context, problemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshots[problemID]
	snap.status = domain.StatusNotSolved
	snap.routes = []domain.Route{}
	snap.objective = 0
	s.snapshots[problemID] = snap
	return nil
}
