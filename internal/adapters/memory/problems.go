// Package memory holds in-process implementations of the persistence ports,
// used by the single-process mode and by tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/matrix"
	"vrp-solver-service/internal/ports"
)

type ProblemStore struct {
	mu       sync.RWMutex
	problems map[int64]domain.VrpProblem
	matrices map[int64]*matrix.ProblemMatrix
}

func NewProblemStore(problems ...domain.VrpProblem) *ProblemStore {
	s := &ProblemStore{
		problems: make(map[int64]domain.VrpProblem, len(problems)),
		matrices: make(map[int64]*matrix.ProblemMatrix),
	}
	for _, p := range problems {
		s.problems[p.ID] = p
	}
	return s
}

// Put adds or replaces a problem definition.
func (s *ProblemStore) Put(p domain.VrpProblem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.problems[p.ID] = p
	delete(s.matrices, p.ID)
}

func (s *ProblemStore) GetByID(_ context.Context, problemID int64) (*domain.VrpProblem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.problems[problemID]
	if !ok {
		return nil, fmt.Errorf("problem %d: %w", problemID, ports.ErrNotFound)
	}
	return &p, nil
}

func (s *ProblemStore) GetMatrixByID(_ context.Context, problemID int64) (*matrix.ProblemMatrix, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matrices[problemID], nil
}

func (s *ProblemStore) SaveMatrix(_ context.Context, problemID int64, m *matrix.ProblemMatrix) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.problems[problemID]; !ok {
		return fmt.Errorf("save matrix of problem %d: %w", problemID, ports.ErrNotFound)
	}
	s.matrices[problemID] = m
	return nil
}
