package memory

import (
	"context"
	"sync"

	"vrp-solver-service/internal/domain"
)

// PanelStore keeps viewer panels in memory. Unknown viewers get the zero panel.
type PanelStore struct {
	mu     sync.RWMutex
	panels map[string]domain.SolverPanel
}

func NewPanelStore() *PanelStore {
	return &PanelStore{panels: make(map[string]domain.SolverPanel)}
}

func (s *PanelStore) Get(_ context.Context, viewerID string) (domain.SolverPanel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.panels[viewerID], nil
}

func (s *PanelStore) Put(_ context.Context, viewerID string, panel domain.SolverPanel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panels[viewerID] = panel
	return nil
}
