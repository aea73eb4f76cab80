package redisbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"vrp-solver-service/internal/domain"
)

// PanelStore keeps viewer panels in one Redis hash shared by every gateway.
type PanelStore struct {
	client redis.UniversalClient
	key    string
}

func NewPanelStore(client redis.UniversalClient, prefix string) *PanelStore {
	return &PanelStore{client: client, key: prefix + "panels"}
}

// Get returns the panel of viewerID, or the zero panel for unknown viewers.
func (s *PanelStore) Get(ctx context.Context, viewerID string) (domain.SolverPanel, error) {
	raw, err := s.client.HGet(ctx, s.key, viewerID).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.SolverPanel{}, nil
	}
	if err != nil {
		return domain.SolverPanel{}, fmt.Errorf("get panel %q: %w", viewerID, err)
	}

	var panel domain.SolverPanel
	if err := json.Unmarshal(raw, &panel); err != nil {
		return domain.SolverPanel{}, fmt.Errorf("get panel %q: decode: %w", viewerID, err)
	}
	return panel, nil
}

func (s *PanelStore) Put(ctx context.Context, viewerID string, panel domain.SolverPanel) error {
	raw, err := json.Marshal(panel)
	if err != nil {
		return fmt.Errorf("put panel %q: encode: %w", viewerID, err)
	}
	if err := s.client.HSet(ctx, s.key, viewerID, raw).Err(); err != nil {
		return fmt.Errorf("put panel %q: %w", viewerID, err)
	}
	return nil
}
