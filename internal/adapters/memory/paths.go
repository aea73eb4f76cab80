package memory

import (
	"context"
	"sync"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/ports"
)

// PathCache keeps routed legs for the life of the process.
type PathCache struct {
	mu    sync.RWMutex
	paths map[ports.Leg]domain.Path
}

func NewPathCache() *PathCache {
	return &PathCache{paths: make(map[ports.Leg]domain.Path)}
}

func (c *PathCache) GetMany(_ context.Context, legs []ports.Leg) (map[ports.Leg]domain.Path, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[ports.Leg]domain.Path, len(legs))
	for _, l := range legs {
		if p, ok := c.paths[l]; ok {
			out[l] = p
		}
	}
	return out, nil
}

func (c *PathCache) PutMany(_ context.Context, paths map[ports.Leg]domain.Path) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for l, p := range paths {
		c.paths[l] = p
	}
	return nil
}
