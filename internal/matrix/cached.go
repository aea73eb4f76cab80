package matrix

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

type pair struct {
	origin, target int64
}

func (p pair) String() string { return fmt.Sprintf("%d|%d", p.origin, p.target) }

// CachedMatrix decorates a Matrix with a concurrent per-pair cache.
//
// The wrapped matrix is consulted at most once per (origin, target) pair, even
// when many goroutines ask for the same pair at the same time.
type CachedMatrix struct {
	inner Matrix

	distances sync.Map // pair -> float64
	times     sync.Map // pair -> int64

	distanceGroup singleflight.Group
	timeGroup     singleflight.Group
}

func NewCachedMatrix(inner Matrix) *CachedMatrix {
	return &CachedMatrix{inner: inner}
}

func (c *CachedMatrix) Distance(originID, targetID int64) float64 {
	key := pair{originID, targetID}
	if v, ok := c.distances.Load(key); ok {
		return v.(float64)
	}

	v, _, _ := c.distanceGroup.Do(key.String(), func() (any, error) {
		// A caller that lost the race with a finished flight must not recompute.
		if v, ok := c.distances.Load(key); ok {
			return v, nil
		}
		d := c.inner.Distance(originID, targetID)
		actual, _ := c.distances.LoadOrStore(key, d)
		return actual, nil
	})
	return v.(float64)
}

func (c *CachedMatrix) Time(originID, targetID int64) int64 {
	key := pair{originID, targetID}
	if v, ok := c.times.Load(key); ok {
		return v.(int64)
	}

	v, _, _ := c.timeGroup.Do(key.String(), func() (any, error) {
		if v, ok := c.times.Load(key); ok {
			return v, nil
		}
		t := c.inner.Time(originID, targetID)
		actual, _ := c.times.LoadOrStore(key, t)
		return actual, nil
	})
	return v.(int64)
}
