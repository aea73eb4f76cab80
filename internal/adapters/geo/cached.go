package geo

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/matrix"
	"vrp-solver-service/internal/ports"
)

// CachedPaths serves legs from a PathCache before asking the inner router.
// Matrices are not cached here; they are persisted per problem.
type CachedPaths struct {
	inner ports.GeoPort
	cache ports.PathCache
}

func NewCachedPaths(inner ports.GeoPort, cache ports.PathCache) *CachedPaths {
	return &CachedPaths{inner: inner, cache: cache}
}

func legOf(origin, target domain.Coordinate) ports.Leg {
	return ports.Leg{
		From: domain.LatLng{Lat: origin.Latitude(), Lng: origin.Longitude()},
		To:   domain.LatLng{Lat: target.Latitude(), Lng: target.Longitude()},
	}
}

func (c *CachedPaths) SimplePath(ctx context.Context, origin, target domain.Coordinate) (domain.Path, error) {
	paths, err := c.resolve(ctx, []ports.Leg{legOf(origin, target)})
	if err != nil {
		return domain.Path{}, err
	}
	return paths[legOf(origin, target)], nil
}

// DetailedPaths resolves every leg of every route with one cache lookup, then
// routes only the misses.
func (c *CachedPaths) DetailedPaths(ctx context.Context, routes []domain.Route) ([]domain.Route, error) {
	legs := make([]ports.Leg, 0)
	for _, r := range routes {
		for k := 0; k+1 < len(r.Order); k++ {
			legs = append(legs, legOf(r.Order[k], r.Order[k+1]))
		}
	}

	paths, err := c.resolve(ctx, legs)
	if err != nil {
		return nil, err
	}

	lookup := func(_ context.Context, origin, target domain.Coordinate) (domain.Path, error) {
		p, ok := paths[legOf(origin, target)]
		if !ok {
			return domain.Path{}, fmt.Errorf("missing path for leg %v", legOf(origin, target))
		}
		return p, nil
	}
	return detailedPaths(ctx, lookup, routes)
}

func (c *CachedPaths) GenerateMatrix(ctx context.Context, locations []domain.Location) (*matrix.ProblemMatrix, error) {
	return c.inner.GenerateMatrix(ctx, locations)
}

func (c *CachedPaths) resolve(ctx context.Context, legs []ports.Leg) (map[ports.Leg]domain.Path, error) {
	hits, err := c.cache.GetMany(ctx, legs)
	if err != nil {
		return nil, fmt.Errorf("get path cache: %w", err)
	}

	fresh := make(map[ports.Leg]domain.Path)
	for _, l := range legs {
		if _, ok := hits[l]; ok {
			continue
		}
		if _, ok := fresh[l]; ok {
			continue
		}
		p, err := c.inner.SimplePath(ctx, l.From, l.To)
		if err != nil {
			return nil, fmt.Errorf("route leg %v: %w", l, err)
		}
		fresh[l] = p
	}

	if len(fresh) > 0 {
		if err := c.cache.PutMany(ctx, fresh); err != nil {
			log.WithError(err).Warn("path cache write failed")
		}
	}

	out := make(map[ports.Leg]domain.Path, len(hits)+len(fresh))
	for k, v := range hits {
		out[k] = v
	}
	for k, v := range fresh {
		out[k] = v
	}
	return out, nil
}
