package geo

import (
	"context"
	"fmt"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/matrix"
)

type pathFunc func(ctx context.Context, origin, target domain.Coordinate) (domain.Path, error)

// detailedPaths replaces each route's stop order with the geometry of the legs
// between consecutive stops. Distances and times are left as computed by the solver.
func detailedPaths(ctx context.Context, path pathFunc, routes []domain.Route) ([]domain.Route, error) {
	out := make([]domain.Route, 0, len(routes))
	for i, r := range routes {
		if len(r.Order) < 2 {
			out = append(out, r)
			continue
		}

		geometry := make([]domain.LatLng, 0, len(r.Order))
		for k := 0; k+1 < len(r.Order); k++ {
			p, err := path(ctx, r.Order[k], r.Order[k+1])
			if err != nil {
				return nil, fmt.Errorf("detailed path of route %d, leg %d: %w", i, k, err)
			}
			leg := p.Coordinates
			// consecutive legs share their joint point
			if len(geometry) > 0 && len(leg) > 0 && geometry[len(geometry)-1] == leg[0] {
				leg = leg[1:]
			}
			geometry = append(geometry, leg...)
		}

		detailed := r
		detailed.Order = geometry
		out = append(out, detailed)
	}
	return out, nil
}

type site struct{ domain.Location }

// pairwiseMatrix routes every ordered pair of locations through path.
func pairwiseMatrix(ctx context.Context, path pathFunc, locations []domain.Location) (*matrix.ProblemMatrix, error) {
	sites := make([]matrix.Site, 0, len(locations))
	for _, l := range locations {
		sites = append(sites, site{l})
	}

	gm, err := matrix.NewGeoMatrix(ctx, sites, func(ctx context.Context, origin, target matrix.Site) (float64, int64, error) {
		p, err := path(ctx, origin.(site).Location, target.(site).Location)
		if err != nil {
			return 0, 0, err
		}
		return p.Distance, p.Time, nil
	})
	if err != nil {
		return nil, err
	}
	return gm.Dense(), nil
}
