package ports

import (
	"context"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/matrix"
)

// Contract for the geographic routing service.
type GeoPort interface {
	// Route between two coordinates. Distance in meters, time in millis.
	SimplePath(ctx context.Context, origin, target domain.Coordinate) (domain.Path, error)
	// Expand each route's stops into the full road geometry.
	DetailedPaths(ctx context.Context, routes []domain.Route) ([]domain.Route, error)
	// Build the dense matrix for every ordered pair of locations.
	GenerateMatrix(ctx context.Context, locations []domain.Location) (*matrix.ProblemMatrix, error)
}

// Leg is an ordered pair of coordinates routed as one path.
type Leg struct {
	From domain.LatLng
	To   domain.LatLng
}

// PathCache persists routed legs so repeated geometry requests skip the router.
type PathCache interface {
	// Return the cached paths among legs. Misses are absent from the map.
	GetMany(ctx context.Context, legs []Leg) (map[Leg]domain.Path, error)
	PutMany(ctx context.Context, paths map[Leg]domain.Path) error
}
