package geo

import (
	"context"
	"fmt"

	"go.uber.org/atomic"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/matrix"
)

type MockPair struct {
	From, To domain.LatLng
	Meters   float64
	Millis   int64
}

// Mock answers from a fixed table of legs and counts the legs it served.
type Mock struct {
	legs  map[[2]domain.LatLng]domain.Path
	calls atomic.Int64
}

func NewMock(pairs []MockPair) *Mock {
	legs := make(map[[2]domain.LatLng]domain.Path, len(pairs))
	for _, p := range pairs {
		legs[[2]domain.LatLng{p.From, p.To}] = domain.Path{
			Distance:    p.Meters,
			Time:        p.Millis,
			Coordinates: []domain.LatLng{p.From, p.To},
		}
	}
	return &Mock{legs: legs}
}

func (m *Mock) Calls() int64 { return m.calls.Load() }

func (m *Mock) SimplePath(_ context.Context, origin, target domain.Coordinate) (domain.Path, error) {
	m.calls.Inc()

	from := domain.LatLng{Lat: origin.Latitude(), Lng: origin.Longitude()}
	to := domain.LatLng{Lat: target.Latitude(), Lng: target.Longitude()}
	p, ok := m.legs[[2]domain.LatLng{from, to}]
	if !ok {
		return domain.Path{}, fmt.Errorf("missing leg %v -> %v", from, to)
	}
	return p, nil
}

func (m *Mock) DetailedPaths(ctx context.Context, routes []domain.Route) ([]domain.Route, error) {
	return detailedPaths(ctx, m.SimplePath, routes)
}

func (m *Mock) GenerateMatrix(ctx context.Context, locations []domain.Location) (*matrix.ProblemMatrix, error) {
	return pairwiseMatrix(ctx, m.SimplePath, locations)
}
