package geo

import (
	"context"
	"math"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/matrix"
)

const earthRadiusMeters = 6371008.8

// StraightLine routes along great circles at a constant speed. It is used when no
// ORS key is configured and in tests.
type StraightLine struct {
	SpeedKmh float64
}

func NewStraightLine(speedKmh float64) *StraightLine {
	if speedKmh <= 0 {
		speedKmh = 40
	}
	return &StraightLine{SpeedKmh: speedKmh}
}

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b domain.Coordinate) float64 {
	lat1, lat2 := rad(a.Latitude()), rad(b.Latitude())
	dLat := lat2 - lat1
	dLng := rad(b.Longitude() - a.Longitude())

	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }

func (s *StraightLine) SimplePath(_ context.Context, origin, target domain.Coordinate) (domain.Path, error) {
	meters := Haversine(origin, target)
	millis := int64(math.Round(meters / (s.SpeedKmh / 3.6) * 1000))

	return domain.Path{
		Distance: meters,
		Time:     millis,
		Coordinates: []domain.LatLng{
			{Lat: origin.Latitude(), Lng: origin.Longitude()},
			{Lat: target.Latitude(), Lng: target.Longitude()},
		},
	}, nil
}

func (s *StraightLine) DetailedPaths(ctx context.Context, routes []domain.Route) ([]domain.Route, error) {
	return detailedPaths(ctx, s.SimplePath, routes)
}

func (s *StraightLine) GenerateMatrix(ctx context.Context, locations []domain.Location) (*matrix.ProblemMatrix, error) {
	return pairwiseMatrix(ctx, s.SimplePath, locations)
}
