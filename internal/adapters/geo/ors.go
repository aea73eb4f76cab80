// Package geo implements the routing collaborator: OpenRouteService over HTTP
// and a straight-line fallback that needs no network.
package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/matrix"
	"vrp-solver-service/internal/platform/obs"
)

const (
	defaultBaseURL = "https://api.openrouteservice.org"
	defaultProfile = "driving-car"

	// Above this many locations a single matrix call is refused by ORS, and the
	// matrix is built pair by pair from directions.
	maxMatrixLocations = 50
)

// ORS implements ports.GeoPort using OpenRouteService.
// It is safe for concurrent use.
type ORS struct {
	session     *http.Client
	apiKey      string
	baseURL     string
	profile     string
	maxAttempts int
	backoff     time.Duration
}

type ORSOption func(*ORS)

// WithBaseURL points the client at another ORS deployment.
func WithBaseURL(u string) ORSOption { return func(o *ORS) { o.baseURL = u } }

func WithProfile(p string) ORSOption { return func(o *ORS) { o.profile = p } }

func WithHTTPClient(c *http.Client) ORSOption { return func(o *ORS) { o.session = c } }

// WithRetry sets how many attempts are made and the first backoff delay.
func WithRetry(attempts int, backoff time.Duration) ORSOption {
	return func(o *ORS) { o.maxAttempts, o.backoff = attempts, backoff }
}

func NewORS(apiKey string, opts ...ORSOption) (*ORS, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	o := &ORS{
		session:     &http.Client{Timeout: 10 * time.Second},
		apiKey:      apiKey,
		baseURL:     defaultBaseURL,
		profile:     defaultProfile,
		maxAttempts: 4,
		backoff:     200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Summary struct {
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
			} `json:"summary"`
		} `json:"properties"`
	} `json:"features"`
}

// SimplePath asks the directions endpoint for the road path between two points.
func (o *ORS) SimplePath(ctx context.Context, origin, target domain.Coordinate) (_ domain.Path, err error) {
	defer obs.Time(ctx, "ors.SimplePath")(&err)

	endpoint := fmt.Sprintf("%s/v2/directions/%s/geojson", o.baseURL, o.profile)
	var dr directionsResponse
	req := directionsRequest{
		Coordinates: [][]float64{domain.CoordsToList(origin), domain.CoordsToList(target)},
	}
	if err := o.postJSON(ctx, endpoint, req, &dr); err != nil {
		return domain.Path{}, fmt.Errorf("directions request: %w", err)
	}
	if len(dr.Features) == 0 {
		return domain.Path{}, errors.New("directions response has no route")
	}

	f := dr.Features[0]
	coords := make([]domain.LatLng, 0, len(f.Geometry.Coordinates))
	for _, c := range f.Geometry.Coordinates {
		if len(c) < 2 {
			continue
		}
		// ORS answers in [lon, lat]
		coords = append(coords, domain.LatLng{Lat: c[1], Lng: c[0]})
	}

	return domain.Path{
		Distance:    f.Properties.Summary.Distance,
		Time:        int64(math.Round(f.Properties.Summary.Duration * 1000)),
		Coordinates: coords,
	}, nil
}

func (o *ORS) DetailedPaths(ctx context.Context, routes []domain.Route) ([]domain.Route, error) {
	return detailedPaths(ctx, o.SimplePath, routes)
}

// GenerateMatrix fetches the full matrix in one call, falling back to one
// directions call per pair for problems too large for the matrix endpoint.
func (o *ORS) GenerateMatrix(ctx context.Context, locations []domain.Location) (_ *matrix.ProblemMatrix, err error) {
	defer obs.Time(ctx, "ors.GenerateMatrix")(&err)

	if len(locations) > maxMatrixLocations {
		return pairwiseMatrix(ctx, o.SimplePath, locations)
	}
	return o.fetchMatrix(ctx, locations)
}
