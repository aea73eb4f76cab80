package geo

import (
	"context"
	"fmt"
	"math"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/matrix"
)

type matrixRequest struct {
	Locations [][]float64 `json:"locations"`
	Metrics   []string    `json:"metrics"`
}

type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// fetchMatrix retrieves every ordered pair of locations from the matrix endpoint.
func (o *ORS) fetchMatrix(ctx context.Context, locations []domain.Location) (*matrix.ProblemMatrix, error) {
	n := len(locations)
	ids := make([]int64, 0, n)
	coords := make([][]float64, 0, n)
	for _, l := range locations {
		ids = append(ids, l.LocationID())
		coords = append(coords, domain.CoordsToList(l))
	}
	if n == 0 {
		return matrix.NewProblemMatrix(ids, nil, nil)
	}

	endpoint := fmt.Sprintf("%s/v2/matrix/%s", o.baseURL, o.profile)
	var mr matrixResponse
	req := matrixRequest{Locations: coords, Metrics: []string{"distance", "duration"}}
	if err := o.postJSON(ctx, endpoint, req, &mr); err != nil {
		return nil, fmt.Errorf("matrix request: %w", err)
	}
	if len(mr.Distances) != n || len(mr.Durations) != n {
		return nil, fmt.Errorf("expected %d rows; got distances=%d durations=%d", n, len(mr.Distances), len(mr.Durations))
	}

	dists := make([]float64, 0, n*n)
	times := make([]int64, 0, n*n)
	for i := 0; i < n; i++ {
		if len(mr.Distances[i]) != n || len(mr.Durations[i]) != n {
			return nil, fmt.Errorf("row %d has %d distances and %d durations, want %d", i, len(mr.Distances[i]), len(mr.Durations[i]), n)
		}
		for j := 0; j < n; j++ {
			if i == j {
				dists = append(dists, 0)
				times = append(times, 0)
				continue
			}
			d, t := mr.Distances[i][j], mr.Durations[i][j]
			if d == nil || t == nil {
				return nil, fmt.Errorf("matrix has no route from %d to %d", ids[i], ids[j])
			}
			dists = append(dists, *d)
			times = append(times, int64(math.Round(*t*1000)))
		}
	}

	return matrix.NewProblemMatrix(ids, dists, times)
}
