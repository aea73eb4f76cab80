package matrix

import (
	"context"
	"fmt"
)

// Site is a location the geo service can route between.
type Site interface {
	LocationID() int64
	Latitude() float64
	Longitude() float64
}

// LegFunc returns the travel distance (meters) and time (millis) from origin to target.
type LegFunc func(ctx context.Context, origin, target Site) (distance float64, time int64, err error)

// GeoMatrix is computed eagerly at construction by routing every ordered pair of sites.
// It costs O(n²) calls and O(n²) memory; the diagonal is always zero.
type GeoMatrix struct {
	idxByID map[int64]int
	dist    [][]float64
	time    [][]int64
}

func NewGeoMatrix(ctx context.Context, sites []Site, leg LegFunc) (*GeoMatrix, error) {
	n := len(sites)
	m := &GeoMatrix{
		idxByID: make(map[int64]int, n),
		dist:    make([][]float64, n),
		time:    make([][]int64, n),
	}
	for i, s := range sites {
		if _, dup := m.idxByID[s.LocationID()]; dup {
			return nil, fmt.Errorf("new geo matrix: duplicated location id %d", s.LocationID())
		}
		m.idxByID[s.LocationID()] = i
		m.dist[i] = make([]float64, n)
		m.time[i] = make([]int64, n)
	}

	for i, a := range sites {
		for j, b := range sites {
			if i == j {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("new geo matrix: %w", err)
			}
			d, t, err := leg(ctx, a, b)
			if err != nil {
				return nil, fmt.Errorf("new geo matrix: path %d -> %d: %w", a.LocationID(), b.LocationID(), err)
			}
			m.dist[i][j] = d
			m.time[i][j] = t
		}
	}

	return m, nil
}

func (m *GeoMatrix) indexes(originID, targetID int64) (int, int) {
	i, ok := m.idxByID[originID]
	if !ok {
		panic(fmt.Sprintf("geo matrix: %v: %d", ErrUnknownLocation, originID))
	}
	j, ok := m.idxByID[targetID]
	if !ok {
		panic(fmt.Sprintf("geo matrix: %v: %d", ErrUnknownLocation, targetID))
	}
	return i, j
}

func (m *GeoMatrix) Distance(originID, targetID int64) float64 {
	i, j := m.indexes(originID, targetID)
	return m.dist[i][j]
}

func (m *GeoMatrix) Time(originID, targetID int64) int64 {
	i, j := m.indexes(originID, targetID)
	return m.time[i][j]
}

// Dense flattens the matrix into its transportable form.
func (m *GeoMatrix) Dense() *ProblemMatrix {
	n := len(m.dist)
	ids := make([]int64, n)
	for id, i := range m.idxByID {
		ids[i] = id
	}

	dist := make([]float64, 0, n*n)
	times := make([]int64, 0, n*n)
	for i := 0; i < n; i++ {
		dist = append(dist, m.dist[i]...)
		times = append(times, m.time[i]...)
	}

	return MustProblemMatrix(ids, dist, times)
}
