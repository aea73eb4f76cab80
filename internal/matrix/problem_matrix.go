package matrix

import (
	"encoding/json"
	"fmt"
	"sync"
)

// ProblemMatrix is a dense, precomputed matrix backed by three flat arrays.
//
// It holds no live references to the geo service, which makes it the form that
// is persisted and carried across the messaging substrate.
type ProblemMatrix struct {
	locationIDs     []int64
	travelDistances []float64
	travelTimes     []int64

	n       int
	idxByID map[int64]int
	pairIdx sync.Map // [2]int64 -> int
}

// NewProblemMatrix validates the array shapes and indexes location ids.
func NewProblemMatrix(locationIDs []int64, travelDistances []float64, travelTimes []int64) (*ProblemMatrix, error) {
	n := len(locationIDs)
	if n*n != len(travelDistances) || n*n != len(travelTimes) {
		return nil, fmt.Errorf(
			"new problem matrix: locations=%d distances=%d times=%d: %w",
			n, len(travelDistances), len(travelTimes), ErrMatrixShape,
		)
	}

	idx := make(map[int64]int, n)
	for i, id := range locationIDs {
		if _, dup := idx[id]; dup {
			return nil, fmt.Errorf("new problem matrix: duplicated location id %d", id)
		}
		idx[id] = i
	}

	return &ProblemMatrix{
		locationIDs:     append([]int64(nil), locationIDs...),
		travelDistances: append([]float64(nil), travelDistances...),
		travelTimes:     append([]int64(nil), travelTimes...),
		n:               n,
		idxByID:         idx,
	}, nil
}

// MustProblemMatrix is NewProblemMatrix for statically known inputs.
func MustProblemMatrix(locationIDs []int64, travelDistances []float64, travelTimes []int64) *ProblemMatrix {
	m, err := NewProblemMatrix(locationIDs, travelDistances, travelTimes)
	if err != nil {
		panic(err)
	}
	return m
}

// flatIndex translates a pair of ids into the flattened array position.
// Unknown ids panic: asking for a location outside the problem is a programming error.
func (m *ProblemMatrix) flatIndex(originID, targetID int64) int {
	key := [2]int64{originID, targetID}
	if v, ok := m.pairIdx.Load(key); ok {
		return v.(int)
	}

	i, ok := m.idxByID[originID]
	if !ok {
		panic(fmt.Sprintf("problem matrix: %v: %d", ErrUnknownLocation, originID))
	}
	j, ok := m.idxByID[targetID]
	if !ok {
		panic(fmt.Sprintf("problem matrix: %v: %d", ErrUnknownLocation, targetID))
	}

	flat := i*m.n + j
	m.pairIdx.Store(key, flat)
	return flat
}

func (m *ProblemMatrix) Distance(originID, targetID int64) float64 {
	return m.travelDistances[m.flatIndex(originID, targetID)]
}

func (m *ProblemMatrix) Time(originID, targetID int64) int64 {
	return m.travelTimes[m.flatIndex(originID, targetID)]
}

// Has reports whether id is indexed by the matrix.
func (m *ProblemMatrix) Has(id int64) bool {
	_, ok := m.idxByID[id]
	return ok
}

func (m *ProblemMatrix) LocationIDs() []int64 { return append([]int64(nil), m.locationIDs...) }
func (m *ProblemMatrix) TravelDistances() []float64 {
	return append([]float64(nil), m.travelDistances...)
}
func (m *ProblemMatrix) TravelTimes() []int64 { return append([]int64(nil), m.travelTimes...) }

type problemMatrixJSON struct {
	LocationIDs     []int64   `json:"locationIds"`
	TravelDistances []float64 `json:"travelDistances"`
	TravelTimes     []int64   `json:"travelTimes"`
}

func (m *ProblemMatrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(problemMatrixJSON{
		LocationIDs:     m.locationIDs,
		TravelDistances: m.travelDistances,
		TravelTimes:     m.travelTimes,
	})
}

// UnmarshalJSON rebuilds the matrix through NewProblemMatrix so the shape
// invariant holds for decoded values too.
func (m *ProblemMatrix) UnmarshalJSON(data []byte) error {
	var raw problemMatrixJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode problem matrix: %w", err)
	}

	decoded, err := NewProblemMatrix(raw.LocationIDs, raw.TravelDistances, raw.TravelTimes)
	if err != nil {
		return fmt.Errorf("decode problem matrix: %w", err)
	}

	m.locationIDs = decoded.locationIDs
	m.travelDistances = decoded.travelDistances
	m.travelTimes = decoded.travelTimes
	m.n = decoded.n
	m.idxByID = decoded.idxByID
	m.pairIdx.Clear()
	return nil
}
