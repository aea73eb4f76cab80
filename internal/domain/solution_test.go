package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProblem() VrpProblem {
	hub := Depot{ID: 1, Name: "hub", Lat: -23.5, Lng: -46.6}
	return VrpProblem{
		ID:   7,
		Name: "sample",
		Vehicles: []Vehicle{
			{ID: 1, Name: "v1", Capacity: 10, Depot: hub},
			{ID: 2, Name: "v2", Capacity: 5, Depot: hub},
		},
		Customers: []Customer{
			{ID: 2, Name: "c2", Lat: -23.51, Lng: -46.61, Demand: 4},
			{ID: 3, Name: "c3", Lat: -23.52, Lng: -46.62, Demand: 6},
		},
	}
}

func route(dist, minutes string, demand int, stops int) Route {
	order := make([]LatLng, stops)
	return Route{
		Distance:    decimal.RequireFromString(dist),
		Time:        decimal.RequireFromString(minutes),
		TotalDemand: demand,
		Order:       order,
	}
}

func TestProblemDepotsAreDistinct(t *testing.T) {
	p := testProblem()

	require.Len(t, p.Depots(), 1)
	assert.Equal(t, []int64{1, 2, 3}, p.LocationIDs())
	assert.Equal(t, 3, p.NumLocations())
	assert.Equal(t, 2, p.NumVehicles())
}

func TestSolutionDerivedProperties(t *testing.T) {
	p := testProblem()
	sol := VrpSolution{Problem: p, Routes: []Route{
		route("12.50", "30", 6, 3),
		route("7.25", "45.5", 4, 3),
	}}

	assert.True(t, sol.IsFeasible())
	assert.False(t, sol.IsEmpty())
	assert.True(t, decimal.RequireFromString("19.75").Equal(sol.TotalDistance()))
	assert.True(t, decimal.RequireFromString("45.5").Equal(sol.TotalTime()))
}

func TestSolutionInfeasibleWhenDemandExceedsCapacity(t *testing.T) {
	p := testProblem()
	sol := VrpSolution{Problem: p, Routes: []Route{
		route("1", "1", 4, 3),
		route("1", "1", 6, 3), // v2 capacity is 5
	}}

	assert.False(t, sol.IsFeasible())
}

func TestSolutionIsEmpty(t *testing.T) {
	p := testProblem()

	assert.True(t, EmptySolution(p).IsEmpty())
	assert.True(t, VrpSolution{Problem: p, Routes: []Route{route("0", "0", 0, 0)}}.IsEmpty())
	assert.True(t, EmptySolution(p).TotalDistance().IsZero())
}

func TestSolverStatusText(t *testing.T) {
	for _, s := range []SolverStatus{StatusEnqueued, StatusNotSolved, StatusRunning, StatusTerminated} {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var parsed SolverStatus
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, s, parsed)
	}

	_, err := ParseSolverStatus("DONE")
	assert.Error(t, err)
	assert.True(t, StatusRunning.Active())
	assert.False(t, StatusTerminated.Active())
}

func TestCancelCommandWireFields(t *testing.T) {
	key := uuid.New()
	raw, err := json.Marshal(CancelSolverCommand{SolverKey: key, CurrentStatus: StatusRunning, Clear: true})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, map[string]any{
		"solverKey":     key.String(),
		"currentStatus": "RUNNING",
		"clear":         true,
	}, fields)
}
