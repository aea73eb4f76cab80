package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vrp-solver-service/internal/adapters/geo"
	"vrp-solver-service/internal/adapters/memory"
	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/domain/domaintest"
	"vrp-solver-service/internal/ports"
)

type fixture struct {
	problem  domain.VrpProblem
	problems *memory.ProblemStore
	requests *memory.RequestStore
	repo     *SolverRepository
	geo      *geo.Mock
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	p := domaintest.Problem(9, 2, 1, 10)
	var pairs []geo.MockPair
	for _, a := range p.Locations() {
		for _, b := range p.Locations() {
			if a.LocationID() == b.LocationID() {
				continue
			}
			pairs = append(pairs, geo.MockPair{
				From:   domain.LatLng{Lat: a.Latitude(), Lng: a.Longitude()},
				To:     domain.LatLng{Lat: b.Latitude(), Lng: b.Longitude()},
				Meters: 1000, Millis: 100000,
			})
		}
	}

	f := fixture{
		problem:  p,
		problems: memory.NewProblemStore(p),
		requests: memory.NewRequestStore(),
		geo:      geo.NewMock(pairs),
	}
	f.repo = NewSolverRepository(f.problems, f.requests, memory.NewSolutionStore(), f.geo)
	return f
}

func sampleSolution(p domain.VrpProblem) domain.VrpSolution {
	return domain.VrpSolution{Problem: p, Routes: []domain.Route{{
		Distance:    decimal.RequireFromString("4.5"),
		Time:        decimal.RequireFromString("7"),
		TotalDemand: 2,
		Order:       []domain.LatLng{{}, {Lng: 0.01}, {Lng: 0.02}, {}},
		CustomerIDs: []int64{2, 3},
	}}}
}

func TestEnqueueCreatesEnqueuedRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.repo.Enqueue(ctx, f.problem.ID, "local-search")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnqueued, req.Status)
	assert.Equal(t, f.problem.ID, req.ProblemID)
	assert.Equal(t, "local-search", req.Solver)
	assert.NotEqual(t, uuid.Nil, req.RequestKey)

	current, err := f.repo.CurrentSolverRequest(ctx, f.problem.ID)
	require.NoError(t, err)
	assert.Equal(t, req.RequestKey, current.RequestKey)
}

func TestConcurrentEnqueueHasOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const callers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   int
		conflicts int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.repo.Enqueue(ctx, f.problem.ID, "local-search")

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, ports.ErrActiveRequest):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, callers-1, conflicts)
}

func TestEnqueueAfterTerminationIsAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.repo.Enqueue(ctx, f.problem.ID, "a")
	require.NoError(t, err)
	_, err = f.repo.InsertNewSolution(ctx, sampleSolution(f.problem), req.RequestKey, domain.StatusTerminated, false)
	require.NoError(t, err)

	_, err = f.repo.Enqueue(ctx, f.problem.ID, "b")
	assert.NoError(t, err)
}

func TestCurrentSolutionWithoutRequest(t *testing.T) {
	f := newFixture(t)

	sr, err := f.repo.CurrentSolutionRequest(context.Background(), f.problem.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotSolved, sr.Status)
	assert.Nil(t, sr.SolverKey)
	assert.True(t, sr.Solution.IsEmpty())
}

func TestCurrentSolutionUnknownProblem(t *testing.T) {
	f := newFixture(t)

	_, err := f.repo.CurrentSolutionRequest(context.Background(), 404)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestInsertNewSolutionWithClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.repo.Enqueue(ctx, f.problem.ID, "a")
	require.NoError(t, err)
	_, err = f.repo.InsertNewSolution(ctx, sampleSolution(f.problem), req.RequestKey, domain.StatusRunning, false)
	require.NoError(t, err)

	out, err := f.repo.InsertNewSolution(ctx, sampleSolution(f.problem), req.RequestKey, domain.StatusTerminated, true)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotSolved, out.Status)
	assert.True(t, out.Solution.IsEmpty())

	stored, err := f.repo.CurrentSolverRequestByKey(ctx, req.RequestKey)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotSolved, stored.Status)

	sr, err := f.repo.CurrentSolutionRequest(ctx, f.problem.ID)
	require.NoError(t, err)
	assert.Empty(t, sr.Solution.Routes)
}

func TestLateRunningSnapshotIsStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.repo.Enqueue(ctx, f.problem.ID, "a")
	require.NoError(t, err)
	_, err = f.repo.InsertNewSolution(ctx, sampleSolution(f.problem), req.RequestKey, domain.StatusTerminated, false)
	require.NoError(t, err)

	_, err = f.repo.InsertNewSolution(ctx, domain.EmptySolution(f.problem), req.RequestKey, domain.StatusRunning, false)
	require.ErrorIs(t, err, ports.ErrStaleSnapshot)

	sr, err := f.repo.CurrentSolutionRequest(ctx, f.problem.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTerminated, sr.Status)
	assert.Len(t, sr.Solution.Routes, 1)
}

func TestCurrentMatrixIsGeneratedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := f.repo.CurrentMatrix(ctx, f.problem.ID)
			assert.NoError(t, err)
			assert.Equal(t, 1000.0, m.Distance(1, 3))
		}()
	}
	wg.Wait()

	// 3 locations, 6 ordered pairs
	assert.EqualValues(t, 6, f.geo.Calls())

	saved, err := f.problems.GetMatrixByID(ctx, f.problem.ID)
	require.NoError(t, err)
	assert.NotNil(t, saved)
}

func TestRecoveryThresholds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	f.requests.WithClock(func() time.Time { return now })

	aged, err := f.repo.Enqueue(ctx, f.problem.ID, "a")
	require.NoError(t, err)
	require.NoError(t, f.requests.UpdateStatus(ctx, aged.RequestKey, domain.StatusRunning))

	now = now.Add(10 * time.Minute)
	n, err := f.requests.RefreshRunning(ctx, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	young, err := f.repo.Enqueue(ctx, f.problem.ID, "a")
	require.NoError(t, err)
	now = now.Add(5 * time.Second)
	n, err = f.requests.RefreshEnqueued(ctx, 10*time.Second)
	require.NoError(t, err)
	assert.Zero(t, n)

	current, err := f.repo.CurrentSolverRequestByKey(ctx, young.RequestKey)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnqueued, current.Status)
}

func TestEnqueueUnknownProblemLeavesNoRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.repo.Enqueue(ctx, 4242, "a")
		require.ErrorIs(t, err, ports.ErrNotFound)
	}

	req, err := f.requests.CurrentByProblem(ctx, 4242)
	require.NoError(t, err)
	assert.Nil(t, req)
}

func TestSupersededRequestCannotOverwriteNewerSolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	f.requests.WithClock(func() time.Time { return now })

	swept, err := f.repo.Enqueue(ctx, f.problem.ID, "a")
	require.NoError(t, err)
	now = now.Add(time.Minute)
	n, err := f.requests.RefreshEnqueued(ctx, 10*time.Second)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	newer, err := f.repo.Enqueue(ctx, f.problem.ID, "b")
	require.NoError(t, err)
	_, err = f.repo.InsertNewSolution(ctx, sampleSolution(f.problem), newer.RequestKey, domain.StatusRunning, false)
	require.NoError(t, err)

	late := sampleSolution(f.problem)
	late.Routes[0].Distance = decimal.NewFromInt(999)
	for _, status := range []domain.SolverStatus{domain.StatusRunning, domain.StatusTerminated} {
		_, err = f.repo.InsertNewSolution(ctx, late, swept.RequestKey, status, false)
		require.ErrorIs(t, err, ports.ErrStaleSnapshot)
	}
	_, err = f.repo.InsertNewSolution(ctx, late, swept.RequestKey, domain.StatusTerminated, true)
	require.ErrorIs(t, err, ports.ErrStaleSnapshot)

	sr, err := f.repo.CurrentSolutionRequest(ctx, f.problem.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, sr.Status)
	require.NotNil(t, sr.SolverKey)
	assert.Equal(t, newer.RequestKey, *sr.SolverKey)
	assert.Equal(t, "4.5", sr.Solution.TotalDistance().String())
}

func TestLatestRequestWinsOnSameTimestamp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	f.requests.WithClock(func() time.Time { return now })

	first, err := f.repo.Enqueue(ctx, f.problem.ID, "a")
	require.NoError(t, err)
	require.NoError(t, f.requests.UpdateStatus(ctx, first.RequestKey, domain.StatusTerminated))
	second, err := f.repo.Enqueue(ctx, f.problem.ID, "b")
	require.NoError(t, err)
	require.NoError(t, f.requests.UpdateStatus(ctx, second.RequestKey, domain.StatusTerminated))

	current, err := f.repo.CurrentSolverRequest(ctx, f.problem.ID)
	require.NoError(t, err)
	assert.Equal(t, second.RequestKey, current.RequestKey)
}
