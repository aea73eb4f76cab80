package solver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/domain/domaintest"
	"vrp-solver-service/internal/matrix"
)

// withDistance builds a one-route solution whose total distance is km.
func withDistance(km int64) domain.VrpSolution {
	p := domaintest.Problem(1, 2, 1, 10)
	return domain.EmptySolution(p).WithRoutes([]domain.Route{{
		Distance:    decimal.NewFromInt(km),
		Time:        decimal.Zero,
		Order:       []domain.LatLng{{}, {}, {}},
		CustomerIDs: []int64{2},
	}})
}

func distances(sols []domain.VrpSolution) []int64 {
	out := make([]int64, 0, len(sols))
	for _, s := range sols {
		out = append(out, s.TotalDistance().IntPart())
	}
	return out
}

// scripted emits a fixed sequence, then returns err.
type scripted struct {
	emissions []domain.VrpSolution
	err       error
}

func (s scripted) Name() string { return "scripted" }

func (s scripted) SolveFlow(ctx context.Context, _ domain.VrpSolution, _ matrix.Matrix, _ Config, emit func(domain.VrpSolution)) error {
	for _, sol := range s.emissions {
		emit(sol)
	}
	return s.err
}

// blocking emits first and then waits to be stopped.
type blocking struct {
	first   domain.VrpSolution
	started chan struct{}
}

func (b blocking) Name() string { return "blocking" }

func (b blocking) SolveFlow(ctx context.Context, _ domain.VrpSolution, _ matrix.Matrix, _ Config, emit func(domain.VrpSolution)) error {
	emit(b.first)
	if b.started != nil {
		close(b.started)
	}
	<-ctx.Done()
	return ctx.Err()
}

func drain(s *Stream) []domain.VrpSolution {
	var out []domain.VrpSolution
	for sol := range s.C {
		out = append(out, sol)
	}
	return out
}

func TestSolveIsMonotonic(t *testing.T) {
	raw := scripted{emissions: []domain.VrpSolution{
		withDistance(100), withDistance(90), withDistance(90), withDistance(95), withDistance(80),
	}}

	s := Solve(context.Background(), raw, domain.VrpSolution{}, nil, Config{})

	assert.Equal(t, []int64{100, 90, 80}, distances(drain(s)))
	assert.NoError(t, s.Err())
}

func TestSolveDropsEmptySolutions(t *testing.T) {
	empty := domain.EmptySolution(domaintest.Problem(1, 2, 1, 10))
	raw := scripted{emissions: []domain.VrpSolution{empty, withDistance(50), empty, withDistance(60)}}

	s := Solve(context.Background(), raw, empty, nil, Config{})

	assert.Equal(t, []int64{50}, distances(drain(s)))
}

func TestSolveTimeLimitIsNormalCompletion(t *testing.T) {
	s := Solve(context.Background(), blocking{first: withDistance(10)}, domain.VrpSolution{}, nil,
		Config{TimeLimit: 20 * time.Millisecond})

	assert.Equal(t, []int64{10}, distances(drain(s)))
	assert.NoError(t, s.Err())
}

func TestSolveReportsFailure(t *testing.T) {
	boom := errors.New("boom")
	s := Solve(context.Background(), scripted{emissions: []domain.VrpSolution{withDistance(7)}, err: boom},
		domain.VrpSolution{}, nil, Config{})

	assert.Equal(t, []int64{7}, distances(drain(s)))
	assert.ErrorIs(t, s.Err(), boom)
}

func TestMonotonicFilterKeepsBest(t *testing.T) {
	f := NewMonotonicFilter()

	_, ok := f.Offer(withDistance(30))
	require.True(t, ok)
	_, ok = f.Offer(withDistance(40))
	assert.False(t, ok)

	best, ok := f.Best()
	require.True(t, ok)
	assert.True(t, best.TotalDistance().Equal(decimal.NewFromInt(30)))
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(FactoryFunc{FactoryName: "b", New: func(uuid.UUID, Config) Solver { return scripted{} }})
	reg.Register(FactoryFunc{FactoryName: "a", New: func(uuid.UUID, Config) Solver { return scripted{} }})

	assert.Equal(t, []string{"a", "b"}, reg.Names())
	assert.Len(t, reg.NamedFactories(), 2)

	s, err := reg.CreateSolver("a", uuid.New(), Config{})
	require.NoError(t, err)
	assert.Equal(t, "scripted", s.Name())

	_, err = reg.CreateSolver("simplex", uuid.New(), Config{})
	require.ErrorIs(t, err, ErrSolverNotFound)
	assert.Contains(t, err.Error(), "simplex")
}
