package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"

	"vrp-solver-service/internal/adapters/memory"
	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/domain/domaintest"
	"vrp-solver-service/internal/matrix"
)

// detailGeo marks detailed routes with an extra midpoint and counts calls.
type detailGeo struct {
	mu    sync.Mutex
	calls int
}

func (g *detailGeo) SimplePath(context.Context, domain.Coordinate, domain.Coordinate) (domain.Path, error) {
	return domain.Path{}, errors.New("not used")
}

func (g *detailGeo) GenerateMatrix(context.Context, []domain.Location) (*matrix.ProblemMatrix, error) {
	return nil, errors.New("not used")
}

func (g *detailGeo) DetailedPaths(_ context.Context, routes []domain.Route) ([]domain.Route, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	out := make([]domain.Route, len(routes))
	for i, r := range routes {
		r.Order = append(append([]domain.LatLng(nil), r.Order...), domain.LatLng{Lat: 9, Lng: 9})
		out[i] = r
	}
	return out, nil
}

type inbox struct {
	mu       sync.Mutex
	payloads [][]byte
	fail     bool
}

func (b *inbox) send(_ context.Context, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errors.New("connection closed")
	}
	b.payloads = append(b.payloads, payload)
	return nil
}

func (b *inbox) received(t *testing.T) []domain.VrpSolutionRequest {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.VrpSolutionRequest, 0, len(b.payloads))
	for _, p := range b.payloads {
		var req domain.VrpSolutionRequest
		require.NoError(t, json.Unmarshal(p, &req))
		out = append(out, req)
	}
	return out
}

func solutionCommand(problemID int64) domain.SolutionCommand {
	p := domaintest.Problem(problemID, 1, 1, 5)
	sol := domain.EmptySolution(p).WithRoutes([]domain.Route{{
		Order:       []domain.LatLng{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 0.01}, {Lat: 0, Lng: 0}},
		CustomerIDs: []int64{2},
		TotalDemand: 1,
	}})
	return domain.SolutionCommand{SolutionRequest: domain.VrpSolutionRequest{Solution: sol, Status: domain.StatusRunning}}
}

func TestHubFiltersByProblem(t *testing.T) {
	hub := NewHub(memory.NewPanelStore(), &detailGeo{}, nil)

	watching, other := &inbox{}, &inbox{}
	hub.Register(Session{ViewerID: "a", ProblemID: 1, Send: watching.send})
	hub.Register(Session{ViewerID: "b", ProblemID: 2, Send: other.send})

	hub.Broadcast(context.Background(), solutionCommand(1))

	got := watching.received(t)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].Solution.Problem.ID)
	assert.Equal(t, domain.StatusRunning, got[0].Status)
	assert.Empty(t, other.received(t))
}

func TestHubReshapesPerPanelAndEncodesOncePerLevel(t *testing.T) {
	ctx := context.Background()
	panels := memory.NewPanelStore()
	require.NoError(t, panels.Put(ctx, "detailed-1", domain.SolverPanel{IsDetailedPath: true}))
	require.NoError(t, panels.Put(ctx, "detailed-2", domain.SolverPanel{IsDetailedPath: true}))
	geo := &detailGeo{}
	hub := NewHub(panels, geo, nil)

	plain, d1, d2 := &inbox{}, &inbox{}, &inbox{}
	hub.Register(Session{ViewerID: "plain", ProblemID: 1, Send: plain.send})
	hub.Register(Session{ViewerID: "detailed-1", ProblemID: 1, Send: d1.send})
	hub.Register(Session{ViewerID: "detailed-2", ProblemID: 1, Send: d2.send})

	hub.Broadcast(ctx, solutionCommand(1))

	assert.Equal(t, 1, geo.calls)
	require.Len(t, plain.received(t), 1)
	assert.Len(t, plain.received(t)[0].Solution.Routes[0].Order, 3)
	for _, box := range []*inbox{d1, d2} {
		got := box.received(t)
		require.Len(t, got, 1)
		assert.Len(t, got[0].Solution.Routes[0].Order, 4)
	}
}

func TestHubDropsFailingSessions(t *testing.T) {
	scope := tally.NewTestScope("", nil)
	hub := NewHub(memory.NewPanelStore(), nil, scope)

	healthy, broken := &inbox{}, &inbox{fail: true}
	hub.Register(Session{ViewerID: "ok", ProblemID: 1, Send: healthy.send})
	hub.Register(Session{ViewerID: "gone", ProblemID: 1, Send: broken.send})
	require.Equal(t, 2, hub.Len())

	hub.Broadcast(context.Background(), solutionCommand(1))
	assert.Equal(t, 1, hub.Len())
	assert.Len(t, healthy.received(t), 1)

	hub.Broadcast(context.Background(), solutionCommand(1))
	assert.Len(t, healthy.received(t), 2)

	var dropped int64
	for _, c := range scope.Snapshot().Counters() {
		if c.Name() == "broadcast.dropped" {
			dropped = c.Value()
		}
	}
	assert.Equal(t, int64(1), dropped)
}

func TestHubUnregister(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	box := &inbox{}
	unregister := hub.Register(Session{ViewerID: "v", ProblemID: 1, Send: box.send})

	unregister()
	unregister()
	assert.Zero(t, hub.Len())

	hub.Broadcast(context.Background(), solutionCommand(1))
	assert.Empty(t, box.received(t))
}
