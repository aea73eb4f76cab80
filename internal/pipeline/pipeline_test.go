package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"vrp-solver-service/internal/adapters/geo"
	"vrp-solver-service/internal/adapters/memory"
	"vrp-solver-service/internal/broadcast"
	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/domain/domaintest"
	"vrp-solver-service/internal/matrix"
	"vrp-solver-service/internal/messaging"
	"vrp-solver-service/internal/messaging/messagingtest"
	"vrp-solver-service/internal/repository"
	"vrp-solver-service/internal/solver"
	"vrp-solver-service/internal/solver/heuristics"
)

// holding emits one solution and then waits to be cancelled.
type holding struct{}

func (holding) Name() string { return "holding" }

func (holding) SolveFlow(ctx context.Context, initial domain.VrpSolution, _ matrix.Matrix, _ solver.Config, emit func(domain.VrpSolution)) error {
	emit(initial.WithRoutes([]domain.Route{{
		Distance:    decimal.NewFromInt(7),
		Time:        decimal.NewFromInt(3),
		Order:       []domain.LatLng{{}, {Lng: 0.01}, {}},
		CustomerIDs: []int64{2},
		TotalDemand: 1,
	}}))
	<-ctx.Done()
	return ctx.Err()
}

type viewer struct {
	mu       sync.Mutex
	received []domain.VrpSolutionRequest
}

func (v *viewer) send(_ context.Context, payload []byte) error {
	var req domain.VrpSolutionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.received = append(v.received, req)
	return nil
}

func (v *viewer) last() (domain.VrpSolutionRequest, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.received) == 0 {
		return domain.VrpSolutionRequest{}, 0
	}
	return v.received[len(v.received)-1], len(v.received)
}

// PipelineSuite runs a gateway and a worker as two processes over one broker.
type PipelineSuite struct {
	suite.Suite

	ctx      context.Context
	problems []domain.VrpProblem
	repo     *repository.SolverRepository
	requests *memory.RequestStore
	gateway  *messaging.Registry
	service  *solver.Service
	manager  *solver.Manager
	worker   *Worker
	viewer   *viewer
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	s.ctx = context.Background()
	s.problems = []domain.VrpProblem{
		domaintest.Problem(1, 4, 2, 10),
		domaintest.Problem(2, 3, 1, 10),
	}

	registry := solver.NewRegistry()
	heuristics.Register(registry)
	registry.Register(solver.FactoryFunc{FactoryName: "holding", New: func(uuid.UUID, solver.Config) solver.Solver { return holding{} }})

	s.requests = memory.NewRequestStore()
	s.repo = repository.NewSolverRepository(
		memory.NewProblemStore(s.problems...),
		s.requests,
		memory.NewSolutionStore(),
		geo.NewStraightLine(40),
	)

	broker := messaging.NewBroker()
	s.gateway = messagingtest.StartRegistry(s.T(), broker)
	workerBus := messagingtest.StartRegistry(s.T(), broker)

	hub := broadcast.NewHub(memory.NewPanelStore(), geo.NewStraightLine(40), nil)
	s.viewer = &viewer{}
	hub.Register(broadcast.Session{ViewerID: "v1", ProblemID: 1, Send: s.viewer.send})

	s.service = solver.NewService(s.repo, s.gateway, s.gateway, registry)
	NewGateway(s.service, s.gateway, s.gateway, hub).Register()

	s.manager = solver.NewManager(registry, solver.Config{TimeLimit: 5 * time.Second}, nil)
	s.worker = NewWorker(workerBus, s.manager, 1)
	s.worker.Register(workerBus)

	s.T().Cleanup(func() {
		s.manager.Destroy()
		s.worker.Wait()
	})
}

func (s *PipelineSuite) statusOf(problemID int64) domain.SolverStatus {
	status, err := s.service.ShowStatus(s.ctx, problemID)
	s.Require().NoError(err)
	return status
}

func (s *PipelineSuite) eventuallyStatus(problemID int64, want domain.SolverStatus) {
	s.Eventually(func() bool { return s.statusOf(problemID) == want }, 5*time.Second, 5*time.Millisecond,
		"problem %d never reached %s", problemID, want)
}

func (s *PipelineSuite) TestSolveRunsToTermination() {
	key, err := s.service.EnqueueSolverRequest(s.ctx, 1, heuristics.LocalSearchName)
	s.Require().NoError(err)

	s.eventuallyStatus(1, domain.StatusTerminated)

	sol, err := s.service.CurrentSolutionRequest(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(domain.StatusTerminated, sol.Status)
	s.Equal(key, *sol.SolverKey)
	s.False(sol.Solution.IsEmpty())
	s.True(sol.Solution.IsFeasible())

	s.Eventually(func() bool {
		last, n := s.viewer.last()
		return n > 0 && last.Status == domain.StatusTerminated
	}, 5*time.Second, 5*time.Millisecond)
}

func (s *PipelineSuite) TestTerminateKeepsBestSolution() {
	key, err := s.service.EnqueueSolverRequest(s.ctx, 1, "holding")
	s.Require().NoError(err)
	s.eventuallyStatus(1, domain.StatusRunning)

	s.Require().NoError(s.service.Terminate(s.ctx, key))
	s.eventuallyStatus(1, domain.StatusTerminated)

	sol, err := s.service.CurrentSolutionRequest(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(sol.Solution.Routes, 1)
	s.True(sol.Solution.TotalDistance().Equal(decimal.NewFromInt(7)))
	s.False(s.manager.IsRunning(key))
}

func (s *PipelineSuite) TestClearDropsSolution() {
	key, err := s.service.EnqueueSolverRequest(s.ctx, 1, "holding")
	s.Require().NoError(err)
	s.eventuallyStatus(1, domain.StatusRunning)

	s.Require().NoError(s.service.Clear(s.ctx, key))
	s.eventuallyStatus(1, domain.StatusNotSolved)

	sol, err := s.service.CurrentSolutionRequest(s.ctx, 1)
	s.Require().NoError(err)
	s.True(sol.Solution.IsEmpty())
}

func (s *PipelineSuite) TestFullWorkerLeavesRequestsQueued() {
	first, err := s.service.EnqueueSolverRequest(s.ctx, 1, "holding")
	s.Require().NoError(err)
	s.eventuallyStatus(1, domain.StatusRunning)

	_, err = s.service.EnqueueSolverRequest(s.ctx, 2, "holding")
	s.Require().NoError(err)
	s.Never(func() bool { return s.statusOf(2) != domain.StatusEnqueued }, 100*time.Millisecond, 10*time.Millisecond)

	s.Require().NoError(s.service.Terminate(s.ctx, first))
	s.eventuallyStatus(2, domain.StatusRunning)
}

func (s *PipelineSuite) TestUnknownSolverOnWorkerTerminates() {
	req, err := s.repo.Enqueue(s.ctx, 2, "retired-solver")
	s.Require().NoError(err)
	detailed, err := s.repo.CurrentDetailedSolution(s.ctx, 2)
	s.Require().NoError(err)

	s.Require().NoError(s.gateway.EnqueueRequestSolver(s.ctx, domain.RequestSolverCommand{
		DetailedSolution: *detailed,
		SolverKey:        req.RequestKey,
		SolverName:       "retired-solver",
	}))
	s.eventuallyStatus(2, domain.StatusTerminated)
}

func (s *PipelineSuite) TestStaleRunningSnapshotIsDiscarded() {
	key, err := s.service.EnqueueSolverRequest(s.ctx, 2, "holding")
	s.Require().NoError(err)
	s.eventuallyStatus(2, domain.StatusRunning)
	s.Require().NoError(s.service.Terminate(s.ctx, key))
	s.eventuallyStatus(2, domain.StatusTerminated)

	late := domain.NewSolutionRequest(domain.EmptySolution(s.problems[1]), domain.StatusRunning, key)
	s.Require().NoError(s.gateway.EnqueueSolutionRequest(s.ctx, domain.SolutionRequestCommand{SolutionRequest: late}))

	s.Never(func() bool { return s.statusOf(2) != domain.StatusTerminated }, 100*time.Millisecond, 10*time.Millisecond)
}

func (s *PipelineSuite) TestSupersededRunIsStoppedAndDiscarded() {
	swept, err := s.repo.Enqueue(s.ctx, 2, "holding")
	s.Require().NoError(err)
	detailed, err := s.repo.CurrentDetailedSolution(s.ctx, 2)
	s.Require().NoError(err)
	// the recovery sweep gave up on it while it sat in the queue
	s.Require().NoError(s.requests.UpdateStatus(s.ctx, swept.RequestKey, domain.StatusTerminated))

	newer, err := s.repo.Enqueue(s.ctx, 2, "holding")
	s.Require().NoError(err)
	best := detailed.Solution.WithRoutes([]domain.Route{{
		Distance:    decimal.NewFromInt(30),
		Time:        decimal.NewFromInt(9),
		Order:       []domain.LatLng{{}, {Lng: 0.02}, {}},
		CustomerIDs: []int64{2, 3},
		TotalDemand: 2,
	}})
	_, err = s.service.Update(s.ctx, domain.NewSolutionRequest(best, domain.StatusRunning, newer.RequestKey), false)
	s.Require().NoError(err)

	s.Require().NoError(s.gateway.EnqueueRequestSolver(s.ctx, domain.RequestSolverCommand{
		DetailedSolution: *detailed,
		SolverKey:        swept.RequestKey,
		SolverName:       "holding",
	}))

	// the stale run gives its slot back long before its time limit
	_, err = s.service.EnqueueSolverRequest(s.ctx, 1, "holding")
	s.Require().NoError(err)
	s.Eventually(func() bool { return s.statusOf(1) == domain.StatusRunning }, 2*time.Second, 5*time.Millisecond)
	s.False(s.manager.IsRunning(swept.RequestKey))

	got, err := s.service.CurrentSolutionRequest(s.ctx, 2)
	s.Require().NoError(err)
	s.Equal(domain.StatusRunning, got.Status)
	s.Require().NotNil(got.SolverKey)
	s.Equal(newer.RequestKey, *got.SolverKey)
	s.True(got.Solution.TotalDistance().Equal(decimal.NewFromInt(30)))
}
