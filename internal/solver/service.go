package solver

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/ports"
)

var ErrMissingSolverKey = errors.New("solution request has no solver key")

// Repository is what the service needs from persistence.
type Repository interface {
	Enqueue(ctx context.Context, problemID int64, solverName string) (*domain.VrpSolverRequest, error)
	CurrentSolverRequest(ctx context.Context, problemID int64) (*domain.VrpSolverRequest, error)
	CurrentSolverRequestByKey(ctx context.Context, key uuid.UUID) (*domain.VrpSolverRequest, error)
	CurrentSolutionRequest(ctx context.Context, problemID int64) (*domain.VrpSolutionRequest, error)
	CurrentDetailedSolution(ctx context.Context, problemID int64) (*domain.VrpDetailedSolution, error)
	InsertNewSolution(ctx context.Context, sol domain.VrpSolution, key uuid.UUID, status domain.SolverStatus, clear bool) (*domain.VrpSolutionRequest, error)
}

// Service is the gateway-side entry point for solver operations.
type Service struct {
	repo      Repository
	events    ports.SolverEventsPort
	broadcast ports.BroadcastPort
	registry  *Registry
}

func NewService(repo Repository, events ports.SolverEventsPort, broadcast ports.BroadcastPort, registry *Registry) *Service {
	return &Service{repo: repo, events: events, broadcast: broadcast, registry: registry}
}

func (s *Service) SolverNames() []string { return s.registry.Names() }

// ShowStatus returns the status of the problem's current request, NOT_SOLVED when none.
func (s *Service) ShowStatus(ctx context.Context, problemID int64) (domain.SolverStatus, error) {
	req, err := s.repo.CurrentSolverRequest(ctx, problemID)
	if err != nil {
		return 0, err
	}
	if req == nil {
		return domain.StatusNotSolved, nil
	}
	return req.Status, nil
}

func (s *Service) CurrentSolutionRequest(ctx context.Context, problemID int64) (*domain.VrpSolutionRequest, error) {
	return s.repo.CurrentSolutionRequest(ctx, problemID)
}

// ShowDetailedPath re-broadcasts the current solution so viewers on the
// detailed panel receive it with full road geometry.
func (s *Service) ShowDetailedPath(ctx context.Context, problemID int64) error {
	solReq, err := s.repo.CurrentSolutionRequest(ctx, problemID)
	if err != nil {
		return err
	}
	if err := s.broadcast.BroadcastSolution(ctx, domain.SolutionCommand{SolutionRequest: *solReq}); err != nil {
		return fmt.Errorf("show detailed path of problem %d: %w", problemID, err)
	}
	return nil
}

// Update persists a snapshot coming from a worker. With clear the stored
// solution is dropped and the request returns to NOT_SOLVED.
func (s *Service) Update(ctx context.Context, solReq domain.VrpSolutionRequest, clear bool) (*domain.VrpSolutionRequest, error) {
	if solReq.SolverKey == nil {
		return nil, ErrMissingSolverKey
	}
	return s.repo.InsertNewSolution(ctx, solReq.Solution, *solReq.SolverKey, solReq.Status, clear)
}

// EnqueueSolverRequest registers a new request for problemID and hands it to
// the workers. It fails with ports.ErrActiveRequest when the problem is already
// being solved and with ErrSolverNotFound for unknown solvers.
func (s *Service) EnqueueSolverRequest(ctx context.Context, problemID int64, solverName string) (uuid.UUID, error) {
	if _, ok := s.registry.NamedFactories()[solverName]; !ok {
		return uuid.Nil, fmt.Errorf("enqueue problem %d with %q: %w", problemID, solverName, ErrSolverNotFound)
	}

	req, err := s.repo.Enqueue(ctx, problemID, solverName)
	if err != nil {
		return uuid.Nil, err
	}

	// A failure from here on leaves the request ENQUEUED; the recovery sweep
	// terminates it.
	detailed, err := s.repo.CurrentDetailedSolution(ctx, problemID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("enqueue problem %d: %w", problemID, err)
	}

	cmd := domain.RequestSolverCommand{DetailedSolution: *detailed, SolverKey: req.RequestKey, SolverName: solverName}
	if err := s.events.EnqueueRequestSolver(ctx, cmd); err != nil {
		return uuid.Nil, fmt.Errorf("enqueue problem %d: %w", problemID, err)
	}

	log.WithFields(log.Fields{"solver_key": req.RequestKey, "problem_id": problemID, "solver": solverName}).
		Info("solver request enqueued")
	return req.RequestKey, nil
}

// Terminate stops the run of key, keeping its best solution.
func (s *Service) Terminate(ctx context.Context, key uuid.UUID) error {
	return s.terminateEarly(ctx, key, false)
}

// Clear stops the run of key if any and drops its solution.
func (s *Service) Clear(ctx context.Context, key uuid.UUID) error {
	return s.terminateEarly(ctx, key, true)
}

func (s *Service) terminateEarly(ctx context.Context, key uuid.UUID, clear bool) error {
	req, err := s.repo.CurrentSolverRequestByKey(ctx, key)
	if err != nil {
		return err
	}
	if req == nil {
		return fmt.Errorf("terminate %s: %w", key, ports.ErrNotFound)
	}

	switch {
	case req.Status.Active():
		cmd := domain.CancelSolverCommand{SolverKey: key, CurrentStatus: req.Status, Clear: clear}
		if err := s.events.BroadcastCancelSolver(ctx, cmd); err != nil {
			return fmt.Errorf("terminate %s: %w", key, err)
		}
	case req.Status == domain.StatusTerminated && clear:
		// nothing runs any more, so the cleared snapshot goes straight to persistence
		solReq, err := s.repo.CurrentSolutionRequest(ctx, req.ProblemID)
		if err != nil {
			return err
		}
		cmd := domain.SolutionRequestCommand{SolutionRequest: *solReq, Clear: true}
		if err := s.events.EnqueueSolutionRequest(ctx, cmd); err != nil {
			return fmt.Errorf("clear %s: %w", key, err)
		}
	}
	return nil
}
