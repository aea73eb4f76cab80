// Package repository coordinates the persistence ports into the operations the
// solver service needs.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/matrix"
	"vrp-solver-service/internal/platform/obs"
	"vrp-solver-service/internal/ports"
)

type SolverRepository struct {
	problems  ports.ProblemPort
	requests  ports.SolverRequestPort
	solutions ports.SolutionPort
	geo       ports.GeoPort

	now      func() time.Time
	matrixSF singleflight.Group
}

func NewSolverRepository(
	problems ports.ProblemPort,
	requests ports.SolverRequestPort,
	solutions ports.SolutionPort,
	geo ports.GeoPort,
) *SolverRepository {
	return &SolverRepository{
		problems:  problems,
		requests:  requests,
		solutions: solutions,
		geo:       geo,
		now:       time.Now,
	}
}

// Enqueue creates a new ENQUEUED request for problemID.
// It fails with ports.ErrNotFound for unknown problems and with
// ports.ErrActiveRequest when the problem already has an active request.
func (r *SolverRepository) Enqueue(ctx context.Context, problemID int64, solverName string) (_ *domain.VrpSolverRequest, err error) {
	defer obs.Time(ctx, "repo.Enqueue")(&err)

	if _, err := r.problems.GetByID(ctx, problemID); err != nil {
		return nil, fmt.Errorf("enqueue problem %d: %w", problemID, err)
	}

	now := r.now().UTC()
	req, err := r.requests.CreateRequest(ctx, domain.VrpSolverRequest{
		RequestKey: uuid.New(),
		ProblemID:  problemID,
		Solver:     solverName,
		Status:     domain.StatusEnqueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue problem %d: %w", problemID, err)
	}
	return req, nil
}

func (r *SolverRepository) CurrentSolverRequest(ctx context.Context, problemID int64) (*domain.VrpSolverRequest, error) {
	req, err := r.requests.CurrentByProblem(ctx, problemID)
	if err != nil {
		return nil, fmt.Errorf("current solver request of problem %d: %w", problemID, err)
	}
	return req, nil
}

func (r *SolverRepository) CurrentSolverRequestByKey(ctx context.Context, key uuid.UUID) (*domain.VrpSolverRequest, error) {
	req, err := r.requests.CurrentByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("current solver request %s: %w", key, err)
	}
	return req, nil
}

// CurrentSolutionRequest returns the latest snapshot of a problem along with the
// status of its current request (NOT_SOLVED when it never had one).
func (r *SolverRepository) CurrentSolutionRequest(ctx context.Context, problemID int64) (*domain.VrpSolutionRequest, error) {
	problem, err := r.problems.GetByID(ctx, problemID)
	if err != nil {
		return nil, fmt.Errorf("current solution of problem %d: %w", problemID, err)
	}

	routes, err := r.solutions.CurrentRoutes(ctx, problemID)
	if err != nil {
		return nil, fmt.Errorf("current solution of problem %d: routes: %w", problemID, err)
	}
	if routes == nil {
		routes = []domain.Route{}
	}
	sol := domain.VrpSolution{Problem: *problem, Routes: routes}

	req, err := r.requests.CurrentByProblem(ctx, problemID)
	if err != nil {
		return nil, fmt.Errorf("current solution of problem %d: request: %w", problemID, err)
	}
	if req == nil {
		return &domain.VrpSolutionRequest{Solution: sol, Status: domain.StatusNotSolved}, nil
	}

	out := domain.NewSolutionRequest(sol, req.Status, req.RequestKey)
	return &out, nil
}

// CurrentDetailedSolution pairs the current solution of a problem with its matrix.
func (r *SolverRepository) CurrentDetailedSolution(ctx context.Context, problemID int64) (*domain.VrpDetailedSolution, error) {
	solReq, err := r.CurrentSolutionRequest(ctx, problemID)
	if err != nil {
		return nil, err
	}
	m, err := r.CurrentMatrix(ctx, problemID)
	if err != nil {
		return nil, err
	}
	return &domain.VrpDetailedSolution{Solution: solReq.Solution, Matrix: m}, nil
}

// InsertNewSolution records a snapshot produced by the run key.
//
// With clear the stored routes are dropped and the request goes back to
// NOT_SOLVED. Snapshots of a request that is no longer the problem's latest,
// and RUNNING snapshots of a request that already ended, are rejected with
// ports.ErrStaleSnapshot.
func (r *SolverRepository) InsertNewSolution(
	ctx context.Context,
	sol domain.VrpSolution,
	key uuid.UUID,
	status domain.SolverStatus,
	clear bool,
) (_ *domain.VrpSolutionRequest, err error) {
	defer obs.Time(ctx, "repo.InsertNewSolution")(&err)

	current, err := r.requests.CurrentByProblem(ctx, sol.Problem.ID)
	if err != nil {
		return nil, fmt.Errorf("insert solution %s: current request: %w", key, err)
	}
	if current == nil || current.RequestKey != key {
		return nil, fmt.Errorf("insert solution %s: superseded: %w", key, ports.ErrStaleSnapshot)
	}

	requestStatus := status
	if clear {
		requestStatus = domain.StatusNotSolved
	}
	if err := r.requests.UpdateStatus(ctx, key, requestStatus); err != nil {
		return nil, fmt.Errorf("insert solution %s: update status: %w", key, err)
	}

	objective, _ := sol.TotalDistance().Float64()
	if err := r.solutions.Upsert(ctx, sol.Problem.ID, status, sol.Routes, objective, clear, key); err != nil {
		return nil, fmt.Errorf("insert solution %s: upsert: %w", key, err)
	}

	if clear {
		sol = domain.EmptySolution(sol.Problem)
	}
	out := domain.NewSolutionRequest(sol, requestStatus, key)
	return &out, nil
}

func (r *SolverRepository) ClearSolution(ctx context.Context, problemID int64) error {
	if err := r.solutions.Clear(ctx, problemID); err != nil {
		return fmt.Errorf("clear solution of problem %d: %w", problemID, err)
	}
	return nil
}

// CurrentMatrix returns the persisted matrix of a problem, generating and saving
// it through the geo port on first use. Concurrent callers share one generation.
func (r *SolverRepository) CurrentMatrix(ctx context.Context, problemID int64) (*matrix.ProblemMatrix, error) {
	v, err, _ := r.matrixSF.Do(strconv.FormatInt(problemID, 10), func() (any, error) {
		m, err := r.problems.GetMatrixByID(ctx, problemID)
		if err != nil {
			return nil, fmt.Errorf("current matrix of problem %d: %w", problemID, err)
		}
		if m != nil {
			return m, nil
		}

		problem, err := r.problems.GetByID(ctx, problemID)
		if err != nil {
			return nil, fmt.Errorf("current matrix of problem %d: %w", problemID, err)
		}
		if r.geo == nil {
			return nil, fmt.Errorf("current matrix of problem %d: %w", problemID, errNoGeo)
		}

		m, err = r.geo.GenerateMatrix(ctx, problem.Locations())
		if err != nil {
			return nil, fmt.Errorf("current matrix of problem %d: generate: %w", problemID, err)
		}
		if err := r.problems.SaveMatrix(ctx, problemID, m); err != nil {
			return nil, fmt.Errorf("current matrix of problem %d: save: %w", problemID, err)
		}
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*matrix.ProblemMatrix), nil
}

var errNoGeo = errors.New("no geo service configured to generate it")
