package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/matrix"
)

var (
	// ErrActiveRequest is returned when a problem already has an ENQUEUED or RUNNING request.
	ErrActiveRequest = errors.New("problem already has an active solver request")
	// ErrNotFound is returned by lookups that must resolve to an existing record.
	ErrNotFound = errors.New("not found")
	// ErrStaleSnapshot is returned when a snapshot arrives after its request ended
	// or was superseded by a newer request of the same problem.
	ErrStaleSnapshot = errors.New("stale solution snapshot")
)

// Port: read access to problem definitions and their persisted matrices.
type ProblemPort interface {
	// Fails with ErrNotFound for unknown problems.
	GetByID(ctx context.Context, problemID int64) (*domain.VrpProblem, error)
	// Return the persisted matrix for a problem, or nil when none was generated yet.
	GetMatrixByID(ctx context.Context, problemID int64) (*matrix.ProblemMatrix, error)
	SaveMatrix(ctx context.Context, problemID int64, m *matrix.ProblemMatrix) error
}

// Port: persistence of solver requests.
type SolverRequestPort interface {
	// Insert a new request. Fails with ErrActiveRequest when the problem already
	// has an ENQUEUED or RUNNING request.
	CreateRequest(ctx context.Context, req domain.VrpSolverRequest) (*domain.VrpSolverRequest, error)
	// Most recently created request of a problem, nil when none.
	CurrentByProblem(ctx context.Context, problemID int64) (*domain.VrpSolverRequest, error)
	CurrentByKey(ctx context.Context, key uuid.UUID) (*domain.VrpSolverRequest, error)
	// Move a request to status and refresh its update time. Moving a request that is
	// no longer active back to RUNNING fails with ErrStaleSnapshot; unknown keys
	// fail with ErrNotFound.
	UpdateStatus(ctx context.Context, key uuid.UUID, status domain.SolverStatus) error
	// Terminate RUNNING requests not updated within timeout. Returns the number affected.
	RefreshRunning(ctx context.Context, timeout time.Duration) (int, error)
	// Terminate ENQUEUED requests older than timeout. Returns the number affected.
	RefreshEnqueued(ctx context.Context, timeout time.Duration) (int, error)
}

// Port: persistence of the latest solution snapshot of each problem.
type SolutionPort interface {
	CurrentRoutes(ctx context.Context, problemID int64) ([]domain.Route, error)
	// Insert or replace the snapshot of a problem. With clear the routes are dropped
	// and the snapshot status becomes NOT_SOLVED. A RUNNING snapshot never replaces a
	// TERMINATED or NOT_SOLVED snapshot of the same key (ErrStaleSnapshot). Stores that
	// see the request table also reject keys other than the problem's latest request.
	Upsert(ctx context.Context, problemID int64, status domain.SolverStatus, routes []domain.Route, objective float64, clear bool, key uuid.UUID) error
	Clear(ctx context.Context, problemID int64) error
}

// Port: per-viewer display preferences, keyed by viewer id.
type PanelStore interface {
	Get(ctx context.Context, viewerID string) (domain.SolverPanel, error)
	Put(ctx context.Context, viewerID string, panel domain.SolverPanel) error
}
