package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/platform/obs"
	"vrp-solver-service/internal/ports"
)

// RequestStore implements ports.SolverRequestPort.
type RequestStore struct{ DB *sql.DB }

func NewRequestStore(db *sql.DB) *RequestStore { return &RequestStore{DB: db} }

const requestColumns = `request_key, problem_id, solver, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*domain.VrpSolverRequest, error) {
	var (
		r      domain.VrpSolverRequest
		status string
	)
	if err := row.Scan(&r.RequestKey, &r.ProblemID, &r.Solver, &status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	s, err := domain.ParseSolverStatus(status)
	if err != nil {
		return nil, err
	}
	r.Status = s
	return &r, nil
}

// CreateRequest relies on the partial unique index: a conflicting insert
// affects no row and returns nothing.
func (s *RequestStore) CreateRequest(ctx context.Context, req domain.VrpSolverRequest) (_ *domain.VrpSolverRequest, err error) {
	defer obs.Time(ctx, "pg.CreateRequest")(&err)

	query := `
	INSERT INTO vrp_solver_request (request_key, problem_id, solver, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, now(), now())
	ON CONFLICT (problem_id) WHERE status IN ('ENQUEUED', 'RUNNING') DO NOTHING
	RETURNING ` + requestColumns + `;
	`
	out, err := scanRequest(s.DB.QueryRowContext(ctx, query, req.RequestKey, req.ProblemID, req.Solver, req.Status.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("create request for problem %d: %w", req.ProblemID, ports.ErrActiveRequest)
	}
	if err != nil {
		return nil, fmt.Errorf("create request for problem %d: %w", req.ProblemID, err)
	}
	return out, nil
}

func (s *RequestStore) CurrentByProblem(ctx context.Context, problemID int64) (*domain.VrpSolverRequest, error) {
	query := `SELECT ` + requestColumns + `
	FROM vrp_solver_request
	WHERE problem_id = $1
	ORDER BY created_at DESC
	LIMIT 1;
	`
	r, err := scanRequest(s.DB.QueryRowContext(ctx, query, problemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("current request of problem %d: %w", problemID, err)
	}
	return r, nil
}

func (s *RequestStore) CurrentByKey(ctx context.Context, key uuid.UUID) (*domain.VrpSolverRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM vrp_solver_request WHERE request_key = $1;`
	r, err := scanRequest(s.DB.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", key, err)
	}
	return r, nil
}

func (s *RequestStore) UpdateStatus(ctx context.Context, key uuid.UUID, status domain.SolverStatus) error {
	query := `
	UPDATE vrp_solver_request
	SET status = $2, updated_at = now()
	WHERE request_key = $1;
	`
	if status == domain.StatusRunning {
		query = `
		UPDATE vrp_solver_request
		SET status = $2, updated_at = now()
		WHERE request_key = $1 AND status IN ('ENQUEUED', 'RUNNING');
		`
	}

	res, err := s.DB.ExecContext(ctx, query, key, status.String())
	if err != nil {
		return fmt.Errorf("update request %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update request %s: rows affected: %w", key, err)
	}
	if n > 0 {
		return nil
	}

	existing, err := s.CurrentByKey(ctx, key)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("update request %s: %w", key, ports.ErrNotFound)
	}
	return fmt.Errorf("update request %s to %s from %s: %w", key, status, existing.Status, ports.ErrStaleSnapshot)
}

func (s *RequestStore) RefreshRunning(ctx context.Context, timeout time.Duration) (int, error) {
	query := `
	UPDATE vrp_solver_request
	SET status = 'TERMINATED', updated_at = now()
	WHERE status = 'RUNNING' AND updated_at < now() - make_interval(secs => $1);
	`
	return s.refresh(ctx, "running", query, timeout)
}

func (s *RequestStore) RefreshEnqueued(ctx context.Context, timeout time.Duration) (int, error) {
	query := `
	UPDATE vrp_solver_request
	SET status = 'TERMINATED', updated_at = now()
	WHERE status = 'ENQUEUED' AND created_at < now() - make_interval(secs => $1);
	`
	return s.refresh(ctx, "enqueued", query, timeout)
}

func (s *RequestStore) refresh(ctx context.Context, which, query string, timeout time.Duration) (int, error) {
	res, err := s.DB.ExecContext(ctx, query, timeout.Seconds())
	if err != nil {
		return 0, fmt.Errorf("refresh %s requests: %w", which, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("refresh %s requests: rows affected: %w", which, err)
	}
	return int(n), nil
}
