package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/ports"
)

// SolutionStore implements ports.SolutionPort, one snapshot row per problem.
type SolutionStore struct{ DB *sql.DB }

func NewSolutionStore(db *sql.DB) *SolutionStore { return &SolutionStore{DB: db} }

func (s *SolutionStore) CurrentRoutes(ctx context.Context, problemID int64) ([]domain.Route, error) {
	var raw []byte
	err := s.DB.QueryRowContext(ctx, `SELECT paths FROM vrp_solution WHERE problem_id = $1;`, problemID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []domain.Route{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("current routes of problem %d: %w", problemID, err)
	}

	routes := []domain.Route{}
	if err := json.Unmarshal(raw, &routes); err != nil {
		return nil, fmt.Errorf("current routes of problem %d: decode: %w", problemID, err)
	}
	return routes, nil
}

// Upsert only accepts snapshots of the problem's latest request, and skips
// RUNNING snapshots of a request whose snapshot already ended.
func (s *SolutionStore) Upsert(
	ctx context.Context,
	problemID int64,
	status domain.SolverStatus,
	routes []domain.Route,
	objective float64,
	clear bool,
	key uuid.UUID,
) error {
	if clear {
		status, routes, objective = domain.StatusNotSolved, []domain.Route{}, 0
	}
	if routes == nil {
		routes = []domain.Route{}
	}
	paths, err := json.Marshal(routes)
	if err != nil {
		return fmt.Errorf("upsert solution of problem %d: encode: %w", problemID, err)
	}

	query := `
	INSERT INTO vrp_solution (problem_id, request_key, status, paths, objective, updated_at)
	SELECT $1::bigint, $2::uuid, $3::text, $4::jsonb, $5::float8, now()
	WHERE $2::uuid = (
		SELECT request_key FROM vrp_solver_request
		WHERE problem_id = $1::bigint
		ORDER BY created_at DESC
		LIMIT 1
	)
	ON CONFLICT (problem_id) DO UPDATE
	SET request_key = EXCLUDED.request_key,
		status = EXCLUDED.status,
		paths = EXCLUDED.paths,
		objective = EXCLUDED.objective,
		updated_at = now()
	WHERE NOT (
		EXCLUDED.status = 'RUNNING'
		AND vrp_solution.request_key = EXCLUDED.request_key
		AND vrp_solution.status IN ('TERMINATED', 'NOT_SOLVED')
	);
	`
	res, err := s.DB.ExecContext(ctx, query, problemID, key, status.String(), string(paths), objective)
	if err != nil {
		return fmt.Errorf("upsert solution of problem %d: %w", problemID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("upsert solution of problem %d: rows affected: %w", problemID, err)
	}
	if n == 0 {
		return fmt.Errorf("upsert solution of problem %d: %w", problemID, ports.ErrStaleSnapshot)
	}
	return nil
}

func (s *SolutionStore) Clear(ctx context.Context, problemID int64) error {
	query := `
	UPDATE vrp_solution
	SET status = 'NOT_SOLVED', paths = '[]', objective = 0, updated_at = now()
	WHERE problem_id = $1;
	`
	if _, err := s.DB.ExecContext(ctx, query, problemID); err != nil {
		return fmt.Errorf("clear solution of problem %d: %w", problemID, err)
	}
	return nil
}
