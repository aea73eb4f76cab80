// Package postgres implements the persistence ports on PostgreSQL through
// database/sql and the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"vrp-solver-service/internal/domain"
)

// InitSchema creates the tables and indexes if they do not exist.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createProblemQuery := `
	CREATE TABLE IF NOT EXISTS vrp_problem (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		vehicles JSONB NOT NULL,
		customers JSONB NOT NULL
	);
	`

	createMatrixQuery := `
	CREATE TABLE IF NOT EXISTS vrp_problem_matrix (
		problem_id BIGINT PRIMARY KEY REFERENCES vrp_problem(id) ON DELETE CASCADE,
		matrix JSONB NOT NULL
	);
	`

	createRequestQuery := `
	CREATE TABLE IF NOT EXISTS vrp_solver_request (
		request_key UUID PRIMARY KEY,
		problem_id BIGINT NOT NULL REFERENCES vrp_problem(id) ON DELETE CASCADE,
		solver TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	// At most one ENQUEUED or RUNNING request per problem.
	createActiveIndexQuery := `
	CREATE UNIQUE INDEX IF NOT EXISTS idx_vrp_solver_request_active
	ON vrp_solver_request(problem_id)
	WHERE status IN ('ENQUEUED', 'RUNNING');
	`

	createRequestIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_vrp_solver_request_problem_created
	ON vrp_solver_request(problem_id, created_at DESC);
	`

	createSolutionQuery := `
	CREATE TABLE IF NOT EXISTS vrp_solution (
		problem_id BIGINT PRIMARY KEY REFERENCES vrp_problem(id) ON DELETE CASCADE,
		request_key UUID,
		status TEXT NOT NULL,
		paths JSONB NOT NULL DEFAULT '[]',
		objective DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createPathCacheQuery := `
	CREATE TABLE IF NOT EXISTS vrp_path_cache (
		from_lat DOUBLE PRECISION NOT NULL,
		from_lng DOUBLE PRECISION NOT NULL,
		to_lat DOUBLE PRECISION NOT NULL,
		to_lng DOUBLE PRECISION NOT NULL,
		distance_meters DOUBLE PRECISION NOT NULL,
		time_millis BIGINT NOT NULL,
		coordinates JSONB NOT NULL,
		PRIMARY KEY (from_lat, from_lng, to_lat, to_lng)
	);
	`

	statements := []string{
		createProblemQuery,
		createMatrixQuery,
		createRequestQuery,
		createActiveIndexQuery,
		createRequestIndexQuery,
		createSolutionQuery,
		createPathCacheQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}
	return nil
}

// SeedFromJSON loads problems from a JSON file, replacing existing definitions
// with the same id.
func SeedFromJSON(ctx context.Context, db *sql.DB, jsonPath string) (int, error) {
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed problems: read %q: %w", jsonPath, err)
	}

	problems, err := domain.ParseProblems(raw)
	if err != nil {
		return 0, fmt.Errorf("seed problems: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed problems: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range problems {
		if err := upsertProblem(ctx, tx, p); err != nil {
			return 0, fmt.Errorf("seed problems: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed problems: commit tx: %w", err)
	}
	return len(problems), nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// upsertProblem writes p and drops its matrix, which no longer matches.
func upsertProblem(ctx context.Context, db execer, p domain.VrpProblem) error {
	vehicles, err := json.Marshal(p.Vehicles)
	if err != nil {
		return fmt.Errorf("problem %d: encode vehicles: %w", p.ID, err)
	}
	customers, err := json.Marshal(p.Customers)
	if err != nil {
		return fmt.Errorf("problem %d: encode customers: %w", p.ID, err)
	}

	query := `
	INSERT INTO vrp_problem (id, name, vehicles, customers)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name, vehicles = EXCLUDED.vehicles, customers = EXCLUDED.customers;
	`
	if _, err := db.ExecContext(ctx, query, p.ID, p.Name, string(vehicles), string(customers)); err != nil {
		return fmt.Errorf("problem %d: upsert: %w", p.ID, err)
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM vrp_problem_matrix WHERE problem_id = $1;`, p.ID); err != nil {
		return fmt.Errorf("problem %d: drop matrix: %w", p.ID, err)
	}
	return nil
}
