package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/matrix"
	"vrp-solver-service/internal/ports"
)

// ProblemStore implements ports.ProblemPort.
type ProblemStore struct{ DB *sql.DB }

func NewProblemStore(db *sql.DB) *ProblemStore { return &ProblemStore{DB: db} }

func (s *ProblemStore) GetByID(ctx context.Context, problemID int64) (*domain.VrpProblem, error) {
	query := `
	SELECT id, name, vehicles, customers
	FROM vrp_problem
	WHERE id = $1;
	`
	var (
		p                   domain.VrpProblem
		vehicles, customers []byte
	)
	err := s.DB.QueryRowContext(ctx, query, problemID).Scan(&p.ID, &p.Name, &vehicles, &customers)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get problem %d: %w", problemID, ports.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get problem %d: %w", problemID, err)
	}

	if err := json.Unmarshal(vehicles, &p.Vehicles); err != nil {
		return nil, fmt.Errorf("get problem %d: decode vehicles: %w", problemID, err)
	}
	if err := json.Unmarshal(customers, &p.Customers); err != nil {
		return nil, fmt.Errorf("get problem %d: decode customers: %w", problemID, err)
	}
	return &p, nil
}

// Put adds or replaces a problem definition.
func (s *ProblemStore) Put(ctx context.Context, p domain.VrpProblem) error {
	return upsertProblem(ctx, s.DB, p)
}

func (s *ProblemStore) GetMatrixByID(ctx context.Context, problemID int64) (*matrix.ProblemMatrix, error) {
	var raw []byte
	err := s.DB.QueryRowContext(ctx, `SELECT matrix FROM vrp_problem_matrix WHERE problem_id = $1;`, problemID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get matrix %d: %w", problemID, err)
	}

	m := new(matrix.ProblemMatrix)
	if err := json.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("get matrix %d: decode: %w", problemID, err)
	}
	return m, nil
}

func (s *ProblemStore) SaveMatrix(ctx context.Context, problemID int64, m *matrix.ProblemMatrix) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("save matrix %d: encode: %w", problemID, err)
	}

	query := `
	INSERT INTO vrp_problem_matrix (problem_id, matrix)
	VALUES ($1, $2)
	ON CONFLICT (problem_id) DO UPDATE SET matrix = EXCLUDED.matrix;
	`
	if _, err := s.DB.ExecContext(ctx, query, problemID, string(raw)); err != nil {
		return fmt.Errorf("save matrix %d: %w", problemID, err)
	}
	return nil
}
