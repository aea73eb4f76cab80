package domain

import (
	"time"

	"github.com/google/uuid"

	"vrp-solver-service/internal/matrix"
)

// VrpSolverRequest records one attempt to solve a problem.
// At most one ENQUEUED or RUNNING request exists per problem; the persistence
// layer enforces it.
type VrpSolverRequest struct {
	RequestKey uuid.UUID    `json:"requestKey"`
	ProblemID  int64        `json:"problemId"`
	Solver     string       `json:"solver"`
	Status     SolverStatus `json:"status"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// VrpSolutionRequest is the unit persisted and broadcast: a solution snapshot and the
// status of the run that produced it.
type VrpSolutionRequest struct {
	Solution  VrpSolution  `json:"solution"`
	Status    SolverStatus `json:"status"`
	SolverKey *uuid.UUID   `json:"solverKey,omitempty"`
}

// NewSolutionRequest builds a VrpSolutionRequest owned by key.
func NewSolutionRequest(sol VrpSolution, status SolverStatus, key uuid.UUID) VrpSolutionRequest {
	return VrpSolutionRequest{Solution: sol, Status: status, SolverKey: &key}
}

// VrpDetailedSolution is what a worker needs to start solving: the current best
// solution and a matrix it can carry across processes.
type VrpDetailedSolution struct {
	Solution VrpSolution           `json:"solution"`
	Matrix   *matrix.ProblemMatrix `json:"matrix"`
}

// SolverPanel is the per-viewer display preference.
type SolverPanel struct {
	IsDetailedPath bool `json:"isDetailedPath"`
}
