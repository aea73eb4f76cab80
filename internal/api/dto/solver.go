package dto

import (
	"github.com/google/uuid"

	"vrp-solver-service/internal/domain"
)

type StatusResponse struct {
	Status domain.SolverStatus `json:"status"`
}

type SolveResponse struct {
	SolverKey uuid.UUID           `json:"solverKey"`
	Status    domain.SolverStatus `json:"status"`
}

type PanelRequest struct {
	IsDetailedPath *bool `json:"isDetailedPath"`
}

type PanelSolutionState struct {
	SolverPanel   domain.SolverPanel        `json:"solverPanel"`
	SolutionState domain.VrpSolutionRequest `json:"solutionState"`
}
