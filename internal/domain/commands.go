package domain

import "github.com/google/uuid"

// RequestSolverCommand asks exactly one worker to start solving.
type RequestSolverCommand struct {
	DetailedSolution VrpDetailedSolution `json:"detailedSolution"`
	SolverKey        uuid.UUID           `json:"solverKey"`
	SolverName       string              `json:"solverName"`
}

// CancelSolverCommand is broadcast to every process; whoever owns SolverKey reacts.
type CancelSolverCommand struct {
	SolverKey     uuid.UUID    `json:"solverKey"`
	CurrentStatus SolverStatus `json:"currentStatus"`
	Clear         bool         `json:"clear"`
}

// SolutionRequestCommand carries one snapshot to the single gateway that persists it.
type SolutionRequestCommand struct {
	SolutionRequest VrpSolutionRequest `json:"solutionRequest"`
	Clear           bool               `json:"clear"`
}

// SolutionCommand is broadcast to every gateway after a snapshot is persisted.
type SolutionCommand struct {
	SolutionRequest VrpSolutionRequest `json:"solutionRequest"`
}
