package ports

import (
	"context"

	"vrp-solver-service/internal/domain"
)

// SolverEventsPort moves solver commands between gateway and worker processes.
//
// Request-solver and solution-request commands are delivered to exactly one
// listening process. Cancel commands reach every listening process.
type SolverEventsPort interface {
	EnqueueRequestSolver(ctx context.Context, cmd domain.RequestSolverCommand) error
	AddRequestSolverListener(fn func(domain.RequestSolverCommand))

	EnqueueSolutionRequest(ctx context.Context, cmd domain.SolutionRequestCommand) error
	AddSolutionRequestListener(fn func(domain.SolutionRequestCommand))

	BroadcastCancelSolver(ctx context.Context, cmd domain.CancelSolverCommand) error
	AddBroadcastCancelListener(fn func(domain.CancelSolverCommand))
}

// BroadcastPort publishes persisted solutions to every gateway.
type BroadcastPort interface {
	BroadcastSolution(ctx context.Context, cmd domain.SolutionCommand) error
	AddBroadcastSolutionListener(fn func(domain.SolutionCommand))
}
