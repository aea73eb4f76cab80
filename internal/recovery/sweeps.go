package recovery

import (
	"context"
	"time"

	"vrp-solver-service/internal/config"
	"vrp-solver-service/internal/ports"
)

const (
	AbandonedWorkName = "refresh-abandoned-solver-requests"
	UnqueuedWorkName  = "refresh-unqueued-solver-requests"
)

// Sweeps returns the two request sweeps. RUNNING requests silent for longer
// than solverTimeLimit and ENQUEUED requests older than cfg.UnqueueTimeLimit
// are moved to TERMINATED.
func Sweeps(requests ports.SolverRequestPort, cfg config.RecoveryConfig, solverTimeLimit time.Duration) []Work {
	return []Work{
		{
			Name:   AbandonedWorkName,
			Period: cfg.RunningSweepInterval,
			Func: func(ctx context.Context) (int, error) {
				return requests.RefreshRunning(ctx, solverTimeLimit)
			},
		},
		{
			Name:   UnqueuedWorkName,
			Period: cfg.EnqueuedSweepInterval,
			Func: func(ctx context.Context) (int, error) {
				return requests.RefreshEnqueued(ctx, cfg.UnqueueTimeLimit)
			},
		},
	}
}
