package pipeline

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/ports"
	"vrp-solver-service/internal/solver"
)

// Fanout delivers a persisted solution to the viewers of this process.
// broadcast.Hub satisfies it.
type Fanout interface {
	Broadcast(ctx context.Context, cmd domain.SolutionCommand)
}

// Gateway persists snapshots coming from workers and republishes them to
// every gateway, each of which forwards them to its own viewers.
type Gateway struct {
	service   *solver.Service
	events    ports.SolverEventsPort
	broadcast ports.BroadcastPort
	fanout    Fanout
}

func NewGateway(service *solver.Service, events ports.SolverEventsPort, broadcast ports.BroadcastPort, fanout Fanout) *Gateway {
	return &Gateway{service: service, events: events, broadcast: broadcast, fanout: fanout}
}

func (g *Gateway) Register() {
	g.events.AddSolutionRequestListener(g.onSolutionRequest)
	g.broadcast.AddBroadcastSolutionListener(g.onSolution)
}

func (g *Gateway) onSolutionRequest(cmd domain.SolutionRequestCommand) {
	ctx := context.Background()
	logger := log.WithFields(log.Fields{
		"problem_id": cmd.SolutionRequest.Solution.Problem.ID,
		"status":     cmd.SolutionRequest.Status,
	})
	if cmd.SolutionRequest.SolverKey != nil {
		logger = logger.WithField("solver_key", *cmd.SolutionRequest.SolverKey)
	}

	saved, err := g.service.Update(ctx, cmd.SolutionRequest, cmd.Clear)
	if errors.Is(err, ports.ErrStaleSnapshot) {
		logger.Debug("discarding snapshot of a finished or superseded request")
		g.stopStaleRun(ctx, logger, cmd.SolutionRequest)
		return
	}
	if err != nil {
		logger.WithError(err).Error("could not persist solution")
		return
	}

	if err := g.broadcast.BroadcastSolution(ctx, domain.SolutionCommand{SolutionRequest: *saved}); err != nil {
		logger.WithError(err).Error("could not broadcast solution")
	}
}

// stopStaleRun cancels a run that keeps reporting for a request that is no
// longer live, e.g. one dequeued after the recovery sweep terminated it.
func (g *Gateway) stopStaleRun(ctx context.Context, logger *log.Entry, sr domain.VrpSolutionRequest) {
	if sr.Status != domain.StatusRunning || sr.SolverKey == nil {
		return
	}
	cmd := domain.CancelSolverCommand{SolverKey: *sr.SolverKey, CurrentStatus: domain.StatusRunning}
	if err := g.events.BroadcastCancelSolver(ctx, cmd); err != nil {
		logger.WithError(err).Warn("could not cancel stale run")
	}
}

func (g *Gateway) onSolution(cmd domain.SolutionCommand) {
	if g.fanout == nil {
		return
	}
	g.fanout.Broadcast(context.Background(), cmd)
}
