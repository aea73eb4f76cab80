package messaging

import (
	"context"

	"vrp-solver-service/internal/domain"
)

const (
	RequestSolverQueue   = "request-solver-queue"
	SolutionRequestQueue = "solution-request-queue"
	CancelSolverTopic    = "cancel-solver-topic"
	SolutionTopic        = "solution-topic"
)

// Registry holds the channels the service talks over. It implements
// ports.SolverEventsPort and ports.BroadcastPort.
type Registry struct {
	requestSolver   *Queue[domain.RequestSolverCommand]
	solutionRequest *Queue[domain.SolutionRequestCommand]
	cancelSolver    *Topic[domain.CancelSolverCommand]
	solution        *Topic[domain.SolutionCommand]
}

func NewRegistry(t Transport, opts QueueOptions) *Registry {
	return &Registry{
		requestSolver:   NewQueue[domain.RequestSolverCommand](RequestSolverQueue, t.Queue(RequestSolverQueue), opts),
		solutionRequest: NewQueue[domain.SolutionRequestCommand](SolutionRequestQueue, t.Queue(SolutionRequestQueue), opts),
		cancelSolver:    NewTopic[domain.CancelSolverCommand](CancelSolverTopic, t.Topic(CancelSolverTopic)),
		solution:        NewTopic[domain.SolutionCommand](SolutionTopic, t.Topic(SolutionTopic)),
	}
}

// Start subscribes the topics and launches the queue loops.
func (r *Registry) Start(ctx context.Context) error {
	if err := r.cancelSolver.Start(ctx); err != nil {
		return err
	}
	if err := r.solution.Start(ctx); err != nil {
		r.cancelSolver.Stop()
		return err
	}
	r.requestSolver.Start(ctx)
	r.solutionRequest.Start(ctx)
	return nil
}

// Stop ends every loop and subscription, waiting for the loops to return.
func (r *Registry) Stop() {
	r.requestSolver.Stop()
	r.solutionRequest.Stop()
	r.cancelSolver.Stop()
	r.solution.Stop()
}

// GateRequestSolver makes this process take solve requests only while ready
// reports true.
func (r *Registry) GateRequestSolver(ready func() bool) {
	r.requestSolver.SetReady(ready)
}

func (r *Registry) EnqueueRequestSolver(ctx context.Context, cmd domain.RequestSolverCommand) error {
	return r.requestSolver.Enqueue(ctx, cmd)
}

func (r *Registry) AddRequestSolverListener(fn func(domain.RequestSolverCommand)) {
	r.requestSolver.AddListener(fn)
}

func (r *Registry) EnqueueSolutionRequest(ctx context.Context, cmd domain.SolutionRequestCommand) error {
	return r.solutionRequest.Enqueue(ctx, cmd)
}

func (r *Registry) AddSolutionRequestListener(fn func(domain.SolutionRequestCommand)) {
	r.solutionRequest.AddListener(fn)
}

func (r *Registry) BroadcastCancelSolver(ctx context.Context, cmd domain.CancelSolverCommand) error {
	return r.cancelSolver.Publish(ctx, cmd)
}

func (r *Registry) AddBroadcastCancelListener(fn func(domain.CancelSolverCommand)) {
	r.cancelSolver.AddListener(fn)
}

func (r *Registry) BroadcastSolution(ctx context.Context, cmd domain.SolutionCommand) error {
	return r.solution.Publish(ctx, cmd)
}

func (r *Registry) AddBroadcastSolutionListener(fn func(domain.SolutionCommand)) {
	r.solution.AddListener(fn)
}
