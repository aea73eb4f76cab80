// Package pipeline connects the solver manager and the persistence service to
// the messaging channels: workers consume solve requests and produce snapshots,
// gateways persist snapshots and fan them out to viewers.
package pipeline

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/ports"
	"vrp-solver-service/internal/solver"
)

// cancelTimeout bounds how long a cancel listener waits for a run to finish.
const cancelTimeout = time.Minute

// Gate lets a worker pause consumption of solve requests.
type Gate interface {
	GateRequestSolver(ready func() bool)
}

// Worker runs solve requests on the local manager.
type Worker struct {
	events  ports.SolverEventsPort
	manager *solver.Manager
	sem     *semaphore.Weighted

	wg sync.WaitGroup
}

// NewWorker returns a worker running at most maxConcurrent solves at once, or
// any number when maxConcurrent is not positive.
func NewWorker(events ports.SolverEventsPort, manager *solver.Manager, maxConcurrent int) *Worker {
	w := &Worker{events: events, manager: manager}
	if maxConcurrent > 0 {
		w.sem = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return w
}

// Register subscribes the worker to solve requests and cancels. When gate is
// not nil and concurrency is capped, the worker stops dequeuing while full so
// other workers take the requests.
func (w *Worker) Register(gate Gate) {
	if gate != nil && w.sem != nil {
		gate.GateRequestSolver(w.hasCapacity)
	}
	w.events.AddRequestSolverListener(w.onRequestSolver)
	w.events.AddBroadcastCancelListener(w.onCancelSolver)
}

func (w *Worker) hasCapacity() bool {
	if !w.sem.TryAcquire(1) {
		return false
	}
	w.sem.Release(1)
	return true
}

// Wait blocks until every started solve has forwarded its last snapshot.
func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) onRequestSolver(cmd domain.RequestSolverCommand) {
	if w.sem != nil {
		// the gate only lets a request through with a free slot
		if err := w.sem.Acquire(context.Background(), 1); err != nil {
			return
		}
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if w.sem != nil {
			defer w.sem.Release(1)
		}
		w.solve(cmd)
	}()
}

func (w *Worker) solve(cmd domain.RequestSolverCommand) {
	ctx := context.Background()
	logger := log.WithFields(log.Fields{
		"solver_key": cmd.SolverKey,
		"solver":     cmd.SolverName,
		"problem_id": cmd.DetailedSolution.Solution.Problem.ID,
	})

	out, err := w.manager.Solve(cmd.SolverKey, cmd.DetailedSolution, cmd.SolverName)
	if err != nil {
		logger.WithError(err).Error("could not start solver, terminating request")
		w.forward(ctx, logger, domain.SolutionRequestCommand{
			SolutionRequest: domain.NewSolutionRequest(cmd.DetailedSolution.Solution, domain.StatusTerminated, cmd.SolverKey),
		})
		return
	}

	for sr := range out {
		w.forward(ctx, logger, sr)
	}
}

func (w *Worker) forward(ctx context.Context, logger *log.Entry, cmd domain.SolutionRequestCommand) {
	if err := w.events.EnqueueSolutionRequest(ctx, cmd); err != nil {
		logger.WithError(err).WithField("status", cmd.SolutionRequest.Status).Error("could not enqueue solution")
	}
}

// onCancelSolver runs on the topic goroutine, so waiting for the run happens elsewhere.
func (w *Worker) onCancelSolver(cmd domain.CancelSolverCommand) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
		defer cancel()
		if err := w.manager.CancelSolver(ctx, cmd.SolverKey, cmd.CurrentStatus, cmd.Clear); err != nil {
			log.WithError(err).WithField("solver_key", cmd.SolverKey).Warn("cancel solver did not complete")
		}
	}()
}
