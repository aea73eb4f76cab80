// Package messagingtest checks Transport implementations against the delivery
// guarantees the service relies on.
package messagingtest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/messaging"
)

// FastOptions keeps test loops responsive.
var FastOptions = messaging.QueueOptions{PollInterval: 5 * time.Millisecond, PopTimeout: 20 * time.Millisecond}

// StartRegistry builds a started registry stopped at test cleanup.
func StartRegistry(t *testing.T, tr messaging.Transport) *messaging.Registry {
	t.Helper()
	r := messaging.NewRegistry(tr, FastOptions)
	require.NoError(t, r.Start(context.Background()))
	t.Cleanup(r.Stop)
	return r
}

func cancelCmd() domain.CancelSolverCommand {
	return domain.CancelSolverCommand{SolverKey: uuid.New(), CurrentStatus: domain.StatusRunning}
}

// RunQueueDeliversOnce checks that N messages over two registries on the same
// transport are each handled by exactly one of them.
func RunQueueDeliversOnce(t *testing.T, tr messaging.Transport) {
	a := StartRegistry(t, tr)
	b := StartRegistry(t, tr)

	const n = 50
	var (
		mu   sync.Mutex
		seen = make(map[uuid.UUID]int)
		wg   sync.WaitGroup
	)
	wg.Add(n)
	listener := func(cmd domain.RequestSolverCommand) {
		mu.Lock()
		seen[cmd.SolverKey]++
		mu.Unlock()
		wg.Done()
	}
	a.AddRequestSolverListener(listener)
	b.AddRequestSolverListener(listener)

	for i := 0; i < n; i++ {
		require.NoError(t, a.EnqueueRequestSolver(context.Background(), domain.RequestSolverCommand{
			SolverKey: uuid.New(), SolverName: "x",
		}))
	}

	WaitOrFail(t, &wg)
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, n)
	for key, count := range seen {
		assert.Equal(t, 1, count, "key %s", key)
	}
}

// RunQueueKeepsMessagesUntilListener checks that messages enqueued before any
// listener exists are delivered once one registers.
func RunQueueKeepsMessagesUntilListener(t *testing.T, tr messaging.Transport) {
	r := StartRegistry(t, tr)
	key := uuid.New()
	require.NoError(t, r.EnqueueSolutionRequest(context.Background(), domain.SolutionRequestCommand{
		SolutionRequest: domain.VrpSolutionRequest{SolverKey: &key, Status: domain.StatusRunning},
	}))

	time.Sleep(4 * FastOptions.PollInterval)

	got := make(chan domain.SolutionRequestCommand, 1)
	r.AddSolutionRequestListener(func(cmd domain.SolutionRequestCommand) { got <- cmd })

	select {
	case cmd := <-got:
		assert.Equal(t, key, *cmd.SolutionRequest.SolverKey)
		assert.Equal(t, domain.StatusRunning, cmd.SolutionRequest.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not delivered")
	}
}

// RunTopicReachesEveryProcess checks that a cancel reaches both registries.
func RunTopicReachesEveryProcess(t *testing.T, tr messaging.Transport) {
	a := StartRegistry(t, tr)
	b := StartRegistry(t, tr)

	var wg sync.WaitGroup
	wg.Add(2)
	var hits atomic.Int32
	want := cancelCmd()
	for _, r := range []*messaging.Registry{a, b} {
		r.AddBroadcastCancelListener(func(cmd domain.CancelSolverCommand) {
			assert.Equal(t, want, cmd)
			hits.Inc()
			wg.Done()
		})
	}

	require.NoError(t, a.BroadcastCancelSolver(context.Background(), want))
	WaitOrFail(t, &wg)
	assert.EqualValues(t, 2, hits.Load())
}

// WaitOrFail waits for wg or fails the test after five seconds.
func WaitOrFail(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for deliveries")
	}
}
