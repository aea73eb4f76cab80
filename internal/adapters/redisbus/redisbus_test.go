package redisbus

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/messaging"
	"vrp-solver-service/internal/messaging/messagingtest"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestQueueDeliversOnceAcrossProcesses(t *testing.T) {
	_, client := newClient(t)
	messagingtest.RunQueueDeliversOnce(t, NewTransport(client, DefaultPrefix))
}

func TestQueueKeepsMessagesUntilListener(t *testing.T) {
	_, client := newClient(t)
	messagingtest.RunQueueKeepsMessagesUntilListener(t, NewTransport(client, DefaultPrefix))
}

func TestTopicReachesEveryProcess(t *testing.T) {
	_, client := newClient(t)
	messagingtest.RunTopicReachesEveryProcess(t, NewTransport(client, DefaultPrefix))
}

func TestQueuePopTimesOut(t *testing.T) {
	_, client := newClient(t)
	q := NewTransport(client, DefaultPrefix).Queue("empty")

	_, err := q.Pop(context.Background(), time.Second)
	assert.ErrorIs(t, err, messaging.ErrQueueEmpty)
}

func TestQueueIsFIFO(t *testing.T) {
	mr, client := newClient(t)
	q := NewTransport(client, "test:").Queue("fifo")
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, []byte("1")))
	require.NoError(t, q.Push(ctx, []byte("2")))
	assert.True(t, mr.Exists("test:queue:fifo"))

	first, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	second, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "1", string(first))
	assert.Equal(t, "2", string(second))
}

func TestPanelStore(t *testing.T) {
	_, client := newClient(t)
	s := NewPanelStore(client, DefaultPrefix)
	ctx := context.Background()

	panel, err := s.Get(ctx, "viewer-1")
	require.NoError(t, err)
	assert.False(t, panel.IsDetailedPath)

	require.NoError(t, s.Put(ctx, "viewer-1", domain.SolverPanel{IsDetailedPath: true}))
	panel, err = s.Get(ctx, "viewer-1")
	require.NoError(t, err)
	assert.True(t, panel.IsDetailedPath)
}

func TestLockerIsExclusive(t *testing.T) {
	mr, client := newClient(t)
	l := NewLocker(client, DefaultPrefix)
	ctx := context.Background()

	release, ok, err := l.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	assert.False(t, mr.Exists(DefaultPrefix+"lock:sweep"))

	_, ok, err = l.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockerLeaseExpires(t *testing.T) {
	mr, client := newClient(t)
	l := NewLocker(client, DefaultPrefix)
	ctx := context.Background()

	_, ok, err := l.TryLock(ctx, "sweep", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = l.TryLock(ctx, "sweep", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}
