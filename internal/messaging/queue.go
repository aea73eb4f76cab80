package messaging

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultPopTimeout   = time.Second
)

type QueueOptions struct {
	// PollInterval is how long the loop sleeps while it has no listener, is not
	// ready, or after a backend error.
	PollInterval time.Duration
	// PopTimeout bounds each blocking pop so shutdown is noticed.
	PopTimeout time.Duration
	Scope      tally.Scope
}

func (o QueueOptions) withDefaults() QueueOptions {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.PopTimeout <= 0 {
		o.PopTimeout = DefaultPopTimeout
	}
	if o.Scope == nil {
		o.Scope = tally.NoopScope
	}
	return o
}

// Queue is a typed view of a QueueBackend with a single consumption loop per
// process. Messages are only taken from the backend while at least one listener
// is registered, so nothing is lost before a consumer exists.
type Queue[T any] struct {
	name    string
	backend QueueBackend
	opts    QueueOptions

	mu        sync.RWMutex
	listeners []func(T)
	ready     func() bool

	// life guards cancel, which is nil while the loop is not running
	life   sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	delivered    tally.Counter
	decodeErrors tally.Counter
	popErrors    tally.Counter
}

func NewQueue[T any](name string, backend QueueBackend, opts QueueOptions) *Queue[T] {
	opts = opts.withDefaults()
	scope := opts.Scope.Tagged(map[string]string{"queue": name})
	return &Queue[T]{
		name:         name,
		backend:      backend,
		opts:         opts,
		delivered:    scope.Counter("queue_delivered"),
		decodeErrors: scope.Counter("queue_decode_errors"),
		popErrors:    scope.Counter("queue_pop_errors"),
	}
}

func (q *Queue[T]) Name() string { return q.name }

func (q *Queue[T]) Enqueue(ctx context.Context, v T) error {
	payload, err := encode(v)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", q.name, err)
	}
	if err := q.backend.Push(ctx, payload); err != nil {
		return fmt.Errorf("enqueue %s: %w", q.name, err)
	}
	return nil
}

// AddListener registers fn. Listeners run on the consumption goroutine, in
// registration order, and receive every message this process takes.
func (q *Queue[T]) AddListener(fn func(T)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listeners = append(q.listeners, fn)
}

// SetReady installs a check consulted before every pop; while it reports false
// the process takes nothing, leaving messages to other consumers.
func (q *Queue[T]) SetReady(fn func() bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ready = fn
}

// Start launches the consumption loop. Calling it again is a no-op.
func (q *Queue[T]) Start(ctx context.Context) {
	q.life.Lock()
	defer q.life.Unlock()
	if q.cancel != nil {
		return
	}
	ctx, q.cancel = context.WithCancel(ctx)

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.loop(ctx)
	}()
}

// Stop ends the loop and waits for it.
func (q *Queue[T]) Stop() {
	q.life.Lock()
	defer q.life.Unlock()
	if q.cancel == nil {
		return
	}
	q.cancel()
	q.cancel = nil
	q.wg.Wait()
}

func (q *Queue[T]) snapshot() ([]func(T), func() bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return slices.Clone(q.listeners), q.ready
}

func (q *Queue[T]) loop(ctx context.Context) {
	logger := log.WithField("queue", q.name)
	logger.Debug("queue consumer started")
	defer logger.Debug("queue consumer stopped")

	for ctx.Err() == nil {
		listeners, ready := q.snapshot()
		if len(listeners) == 0 || (ready != nil && !ready()) {
			sleep(ctx, q.opts.PollInterval)
			continue
		}

		payload, err := q.backend.Pop(ctx, q.opts.PopTimeout)
		if errors.Is(err, ErrQueueEmpty) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			q.popErrors.Inc(1)
			logger.WithError(err).Warn("queue pop failed")
			sleep(ctx, q.opts.PollInterval)
			continue
		}

		msg, err := decode[T](payload)
		if err != nil {
			q.decodeErrors.Inc(1)
			logger.WithError(err).Error("dropping undecodable message")
			continue
		}

		q.delivered.Inc(1)
		for _, fn := range listeners {
			deliver(logger, fn, msg)
		}
	}
}

func deliver[T any](logger *log.Entry, fn func(T), msg T) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("listener panicked")
		}
	}()
	fn(msg)
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
