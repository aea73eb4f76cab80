package messaging

import (
	"context"
	"fmt"
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Topic is a typed view of a TopicBackend. One backend subscription per process
// fans out to every local listener.
type Topic[T any] struct {
	name    string
	backend TopicBackend

	mu        sync.RWMutex
	listeners []func(T)
	sub       Subscription
}

func NewTopic[T any](name string, backend TopicBackend) *Topic[T] {
	return &Topic[T]{name: name, backend: backend}
}

func (t *Topic[T]) Name() string { return t.name }

func (t *Topic[T]) Publish(ctx context.Context, v T) error {
	payload, err := encode(v)
	if err != nil {
		return fmt.Errorf("publish %s: %w", t.name, err)
	}
	if err := t.backend.Publish(ctx, payload); err != nil {
		return fmt.Errorf("publish %s: %w", t.name, err)
	}
	return nil
}

// AddListener registers fn. Listeners run on the subscription goroutine and
// should hand long work to another goroutine.
func (t *Topic[T]) AddListener(fn func(T)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

// Start subscribes to the backend. Calling it again is a no-op.
func (t *Topic[T]) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sub != nil {
		return nil
	}

	logger := log.WithField("topic", t.name)
	sub, err := t.backend.Subscribe(ctx, func(payload []byte) {
		msg, err := decode[T](payload)
		if err != nil {
			logger.WithError(err).Error("dropping undecodable message")
			return
		}

		t.mu.RLock()
		listeners := slices.Clone(t.listeners)
		t.mu.RUnlock()

		for _, fn := range listeners {
			deliver(logger, fn, msg)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", t.name, err)
	}
	t.sub = sub
	return nil
}

func (t *Topic[T]) Stop() {
	t.mu.Lock()
	sub := t.sub
	t.sub = nil
	t.mu.Unlock()

	if sub != nil {
		if err := sub.Close(); err != nil {
			log.WithField("topic", t.name).WithError(err).Warn("closing subscription failed")
		}
	}
}
