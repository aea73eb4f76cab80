// Package messaging carries solver commands between processes over named queues
// (each message handled by one consumer) and topics (each message seen by every
// subscriber).
package messaging

import (
	"context"
	"errors"
	"time"
)

// ErrQueueEmpty is returned by QueueBackend.Pop when nothing arrived in time.
var ErrQueueEmpty = errors.New("queue empty")

// QueueBackend is a FIFO shared by every process using the same name.
type QueueBackend interface {
	Push(ctx context.Context, payload []byte) error
	// Pop waits up to timeout for a message.
	Pop(ctx context.Context, timeout time.Duration) ([]byte, error)
}

type Subscription interface {
	Close() error
}

// TopicBackend delivers every published message to every live subscription.
// Handlers run on the subscription's own goroutine.
type TopicBackend interface {
	Publish(ctx context.Context, payload []byte) error
	Subscribe(ctx context.Context, handler func([]byte)) (Subscription, error)
}

// Transport resolves queue and topic names to backends.
type Transport interface {
	Queue(name string) QueueBackend
	Topic(name string) TopicBackend
}
