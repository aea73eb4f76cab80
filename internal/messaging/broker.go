package messaging

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const subscriptionBuffer = 256

// Broker is an in-process Transport. Registries built on the same Broker behave
// like separate processes sharing a message substrate.
type Broker struct {
	mu     sync.Mutex
	queues map[string]*memQueue
	topics map[string]*memTopic
}

func NewBroker() *Broker {
	return &Broker{queues: make(map[string]*memQueue), topics: make(map[string]*memTopic)}
}

func (b *Broker) Queue(name string) QueueBackend {
	b.mu.Lock()
	defer b.mu.Unlock()

	q, ok := b.queues[name]
	if !ok {
		q = &memQueue{signal: make(chan struct{}, 1)}
		b.queues[name] = q
	}
	return q
}

func (b *Broker) Topic(name string) TopicBackend {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[name]
	if !ok {
		t = &memTopic{name: name, subs: make(map[*memSubscription]struct{})}
		b.topics[name] = t
	}
	return t
}

type memQueue struct {
	mu     sync.Mutex
	items  [][]byte
	signal chan struct{}
}

func (q *memQueue) Push(_ context.Context, payload []byte) error {
	q.mu.Lock()
	q.items = append(q.items, payload)
	q.mu.Unlock()
	q.notify()
	return nil
}

func (q *memQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *memQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			payload := q.items[0]
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.mu.Unlock()
			if more {
				// wake another waiting consumer
				q.notify()
			}
			return payload, nil
		}
		q.mu.Unlock()

		select {
		case <-q.signal:
		case <-timer.C:
			return nil, ErrQueueEmpty
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Len reports how many messages wait in the queue.
func (q *memQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

type memTopic struct {
	name string
	mu   sync.RWMutex
	subs map[*memSubscription]struct{}
}

type memSubscription struct {
	topic *memTopic
	ch    chan []byte
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

func (t *memTopic) Publish(ctx context.Context, payload []byte) error {
	t.mu.RLock()
	subs := make([]*memSubscription, 0, len(t.subs))
	for s := range t.subs {
		subs = append(subs, s)
	}
	t.mu.RUnlock()

	for _, s := range subs {
		select {
		case s.ch <- payload:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (t *memTopic) Subscribe(ctx context.Context, handler func([]byte)) (Subscription, error) {
	s := &memSubscription{
		topic: t,
		ch:    make(chan []byte, subscriptionBuffer),
		done:  make(chan struct{}),
	}

	t.mu.Lock()
	t.subs[s] = struct{}{}
	t.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case payload := <-s.ch:
				handler(payload)
			case <-s.done:
				return
			case <-ctx.Done():
				log.WithField("topic", t.name).Debug("subscription context done")
				s.detach()
				return
			}
		}
	}()
	return s, nil
}

func (s *memSubscription) detach() {
	s.once.Do(func() {
		s.topic.mu.Lock()
		delete(s.topic.subs, s)
		s.topic.mu.Unlock()
		close(s.done)
	})
}

func (s *memSubscription) Close() error {
	s.detach()
	s.wg.Wait()
	return nil
}
