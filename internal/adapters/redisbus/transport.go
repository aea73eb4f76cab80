package redisbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"vrp-solver-service/internal/messaging"
)

// Transport implements messaging.Transport on a Redis client.
type Transport struct {
	client redis.UniversalClient
	prefix string
}

func NewTransport(client redis.UniversalClient, prefix string) *Transport {
	return &Transport{client: client, prefix: prefix}
}

func (t *Transport) Queue(name string) messaging.QueueBackend {
	return &queue{client: t.client, key: t.prefix + "queue:" + name}
}

func (t *Transport) Topic(name string) messaging.TopicBackend {
	return &topic{client: t.client, channel: t.prefix + "topic:" + name}
}

type queue struct {
	client redis.UniversalClient
	key    string
}

func (q *queue) Push(ctx context.Context, payload []byte) error {
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", q.key, err)
	}
	return nil
}

func (q *queue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, messaging.ErrQueueEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("brpop %s: %w", q.key, err)
	}
	// [key, value]
	if len(res) != 2 {
		return nil, fmt.Errorf("brpop %s: unexpected reply of %d items", q.key, len(res))
	}
	return []byte(res[1]), nil
}

type topic struct {
	client  redis.UniversalClient
	channel string
}

func (t *topic) Publish(ctx context.Context, payload []byte) error {
	if err := t.client.Publish(ctx, t.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", t.channel, err)
	}
	return nil
}

// Subscribe returns once Redis has confirmed the subscription, so messages
// published afterwards are not missed.
func (t *topic) Subscribe(ctx context.Context, handler func([]byte)) (messaging.Subscription, error) {
	ps := t.client.Subscribe(ctx, t.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", t.channel, err)
	}

	s := &subscription{ps: ps}
	msgs := ps.Channel()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				handler([]byte(msg.Payload))
			case <-ctx.Done():
				if err := s.closePubSub(); err != nil {
					log.WithField("channel", t.channel).WithError(err).Debug("closing pubsub")
				}
				return
			}
		}
	}()
	return s, nil
}

type subscription struct {
	ps   *redis.PubSub
	once sync.Once
	err  error
	wg   sync.WaitGroup
}

func (s *subscription) closePubSub() error {
	s.once.Do(func() { s.err = s.ps.Close() })
	return s.err
}

func (s *subscription) Close() error {
	err := s.closePubSub()
	s.wg.Wait()
	return err
}
