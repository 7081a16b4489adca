package message_broker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/satriahrh/client-talk/domain"
	"github.com/satriahrh/client-talk/utils/log"
)

// RedisMessageBroker implements MessageBroker with Redis pub/sub so several
// service instances share one event stream. Channels are named
// "<topic>:<routingKey>".
type RedisMessageBroker struct {
	rdb *redis.Client

	mu     sync.Mutex
	pubsub []*redis.PubSub
	closed bool
}

// NewRedisMessageBroker connects to redisURL and verifies the connection.
func NewRedisMessageBroker(ctx context.Context, redisURL string) (*RedisMessageBroker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisMessageBroker{rdb: rdb}, nil
}

func (b *RedisMessageBroker) Publish(ctx context.Context, topic string, routingKey string, message []byte) error {
	if b.isClosed() {
		return fmt.Errorf("message broker is closed")
	}
	if err := b.rdb.Publish(ctx, makeKey(topic, routingKey), message).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe uses a pattern subscription when routingKey is empty.
func (b *RedisMessageBroker) Subscribe(ctx context.Context, topic string, routingKey string) (<-chan domain.Envelope, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("message broker is closed")
	}

	var ps *redis.PubSub
	if routingKey == "" {
		ps = b.rdb.PSubscribe(ctx, topic+":*")
	} else {
		ps = b.rdb.Subscribe(ctx, makeKey(topic, routingKey))
	}
	// wait for the subscription to be confirmed
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}
	b.pubsub = append(b.pubsub, ps)

	out := make(chan domain.Envelope, subscriberBuffer)
	go func() {
		defer close(out)
		defer ps.Close()

		in := ps.Channel()
		for {
			select {
			case msg, ok := <-in:
				if !ok {
					return
				}
				env := domain.Envelope{
					Topic:      topic,
					RoutingKey: strings.TrimPrefix(msg.Channel, topic+":"),
					Payload:    []byte(msg.Payload),
					Timestamp:  time.Now(),
				}
				select {
				case out <- env:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	log.WithCtx(ctx).Info("Subscribed to redis topic", zap.String("topic", topic), zap.String("routingKey", routingKey))
	return out, nil
}

func (b *RedisMessageBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, ps := range b.pubsub {
		ps.Close()
	}
	return b.rdb.Close()
}

func (b *RedisMessageBroker) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// makeKey creates a unique key for topic and routingKey
func makeKey(topic, routingKey string) string {
	return topic + ":" + routingKey
}
