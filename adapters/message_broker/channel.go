package message_broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/satriahrh/client-talk/domain"
	"github.com/satriahrh/client-talk/utils/log"
	"go.uber.org/zap"
)

const subscriberBuffer = 100

type subscription struct {
	topic      string
	routingKey string
	ch         chan domain.Envelope
}

func (s *subscription) matches(topic, routingKey string) bool {
	return s.topic == topic && (s.routingKey == "" || s.routingKey == routingKey)
}

// ChannelMessageBroker implements MessageBroker using Go channels. Every
// matching subscriber gets its own copy of a message.
type ChannelMessageBroker struct {
	mu     sync.RWMutex
	subs   map[*subscription]struct{}
	closed bool
}

// NewChannelMessageBroker creates a new channel-based message broker
func NewChannelMessageBroker() *ChannelMessageBroker {
	return &ChannelMessageBroker{
		subs: make(map[*subscription]struct{}),
	}
}

// Publish delivers message to every subscriber of topic whose routing key
// matches. A subscriber with a full buffer misses the message.
func (b *ChannelMessageBroker) Publish(ctx context.Context, topic string, routingKey string, message []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("message broker is closed")
	}

	msg := domain.Envelope{
		Topic:      topic,
		RoutingKey: routingKey,
		Payload:    message,
		Timestamp:  time.Now(),
	}

	dropped := 0
	for sub := range b.subs {
		if !sub.matches(topic, routingKey) {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
			dropped++
		}
	}

	log.WithCtx(ctx).Debug("Message published to topic",
		zap.String("topic", topic),
		zap.String("routingKey", routingKey),
		zap.Int("payload_size", len(message)),
		zap.Int("dropped", dropped))

	if dropped > 0 {
		return fmt.Errorf("%d subscriber(s) of %s:%s are full", dropped, topic, routingKey)
	}
	return nil
}

// Subscribe listens for messages on topic. An empty routingKey receives all
// routing keys. The channel closes when ctx is done or the broker closes.
func (b *ChannelMessageBroker) Subscribe(ctx context.Context, topic string, routingKey string) (<-chan domain.Envelope, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("message broker is closed")
	}

	sub := &subscription{
		topic:      topic,
		routingKey: routingKey,
		ch:         make(chan domain.Envelope, subscriberBuffer),
	}
	b.subs[sub] = struct{}{}

	go func() {
		<-ctx.Done()
		b.unsubscribe(sub)
	}()

	log.WithCtx(ctx).Info("Subscribed to topic", zap.String("topic", topic), zap.String("routingKey", routingKey))
	return sub.ch, nil
}

func (b *ChannelMessageBroker) unsubscribe(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
}

// Close closes the message broker and all subscriber channels
func (b *ChannelMessageBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for sub := range b.subs {
		close(sub.ch)
	}
	b.subs = make(map[*subscription]struct{})

	log.WithCtx(context.Background()).Info("Message broker closed")
	return nil
}

// SubscriberCount returns the number of active subscriptions (useful for monitoring)
func (b *ChannelMessageBroker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// IsClosed returns whether the broker is closed
func (b *ChannelMessageBroker) IsClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}
