package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/h4ks-com/h4kstream/internal/domain"
)

const defaultChannelPrefix = "events:"

// ErrBadPayload marks a message that arrived but could not be decoded.
// The subscription itself is still healthy after one of these.
var ErrBadPayload = errors.New("decode event payload")

// RedisEventBus carries domain events over Redis pub/sub, one channel per
// event type. The bus is pure transport; it holds no subscriber registry.
type RedisEventBus struct {
	client *redis.Client
	prefix string
}

func NewRedisEventBus(client *redis.Client, prefix string) *RedisEventBus {
	if prefix == "" {
		prefix = defaultChannelPrefix
	}
	return &RedisEventBus{client: client, prefix: prefix}
}

func (b *RedisEventBus) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.client.Publish(ctx, b.prefix+string(event.Type), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Subscribe opens a blocking stream over the channels for the given event
// types. The caller owns the returned stream and must close it.
func (b *RedisEventBus) Subscribe(ctx context.Context, types ...domain.EventType) *RedisEventStream {
	channels := make([]string, 0, len(types))
	for _, t := range types {
		channels = append(channels, b.prefix+string(t))
	}
	return &RedisEventStream{pubsub: b.client.Subscribe(ctx, channels...)}
}

// RedisEventStream reads subscribed event channels.
type RedisEventStream struct {
	pubsub *redis.PubSub
}

// Receive blocks until the next event arrives or ctx is cancelled.
// Payloads that fail to decode are reported as errors so the caller can
// log and continue.
func (s *RedisEventStream) Receive(ctx context.Context) (domain.Event, error) {
	msg, err := s.pubsub.ReceiveMessage(ctx)
	if err != nil {
		return domain.Event{}, err
	}
	var event domain.Event
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		return domain.Event{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return event, nil
}

func (s *RedisEventStream) Close() error {
	return s.pubsub.Close()
}
