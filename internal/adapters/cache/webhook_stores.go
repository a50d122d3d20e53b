package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/h4ks-com/h4kstream/internal/domain"
)

// RedisSubscriptionStore keeps subscription records as JSON fields of one
// hash, with a set per event type as the reverse index.
type RedisSubscriptionStore struct {
	client *redis.Client
}

func NewRedisSubscriptionStore(client *redis.Client) *RedisSubscriptionStore {
	return &RedisSubscriptionStore{client: client}
}

func (s *RedisSubscriptionStore) Put(ctx context.Context, sub domain.WebhookSubscription) error {
	payload, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode subscription: %w", err)
	}
	return s.client.HSet(ctx, subscriptionsKey, sub.ID, payload).Err()
}

func (s *RedisSubscriptionStore) Get(ctx context.Context, id string) (*domain.WebhookSubscription, error) {
	raw, err := s.client.HGet(ctx, subscriptionsKey, id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sub domain.WebhookSubscription
	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		return nil, nil
	}
	return &sub, nil
}

func (s *RedisSubscriptionStore) All(ctx context.Context) ([]domain.WebhookSubscription, error) {
	raw, err := s.client.HGetAll(ctx, subscriptionsKey).Result()
	if err != nil {
		return nil, err
	}
	subs := make([]domain.WebhookSubscription, 0, len(raw))
	for _, payload := range raw {
		var sub domain.WebhookSubscription
		if err := json.Unmarshal([]byte(payload), &sub); err != nil {
			continue
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (s *RedisSubscriptionStore) Delete(ctx context.Context, id string) error {
	return s.client.HDel(ctx, subscriptionsKey, id).Err()
}

func (s *RedisSubscriptionStore) AddToIndex(ctx context.Context, event domain.EventType, id string) error {
	return s.client.SAdd(ctx, eventIndexPrefix+string(event), id).Err()
}

func (s *RedisSubscriptionStore) RemoveFromIndex(ctx context.Context, event domain.EventType, id string) error {
	return s.client.SRem(ctx, eventIndexPrefix+string(event), id).Err()
}

func (s *RedisSubscriptionStore) IDsFor(ctx context.Context, event domain.EventType) ([]string, error) {
	return s.client.SMembers(ctx, eventIndexPrefix+string(event)).Result()
}

// RedisDeliveryLogStore appends one expiring key per delivery attempt and
// reads history back with a cursor scan over the webhook's key space.
type RedisDeliveryLogStore struct {
	client *redis.Client
}

func NewRedisDeliveryLogStore(client *redis.Client) *RedisDeliveryLogStore {
	return &RedisDeliveryLogStore{client: client}
}

func (s *RedisDeliveryLogStore) Append(ctx context.Context, rec domain.DeliveryRecord, ttl time.Duration) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode delivery record: %w", err)
	}
	key := deliveryPrefix + rec.WebhookID + ":" + strconv.FormatInt(rec.Timestamp.UnixNano(), 10)
	return s.client.Set(ctx, key, payload, ttl).Err()
}

func (s *RedisDeliveryLogStore) Recent(ctx context.Context, webhookID string, limit int) ([]domain.DeliveryRecord, error) {
	pattern := deliveryPrefix + webhookID + ":*"

	var keys []string
	var cursor uint64
	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	records := make([]domain.DeliveryRecord, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rec domain.DeliveryRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
