package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/h4ks-com/h4kstream/internal/domain"
)

// RedisSlotStore holds the single broadcast slot lease. Acquisition is a
// single SET NX EX, which is the linearization point for admission.
type RedisSlotStore struct {
	client *redis.Client
}

func NewRedisSlotStore(client *redis.Client) *RedisSlotStore {
	return &RedisSlotStore{client: client}
}

func (s *RedisSlotStore) Acquire(ctx context.Context, lease domain.SlotLease, ttl time.Duration) (bool, error) {
	payload, err := json.Marshal(lease)
	if err != nil {
		return false, fmt.Errorf("encode slot lease: %w", err)
	}
	ok, err := s.client.SetNX(ctx, slotKey, payload, ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (s *RedisSlotStore) Current(ctx context.Context) (*domain.SlotLease, error) {
	raw, err := s.client.Get(ctx, slotKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var lease domain.SlotLease
	if err := json.Unmarshal([]byte(raw), &lease); err != nil {
		// A lease that cannot be decoded must not wedge admission.
		return nil, nil
	}
	return &lease, nil
}

func (s *RedisSlotStore) Refresh(ctx context.Context, ttl time.Duration) error {
	return s.client.Expire(ctx, slotKey, ttl).Err()
}

func (s *RedisSlotStore) Release(ctx context.Context) error {
	return s.client.Del(ctx, slotKey).Err()
}

// RedisUsageStore keeps the per-identity lifetime usage counter as an
// integer string with a rolling retention TTL.
type RedisUsageStore struct {
	client *redis.Client
}

func NewRedisUsageStore(client *redis.Client) *RedisUsageStore {
	return &RedisUsageStore{client: client}
}

func (s *RedisUsageStore) Total(ctx context.Context, identity string) (int64, error) {
	raw, err := s.client.Get(ctx, fmt.Sprintf(usageKeyFmt, identity)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	total, convErr := strconv.ParseInt(raw, 10, 64)
	if convErr != nil {
		return 0, nil
	}
	return total, nil
}

func (s *RedisUsageStore) SetTotal(ctx context.Context, identity string, seconds int64, ttl time.Duration) error {
	return s.client.Set(ctx, fmt.Sprintf(usageKeyFmt, identity), strconv.FormatInt(seconds, 10), ttl).Err()
}

// RedisSessionStore keeps the per-identity connection start marker and the
// shared broadcast flag.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) SetStart(ctx context.Context, identity string, start time.Time, ttl time.Duration) error {
	return s.client.Set(ctx, fmt.Sprintf(sessionKeyFmt, identity), start.UTC().Format(time.RFC3339Nano), ttl).Err()
}

func (s *RedisSessionStore) Start(ctx context.Context, identity string) (*time.Time, error) {
	raw, err := s.client.Get(ctx, fmt.Sprintf(sessionKeyFmt, identity)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	start, parseErr := time.Parse(time.RFC3339Nano, raw)
	if parseErr != nil {
		return nil, nil
	}
	return &start, nil
}

func (s *RedisSessionStore) ClearStart(ctx context.Context, identity string) error {
	return s.client.Del(ctx, fmt.Sprintf(sessionKeyFmt, identity)).Err()
}

func (s *RedisSessionStore) SetLive(ctx context.Context, ttl time.Duration) error {
	return s.client.Set(ctx, broadcastFlagKey, "1", ttl).Err()
}

func (s *RedisSessionStore) ClearLive(ctx context.Context) error {
	return s.client.Del(ctx, broadcastFlagKey).Err()
}

func (s *RedisSessionStore) IsLive(ctx context.Context) (bool, error) {
	n, err := s.client.Exists(ctx, broadcastFlagKey).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
