package ports

import (
	"context"
	"time"

	"github.com/h4ks-com/h4kstream/internal/domain"
)

// SlotStore guards the single system-wide broadcast slot.
type SlotStore interface {
	// Acquire atomically sets the lease if the slot is free, with the given
	// TTL. It reports false when the slot is already held.
	Acquire(ctx context.Context, lease domain.SlotLease, ttl time.Duration) (bool, error)
	// Current returns the held lease, or nil when the slot is free or the
	// stored payload cannot be decoded.
	Current(ctx context.Context) (*domain.SlotLease, error)
	Refresh(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}

// UsageStore tracks cumulative streaming seconds per identity. Values only
// ever grow; callers re-arm the retention TTL on every write.
type UsageStore interface {
	Total(ctx context.Context, identity string) (int64, error)
	SetTotal(ctx context.Context, identity string, seconds int64, ttl time.Duration) error
}

// SessionStore keeps the per-identity connection start marker and the
// shared broadcast flag.
type SessionStore interface {
	SetStart(ctx context.Context, identity string, start time.Time, ttl time.Duration) error
	// Start returns nil when no marker exists or the stored value is
	// unreadable.
	Start(ctx context.Context, identity string) (*time.Time, error)
	ClearStart(ctx context.Context, identity string) error
	SetLive(ctx context.Context, ttl time.Duration) error
	ClearLive(ctx context.Context) error
	IsLive(ctx context.Context) (bool, error)
}

// SubscriptionStore persists webhook subscriptions and the reverse index
// from event type to subscriber IDs.
type SubscriptionStore interface {
	Put(ctx context.Context, sub domain.WebhookSubscription) error
	// Get returns nil for unknown IDs and for records that fail to decode.
	Get(ctx context.Context, id string) (*domain.WebhookSubscription, error)
	All(ctx context.Context) ([]domain.WebhookSubscription, error)
	Delete(ctx context.Context, id string) error
	AddToIndex(ctx context.Context, event domain.EventType, id string) error
	RemoveFromIndex(ctx context.Context, event domain.EventType, id string) error
	IDsFor(ctx context.Context, event domain.EventType) ([]string, error)
}

// DeliveryLogStore appends and reads bounded-retention delivery records.
type DeliveryLogStore interface {
	Append(ctx context.Context, rec domain.DeliveryRecord, ttl time.Duration) error
	// Recent returns up to limit records for the webhook, newest first.
	Recent(ctx context.Context, webhookID string, limit int) ([]domain.DeliveryRecord, error)
}
