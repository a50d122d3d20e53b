package domain

import (
	"sort"
	"strings"
	"time"
)

// WebhookSubscription is a registered delivery target for domain events.
// The signing secret is stored with the record but must never appear in
// API responses.
type WebhookSubscription struct {
	ID          string      `json:"id"`
	URL         string      `json:"url"`
	Events      []EventType `json:"events"`
	Secret      string      `json:"signing_key,omitempty"`
	Description string      `json:"description,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// IdentityKey is the deduplication key for a subscription: URL plus the
// sorted event set. Subscribing again under the same key updates the
// stored record in place instead of creating a duplicate.
func (s WebhookSubscription) IdentityKey() string {
	events := make([]string, 0, len(s.Events))
	for _, e := range s.Events {
		events = append(events, string(e))
	}
	sort.Strings(events)
	return s.URL + "|" + strings.Join(events, ",")
}

const (
	DeliverySuccess = "success"
	DeliveryFailed  = "failed"
)

// DeliveryRecord captures the outcome of a single delivery attempt.
// Records are append-only and expire after the retention window.
type DeliveryRecord struct {
	WebhookID  string    `json:"webhook_id"`
	EventType  EventType `json:"event_type"`
	URL        string    `json:"url"`
	Status     string    `json:"status"`
	StatusCode int       `json:"status_code,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// DeliveryStats aggregates the recent delivery history of one subscription.
type DeliveryStats struct {
	WebhookID    string     `json:"webhook_id"`
	Total        int        `json:"total_deliveries"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastDelivery *time.Time `json:"last_delivery,omitempty"`
}
