package application

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/h4ks-com/h4kstream/internal/domain"
)

// SubscribeWebhook registers a delivery endpoint, or updates the existing
// registration sharing the same URL and event set. Updates keep the
// original id and created-at.
func (s *Service) SubscribeWebhook(ctx context.Context, req SubscribeRequest) (domain.WebhookSubscription, error) {
	url := strings.TrimSpace(req.URL)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return domain.WebhookSubscription{}, fmt.Errorf("%w: url must be an absolute http(s) URL", domain.ErrInvalidInput)
	}
	if len(req.Events) == 0 {
		return domain.WebhookSubscription{}, fmt.Errorf("%w: at least one event type is required", domain.ErrInvalidInput)
	}
	events := make([]domain.EventType, 0, len(req.Events))
	for _, raw := range req.Events {
		event := domain.EventType(strings.TrimSpace(raw))
		if !event.Valid() {
			return domain.WebhookSubscription{}, fmt.Errorf("%w: unknown event type %q", domain.ErrInvalidInput, raw)
		}
		events = append(events, event)
	}
	if len(req.Secret) < s.cfg.SecretMinLength {
		return domain.WebhookSubscription{}, fmt.Errorf("%w: signing secret must be at least %d characters", domain.ErrInvalidInput, s.cfg.SecretMinLength)
	}

	candidate := domain.WebhookSubscription{
		URL:         url,
		Events:      events,
		Secret:      req.Secret,
		Description: strings.TrimSpace(req.Description),
	}

	existing, err := s.findByIdentityKey(ctx, candidate.IdentityKey())
	if err != nil {
		return domain.WebhookSubscription{}, err
	}
	if existing != nil {
		existing.Secret = candidate.Secret
		existing.Description = candidate.Description
		if err := s.subscriptions.Put(ctx, *existing); err != nil {
			return domain.WebhookSubscription{}, fmt.Errorf("update subscription: %w", err)
		}
		return *existing, nil
	}

	candidate.ID = uuid.NewString()
	candidate.CreatedAt = s.nowFn()
	if err := s.subscriptions.Put(ctx, candidate); err != nil {
		return domain.WebhookSubscription{}, fmt.Errorf("store subscription: %w", err)
	}
	for _, event := range events {
		if err := s.subscriptions.AddToIndex(ctx, event, candidate.ID); err != nil {
			return domain.WebhookSubscription{}, fmt.Errorf("index subscription: %w", err)
		}
	}
	return candidate, nil
}

func (s *Service) findByIdentityKey(ctx context.Context, key string) (*domain.WebhookSubscription, error) {
	subs, err := s.subscriptions.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	for i := range subs {
		if subs[i].IdentityKey() == key {
			return &subs[i], nil
		}
	}
	return nil, nil
}

// ListWebhooks returns every subscription with the signing secret blanked.
func (s *Service) ListWebhooks(ctx context.Context) ([]domain.WebhookSubscription, error) {
	subs, err := s.subscriptions.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	for i := range subs {
		subs[i].Secret = ""
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].CreatedAt.Before(subs[j].CreatedAt)
	})
	return subs, nil
}

// UnsubscribeWebhook removes the subscription and all its index entries.
func (s *Service) UnsubscribeWebhook(ctx context.Context, id string) error {
	sub, err := s.subscriptions.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load subscription: %w", err)
	}
	if sub == nil {
		return fmt.Errorf("%w: %s", domain.ErrSubscriptionNotFound, id)
	}
	for _, event := range sub.Events {
		if err := s.subscriptions.RemoveFromIndex(ctx, event, id); err != nil {
			return fmt.Errorf("unindex subscription: %w", err)
		}
	}
	if err := s.subscriptions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

// WebhookDeliveries returns recent delivery attempts, newest first.
func (s *Service) WebhookDeliveries(ctx context.Context, id string, limit int) ([]domain.DeliveryRecord, error) {
	if err := s.requireSubscription(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.cfg.DeliveryPageLimit
	}
	records, err := s.deliveries.Recent(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("read delivery log: %w", err)
	}
	return records, nil
}

// WebhookStats aggregates the recent delivery history of a subscription.
func (s *Service) WebhookStats(ctx context.Context, id string) (domain.DeliveryStats, error) {
	if err := s.requireSubscription(ctx, id); err != nil {
		return domain.DeliveryStats{}, err
	}
	records, err := s.deliveries.Recent(ctx, id, s.cfg.StatsWindow)
	if err != nil {
		return domain.DeliveryStats{}, fmt.Errorf("read delivery log: %w", err)
	}

	stats := domain.DeliveryStats{WebhookID: id, Total: len(records)}
	for _, rec := range records {
		if rec.Status == domain.DeliverySuccess {
			stats.SuccessCount++
		} else {
			stats.FailureCount++
		}
	}
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.Total)
		last := records[0].Timestamp
		stats.LastDelivery = &last
	}
	return stats, nil
}

// TestWebhook pushes a synthetic event through the live delivery path so
// operators can verify reachability and signature handling end to end.
func (s *Service) TestWebhook(ctx context.Context, id string) error {
	sub, err := s.subscriptions.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load subscription: %w", err)
	}
	if sub == nil {
		return fmt.Errorf("%w: %s", domain.ErrSubscriptionNotFound, id)
	}
	event := domain.Event{
		Type:        domain.EventTest,
		Description: "Test webhook delivery",
		Data:        map[string]any{"test": true, "webhook_id": id},
		Timestamp:   s.nowFn(),
	}
	return s.sender.Deliver(ctx, *sub, event)
}

func (s *Service) requireSubscription(ctx context.Context, id string) error {
	sub, err := s.subscriptions.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load subscription: %w", err)
	}
	if sub == nil {
		return fmt.Errorf("%w: %s", domain.ErrSubscriptionNotFound, id)
	}
	return nil
}
