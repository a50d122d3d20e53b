package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/h4ks-com/h4kstream/internal/domain"
)

// PublishEvent validates and broadcasts a domain event. The returned error
// reports transport failure only; callers on business paths treat it as
// log-and-continue, never as a reason to fail the triggering operation.
func (s *Service) PublishEvent(ctx context.Context, eventType domain.EventType, data map[string]any, description string) error {
	if !eventType.Valid() {
		return fmt.Errorf("%w: unknown event type %q", domain.ErrInvalidInput, eventType)
	}
	if description == "" {
		description = fmt.Sprintf("%s event occurred", eventType)
	}
	if data == nil {
		data = map[string]any{}
	}
	event := domain.Event{
		Type:        eventType,
		Description: description,
		Data:        data,
		Timestamp:   s.nowFn(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// DispatchEvent fans an event out to every subscription registered for its
// type. Deliveries run concurrently; a subscription deleted mid-flight is
// skipped and one failing endpoint never blocks the rest.
func (s *Service) DispatchEvent(ctx context.Context, event domain.Event) (DispatchSummary, error) {
	summary := DispatchSummary{EventType: event.Type}

	ids, err := s.subscriptions.IDsFor(ctx, event.Type)
	if err != nil {
		return summary, fmt.Errorf("list subscribers: %w", err)
	}
	summary.Subscribers = len(ids)
	if len(ids) == 0 {
		return summary, nil
	}

	targets := make([]domain.WebhookSubscription, 0, len(ids))
	for _, id := range ids {
		sub, err := s.subscriptions.Get(ctx, id)
		if err != nil {
			return summary, fmt.Errorf("load subscription %s: %w", id, err)
		}
		if sub == nil {
			summary.Skipped++
			continue
		}
		targets = append(targets, *sub)
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, target := range targets {
		wg.Add(1)
		go func(sub domain.WebhookSubscription) {
			defer wg.Done()
			err := s.sender.Deliver(ctx, sub, event)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				return
			}
			summary.Delivered++
		}(target)
	}
	wg.Wait()
	return summary, nil
}
