package ports

import (
	"context"

	"github.com/h4ks-com/h4kstream/internal/domain"
)

// WebhookSender signs one event payload and posts it to one subscription,
// recording the outcome in the delivery log. Exactly one attempt per call.
type WebhookSender interface {
	Deliver(ctx context.Context, sub domain.WebhookSubscription, event domain.Event) error
}
