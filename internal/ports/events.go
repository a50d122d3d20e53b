package ports

import (
	"context"

	"github.com/h4ks-com/h4kstream/internal/domain"
)

// EventPublisher broadcasts a domain event to its channel. Publishing is
// best-effort; business callers treat failures as log-and-continue.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
