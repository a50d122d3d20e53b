package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/h4ks-com/h4kstream/internal/application"
	"github.com/h4ks-com/h4kstream/internal/domain"
)

// Stream is the blocking event source the dispatcher drains.
type Stream interface {
	Receive(ctx context.Context) (domain.Event, error)
	Close() error
}

// DispatcherWorker consumes bus events and fans each one out to its
// webhook subscribers through the application service.
type DispatcherWorker struct {
	logger    *slog.Logger
	stream    Stream
	service   *application.Service
	retryWait time.Duration
}

func NewDispatcherWorker(logger *slog.Logger, stream Stream, service *application.Service, retryWait time.Duration) *DispatcherWorker {
	if retryWait <= 0 {
		retryWait = 5 * time.Second
	}
	return &DispatcherWorker{
		logger:    logger,
		stream:    stream,
		service:   service,
		retryWait: retryWait,
	}
}

// Run drains the stream until the context is cancelled. Transport failures
// are logged and retried after a short wait so a flapping store connection
// never kills the worker; a message that merely fails to decode is dropped
// and the next one read immediately.
func (w *DispatcherWorker) Run(ctx context.Context) error {
	defer w.stream.Close()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		event, err := w.stream.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, ErrBadPayload) {
				w.logger.WarnContext(ctx, "event payload dropped",
					"module", "events.dispatcher",
					"layer", "adapter",
					"operation", "receive",
					"outcome", "skipped",
					"error", err,
				)
				continue
			}
			w.logger.ErrorContext(ctx, "event stream receive failed",
				"module", "events.dispatcher",
				"layer", "adapter",
				"operation", "receive",
				"outcome", "failure",
				"error", err,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.retryWait):
			}
			continue
		}

		summary, err := w.service.DispatchEvent(ctx, event)
		if err != nil {
			w.logger.ErrorContext(ctx, "event dispatch failed",
				"module", "events.dispatcher",
				"layer", "adapter",
				"operation", "dispatch",
				"outcome", "failure",
				"event_type", event.Type,
				"error", err,
			)
			continue
		}
		if summary.Subscribers == 0 {
			continue
		}
		w.logger.InfoContext(ctx, "event dispatched",
			"module", "events.dispatcher",
			"layer", "adapter",
			"operation", "dispatch",
			"outcome", "success",
			"event_type", event.Type,
			"subscribers", summary.Subscribers,
			"delivered", summary.Delivered,
			"failed", summary.Failed,
			"skipped", summary.Skipped,
		)
	}
}
