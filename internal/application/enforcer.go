package application

import (
	"context"
	"log/slog"
	"time"
)

// Enforcer is the supervision loop over the broadcast slot. Each cycle it
// meters the connected session against its quota and forces termination
// once the quota is spent.
type Enforcer struct {
	logger   *slog.Logger
	service  *Service
	interval time.Duration
}

func NewEnforcer(logger *slog.Logger, service *Service, interval time.Duration) *Enforcer {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Enforcer{
		logger:   logger,
		service:  service,
		interval: interval,
	}
}

// Run polls until the context is cancelled. Cycle failures are logged and
// retried on the next tick; the loop itself never dies to a transient
// store or control-channel error.
func (e *Enforcer) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		e.processOnce(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *Enforcer) processOnce(ctx context.Context) {
	result, err := e.service.EnforceTimeLimit(ctx)
	if err != nil {
		e.logger.ErrorContext(ctx, "enforcement cycle failed",
			"module", "application.enforcer",
			"layer", "application",
			"operation", "enforce_time_limit",
			"outcome", "failure",
			"error", err,
		)
		return
	}
	if result.ControlError != "" {
		e.logger.ErrorContext(ctx, "control channel stop failed",
			"module", "application.enforcer",
			"layer", "application",
			"operation", "stop_live",
			"outcome", "failure",
			"identity", result.Identity,
			"error", result.ControlError,
		)
	}
	if result.Terminated {
		e.logger.WarnContext(ctx, "session terminated over quota",
			"module", "application.enforcer",
			"layer", "application",
			"operation", "enforce_time_limit",
			"outcome", "terminated",
			"identity", result.Identity,
			"total_seconds", result.TotalSeconds,
			"quota_seconds", result.QuotaSeconds,
		)
	}
}
