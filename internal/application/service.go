package application

import (
	"time"

	"github.com/h4ks-com/h4kstream/internal/ports"
)

// Service is the application core: admission control, usage metering,
// event publication, and webhook management. It is invoked synchronously
// per request and holds no in-process locks; all shared state lives behind
// the store ports.
type Service struct {
	cfg           Config
	slots         ports.SlotStore
	usage         ports.UsageStore
	sessions      ports.SessionStore
	subscriptions ports.SubscriptionStore
	deliveries    ports.DeliveryLogStore
	publisher     ports.EventPublisher
	sender        ports.WebhookSender
	codec         ports.TokenCodec
	control       ports.BroadcastController
	nowFn         func() time.Time
}

type Dependencies struct {
	Config        Config
	Slots         ports.SlotStore
	Usage         ports.UsageStore
	Sessions      ports.SessionStore
	Subscriptions ports.SubscriptionStore
	Deliveries    ports.DeliveryLogStore
	Publisher     ports.EventPublisher
	Sender        ports.WebhookSender
	Codec         ports.TokenCodec
	Control       ports.BroadcastController
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.SlotReserveTTL <= 0 {
		cfg.SlotReserveTTL = 120 * time.Second
	}
	if cfg.SlotSessionTTL <= 0 {
		cfg.SlotSessionTTL = time.Hour
	}
	if cfg.UsageTTL <= 0 {
		cfg.UsageTTL = 30 * 24 * time.Hour
	}
	if cfg.TokenValidity <= 0 {
		cfg.TokenValidity = 24 * time.Hour
	}
	if cfg.SecretMinLength <= 0 {
		cfg.SecretMinLength = 16
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1000
	}
	if cfg.DeliveryPageLimit <= 0 {
		cfg.DeliveryPageLimit = 100
	}

	return &Service{
		cfg:           cfg,
		slots:         deps.Slots,
		usage:         deps.Usage,
		sessions:      deps.Sessions,
		subscriptions: deps.Subscriptions,
		deliveries:    deps.Deliveries,
		publisher:     deps.Publisher,
		sender:        deps.Sender,
		codec:         deps.Codec,
		control:       deps.Control,
		nowFn:         func() time.Time { return time.Now().UTC() },
	}
}
