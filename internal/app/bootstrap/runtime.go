package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cacheadapter "github.com/h4ks-com/h4kstream/internal/adapters/cache"
	controladapter "github.com/h4ks-com/h4kstream/internal/adapters/control"
	eventadapter "github.com/h4ks-com/h4kstream/internal/adapters/events"
	httpadapter "github.com/h4ks-com/h4kstream/internal/adapters/http"
	"github.com/h4ks-com/h4kstream/internal/adapters/security"
	webhookadapter "github.com/h4ks-com/h4kstream/internal/adapters/webhook"
	"github.com/h4ks-com/h4kstream/internal/application"
	"github.com/h4ks-com/h4kstream/internal/domain"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	service    *application.Service
	enforcer   *application.Enforcer
	bus        *eventadapter.RedisEventBus
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping h4kstream gatekeeper", "http_port", cfg.HTTPPort, "control_addr", cfg.ControlAddr)

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	codec, err := security.NewJWTCodec(cfg.JWTSecret)
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token codec: %w", err)
	}

	bus := eventadapter.NewRedisEventBus(redisClient, "")
	sender := webhookadapter.NewHTTPSender(logger, cacheadapter.NewRedisDeliveryLogStore(redisClient), cfg.WebhookTimeout, cfg.DeliveryLogTTL)
	controller := controladapter.NewLiquidsoapClient(cfg.ControlAddr, cfg.ControlInput, cfg.ControlTimeout)

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			SlotReserveTTL:    cfg.SlotReserveTTL,
			SlotSessionTTL:    cfg.SlotSessionTTL,
			UsageTTL:          cfg.UsageTTL,
			TokenValidity:     cfg.TokenValidity,
			SecretMinLength:   cfg.WebhookSecretMinLength,
			StatsWindow:       cfg.StatsWindow,
			DeliveryPageLimit: cfg.DeliveryPageLimit,
		},
		Slots:         cacheadapter.NewRedisSlotStore(redisClient),
		Usage:         cacheadapter.NewRedisUsageStore(redisClient),
		Sessions:      cacheadapter.NewRedisSessionStore(redisClient),
		Subscriptions: cacheadapter.NewRedisSubscriptionStore(redisClient),
		Deliveries:    cacheadapter.NewRedisDeliveryLogStore(redisClient),
		Publisher:     bus,
		Sender:        sender,
		Codec:         codec,
		Control:       controller,
	})

	handler := httpadapter.NewHandler(svc, cfg.AdminToken)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	enforcer := application.NewEnforcer(logger, svc, cfg.EnforceInterval)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		service:    svc,
		enforcer:   enforcer,
		bus:        bus,
		cleanupFn: func(ctx context.Context) {
			_ = redisClient.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.cleanupFn(shutdownCtx)
	return nil
}

// RunWorker runs the quota enforcer and the webhook dispatcher until a
// shutdown signal arrives. The bus subscription is opened here, not in
// NewRuntime, so the API process never holds an idle pub/sub connection.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stream := r.bus.Subscribe(ctx, domain.BroadcastEventTypes()...)
	dispatcher := eventadapter.NewDispatcherWorker(r.logger, stream, r.service, r.cfg.DispatchRetryWait)

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("quota enforcer started", "interval", r.cfg.EnforceInterval.String())
		if err := r.enforcer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	go func() {
		r.logger.Info("webhook dispatcher started")
		if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		r.cleanupFn(context.Background())
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}
