package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter registers the gatekeeper routes and middleware stack. Every
// group except the health probes sits behind the shared admin token: the
// callers are the streaming engine, the station automation, and operators,
// never end users.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/internal/v1", func(r chi.Router) {
		r.Use(handler.adminAuthMiddleware)
		r.Post("/livestream/auth", handler.authorizeStream)
		r.Post("/livestream/connect", handler.connectStream)
		r.Post("/livestream/disconnect", handler.disconnectStream)
		r.Get("/livestream/status", handler.streamStatus)
		r.Post("/events", handler.publishEvent)
	})

	r.Route("/admin/v1", func(r chi.Router) {
		r.Use(handler.adminAuthMiddleware)
		r.Post("/livestream/tokens", handler.createLivestreamToken)
		r.Post("/tokens", handler.createToken)
		r.Post("/tokens/validate", handler.validateToken)
	})

	r.Route("/webhooks/v1", func(r chi.Router) {
		r.Use(handler.adminAuthMiddleware)
		r.Post("/subscriptions", handler.subscribeWebhook)
		r.Get("/subscriptions", handler.listWebhooks)
		r.Delete("/subscriptions/{id}", handler.unsubscribeWebhook)
		r.Get("/subscriptions/{id}/deliveries", handler.webhookDeliveries)
		r.Get("/subscriptions/{id}/stats", handler.webhookStats)
		r.Post("/subscriptions/{id}/test", handler.testWebhook)
	})

	return r
}
