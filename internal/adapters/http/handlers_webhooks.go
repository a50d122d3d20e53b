package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/h4ks-com/h4kstream/internal/application"
	"github.com/h4ks-com/h4kstream/internal/contracts"
	"github.com/h4ks-com/h4kstream/internal/domain"
)

func (h *Handler) subscribeWebhook(w http.ResponseWriter, r *http.Request) {
	var req contracts.WebhookSubscribeRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "webhook_subscribe", err)
		return
	}

	sub, err := h.service.SubscribeWebhook(r.Context(), application.SubscribeRequest{
		URL:         req.URL,
		Events:      req.Events,
		Secret:      req.SigningKey,
		Description: req.Description,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "webhook_subscribe", err)
		return
	}

	writeSuccess(w, http.StatusCreated, toSubscriptionResponse(sub))
}

func (h *Handler) listWebhooks(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.ListWebhooks(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "webhook_list", err)
		return
	}

	res := make([]contracts.WebhookSubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		res = append(res, toSubscriptionResponse(sub))
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) unsubscribeWebhook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.UnsubscribeWebhook(r.Context(), id); err != nil {
		writeMappedError(r.Context(), w, "webhook_unsubscribe", err)
		return
	}
	writeMessage(w, http.StatusOK, "webhook unsubscribed")
}

func (h *Handler) webhookDeliveries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit := parseIntDefault(r.URL.Query().Get("limit"), 0)

	records, err := h.service.WebhookDeliveries(r.Context(), id, limit)
	if err != nil {
		writeMappedError(r.Context(), w, "webhook_deliveries", err)
		return
	}

	res := make([]contracts.WebhookDeliveryResponse, 0, len(records))
	for _, rec := range records {
		res = append(res, contracts.WebhookDeliveryResponse{
			WebhookID:  rec.WebhookID,
			EventType:  string(rec.EventType),
			URL:        rec.URL,
			Status:     rec.Status,
			StatusCode: rec.StatusCode,
			Error:      rec.Error,
			Timestamp:  rec.Timestamp.Format(time.RFC3339),
		})
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) webhookStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	stats, err := h.service.WebhookStats(r.Context(), id)
	if err != nil {
		writeMappedError(r.Context(), w, "webhook_stats", err)
		return
	}

	res := contracts.WebhookStatsResponse{
		WebhookID:       stats.WebhookID,
		TotalDeliveries: stats.Total,
		SuccessCount:    stats.SuccessCount,
		FailureCount:    stats.FailureCount,
		SuccessRate:     stats.SuccessRate,
	}
	if stats.LastDelivery != nil {
		res.LastDelivery = stats.LastDelivery.Format(time.RFC3339)
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) testWebhook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.TestWebhook(r.Context(), id); err != nil {
		writeMappedError(r.Context(), w, "webhook_test", err)
		return
	}
	writeMessage(w, http.StatusOK, "test event delivered")
}

func toSubscriptionResponse(sub domain.WebhookSubscription) contracts.WebhookSubscriptionResponse {
	events := make([]string, 0, len(sub.Events))
	for _, e := range sub.Events {
		events = append(events, string(e))
	}
	return contracts.WebhookSubscriptionResponse{
		WebhookID:   sub.ID,
		URL:         sub.URL,
		Events:      events,
		Description: sub.Description,
		CreatedAt:   sub.CreatedAt.Format(time.RFC3339),
	}
}
