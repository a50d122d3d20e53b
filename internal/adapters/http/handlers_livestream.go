package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/h4ks-com/h4kstream/internal/application"
	"github.com/h4ks-com/h4kstream/internal/contracts"
	"github.com/h4ks-com/h4kstream/internal/domain"
)

// authorizeStream answers the streaming engine's credential check before a
// source is allowed on air. Denials travel in the body with a 200 status so
// the engine can relay the message to the broadcaster verbatim; error
// statuses are reserved for infrastructure failures.
func (h *Handler) authorizeStream(w http.ResponseWriter, r *http.Request) {
	var req contracts.LivestreamAuthRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "livestream_auth", err)
		return
	}

	decision, err := h.service.Authorize(r.Context(), req.Token, req.Address)
	if err != nil {
		writeMappedError(r.Context(), w, "livestream_auth", err)
		return
	}

	writeSuccess(w, http.StatusOK, contracts.LivestreamAuthResponse{
		Success:              decision.Granted,
		Reason:               decision.Reason,
		Message:              decision.Message,
		ShowName:             decision.ShowName,
		MinRecordingDuration: decision.MinRecordingDuration,
	})
}

func (h *Handler) connectStream(w http.ResponseWriter, r *http.Request) {
	var req contracts.LivestreamConnectRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "livestream_connect", err)
		return
	}

	session, err := h.service.Connect(r.Context(), req.Token)
	if err != nil {
		writeMappedError(r.Context(), w, "livestream_connect", err)
		return
	}

	h.publishLifecycleEvent(r, domain.EventLivestreamStarted, map[string]any{
		"user_id":                session.Identity,
		"show_name":              session.ShowName,
		"min_recording_duration": session.MinRecordingDuration,
	}, "A livestream was started")

	writeSuccess(w, http.StatusOK, contracts.LivestreamConnectResponse{
		UserID:               session.Identity,
		ShowName:             session.ShowName,
		MinRecordingDuration: session.MinRecordingDuration,
	})
}

func (h *Handler) disconnectStream(w http.ResponseWriter, r *http.Request) {
	var req contracts.LivestreamDisconnectRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "livestream_disconnect", err)
		return
	}

	summary, err := h.service.Disconnect(r.Context(), req.Token)
	if err != nil {
		writeMappedError(r.Context(), w, "livestream_disconnect", err)
		return
	}

	h.publishLifecycleEvent(r, domain.EventLivestreamEnded, map[string]any{
		"user_id":          summary.Identity,
		"duration_seconds": summary.ElapsedSeconds,
		"reason":           "disconnect",
	}, fmt.Sprintf("Livestream ended after %d seconds", summary.ElapsedSeconds))

	writeSuccess(w, http.StatusOK, contracts.LivestreamDisconnectResponse{
		UserID:          summary.Identity,
		DurationSeconds: summary.ElapsedSeconds,
	})
}

// publishLifecycleEvent emits a broadcast lifecycle event. Publish failures
// must not fail the engine callback, so they are logged and swallowed.
func (h *Handler) publishLifecycleEvent(r *http.Request, eventType domain.EventType, data map[string]any, description string) {
	if err := h.service.PublishEvent(r.Context(), eventType, data, description); err != nil {
		httpLogger().ErrorContext(r.Context(), "event publish failed",
			"operation", "lifecycle_event_publish",
			"outcome", "failure",
			"event_type", string(eventType),
			"request_id", requestIDFromContext(r.Context()),
			"error", err.Error(),
		)
	}
}

func (h *Handler) streamStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "livestream_status", err)
		return
	}

	res := contracts.LivestreamStatusResponse{Active: status.Live}
	if status.Session != nil {
		res.Identity = status.Session.Identity
		res.ShowName = status.Session.ShowName
		res.QuotaSeconds = status.Session.QuotaSeconds
		res.UsedSeconds = status.UsedSeconds
		res.MinRecordingDuration = status.Session.MinRecordingDuration
		res.Address = status.Session.Address
		if status.Session.StartedAt != nil {
			res.SessionStart = status.Session.StartedAt.Format(time.RFC3339)
		}
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) publishEvent(w http.ResponseWriter, r *http.Request) {
	var req contracts.PublishEventRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "event_publish", err)
		return
	}

	err := h.service.PublishEvent(r.Context(), domain.EventType(req.EventType), req.Data, req.Description)
	if err != nil {
		writeMappedError(r.Context(), w, "event_publish", err)
		return
	}

	writeMessage(w, http.StatusAccepted, "event accepted")
}

func (h *Handler) createLivestreamToken(w http.ResponseWriter, r *http.Request) {
	var req contracts.LivestreamTokenRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "livestream_token_create", err)
		return
	}

	res, err := h.service.IssueLivestreamToken(r.Context(), application.LivestreamTokenRequest{
		Identity:             req.UserID,
		QuotaSeconds:         req.MaxStreamingSeconds,
		ValiditySeconds:      req.ValiditySeconds,
		ShowName:             req.ShowName,
		MinRecordingDuration: req.MinRecordingDuration,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "livestream_token_create", err)
		return
	}

	writeSuccess(w, http.StatusCreated, contracts.LivestreamTokenResponse{
		Token:               res.Token,
		ExpiresAt:           res.ExpiresAt.Format(time.RFC3339),
		MaxStreamingSeconds: res.QuotaSeconds,
	})
}

func (h *Handler) createToken(w http.ResponseWriter, r *http.Request) {
	var req contracts.TokenRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "token_create", err)
		return
	}

	token, expiresAt, err := h.service.IssueTemporaryToken(r.Context(), req.DurationSeconds)
	if err != nil {
		writeMappedError(r.Context(), w, "token_create", err)
		return
	}

	writeSuccess(w, http.StatusCreated, contracts.TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}

// validateToken lets downstream consumers of guest tokens check one before
// honoring it, mirroring the issue endpoint above.
func (h *Handler) validateToken(w http.ResponseWriter, r *http.Request) {
	var req contracts.TokenValidateRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "token_validate", err)
		return
	}

	if err := h.service.ValidateTemporaryToken(r.Context(), req.Token); err != nil {
		writeMappedError(r.Context(), w, "token_validate", err)
		return
	}

	writeMessage(w, http.StatusOK, "token valid")
}
