package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/h4ks-com/h4kstream/internal/domain"
	"github.com/h4ks-com/h4kstream/internal/ports"
)

const userAgent = "RadioWebhooks/1.0"

// maxErrorBody bounds how much of a failing response lands in the
// delivery record.
const maxErrorBody = 200

// HTTPSender signs event payloads and posts them to subscriber endpoints.
// Every attempt, successful or not, is appended to the delivery log; the
// record write itself is best-effort.
type HTTPSender struct {
	logger     *slog.Logger
	client     *http.Client
	deliveries ports.DeliveryLogStore
	logTTL     time.Duration
	nowFn      func() time.Time
}

func NewHTTPSender(logger *slog.Logger, deliveries ports.DeliveryLogStore, timeout, logTTL time.Duration) *HTTPSender {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logTTL <= 0 {
		logTTL = 7 * 24 * time.Hour
	}
	return &HTTPSender{
		logger:     logger,
		client:     &http.Client{Timeout: timeout},
		deliveries: deliveries,
		logTTL:     logTTL,
		nowFn:      func() time.Time { return time.Now().UTC() },
	}
}

// CanonicalPayload marshals an event into the byte sequence that is signed
// and transmitted. Keys are emitted in sorted order at every level, so a
// receiver can rebuild the exact bytes from the parsed document.
func CanonicalPayload(event domain.Event) ([]byte, error) {
	return json.Marshal(map[string]any{
		"event_type":  event.Type,
		"description": event.Description,
		"data":        event.Data,
		"timestamp":   event.Timestamp,
	})
}

// Sign returns the hex HMAC-SHA256 of payload under secret.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *HTTPSender) Deliver(ctx context.Context, sub domain.WebhookSubscription, event domain.Event) error {
	payload, err := CanonicalPayload(event)
	if err != nil {
		return fmt.Errorf("%w: encode payload: %v", domain.ErrDeliveryFailed, err)
	}
	now := s.nowFn()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", domain.ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", "sha256="+Sign(sub.Secret, payload))
	req.Header.Set("X-Webhook-Timestamp", now.Format(time.RFC3339Nano))
	req.Header.Set("User-Agent", userAgent)

	rec := domain.DeliveryRecord{
		WebhookID: sub.ID,
		EventType: event.Type,
		URL:       sub.URL,
		Timestamp: now,
	}

	resp, err := s.client.Do(req)
	if err != nil {
		rec.Status = domain.DeliveryFailed
		rec.Error = s.transportError(err)
		s.record(ctx, rec)
		return fmt.Errorf("%w: %s", domain.ErrDeliveryFailed, rec.Error)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		rec.Status = domain.DeliveryFailed
		rec.StatusCode = resp.StatusCode
		rec.Error = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		s.record(ctx, rec)
		return fmt.Errorf("%w: %s", domain.ErrDeliveryFailed, rec.Error)
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	rec.Status = domain.DeliverySuccess
	rec.StatusCode = resp.StatusCode
	s.record(ctx, rec)
	return nil
}

func (s *HTTPSender) transportError(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("request timeout (%s)", s.client.Timeout)
	}
	return err.Error()
}

func (s *HTTPSender) record(ctx context.Context, rec domain.DeliveryRecord) {
	if err := s.deliveries.Append(ctx, rec, s.logTTL); err != nil {
		s.logger.WarnContext(ctx, "failed to record delivery outcome",
			"module", "webhook.sender",
			"layer", "adapter",
			"operation", "record_delivery",
			"outcome", "failure",
			"webhook_id", rec.WebhookID,
			"error", err,
		)
	}
}
