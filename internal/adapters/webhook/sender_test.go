package webhook

import (
	"context"
	"crypto/hmac"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/h4ks-com/h4kstream/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memoryDeliveryLog struct {
	mu      sync.Mutex
	records []domain.DeliveryRecord
}

func (s *memoryDeliveryLog) Append(_ context.Context, rec domain.DeliveryRecord, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *memoryDeliveryLog) Recent(_ context.Context, webhookID string, limit int) ([]domain.DeliveryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.DeliveryRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].WebhookID == webhookID {
			out = append(out, s.records[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryDeliveryLog) last(t *testing.T) domain.DeliveryRecord {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) == 0 {
		t.Fatalf("expected a delivery record")
	}
	return s.records[len(s.records)-1]
}

func testEvent() domain.Event {
	return domain.Event{
		Type:        domain.EventSongChanged,
		Description: "song_changed event occurred",
		Data:        map[string]any{"title": "Blue Monday", "artist": "New Order"},
		Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDeliverSignsAndRecordsSuccess(t *testing.T) {
	t.Parallel()

	var (
		gotBody      []byte
		gotSignature string
		gotTimestamp string
		gotAgent     string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSignature = r.Header.Get("X-Webhook-Signature")
		gotTimestamp = r.Header.Get("X-Webhook-Timestamp")
		gotAgent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	log := &memoryDeliveryLog{}
	sender := NewHTTPSender(discardLogger(), log, time.Second, time.Hour)
	sub := domain.WebhookSubscription{ID: "wh-1", URL: srv.URL, Secret: "topsecret-signing-key"}

	if err := sender.Deliver(context.Background(), sub, testEvent()); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}

	// Receiver-side verification: recompute the HMAC over the exact bytes.
	if !strings.HasPrefix(gotSignature, "sha256=") {
		t.Fatalf("signature header should be prefixed, got %q", gotSignature)
	}
	expected := Sign(sub.Secret, gotBody)
	if !hmac.Equal([]byte(expected), []byte(strings.TrimPrefix(gotSignature, "sha256="))) {
		t.Fatalf("signature does not verify over the transmitted bytes")
	}
	if gotTimestamp == "" || gotAgent != "RadioWebhooks/1.0" {
		t.Fatalf("missing delivery headers: ts=%q agent=%q", gotTimestamp, gotAgent)
	}

	rec := log.last(t)
	if rec.Status != domain.DeliverySuccess || rec.StatusCode != http.StatusOK {
		t.Fatalf("unexpected success record: %+v", rec)
	}
	if rec.WebhookID != "wh-1" || rec.EventType != domain.EventSongChanged {
		t.Fatalf("record should identify webhook and event: %+v", rec)
	}
}

func TestDeliverRecordsHTTPFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	log := &memoryDeliveryLog{}
	sender := NewHTTPSender(discardLogger(), log, time.Second, time.Hour)
	sub := domain.WebhookSubscription{ID: "wh-1", URL: srv.URL, Secret: "topsecret-signing-key"}

	err := sender.Deliver(context.Background(), sub, testEvent())
	if !errors.Is(err, domain.ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}

	rec := log.last(t)
	if rec.Status != domain.DeliveryFailed || rec.StatusCode != http.StatusInternalServerError {
		t.Fatalf("unexpected failure record: %+v", rec)
	}
	if !strings.Contains(rec.Error, "HTTP 500") {
		t.Fatalf("record should carry the HTTP status, got %q", rec.Error)
	}
}

func TestDeliverRecordsTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	log := &memoryDeliveryLog{}
	sender := NewHTTPSender(discardLogger(), log, 50*time.Millisecond, time.Hour)
	sub := domain.WebhookSubscription{ID: "wh-1", URL: srv.URL, Secret: "topsecret-signing-key"}

	err := sender.Deliver(context.Background(), sub, testEvent())
	if !errors.Is(err, domain.ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}

	rec := log.last(t)
	if rec.Status != domain.DeliveryFailed || rec.StatusCode != 0 {
		t.Fatalf("unexpected timeout record: %+v", rec)
	}
	if !strings.Contains(rec.Error, "timeout") {
		t.Fatalf("record should name the timeout, got %q", rec.Error)
	}
}

func TestDeliverRecordsConnectionError(t *testing.T) {
	t.Parallel()

	// A server that is already closed leaves a port nothing listens on.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	log := &memoryDeliveryLog{}
	sender := NewHTTPSender(discardLogger(), log, time.Second, time.Hour)
	sub := domain.WebhookSubscription{ID: "wh-1", URL: url, Secret: "topsecret-signing-key"}

	err := sender.Deliver(context.Background(), sub, testEvent())
	if !errors.Is(err, domain.ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}

	rec := log.last(t)
	if rec.Status != domain.DeliveryFailed || rec.Error == "" {
		t.Fatalf("unexpected transport failure record: %+v", rec)
	}
}

func TestCanonicalPayloadIsStable(t *testing.T) {
	t.Parallel()

	event := testEvent()
	first, err := CanonicalPayload(event)
	if err != nil {
		t.Fatalf("canonical payload failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		next, err := CanonicalPayload(event)
		if err != nil {
			t.Fatalf("canonical payload failed: %v", err)
		}
		if string(next) != string(first) {
			t.Fatalf("payload bytes must be stable across serializations")
		}
	}
}
