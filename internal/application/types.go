package application

import (
	"time"

	"github.com/h4ks-com/h4kstream/internal/domain"
)

// Config carries the tunable knobs of the application core. Zero values
// are replaced with production defaults by NewService.
type Config struct {
	// SlotReserveTTL bounds how long a granted slot survives before the
	// holder actually connects.
	SlotReserveTTL time.Duration
	// SlotSessionTTL is the lease TTL once a connection is established.
	SlotSessionTTL time.Duration
	// UsageTTL is the retention of the per-identity usage ledger.
	UsageTTL time.Duration
	// TokenValidity is the default livestream credential lifetime.
	TokenValidity time.Duration
	// SecretMinLength is the minimum webhook signing secret length.
	SecretMinLength int
	// StatsWindow caps how many delivery records feed aggregate stats.
	StatsWindow int
	// DeliveryPageLimit is the default page size for delivery history.
	DeliveryPageLimit int
}

// Admission denial reasons, stable across the API surface.
const (
	ReasonExpired       = "expired"
	ReasonInvalid       = "invalid"
	ReasonQuotaExceeded = "quota_exceeded"
	ReasonSlotOccupied  = "slot_occupied"
)

// AdmissionDecision is the outcome of a slot acquisition attempt. Denials
// are values, not errors: Reason holds the machine code and Message the
// human-readable detail.
type AdmissionDecision struct {
	Granted              bool
	Reason               string
	Message              string
	ShowName             string
	MinRecordingDuration int
}

// SessionInfo describes the established connection for event payloads.
type SessionInfo struct {
	Identity             string
	ShowName             string
	MinRecordingDuration int
}

// SessionSummary reports the result of ending a session.
type SessionSummary struct {
	Identity       string
	ElapsedSeconds int64
}

// StreamStatus is the operator-facing view of the broadcast slot.
// UsedSeconds is the holder's lifetime ledger total, prior sessions only.
type StreamStatus struct {
	Live        bool
	Session     *domain.LiveSession
	UsedSeconds int64
}

// EnforcementResult describes one supervision cycle.
type EnforcementResult struct {
	// Checked is true when a connected session was actually metered.
	Checked      bool
	Terminated   bool
	Identity     string
	TotalSeconds int64
	QuotaSeconds int64
	// ControlError carries a control-channel failure; termination
	// bookkeeping proceeds regardless.
	ControlError string
}

// DispatchSummary counts the fan-out outcome for one event.
type DispatchSummary struct {
	EventType   domain.EventType
	Subscribers int
	Delivered   int
	Failed      int
	Skipped     int
}

// SubscribeRequest registers or updates a webhook subscription.
type SubscribeRequest struct {
	URL         string
	Events      []string
	Secret      string
	Description string
}

// LivestreamTokenRequest mints a streaming credential.
type LivestreamTokenRequest struct {
	Identity             string
	QuotaSeconds         int64
	ValiditySeconds      int64
	ShowName             string
	MinRecordingDuration int
}

// LivestreamTokenResult is the minted credential plus its envelope.
type LivestreamTokenResult struct {
	Token        string
	ExpiresAt    time.Time
	QuotaSeconds int64
}
