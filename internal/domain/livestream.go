package domain

import "time"

// DefaultMinRecordingDuration is the fallback minimum recording hint, in
// seconds, applied when a credential does not carry one.
const DefaultMinRecordingDuration = 60

// SlotLease is the payload held at the broadcast slot key while one
// identity owns the exclusive right to stream. At most one lease exists
// system-wide at any instant.
type SlotLease struct {
	Identity             string `json:"user_id"`
	Token                string `json:"token"`
	QuotaSeconds         int64  `json:"max_streaming_seconds"`
	ShowName             string `json:"show_name,omitempty"`
	MinRecordingDuration int    `json:"min_recording_duration"`
	Address              string `json:"address,omitempty"`
}

// LiveSession is the slot lease merged with the start marker of the
// established connection, when the holder has actually connected.
type LiveSession struct {
	SlotLease
	StartedAt *time.Time `json:"session_start,omitempty"`
}

// LivestreamClaims is the verified content of a livestream credential.
type LivestreamClaims struct {
	Identity             string
	QuotaSeconds         int64
	ShowName             string
	MinRecordingDuration int
	ExpiresAt            time.Time
}
