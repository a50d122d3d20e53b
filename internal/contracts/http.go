package contracts

// Request/response bodies for the internal, admin, and webhook HTTP APIs.

type LivestreamAuthRequest struct {
	Token   string `json:"token"`
	Address string `json:"address,omitempty"`
}

type LivestreamAuthResponse struct {
	Success              bool   `json:"success"`
	Reason               string `json:"reason,omitempty"`
	Message              string `json:"message,omitempty"`
	ShowName             string `json:"show_name,omitempty"`
	MinRecordingDuration int    `json:"min_recording_duration,omitempty"`
}

type LivestreamConnectRequest struct {
	Token string `json:"token"`
}

type LivestreamDisconnectRequest struct {
	Token string `json:"token"`
}

type LivestreamConnectResponse struct {
	UserID               string `json:"user_id"`
	ShowName             string `json:"show_name"`
	MinRecordingDuration int    `json:"min_recording_duration"`
}

type LivestreamDisconnectResponse struct {
	UserID          string `json:"user_id"`
	DurationSeconds int64  `json:"duration_seconds"`
}

type LivestreamStatusResponse struct {
	Active               bool   `json:"active"`
	Identity             string `json:"user_id,omitempty"`
	ShowName             string `json:"show_name,omitempty"`
	QuotaSeconds         int64  `json:"max_streaming_seconds,omitempty"`
	UsedSeconds          int64  `json:"used_seconds,omitempty"`
	MinRecordingDuration int    `json:"min_recording_duration,omitempty"`
	Address              string `json:"address,omitempty"`
	SessionStart         string `json:"session_start,omitempty"`
}

type PublishEventRequest struct {
	EventType   string         `json:"event_type"`
	Data        map[string]any `json:"data,omitempty"`
	Description string         `json:"description,omitempty"`
}

type LivestreamTokenRequest struct {
	MaxStreamingSeconds  int64  `json:"max_streaming_seconds"`
	ValiditySeconds      int64  `json:"validity_seconds,omitempty"`
	ShowName             string `json:"show_name,omitempty"`
	MinRecordingDuration int    `json:"min_recording_duration,omitempty"`
	UserID               string `json:"user_id,omitempty"`
}

type LivestreamTokenResponse struct {
	Token               string `json:"token"`
	ExpiresAt           string `json:"expires_at"`
	MaxStreamingSeconds int64  `json:"max_streaming_seconds"`
}

type TokenRequest struct {
	DurationSeconds int64 `json:"duration_seconds"`
}

type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type TokenValidateRequest struct {
	Token string `json:"token"`
}

type WebhookSubscribeRequest struct {
	URL         string   `json:"url"`
	Events      []string `json:"events"`
	SigningKey  string   `json:"signing_key"`
	Description string   `json:"description,omitempty"`
}

type WebhookSubscriptionResponse struct {
	WebhookID   string   `json:"webhook_id"`
	URL         string   `json:"url"`
	Events      []string `json:"events"`
	Description string   `json:"description,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

type WebhookDeliveryResponse struct {
	WebhookID  string `json:"webhook_id"`
	EventType  string `json:"event_type"`
	URL        string `json:"url"`
	Status     string `json:"status"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
	Timestamp  string `json:"timestamp"`
}

type WebhookStatsResponse struct {
	WebhookID       string  `json:"webhook_id"`
	TotalDeliveries int     `json:"total_deliveries"`
	SuccessCount    int     `json:"success_count"`
	FailureCount    int     `json:"failure_count"`
	SuccessRate     float64 `json:"success_rate"`
	LastDelivery    string  `json:"last_delivery,omitempty"`
}
