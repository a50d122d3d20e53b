package domain

import "errors"

var (
	// ErrCredentialExpired marks a credential whose expiry claim has passed.
	// Admission paths translate it into a denial reason instead of a failure.
	ErrCredentialExpired = errors.New("credential expired")
	// ErrCredentialInvalid covers tampered, malformed, or wrong-type tokens.
	ErrCredentialInvalid = errors.New("credential invalid")
	// ErrSubscriptionNotFound is returned for operations on unknown webhook IDs.
	// Keeping this sentinel in domain lets the HTTP adapter map it to 404.
	ErrSubscriptionNotFound = errors.New("webhook subscription not found")
	// ErrDeliveryFailed wraps a webhook delivery attempt that did not reach
	// the endpoint or got a non-2xx answer. One attempt only, no retry.
	ErrDeliveryFailed = errors.New("webhook delivery failed")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
)
