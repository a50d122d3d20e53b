package ports

import (
	"time"

	"github.com/h4ks-com/h4kstream/internal/domain"
)

// TokenCodec signs and verifies the credentials this service issues.
// Implementations are stateless; all methods are pure.
type TokenCodec interface {
	// IssueLivestream mints a streaming credential. An empty identity gets
	// a fresh random one; validity is clamped to the issuing ceiling.
	IssueLivestream(identity string, quotaSeconds int64, validity time.Duration, showName string, minRecordingDuration int) (token string, expiresAt time.Time, err error)
	// DecodeLivestream verifies signature, expiry, and token type. Failures
	// are domain.ErrCredentialExpired or domain.ErrCredentialInvalid.
	DecodeLivestream(token string) (*domain.LivestreamClaims, error)
	IssueTemporary(validity time.Duration) (token string, expiresAt time.Time, err error)
	ValidateTemporary(token string) error
}
