package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/h4ks-com/h4kstream/internal/domain"
)

// maxValidity is the issuing ceiling; requested validities above it are
// clamped, never rejected.
const maxValidity = 24 * time.Hour

const (
	tokenTypeLivestream = "livestream"
	tokenTypeTemporary  = "temporary"
)

// JWTCodec signs and verifies the HS256 credentials used across the
// service. The secret is held at adapter level so the application layer
// stays crypto-library agnostic.
type JWTCodec struct {
	secret []byte
	nowFn  func() time.Time
}

func NewJWTCodec(secret string) (*JWTCodec, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTCodec{secret: []byte(secret), nowFn: func() time.Time { return time.Now().UTC() }}, nil
}

type livestreamJWTClaims struct {
	TokenType            string `json:"type"`
	UserID               string `json:"user_id"`
	MaxStreamingSeconds  int64  `json:"max_streaming_seconds"`
	ShowName             string `json:"show_name,omitempty"`
	MinRecordingDuration int    `json:"min_recording_duration,omitempty"`
	jwt.RegisteredClaims
}

type temporaryJWTClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

func (c *JWTCodec) IssueLivestream(identity string, quotaSeconds int64, validity time.Duration, showName string, minRecordingDuration int) (string, time.Time, error) {
	if identity == "" {
		identity = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	if validity <= 0 || validity > maxValidity {
		validity = maxValidity
	}
	if minRecordingDuration <= 0 {
		minRecordingDuration = domain.DefaultMinRecordingDuration
	}

	now := c.nowFn()
	expiresAt := now.Add(validity)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, livestreamJWTClaims{
		TokenType:            tokenTypeLivestream,
		UserID:               identity,
		MaxStreamingSeconds:  quotaSeconds,
		ShowName:             showName,
		MinRecordingDuration: minRecordingDuration,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign livestream token: %w", err)
	}
	return token, expiresAt, nil
}

func (c *JWTCodec) DecodeLivestream(raw string) (*domain.LivestreamClaims, error) {
	claims := &livestreamJWTClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, c.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.nowFn),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: signature has expired", domain.ErrCredentialExpired)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrCredentialInvalid, err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("%w: token claims rejected", domain.ErrCredentialInvalid)
	}
	if claims.TokenType != tokenTypeLivestream {
		return nil, fmt.Errorf("%w: not a livestream token", domain.ErrCredentialInvalid)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user_id claim", domain.ErrCredentialInvalid)
	}

	minRecording := claims.MinRecordingDuration
	if minRecording <= 0 {
		minRecording = domain.DefaultMinRecordingDuration
	}
	return &domain.LivestreamClaims{
		Identity:             claims.UserID,
		QuotaSeconds:         claims.MaxStreamingSeconds,
		ShowName:             claims.ShowName,
		MinRecordingDuration: minRecording,
		ExpiresAt:            claims.ExpiresAt.Time,
	}, nil
}

func (c *JWTCodec) IssueTemporary(validity time.Duration) (string, time.Time, error) {
	if validity <= 0 || validity > maxValidity {
		validity = maxValidity
	}
	now := c.nowFn()
	expiresAt := now.Add(validity)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, temporaryJWTClaims{
		TokenType: tokenTypeTemporary,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign temporary token: %w", err)
	}
	return token, expiresAt, nil
}

func (c *JWTCodec) ValidateTemporary(raw string) error {
	claims := &temporaryJWTClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, c.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.nowFn),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: signature has expired", domain.ErrCredentialExpired)
		}
		return fmt.Errorf("%w: %v", domain.ErrCredentialInvalid, err)
	}
	if claims.TokenType != tokenTypeTemporary {
		return fmt.Errorf("%w: not a temporary token", domain.ErrCredentialInvalid)
	}
	return nil
}

func (c *JWTCodec) keyFunc(token *jwt.Token) (any, error) {
	if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
	}
	return c.secret, nil
}
