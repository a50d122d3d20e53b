package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/h4ks-com/h4kstream/internal/domain"
)

// unknownIdentity stands in when a media-engine callback carries a token
// we can no longer decode. Those callbacks must never bounce.
const unknownIdentity = "unknown"

// Authorize validates a livestream credential and attempts to reserve the
// broadcast slot for its identity. Denials are reported in the decision;
// the error covers store failures only.
func (s *Service) Authorize(ctx context.Context, token, address string) (AdmissionDecision, error) {
	claims, err := s.codec.DecodeLivestream(token)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialExpired) {
			return AdmissionDecision{Reason: ReasonExpired, Message: "Token has expired"}, nil
		}
		return AdmissionDecision{Reason: ReasonInvalid, Message: fmt.Sprintf("Invalid token: %v", err)}, nil
	}

	used, err := s.usage.Total(ctx, claims.Identity)
	if err != nil {
		return AdmissionDecision{}, fmt.Errorf("read usage ledger: %w", err)
	}
	if used >= claims.QuotaSeconds {
		return AdmissionDecision{
			Reason:  ReasonQuotaExceeded,
			Message: fmt.Sprintf("Streaming time limit exceeded (%d/%ds)", used, claims.QuotaSeconds),
		}, nil
	}

	lease := domain.SlotLease{
		Identity:             claims.Identity,
		Token:                token,
		QuotaSeconds:         claims.QuotaSeconds,
		ShowName:             claims.ShowName,
		MinRecordingDuration: claims.MinRecordingDuration,
		Address:              address,
	}
	acquired, err := s.slots.Acquire(ctx, lease, s.cfg.SlotReserveTTL)
	if err != nil {
		return AdmissionDecision{}, fmt.Errorf("reserve slot: %w", err)
	}
	if acquired {
		return AdmissionDecision{
			Granted:              true,
			ShowName:             claims.ShowName,
			MinRecordingDuration: claims.MinRecordingDuration,
		}, nil
	}

	current, err := s.slots.Current(ctx)
	if err != nil {
		return AdmissionDecision{}, fmt.Errorf("read slot: %w", err)
	}
	if current != nil && current.Identity == claims.Identity {
		// Re-grant to the holder without touching the existing lease.
		return AdmissionDecision{
			Granted:              true,
			ShowName:             claims.ShowName,
			MinRecordingDuration: claims.MinRecordingDuration,
		}, nil
	}
	return AdmissionDecision{
		Reason:  ReasonSlotOccupied,
		Message: "Streaming slot is already occupied by another user",
	}, nil
}

// Connect records the established connection: it stamps the session start
// marker, extends the slot lease for the duration of the show, and raises
// the broadcast flag.
func (s *Service) Connect(ctx context.Context, token string) (SessionInfo, error) {
	claims, err := s.codec.DecodeLivestream(token)
	if err != nil {
		return SessionInfo{
			Identity:             unknownIdentity,
			ShowName:             unknownIdentity,
			MinRecordingDuration: domain.DefaultMinRecordingDuration,
		}, nil
	}

	if err := s.sessions.SetStart(ctx, claims.Identity, s.nowFn(), s.cfg.SlotSessionTTL); err != nil {
		return SessionInfo{}, fmt.Errorf("write session marker: %w", err)
	}
	if err := s.slots.Refresh(ctx, s.cfg.SlotSessionTTL); err != nil {
		return SessionInfo{}, fmt.Errorf("extend slot lease: %w", err)
	}
	if err := s.sessions.SetLive(ctx, s.cfg.SlotSessionTTL); err != nil {
		return SessionInfo{}, fmt.Errorf("set broadcast flag: %w", err)
	}

	showName := claims.ShowName
	if showName == "" {
		showName = unknownIdentity
	}
	return SessionInfo{
		Identity:             claims.Identity,
		ShowName:             showName,
		MinRecordingDuration: claims.MinRecordingDuration,
	}, nil
}

// Disconnect finalizes the holder's session: persists elapsed usage,
// clears the start marker, releases the slot if this identity still holds
// it, and lowers the broadcast flag. Calling it again with no marker
// present returns elapsed 0.
func (s *Service) Disconnect(ctx context.Context, token string) (SessionSummary, error) {
	claims, err := s.codec.DecodeLivestream(token)
	if err != nil {
		return SessionSummary{Identity: unknownIdentity}, nil
	}

	summary, err := s.endSession(ctx, claims.Identity)
	if err != nil {
		return SessionSummary{}, err
	}
	if err := s.sessions.ClearLive(ctx); err != nil {
		return SessionSummary{}, fmt.Errorf("clear broadcast flag: %w", err)
	}
	return summary, nil
}

// endSession persists elapsed usage from the start marker, removes the
// marker, and releases the slot when this identity holds it. Shared by the
// disconnect path and quota enforcement.
func (s *Service) endSession(ctx context.Context, identity string) (SessionSummary, error) {
	summary := SessionSummary{Identity: identity}

	start, err := s.sessions.Start(ctx, identity)
	if err != nil {
		return SessionSummary{}, fmt.Errorf("read session marker: %w", err)
	}
	if start != nil {
		elapsed := int64(s.nowFn().Sub(*start) / time.Second)
		if elapsed < 0 {
			elapsed = 0
		}
		prior, err := s.usage.Total(ctx, identity)
		if err != nil {
			return SessionSummary{}, fmt.Errorf("read usage ledger: %w", err)
		}
		if err := s.usage.SetTotal(ctx, identity, prior+elapsed, s.cfg.UsageTTL); err != nil {
			return SessionSummary{}, fmt.Errorf("write usage ledger: %w", err)
		}
		if err := s.sessions.ClearStart(ctx, identity); err != nil {
			return SessionSummary{}, fmt.Errorf("clear session marker: %w", err)
		}
		summary.ElapsedSeconds = elapsed
	}

	current, err := s.slots.Current(ctx)
	if err != nil {
		return SessionSummary{}, fmt.Errorf("read slot: %w", err)
	}
	if current != nil && current.Identity == identity {
		if err := s.slots.Release(ctx); err != nil {
			return SessionSummary{}, fmt.Errorf("release slot: %w", err)
		}
	}
	return summary, nil
}

// CurrentSession reports the lease holding the slot merged with the
// connection start marker, or nil when the slot is free.
func (s *Service) CurrentSession(ctx context.Context) (*domain.LiveSession, error) {
	lease, err := s.slots.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("read slot: %w", err)
	}
	if lease == nil {
		return nil, nil
	}
	session := &domain.LiveSession{SlotLease: *lease}
	start, err := s.sessions.Start(ctx, lease.Identity)
	if err != nil {
		return nil, fmt.Errorf("read session marker: %w", err)
	}
	session.StartedAt = start
	return session, nil
}

// Status is the operator view: the broadcast flag, the current lease, and
// the holder's metered usage from past sessions.
func (s *Service) Status(ctx context.Context) (StreamStatus, error) {
	live, err := s.sessions.IsLive(ctx)
	if err != nil {
		return StreamStatus{}, fmt.Errorf("read broadcast flag: %w", err)
	}
	session, err := s.CurrentSession(ctx)
	if err != nil {
		return StreamStatus{}, err
	}
	status := StreamStatus{Live: live, Session: session}
	if session != nil {
		used, err := s.usage.Total(ctx, session.Identity)
		if err != nil {
			return StreamStatus{}, fmt.Errorf("read usage ledger: %w", err)
		}
		status.UsedSeconds = used
	}
	return status, nil
}

// EnforceTimeLimit runs one supervision cycle. When prior usage plus the
// connected session's elapsed time meets the quota, the live input is
// stopped through the control channel and the session is finalized
// immediately so the slot frees without waiting for the engine's
// disconnect callback.
func (s *Service) EnforceTimeLimit(ctx context.Context) (EnforcementResult, error) {
	session, err := s.CurrentSession(ctx)
	if err != nil {
		return EnforcementResult{}, err
	}
	if session == nil {
		return EnforcementResult{}, nil
	}

	result := EnforcementResult{
		Identity:     session.Identity,
		QuotaSeconds: session.QuotaSeconds,
	}
	if session.StartedAt == nil {
		// Slot reserved but the connection is not established yet.
		return result, nil
	}
	result.Checked = true

	prior, err := s.usage.Total(ctx, session.Identity)
	if err != nil {
		return EnforcementResult{}, fmt.Errorf("read usage ledger: %w", err)
	}
	elapsed := int64(s.nowFn().Sub(*session.StartedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	result.TotalSeconds = prior + elapsed
	if result.TotalSeconds < session.QuotaSeconds {
		return result, nil
	}

	if err := s.control.StopLive(ctx); err != nil {
		result.ControlError = err.Error()
	}
	if _, err := s.endSession(ctx, session.Identity); err != nil {
		return result, err
	}
	result.Terminated = true
	return result, nil
}

// IssueLivestreamToken mints a signed credential carrying a lifetime
// streaming quota.
func (s *Service) IssueLivestreamToken(_ context.Context, req LivestreamTokenRequest) (LivestreamTokenResult, error) {
	if req.QuotaSeconds <= 0 {
		return LivestreamTokenResult{}, fmt.Errorf("%w: max_streaming_seconds must be positive", domain.ErrInvalidInput)
	}
	validity := s.cfg.TokenValidity
	if req.ValiditySeconds > 0 {
		validity = time.Duration(req.ValiditySeconds) * time.Second
	}
	token, expiresAt, err := s.codec.IssueLivestream(req.Identity, req.QuotaSeconds, validity, req.ShowName, req.MinRecordingDuration)
	if err != nil {
		return LivestreamTokenResult{}, err
	}
	return LivestreamTokenResult{
		Token:        token,
		ExpiresAt:    expiresAt,
		QuotaSeconds: req.QuotaSeconds,
	}, nil
}

// IssueTemporaryToken mints a short-lived bare token used elsewhere in the
// platform for scoped guest grants.
func (s *Service) IssueTemporaryToken(_ context.Context, durationSeconds int64) (string, time.Time, error) {
	if durationSeconds <= 0 {
		return "", time.Time{}, fmt.Errorf("%w: duration_seconds must be positive", domain.ErrInvalidInput)
	}
	return s.codec.IssueTemporary(time.Duration(durationSeconds) * time.Second)
}

// ValidateTemporaryToken checks a guest grant's signature and expiry for
// the subsystems that accept these tokens.
func (s *Service) ValidateTemporaryToken(_ context.Context, token string) error {
	return s.codec.ValidateTemporary(token)
}
