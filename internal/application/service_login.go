package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

// CheckLogin scores a login check for an existing identity and opens the attempt.
// A high-risk check returns *BlockedError alongside the populated response.
func (s *Service) CheckLogin(ctx context.Context, req CheckLoginRequest, rc RequestContext) (CheckLoginResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return CheckLoginResponse{}, err
	}
	if err := s.enforceRateLimit(ctx, "check:ip:"+rc.IPAddress, s.cfg.CheckRateLimit, s.cfg.CheckRateWindow); err != nil {
		return CheckLoginResponse{}, err
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		return CheckLoginResponse{}, err
	}
	if identity.IsBlocked {
		return CheckLoginResponse{}, fmt.Errorf("%w: contact support", domain.ErrIdentityBlocked)
	}

	now := s.nowFn()
	assessment, err := s.assessor.Assess(ctx, RiskInput{
		Email:      email,
		Registered: true,
		IPAddress:  rc.IPAddress,
		DeviceInfo: rc.DeviceInfo,
		At:         now,
	})
	if err != nil {
		return CheckLoginResponse{}, fmt.Errorf("assess risk: %w", err)
	}

	res, _, err := s.openAttempt(ctx, &identity, email, domain.AttemptKindLogin, rc, assessment, now)
	return res, err
}

// openAttempt persists the scored check and drives it into its pending state.
func (s *Service) openAttempt(
	ctx context.Context,
	identity *domain.Identity,
	email string,
	kind domain.AttemptKind,
	rc RequestContext,
	assessment domain.RiskAssessment,
	now time.Time,
) (CheckLoginResponse, domain.Attempt, error) {
	flow := s.engine.Decide(assessment)
	params := ports.CreateAttemptParams{
		Email:      email,
		Kind:       kind,
		IPAddress:  rc.IPAddress,
		DeviceInfo: rc.DeviceInfo,
		Assessment: assessment,
		AuthFlow:   flow,
		CreatedAt:  now,
	}
	if identity != nil {
		userID := identity.UserID
		params.UserID = &userID
	}
	switch flow {
	case domain.AuthFlowBlocked:
		params.ResolvedFalse = true
		params.FailureReason = domain.FailureReasonHighRisk
	case domain.AuthFlowOTPVerification:
		expiresAt := now.Add(s.cfg.OTPTTL)
		params.ExpiresAt = &expiresAt
	default:
		expiresAt := now.Add(s.cfg.PendingTTL)
		params.ExpiresAt = &expiresAt
	}

	attempt, superseded, err := s.attempts.Create(ctx, params)
	if err != nil {
		return CheckLoginResponse{}, domain.Attempt{}, err
	}
	if superseded != nil {
		s.recordResolution(ctx, *superseded, false, domain.FailureReasonSuperseded)
	}
	s.stats.Invalidate()
	s.metrics.ObserveDecision(kind, assessment.Level, flow, assessment.Score)
	s.enqueueEvent(ctx, eventTypeAttemptCreated, email, map[string]any{
		"attempt_id": attempt.ID,
		"email":      email,
		"kind":       kind,
		"risk_score": assessment.Score,
		"risk_level": assessment.Level,
		"auth_flow":  flow,
	})
	s.logger().InfoContext(ctx, "authentication decision made",
		"operation", "open_attempt",
		"outcome", "success",
		"attempt_id", attempt.ID,
		"kind", kind,
		"risk_score", assessment.Score,
		"risk_level", assessment.Level,
		"auth_flow", flow,
	)

	res := CheckLoginResponse{
		AuthFlow:  flow,
		RiskData:  toRiskData(assessment),
		AttemptID: attempt.ID,
	}

	switch flow {
	case domain.AuthFlowBlocked:
		s.metrics.ObserveResolution(flow, false)
		s.applyBlockPolicy(ctx, identity, email)
		return res, attempt, &BlockedError{AttemptID: attempt.ID, RiskData: res.RiskData}
	case domain.AuthFlowOTPVerification:
		code, issued, err := s.engine.IssueOTP(ctx, attempt)
		if err != nil {
			s.abandon(ctx, attempt, domain.FailureReasonDeliveryFailure)
			return CheckLoginResponse{}, domain.Attempt{}, fmt.Errorf("issue otp: %w", err)
		}
		if err := s.deliverOTP(ctx, identity, email, code, issued); err != nil {
			s.abandon(ctx, issued, domain.FailureReasonDeliveryFailure)
			return CheckLoginResponse{}, domain.Attempt{}, err
		}
		res.OTPExpiresAt = issued.ExpiresAt
		res.Message = "OTP verification required. A code has been sent to your email."
		if s.cfg.ExposeOTP {
			res.Message = "OTP verification required. Demo mode: the code is included in this response."
			res.OTPCode = code
		}
		return res, issued, nil
	default:
		return res, attempt, nil
	}
}

// deliverOTP sends the code over the side channel. With no sender configured
// the code is only reachable through the demo echo.
func (s *Service) deliverOTP(ctx context.Context, identity *domain.Identity, email, code string, attempt domain.Attempt) error {
	if s.notifier == nil {
		if !s.cfg.ExposeOTP {
			return fmt.Errorf("%w: no delivery channel configured", domain.ErrDeliveryUnavailable)
		}
		return nil
	}
	msg := ports.OTPMessage{
		Email:     email,
		Code:      code,
		AttemptID: attempt.ID,
	}
	if identity != nil {
		msg.Name = identity.Name
	}
	if attempt.ExpiresAt != nil {
		msg.ExpiresAt = *attempt.ExpiresAt
	}
	if err := s.notifier.SendOTP(ctx, msg); err != nil {
		s.logger().ErrorContext(ctx, "otp delivery failed",
			"operation", "deliver_otp",
			"outcome", "failure",
			"attempt_id", attempt.ID,
			"error", err,
		)
		if s.cfg.ExposeOTP {
			return nil
		}
		return fmt.Errorf("%w: %v", domain.ErrDeliveryUnavailable, err)
	}
	return nil
}

// abandon resolves an attempt that could not be driven forward so the
// identity is not left holding an unusable pending attempt.
func (s *Service) abandon(ctx context.Context, attempt domain.Attempt, reason string) {
	if _, err := s.attempts.Resolve(ctx, attempt.ID, false, reason, s.nowFn()); err != nil && !errors.Is(err, domain.ErrAlreadyResolved) {
		s.logger().WarnContext(ctx, "failed to abandon attempt",
			"operation", "abandon_attempt",
			"outcome", "failure",
			"attempt_id", attempt.ID,
			"error", err,
		)
		return
	}
	s.recordResolution(ctx, attempt, false, reason)
}

// CompletePasswordless finishes a low-risk attempt and issues a session.
func (s *Service) CompletePasswordless(ctx context.Context, req PasswordlessRequest) (AuthResponse, error) {
	identity, attempt, err := s.loadOwnedAttempt(ctx, req.Email, req.AttemptID)
	if err != nil {
		return AuthResponse{}, err
	}

	resolved, err := s.engine.CompletePasswordless(ctx, attempt.ID)
	if err != nil {
		if errors.Is(err, domain.ErrExpired) {
			s.recordResolution(ctx, attempt, false, domain.FailureReasonPendingExpired)
		}
		return AuthResponse{}, err
	}
	s.recordResolution(ctx, resolved, true, "")
	return s.issueSession(ctx, identity, resolved)
}

// VerifyOTP checks the submitted code for a medium-risk attempt and issues a session.
func (s *Service) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (AuthResponse, error) {
	code := strings.TrimSpace(req.OTPCode)
	if code == "" {
		return AuthResponse{}, fmt.Errorf("%w: otp_code is required", domain.ErrInvalidInput)
	}
	identity, attempt, err := s.loadOwnedAttempt(ctx, req.Email, req.AttemptID)
	if err != nil {
		return AuthResponse{}, err
	}

	resolved, err := s.engine.VerifyOTP(ctx, attempt.ID, code)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrExpired):
			s.metrics.ObserveOTPVerification("expired")
			s.recordResolution(ctx, attempt, false, domain.FailureReasonOTPExpired)
		case errors.Is(err, domain.ErrCodeMismatch):
			s.metrics.ObserveOTPVerification("mismatch")
			if current, getErr := s.attempts.Get(ctx, attempt.ID); getErr == nil && current.Resolved() && !current.Succeeded() {
				s.recordResolution(ctx, current, false, current.FailureReason)
			}
		case errors.Is(err, domain.ErrAlreadyResolved):
			s.metrics.ObserveOTPVerification("already_resolved")
		}
		return AuthResponse{}, err
	}
	s.metrics.ObserveOTPVerification("success")
	s.recordResolution(ctx, resolved, true, "")
	return s.issueSession(ctx, identity, resolved)
}

// loadOwnedAttempt resolves the identity before the attempt. A flagged
// identity therefore fails with ErrIdentityBlocked even for attempts whose
// flow would otherwise be refused as ErrInvalidState.
func (s *Service) loadOwnedAttempt(ctx context.Context, rawEmail string, attemptID int64) (domain.Identity, domain.Attempt, error) {
	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return domain.Identity{}, domain.Attempt{}, err
	}
	if attemptID <= 0 {
		return domain.Identity{}, domain.Attempt{}, fmt.Errorf("%w: attempt_id is required", domain.ErrInvalidInput)
	}
	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		return domain.Identity{}, domain.Attempt{}, err
	}
	if identity.IsBlocked {
		return domain.Identity{}, domain.Attempt{}, fmt.Errorf("%w: contact support", domain.ErrIdentityBlocked)
	}
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return domain.Identity{}, domain.Attempt{}, err
	}
	if attempt.Email != email {
		return domain.Identity{}, domain.Attempt{}, fmt.Errorf("%w: attempt %d", domain.ErrNotFound, attemptID)
	}
	return identity, attempt, nil
}

func (s *Service) issueSession(ctx context.Context, identity domain.Identity, attempt domain.Attempt) (AuthResponse, error) {
	res, err := s.sessions.Issue(identity, attempt)
	if err != nil {
		return AuthResponse{}, err
	}
	s.metrics.ObserveSessionIssued()
	s.logger().InfoContext(ctx, "session issued",
		"operation", "issue_session",
		"outcome", "success",
		"attempt_id", attempt.ID,
		"user_id", identity.UserID,
	)
	return res, nil
}

func (s *Service) recordResolution(ctx context.Context, attempt domain.Attempt, success bool, reason string) {
	s.stats.Invalidate()
	s.metrics.ObserveResolution(attempt.AuthFlow, success)
	s.enqueueEvent(ctx, eventTypeAttemptResolved, attempt.Email, map[string]any{
		"attempt_id":     attempt.ID,
		"email":          attempt.Email,
		"auth_flow":      attempt.AuthFlow,
		"success":        success,
		"failure_reason": reason,
	})
}

// applyBlockPolicy flags an identity once it collects BlockThreshold blocked
// checks inside BlockWindow.
func (s *Service) applyBlockPolicy(ctx context.Context, identity *domain.Identity, email string) {
	if identity == nil || s.lockouts == nil || s.cfg.BlockThreshold <= 0 || s.cfg.BlockWindow <= 0 {
		return
	}
	now := s.nowFn()
	state, err := s.lockouts.RecordFailure(ctx, "block:"+email, now, s.cfg.BlockThreshold, s.cfg.BlockWindow)
	if err != nil {
		s.logger().WarnContext(ctx, "block policy state unavailable",
			"operation", "apply_block_policy",
			"outcome", "failure",
			"error", err,
		)
		return
	}
	if state.LockedUntil == nil {
		return
	}
	if _, err := s.identities.SetBlocked(ctx, identity.UserID, true, now); err != nil {
		s.logger().ErrorContext(ctx, "failed to flag identity as blocked",
			"operation", "apply_block_policy",
			"outcome", "failure",
			"user_id", identity.UserID,
			"error", err,
		)
		return
	}
	s.stats.Invalidate()
	s.enqueueEvent(ctx, eventTypeIdentityBlocked, email, map[string]any{
		"user_id":        identity.UserID,
		"email":          email,
		"blocked_checks": state.FailedCount,
	})
	s.logger().WarnContext(ctx, "identity blocked by policy",
		"operation", "apply_block_policy",
		"outcome", "blocked",
		"user_id", identity.UserID,
		"blocked_checks", state.FailedCount,
	)
}

// enforceRateLimit admits limit requests per key inside window; the next one
// locks the key until the window elapses.
func (s *Service) enforceRateLimit(ctx context.Context, key string, limit int, window time.Duration) error {
	if s.lockouts == nil || limit <= 0 || window <= 0 {
		return nil
	}
	now := s.nowFn()
	state, err := s.lockouts.Get(ctx, key)
	if err == nil && state.LockedUntil != nil && state.LockedUntil.After(now) {
		return domain.ErrRateLimited
	}

	updated, err := s.lockouts.RecordFailure(ctx, key, now, limit+1, window)
	if err != nil {
		s.logger().WarnContext(ctx, "rate-limit state unavailable",
			"operation", "rate_limit",
			"outcome", "warning",
			"key", key,
			"error", err,
		)
		return nil
	}
	if updated.LockedUntil != nil && updated.LockedUntil.After(now) {
		return domain.ErrRateLimited
	}
	return nil
}
