package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

// OTPPolicy bounds the one-time-code challenge.
type OTPPolicy struct {
	Length      int
	TTL         time.Duration
	MaxAttempts int
}

// DecisionEngine owns the per-attempt state machine:
// CHECKED -> {PASSWORDLESS_PENDING | OTP_PENDING | BLOCKED} -> RESOLVED.
// Every transition to RESOLVED goes through AttemptRepository.Resolve,
// which succeeds at most once per attempt.
type DecisionEngine struct {
	attempts ports.AttemptRepository
	hasher   ports.OTPHasher
	codes    ports.CodeGenerator
	policy   OTPPolicy
	nowFn    func() time.Time
}

func NewDecisionEngine(
	attempts ports.AttemptRepository,
	hasher ports.OTPHasher,
	codes ports.CodeGenerator,
	policy OTPPolicy,
	nowFn func() time.Time,
) *DecisionEngine {
	if policy.Length <= 0 {
		policy.Length = 6
	}
	if policy.TTL <= 0 {
		policy.TTL = 5 * time.Minute
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &DecisionEngine{
		attempts: attempts,
		hasher:   hasher,
		codes:    codes,
		policy:   policy,
		nowFn:    nowFn,
	}
}

func (e *DecisionEngine) Decide(assessment domain.RiskAssessment) domain.AuthFlow {
	return domain.FlowForLevel(assessment.Level)
}

// IssueOTP generates a code, stores its hash on the attempt and opens the
// expiry window. The plaintext code is returned once and never persisted.
func (e *DecisionEngine) IssueOTP(ctx context.Context, attempt domain.Attempt) (string, domain.Attempt, error) {
	if attempt.AuthFlow != domain.AuthFlowOTPVerification {
		return "", domain.Attempt{}, fmt.Errorf("%w: attempt %d uses %s flow", domain.ErrInvalidState, attempt.ID, attempt.AuthFlow)
	}
	if attempt.Resolved() {
		return "", domain.Attempt{}, fmt.Errorf("%w: %w", domain.ErrInvalidState, domain.ErrAlreadyResolved)
	}

	code, err := e.codes.Generate(e.policy.Length)
	if err != nil {
		return "", domain.Attempt{}, fmt.Errorf("generate otp: %w", err)
	}
	hash, err := e.hasher.Hash(code)
	if err != nil {
		return "", domain.Attempt{}, fmt.Errorf("hash otp: %w", err)
	}
	updated, err := e.attempts.AttachOTP(ctx, attempt.ID, hash, e.nowFn().Add(e.policy.TTL))
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyResolved) {
			return "", domain.Attempt{}, fmt.Errorf("%w: %w", domain.ErrInvalidState, err)
		}
		return "", domain.Attempt{}, err
	}
	return code, updated, nil
}

// VerifyOTP checks a submitted code. A mismatch leaves the attempt pending
// until MaxAttempts failures, after which it resolves to failure. An expired
// window resolves the attempt to failure so the identity must start over.
func (e *DecisionEngine) VerifyOTP(ctx context.Context, attemptID int64, code string) (domain.Attempt, error) {
	attempt, err := e.attempts.Get(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if attempt.AuthFlow != domain.AuthFlowOTPVerification {
		return domain.Attempt{}, fmt.Errorf("%w: attempt %d uses %s flow", domain.ErrInvalidState, attempt.ID, attempt.AuthFlow)
	}
	if attempt.Resolved() {
		return domain.Attempt{}, domain.ErrAlreadyResolved
	}
	if attempt.OTPCodeHash == "" || attempt.ExpiresAt == nil {
		return domain.Attempt{}, fmt.Errorf("%w: no code issued for attempt %d", domain.ErrInvalidState, attempt.ID)
	}

	now := e.nowFn()
	if attempt.ExpiredAt(now) {
		if _, err := e.attempts.Resolve(ctx, attempt.ID, false, domain.FailureReasonOTPExpired, now); err != nil {
			return domain.Attempt{}, err
		}
		return domain.Attempt{}, fmt.Errorf("%w: start a new login check", domain.ErrExpired)
	}

	if err := e.hasher.Compare(attempt.OTPCodeHash, code); err != nil {
		updated, err := e.attempts.RecordOTPFailure(ctx, attempt.ID)
		if err != nil {
			return domain.Attempt{}, err
		}
		remaining := e.policy.MaxAttempts - updated.OTPFailures
		if remaining > 0 {
			return domain.Attempt{}, fmt.Errorf("%w: %d attempts remaining", domain.ErrCodeMismatch, remaining)
		}
		if _, err := e.attempts.Resolve(ctx, attempt.ID, false, domain.FailureReasonOTPExhausted, now); err != nil && !errors.Is(err, domain.ErrAlreadyResolved) {
			return domain.Attempt{}, err
		}
		return domain.Attempt{}, fmt.Errorf("%w: no attempts remaining", domain.ErrCodeMismatch)
	}

	return e.attempts.Resolve(ctx, attempt.ID, true, "", now)
}

// CompletePasswordless resolves a low-risk attempt without a further factor.
func (e *DecisionEngine) CompletePasswordless(ctx context.Context, attemptID int64) (domain.Attempt, error) {
	attempt, err := e.attempts.Get(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if attempt.AuthFlow != domain.AuthFlowPasswordless {
		return domain.Attempt{}, fmt.Errorf("%w: attempt %d uses %s flow", domain.ErrInvalidState, attempt.ID, attempt.AuthFlow)
	}
	if attempt.Resolved() {
		return domain.Attempt{}, fmt.Errorf("%w: %w", domain.ErrInvalidState, domain.ErrAlreadyResolved)
	}

	now := e.nowFn()
	if attempt.ExpiredAt(now) {
		if _, err := e.attempts.Resolve(ctx, attempt.ID, false, domain.FailureReasonPendingExpired, now); err != nil {
			return domain.Attempt{}, err
		}
		return domain.Attempt{}, fmt.Errorf("%w: start a new login check", domain.ErrExpired)
	}

	resolved, err := e.attempts.Resolve(ctx, attempt.ID, true, "", now)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyResolved) {
			return domain.Attempt{}, fmt.Errorf("%w: %w", domain.ErrInvalidState, err)
		}
		return domain.Attempt{}, err
	}
	return resolved, nil
}
