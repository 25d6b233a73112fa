package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

const maxPhoneLength = 32

// Register runs the risk pipeline for a new identity. Low risk completes
// immediately with a session, medium risk leaves an OTP attempt pending,
// high risk is refused before any identity is created.
func (s *Service) Register(ctx context.Context, req RegisterRequest, rc RequestContext) (RegisterResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return RegisterResponse{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return RegisterResponse{}, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	phone := strings.TrimSpace(req.Phone)
	if len(phone) > maxPhoneLength {
		return RegisterResponse{}, fmt.Errorf("%w: phone is too long", domain.ErrInvalidInput)
	}
	if err := s.enforceRateLimit(ctx, "register:ip:"+rc.IPAddress, s.cfg.CheckRateLimit, s.cfg.CheckRateWindow); err != nil {
		return RegisterResponse{}, err
	}

	if _, err := s.identities.GetByEmail(ctx, email); err == nil {
		return RegisterResponse{}, fmt.Errorf("%w: identity already registered", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return RegisterResponse{}, err
	}

	now := s.nowFn()
	assessment, err := s.assessor.Assess(ctx, RiskInput{
		Email:      email,
		IPAddress:  rc.IPAddress,
		DeviceInfo: rc.DeviceInfo,
		At:         now,
	})
	if err != nil {
		return RegisterResponse{}, fmt.Errorf("assess risk: %w", err)
	}
	if s.engine.Decide(assessment) == domain.AuthFlowBlocked {
		_, _, err := s.openAttempt(ctx, nil, email, domain.AttemptKindRegistration, rc, assessment, now)
		return RegisterResponse{}, err
	}

	identity, err := s.identities.Create(ctx, ports.CreateIdentityParams{
		Email:     email,
		Name:      name,
		Phone:     phone,
		CreatedAt: now,
	})
	if err != nil {
		return RegisterResponse{}, err
	}

	// The identity only counts as registered once its attempt is open and,
	// for medium risk, the code has been delivered.
	pending, attempt, err := s.openAttempt(ctx, &identity, email, domain.AttemptKindRegistration, rc, assessment, now)
	if err != nil {
		s.discardIdentity(ctx, identity, err)
		return RegisterResponse{}, err
	}
	s.stats.Invalidate()
	s.enqueueEvent(ctx, eventTypeIdentityRegistered, email, map[string]any{
		"user_id": identity.UserID,
		"email":   email,
	})
	if pending.AuthFlow == domain.AuthFlowOTPVerification {
		return RegisterResponse{Pending: &pending}, nil
	}

	resolved, err := s.engine.CompletePasswordless(ctx, attempt.ID)
	if err != nil {
		return RegisterResponse{}, err
	}
	s.recordResolution(ctx, resolved, true, "")
	auth, err := s.issueSession(ctx, identity, resolved)
	if err != nil {
		return RegisterResponse{}, err
	}
	auth.RiskData = &pending.RiskData
	return RegisterResponse{Auth: &auth}, nil
}

// discardIdentity rolls back a registration whose attempt could not be opened,
// so the email can register again.
func (s *Service) discardIdentity(ctx context.Context, identity domain.Identity, cause error) {
	if err := s.identities.Delete(ctx, identity.UserID); err != nil {
		s.logger().ErrorContext(ctx, "failed to roll back registration",
			"operation", "register",
			"outcome", "failure",
			"user_id", identity.UserID,
			"cause", cause,
			"error", err,
		)
		return
	}
	s.stats.Invalidate()
	s.logger().WarnContext(ctx, "registration rolled back",
		"operation", "register",
		"outcome", "rolled_back",
		"user_id", identity.UserID,
		"error", cause,
	)
}
