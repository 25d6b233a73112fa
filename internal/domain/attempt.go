package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuthFlow string

const (
	AuthFlowPasswordless    AuthFlow = "passwordless"
	AuthFlowOTPVerification AuthFlow = "otp_verification"
	AuthFlowBlocked         AuthFlow = "blocked"
)

// FlowForLevel is the fixed level to flow mapping.
func FlowForLevel(level RiskLevel) AuthFlow {
	switch level {
	case RiskLevelLow:
		return AuthFlowPasswordless
	case RiskLevelMedium:
		return AuthFlowOTPVerification
	default:
		return AuthFlowBlocked
	}
}

type AttemptKind string

const (
	AttemptKindLogin        AttemptKind = "login"
	AttemptKindRegistration AttemptKind = "registration"
)

type AttemptState string

const (
	AttemptStatePasswordlessPending AttemptState = "PASSWORDLESS_PENDING"
	AttemptStateOTPPending          AttemptState = "OTP_PENDING"
	AttemptStateBlocked             AttemptState = "BLOCKED"
	AttemptStateResolved            AttemptState = "RESOLVED"
)

// Failure reasons recorded when an attempt resolves to false.
const (
	FailureReasonHighRisk        = "HIGH_RISK"
	FailureReasonOTPExpired      = "OTP_EXPIRED"
	FailureReasonOTPExhausted    = "OTP_ATTEMPTS_EXHAUSTED"
	FailureReasonPendingExpired  = "PENDING_EXPIRED"
	FailureReasonSuperseded      = "SUPERSEDED"
	FailureReasonDeliveryFailure = "OTP_DELIVERY_FAILED"
)

// Attempt is one identity check tracked from creation to resolution.
// Success stays nil until the attempt resolves, and never changes afterwards.
type Attempt struct {
	ID            int64
	UserID        *uuid.UUID
	Email         string
	Kind          AttemptKind
	IPAddress     string
	DeviceInfo    string
	Location      Location
	RiskScore     float64
	RiskLevel     RiskLevel
	Factors       []string
	AuthFlow      AuthFlow
	Success       *bool
	FailureReason string
	OTPCodeHash   string
	OTPFailures   int
	ExpiresAt     *time.Time
	CreatedAt     time.Time
	ResolvedAt    *time.Time
}

func (a Attempt) Resolved() bool {
	return a.Success != nil
}

func (a Attempt) Succeeded() bool {
	return a.Success != nil && *a.Success
}

func (a Attempt) ExpiredAt(now time.Time) bool {
	return a.ExpiresAt != nil && !now.Before(*a.ExpiresAt)
}

func (a Attempt) State() AttemptState {
	if a.AuthFlow == AuthFlowBlocked {
		return AttemptStateBlocked
	}
	if a.Resolved() {
		return AttemptStateResolved
	}
	if a.AuthFlow == AuthFlowOTPVerification {
		return AttemptStateOTPPending
	}
	return AttemptStatePasswordlessPending
}
