package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
)

type Config struct {
	Thresholds          domain.RiskThresholds
	OTPLength           int
	OTPTTL              time.Duration
	OTPMaxAttempts      int
	PendingTTL          time.Duration
	TokenTTL            time.Duration
	ExposeOTP           bool
	BlockThreshold      int
	BlockWindow         time.Duration
	CheckRateLimit      int
	CheckRateWindow     time.Duration
	AttemptsListLimit   int
	RecentAttemptsLimit int
}

// RequestContext carries the signals extracted from the transport.
type RequestContext struct {
	IPAddress  string
	DeviceInfo string
}

type CheckLoginRequest struct {
	Email string `json:"email"`
}

type PasswordlessRequest struct {
	Email     string `json:"email"`
	AttemptID int64  `json:"attempt_id"`
}

type VerifyOTPRequest struct {
	Email     string `json:"email"`
	OTPCode   string `json:"otp_code"`
	AttemptID int64  `json:"attempt_id"`
}

type RegisterRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type RiskData struct {
	RiskScore float64          `json:"risk_score"`
	RiskLevel domain.RiskLevel `json:"risk_level"`
	Factors   []string         `json:"factors"`
	Location  domain.Location  `json:"location"`
}

type UserView struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	IsBlocked bool      `json:"is_blocked"`
	CreatedAt time.Time `json:"created_at"`
}

// CheckLoginResponse is the decision handed back to the client.
// OTPCode is only populated when the service runs with ExposeOTP.
type CheckLoginResponse struct {
	AuthFlow     domain.AuthFlow `json:"auth_flow"`
	RiskData     RiskData        `json:"risk_data"`
	AttemptID    int64           `json:"attempt_id"`
	Message      string          `json:"message,omitempty"`
	OTPCode      string          `json:"otp_code,omitempty"`
	OTPExpiresAt *time.Time      `json:"otp_expires_at,omitempty"`
}

type AuthResponse struct {
	User      UserView  `json:"user"`
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expires_in"`
	RiskData  *RiskData `json:"risk_data,omitempty"`
}

// RegisterResponse is either a completed session (Auth set) or a pending
// OTP challenge (Pending set) for medium-risk registrations.
type RegisterResponse struct {
	Auth    *AuthResponse
	Pending *CheckLoginResponse
}

type AttemptView struct {
	ID            int64            `json:"id"`
	UserID        *uuid.UUID       `json:"user_id"`
	Email         string           `json:"email"`
	Kind          string           `json:"kind"`
	IPAddress     string           `json:"ip_address"`
	DeviceInfo    string           `json:"device_info"`
	Location      string           `json:"location"`
	RiskScore     float64          `json:"risk_score"`
	RiskLevel     domain.RiskLevel `json:"risk_level"`
	Factors       []string         `json:"factors"`
	AuthFlow      domain.AuthFlow  `json:"auth_flow"`
	Success       *bool            `json:"success"`
	FailureReason string           `json:"failure_reason,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
	ResolvedAt    *time.Time       `json:"resolved_at,omitempty"`
}

type StatsView struct {
	TotalUsers       int64                      `json:"total_users"`
	TotalAttempts    int64                      `json:"total_attempts"`
	BlockedUsers     int64                      `json:"blocked_users"`
	BlockedAttempts  int64                      `json:"blocked_attempts"`
	RiskDistribution map[domain.RiskLevel]int64 `json:"risk_distribution"`
	RecentAttempts   []AttemptView              `json:"recent_attempts"`
}

// BlockedError is returned when a check is routed to the blocked flow.
// It unwraps to domain.ErrBlocked and keeps the assessment for the response.
type BlockedError struct {
	AttemptID int64
	RiskData  RiskData
}

func (e *BlockedError) Error() string {
	return "authentication blocked due to high risk"
}

func (e *BlockedError) Unwrap() error {
	return domain.ErrBlocked
}
