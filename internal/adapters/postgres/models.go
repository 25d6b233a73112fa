package postgres

import (
	"time"

	"github.com/google/uuid"
)

type identityModel struct {
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string     `gorm:"column:email"`
	Name      string     `gorm:"column:name"`
	Phone     *string    `gorm:"column:phone"`
	IsBlocked bool       `gorm:"column:is_blocked"`
	BlockedAt *time.Time `gorm:"column:blocked_at"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
}

func (identityModel) TableName() string { return "identities" }

type attemptModel struct {
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement"`
	UserID        *uuid.UUID `gorm:"column:user_id;type:uuid"`
	Email         string     `gorm:"column:email"`
	Kind          string     `gorm:"column:kind"`
	IPAddress     *string    `gorm:"column:ip_address"`
	DeviceInfo    string     `gorm:"column:device_info"`
	Location      string     `gorm:"column:location"`
	RiskScore     float64    `gorm:"column:risk_score"`
	RiskLevel     string     `gorm:"column:risk_level"`
	RiskFactors   string     `gorm:"column:risk_factors;type:jsonb"`
	AuthFlow      string     `gorm:"column:auth_flow"`
	Success       *bool      `gorm:"column:success"`
	FailureReason *string    `gorm:"column:failure_reason"`
	OTPCodeHash   *string    `gorm:"column:otp_code_hash"`
	OTPFailures   int        `gorm:"column:otp_failures"`
	ExpiresAt     *time.Time `gorm:"column:expires_at"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	ResolvedAt    *time.Time `gorm:"column:resolved_at"`
}

func (attemptModel) TableName() string { return "login_attempts" }

type outboxModel struct {
	OutboxID       uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload;type:jsonb"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	FirstSeenAt    time.Time  `gorm:"column:first_seen_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
}

func (outboxModel) TableName() string { return "risk_auth_outbox" }

type schemaMigrationModel struct {
	Name      string    `gorm:"column:name;primaryKey"`
	AppliedAt time.Time `gorm:"column:applied_at"`
}

func (schemaMigrationModel) TableName() string { return "schema_migrations" }
