package ports

import (
	"time"

	"github.com/google/uuid"
)

// OTPHasher keeps OTP codes out of storage in plaintext.
type OTPHasher interface {
	Hash(code string) (string, error)
	Compare(hash, code string) error
}

// CodeGenerator produces fixed-length numeric codes.
type CodeGenerator interface {
	Generate(length int) (string, error)
}

type SessionClaims struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	SessionID uuid.UUID `json:"session_id"`
	AttemptID int64     `json:"attempt_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	KeyID     string    `json:"kid"`
}

type TokenSigner interface {
	Sign(claims SessionClaims) (string, error)
	ParseAndValidate(token string) (SessionClaims, error)
}
