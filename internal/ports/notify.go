package ports

import (
	"context"
	"time"
)

// OTPMessage is the side-channel delivery envelope for a challenge code.
type OTPMessage struct {
	Email     string
	Name      string
	Code      string
	AttemptID int64
	ExpiresAt time.Time
}

type OTPSender interface {
	SendOTP(ctx context.Context, msg OTPMessage) error
}
