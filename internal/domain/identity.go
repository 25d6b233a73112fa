package domain

import (
	"time"

	"github.com/google/uuid"
)

// Identity is a registered account keyed by email.
// Everything except the blocked flag is fixed at registration.
type Identity struct {
	UserID    uuid.UUID
	Email     string
	Name      string
	Phone     string
	IsBlocked bool
	BlockedAt *time.Time
	CreatedAt time.Time
}
