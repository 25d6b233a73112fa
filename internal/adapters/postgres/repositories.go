package postgres

import (
	"gorm.io/gorm"

	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

// Repositories groups the gorm-backed stores sharing one pool.
type Repositories struct {
	Identities ports.IdentityRepository
	Attempts   ports.AttemptRepository
	Outbox     ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Identities: &identityRepository{db: db},
		Attempts:   &attemptRepository{db: db},
		Outbox:     &outboxRepository{db: db},
	}
}
