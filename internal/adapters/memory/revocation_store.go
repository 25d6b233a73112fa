package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type RevocationStore struct {
	mu      sync.Mutex
	revoked map[uuid.UUID]time.Time
}

func NewRevocationStore() *RevocationStore {
	return &RevocationStore{revoked: make(map[uuid.UUID]time.Time)}
}

func (s *RevocationStore) MarkRevoked(_ context.Context, sessionID uuid.UUID, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[sessionID] = expiresAt
	return nil
}

func (s *RevocationStore) IsRevoked(_ context.Context, sessionID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.revoked[sessionID]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiresAt) {
		delete(s.revoked, sessionID)
		return false, nil
	}
	return true, nil
}
