package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

type IdentityRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]domain.Identity
	byEmail map[string]uuid.UUID
}

func NewIdentityRepository() *IdentityRepository {
	return &IdentityRepository{
		byID:    make(map[uuid.UUID]domain.Identity),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *IdentityRepository) Create(_ context.Context, params ports.CreateIdentityParams) (domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[params.Email]; exists {
		return domain.Identity{}, fmt.Errorf("%w: identity already registered", domain.ErrConflict)
	}
	identity := domain.Identity{
		UserID:    uuid.New(),
		Email:     params.Email,
		Name:      params.Name,
		Phone:     params.Phone,
		CreatedAt: params.CreatedAt,
	}
	r.byID[identity.UserID] = identity
	r.byEmail[identity.Email] = identity.UserID
	return identity, nil
}

func (r *IdentityRepository) GetByEmail(_ context.Context, email string) (domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return domain.Identity{}, fmt.Errorf("%w: identity %s", domain.ErrNotFound, email)
	}
	return r.byID[id], nil
}

func (r *IdentityRepository) GetByID(_ context.Context, userID uuid.UUID) (domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.byID[userID]
	if !ok {
		return domain.Identity{}, fmt.Errorf("%w: identity %s", domain.ErrNotFound, userID)
	}
	return identity, nil
}

func (r *IdentityRepository) SetBlocked(_ context.Context, userID uuid.UUID, blocked bool, at time.Time) (domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.byID[userID]
	if !ok {
		return domain.Identity{}, fmt.Errorf("%w: identity %s", domain.ErrNotFound, userID)
	}
	identity.IsBlocked = blocked
	identity.BlockedAt = nil
	if blocked {
		blockedAt := at
		identity.BlockedAt = &blockedAt
	}
	r.byID[userID] = identity
	return identity, nil
}

func (r *IdentityRepository) Delete(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.byID[userID]
	if !ok {
		return fmt.Errorf("%w: identity %s", domain.ErrNotFound, userID)
	}
	delete(r.byID, userID)
	delete(r.byEmail, identity.Email)
	return nil
}

func (r *IdentityRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

func (r *IdentityRepository) CountBlocked(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, identity := range r.byID {
		if identity.IsBlocked {
			n++
		}
	}
	return n, nil
}
