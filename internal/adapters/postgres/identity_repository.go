package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

type identityRepository struct {
	db *gorm.DB
}

func (r *identityRepository) Create(ctx context.Context, params ports.CreateIdentityParams) (domain.Identity, error) {
	row := identityModel{
		UserID:    uuid.New(),
		Email:     params.Email,
		Name:      params.Name,
		Phone:     nullableString(params.Phone),
		CreatedAt: params.CreatedAt,
		UpdatedAt: params.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.Identity{}, fmt.Errorf("%w: identity already registered", domain.ErrConflict)
		}
		return domain.Identity{}, err
	}
	return toDomainIdentity(row), nil
}

func (r *identityRepository) GetByEmail(ctx context.Context, email string) (domain.Identity, error) {
	var row identityModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&row).Error; err != nil {
		if isNotFound(err) {
			return domain.Identity{}, fmt.Errorf("%w: identity %s", domain.ErrNotFound, email)
		}
		return domain.Identity{}, err
	}
	return toDomainIdentity(row), nil
}

func (r *identityRepository) GetByID(ctx context.Context, userID uuid.UUID) (domain.Identity, error) {
	var row identityModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error; err != nil {
		if isNotFound(err) {
			return domain.Identity{}, fmt.Errorf("%w: identity %s", domain.ErrNotFound, userID)
		}
		return domain.Identity{}, err
	}
	return toDomainIdentity(row), nil
}

func (r *identityRepository) SetBlocked(ctx context.Context, userID uuid.UUID, blocked bool, at time.Time) (domain.Identity, error) {
	var blockedAt *time.Time
	if blocked {
		blockedAt = &at
	}
	var rows []identityModel
	err := r.db.WithContext(ctx).
		Model(&rows).
		Clauses(clause.Returning{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"is_blocked": blocked,
			"blocked_at": blockedAt,
			"updated_at": at,
		}).Error
	if err != nil {
		return domain.Identity{}, err
	}
	if len(rows) == 0 {
		return domain.Identity{}, fmt.Errorf("%w: identity %s", domain.ErrNotFound, userID)
	}
	return toDomainIdentity(rows[0]), nil
}

// Delete relies on login_attempts.user_id being ON DELETE SET NULL.
func (r *identityRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&identityModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: identity %s", domain.ErrNotFound, userID)
	}
	return nil
}

func (r *identityRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&identityModel{}).Count(&n).Error
	return n, err
}

func (r *identityRepository) CountBlocked(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&identityModel{}).Where("is_blocked").Count(&n).Error
	return n, err
}
