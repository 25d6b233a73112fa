package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

// attemptRepository relies on the partial unique index
// login_attempts_one_active_per_email (email WHERE success IS NULL) for the
// single-active-attempt guard, and on conditional updates for every
// transition out of the unresolved state.
type attemptRepository struct {
	db *gorm.DB
}

func (r *attemptRepository) Create(ctx context.Context, params ports.CreateAttemptParams) (domain.Attempt, *domain.Attempt, error) {
	row := attemptModel{
		UserID:      params.UserID,
		Email:       params.Email,
		Kind:        string(params.Kind),
		IPAddress:   nullableString(params.IPAddress),
		DeviceInfo:  params.DeviceInfo,
		Location:    encodeLocation(params.Assessment.Location),
		RiskScore:   params.Assessment.Score,
		RiskLevel:   string(params.Assessment.Level),
		RiskFactors: encodeFactors(params.Assessment.Factors),
		AuthFlow:    string(params.AuthFlow),
		ExpiresAt:   params.ExpiresAt,
		CreatedAt:   params.CreatedAt,
	}

	var superseded []attemptModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&superseded).
			Clauses(clause.Returning{}).
			Where("email = ?", params.Email).
			Where("success IS NULL").
			Where("expires_at IS NOT NULL AND expires_at <= ?", params.CreatedAt).
			Updates(resolvedColumns(false, domain.FailureReasonSuperseded, params.CreatedAt)).Error; err != nil {
			return err
		}

		// Blocked attempts are inserted unresolved first so the unique index
		// still rejects them while another attempt is pending.
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateActiveAttempt, params.Email)
			}
			return err
		}
		if !params.ResolvedFalse {
			return nil
		}
		return tx.Model(&row).
			Clauses(clause.Returning{}).
			Updates(resolvedColumns(false, params.FailureReason, params.CreatedAt)).Error
	})
	if err != nil {
		return domain.Attempt{}, nil, err
	}
	if len(superseded) == 0 {
		return toDomainAttempt(row), nil, nil
	}
	previous := toDomainAttempt(superseded[0])
	return toDomainAttempt(row), &previous, nil
}

func (r *attemptRepository) Resolve(ctx context.Context, attemptID int64, success bool, reason string, at time.Time) (domain.Attempt, error) {
	return r.updatePending(ctx, attemptID, resolvedColumns(success, reason, at))
}

func (r *attemptRepository) AttachOTP(ctx context.Context, attemptID int64, codeHash string, expiresAt time.Time) (domain.Attempt, error) {
	return r.updatePending(ctx, attemptID, map[string]any{
		"otp_code_hash": codeHash,
		"otp_failures":  0,
		"expires_at":    expiresAt,
	})
}

func (r *attemptRepository) RecordOTPFailure(ctx context.Context, attemptID int64) (domain.Attempt, error) {
	return r.updatePending(ctx, attemptID, map[string]any{
		"otp_failures": gorm.Expr("otp_failures + 1"),
	})
}

func (r *attemptRepository) Get(ctx context.Context, attemptID int64) (domain.Attempt, error) {
	var row attemptModel
	if err := r.db.WithContext(ctx).Where("id = ?", attemptID).First(&row).Error; err != nil {
		if isNotFound(err) {
			return domain.Attempt{}, fmt.Errorf("%w: attempt %d", domain.ErrNotFound, attemptID)
		}
		return domain.Attempt{}, err
	}
	return toDomainAttempt(row), nil
}

func (r *attemptRepository) ListRecent(ctx context.Context, limit int) ([]domain.Attempt, error) {
	var rows []attemptModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Attempt, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainAttempt(row))
	}
	return out, nil
}

func (r *attemptRepository) CountAll(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&attemptModel{}).Count(&n).Error
	return n, err
}

func (r *attemptRepository) CountBlocked(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&attemptModel{}).
		Where("auth_flow = ?", string(domain.AuthFlowBlocked)).
		Count(&n).Error
	return n, err
}

func (r *attemptRepository) CountByRiskLevel(ctx context.Context) (map[domain.RiskLevel]int64, error) {
	var rows []struct {
		RiskLevel string
		Total     int64
	}
	if err := r.db.WithContext(ctx).Model(&attemptModel{}).
		Select("risk_level, count(*) AS total").
		Group("risk_level").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[domain.RiskLevel]int64, len(rows))
	for _, row := range rows {
		out[domain.RiskLevel(row.RiskLevel)] = row.Total
	}
	return out, nil
}

func (r *attemptRepository) CountSince(ctx context.Context, email string, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&attemptModel{}).
		Where("email = ? AND created_at > ?", email, since).
		Count(&n).Error
	return n, err
}

func (r *attemptRepository) CountFailedSince(ctx context.Context, email string, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&attemptModel{}).
		Where("email = ? AND success = FALSE AND created_at > ?", email, since).
		Count(&n).Error
	return n, err
}

func (r *attemptRepository) SuccessfulDevices(ctx context.Context, email string) ([]string, error) {
	var devices []string
	err := r.db.WithContext(ctx).Model(&attemptModel{}).
		Distinct("device_info").
		Where("email = ? AND success = TRUE", email).
		Pluck("device_info", &devices).Error
	return devices, err
}

func (r *attemptRepository) LastSuccessful(ctx context.Context, email string) (*domain.Attempt, error) {
	var rows []attemptModel
	if err := r.db.WithContext(ctx).
		Where("email = ? AND success = TRUE", email).
		Order("created_at DESC").
		Order("id DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	attempt := toDomainAttempt(rows[0])
	return &attempt, nil
}

// updatePending applies a single conditional UPDATE ... WHERE success IS NULL.
// Zero affected rows means the attempt is unknown or already resolved.
func (r *attemptRepository) updatePending(ctx context.Context, attemptID int64, columns map[string]any) (domain.Attempt, error) {
	var rows []attemptModel
	if err := r.db.WithContext(ctx).
		Model(&rows).
		Clauses(clause.Returning{}).
		Where("id = ? AND success IS NULL", attemptID).
		Updates(columns).Error; err != nil {
		return domain.Attempt{}, err
	}
	if len(rows) == 0 {
		if _, err := r.Get(ctx, attemptID); err != nil {
			return domain.Attempt{}, err
		}
		return domain.Attempt{}, domain.ErrAlreadyResolved
	}
	return toDomainAttempt(rows[0]), nil
}

func resolvedColumns(success bool, reason string, at time.Time) map[string]any {
	columns := map[string]any{
		"success":       success,
		"resolved_at":   at,
		"otp_code_hash": nil,
	}
	if !success {
		columns["failure_reason"] = nullableString(reason)
	}
	return columns
}
