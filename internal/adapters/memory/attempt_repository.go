package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

// AttemptRepository is an in-process attempt log. The active index maps an
// email to its single unresolved attempt; it is read and written inside the
// same critical section as the log, which makes check-and-create atomic.
type AttemptRepository struct {
	mu       sync.RWMutex
	attempts []domain.Attempt
	active   map[string]int64
}

func NewAttemptRepository() *AttemptRepository {
	return &AttemptRepository{active: make(map[string]int64)}
}

func (r *AttemptRepository) Create(_ context.Context, params ports.CreateAttemptParams) (domain.Attempt, *domain.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var superseded *domain.Attempt
	if id, ok := r.active[params.Email]; ok {
		current := &r.attempts[id-1]
		if !current.ExpiredAt(params.CreatedAt) {
			return domain.Attempt{}, nil, fmt.Errorf("%w: attempt %d is pending", domain.ErrDuplicateActiveAttempt, id)
		}
		r.resolveLocked(current, false, domain.FailureReasonSuperseded, params.CreatedAt)
		previous := clone(*current)
		superseded = &previous
	}

	attempt := domain.Attempt{
		ID:         int64(len(r.attempts) + 1),
		UserID:     params.UserID,
		Email:      params.Email,
		Kind:       params.Kind,
		IPAddress:  params.IPAddress,
		DeviceInfo: params.DeviceInfo,
		Location:   params.Assessment.Location,
		RiskScore:  params.Assessment.Score,
		RiskLevel:  params.Assessment.Level,
		Factors:    slices.Clone(params.Assessment.Factors),
		AuthFlow:   params.AuthFlow,
		CreatedAt:  params.CreatedAt,
	}
	if params.ExpiresAt != nil {
		expiresAt := *params.ExpiresAt
		attempt.ExpiresAt = &expiresAt
	}
	if params.ResolvedFalse {
		r.resolveLocked(&attempt, false, params.FailureReason, params.CreatedAt)
	} else {
		r.active[params.Email] = attempt.ID
	}
	r.attempts = append(r.attempts, attempt)
	return clone(attempt), superseded, nil
}

func (r *AttemptRepository) Resolve(_ context.Context, attemptID int64, success bool, reason string, at time.Time) (domain.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	attempt, err := r.pendingLocked(attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	r.resolveLocked(attempt, success, reason, at)
	return clone(*attempt), nil
}

func (r *AttemptRepository) Get(_ context.Context, attemptID int64) (domain.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if attemptID <= 0 || attemptID > int64(len(r.attempts)) {
		return domain.Attempt{}, fmt.Errorf("%w: attempt %d", domain.ErrNotFound, attemptID)
	}
	return clone(r.attempts[attemptID-1]), nil
}

func (r *AttemptRepository) AttachOTP(_ context.Context, attemptID int64, codeHash string, expiresAt time.Time) (domain.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	attempt, err := r.pendingLocked(attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	attempt.OTPCodeHash = codeHash
	attempt.OTPFailures = 0
	attempt.ExpiresAt = &expiresAt
	return clone(*attempt), nil
}

func (r *AttemptRepository) RecordOTPFailure(_ context.Context, attemptID int64) (domain.Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	attempt, err := r.pendingLocked(attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	attempt.OTPFailures++
	return clone(*attempt), nil
}

func (r *AttemptRepository) ListRecent(_ context.Context, limit int) ([]domain.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Attempt, 0, min(limit, len(r.attempts)))
	for i := len(r.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, clone(r.attempts[i]))
	}
	return out, nil
}

func (r *AttemptRepository) CountAll(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.attempts)), nil
}

func (r *AttemptRepository) CountBlocked(_ context.Context) (int64, error) {
	return r.count(func(a domain.Attempt) bool { return a.AuthFlow == domain.AuthFlowBlocked }), nil
}

func (r *AttemptRepository) CountByRiskLevel(_ context.Context) (map[domain.RiskLevel]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[domain.RiskLevel]int64, len(domain.RiskLevels))
	for _, a := range r.attempts {
		out[a.RiskLevel]++
	}
	return out, nil
}

func (r *AttemptRepository) CountSince(_ context.Context, email string, since time.Time) (int64, error) {
	return r.count(func(a domain.Attempt) bool {
		return a.Email == email && a.CreatedAt.After(since)
	}), nil
}

func (r *AttemptRepository) CountFailedSince(_ context.Context, email string, since time.Time) (int64, error) {
	return r.count(func(a domain.Attempt) bool {
		return a.Email == email && a.Resolved() && !a.Succeeded() && a.CreatedAt.After(since)
	}), nil
}

func (r *AttemptRepository) SuccessfulDevices(_ context.Context, email string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var devices []string
	for _, a := range r.attempts {
		if a.Email == email && a.Succeeded() && !slices.Contains(devices, a.DeviceInfo) {
			devices = append(devices, a.DeviceInfo)
		}
	}
	return devices, nil
}

func (r *AttemptRepository) LastSuccessful(_ context.Context, email string) (*domain.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var last *domain.Attempt
	for i := range r.attempts {
		a := r.attempts[i]
		if a.Email != email || !a.Succeeded() {
			continue
		}
		if last == nil || !a.CreatedAt.Before(last.CreatedAt) {
			c := clone(a)
			last = &c
		}
	}
	return last, nil
}

func (r *AttemptRepository) count(match func(domain.Attempt) bool) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, a := range r.attempts {
		if match(a) {
			n++
		}
	}
	return n
}

func (r *AttemptRepository) pendingLocked(attemptID int64) (*domain.Attempt, error) {
	if attemptID <= 0 || attemptID > int64(len(r.attempts)) {
		return nil, fmt.Errorf("%w: attempt %d", domain.ErrNotFound, attemptID)
	}
	attempt := &r.attempts[attemptID-1]
	if attempt.Resolved() {
		return nil, domain.ErrAlreadyResolved
	}
	return attempt, nil
}

func (r *AttemptRepository) resolveLocked(attempt *domain.Attempt, success bool, reason string, at time.Time) {
	resolvedAt := at
	attempt.Success = &success
	attempt.ResolvedAt = &resolvedAt
	attempt.OTPCodeHash = ""
	if !success {
		attempt.FailureReason = reason
	}
	if r.active[attempt.Email] == attempt.ID {
		delete(r.active, attempt.Email)
	}
}

func clone(a domain.Attempt) domain.Attempt {
	out := a
	out.Factors = slices.Clone(a.Factors)
	if a.UserID != nil {
		id := *a.UserID
		out.UserID = &id
	}
	if a.Success != nil {
		v := *a.Success
		out.Success = &v
	}
	if a.ExpiresAt != nil {
		t := *a.ExpiresAt
		out.ExpiresAt = &t
	}
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		out.ResolvedAt = &t
	}
	return out
}
