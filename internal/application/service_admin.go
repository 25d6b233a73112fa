package application

import (
	"context"
	"fmt"
)

const maxAttemptsListLimit = 500

func (s *Service) Stats(ctx context.Context) (StatsView, error) {
	stats, err := s.stats.ComputeStats(ctx)
	if err != nil {
		return StatsView{}, err
	}
	recent, err := s.ListAttempts(ctx, s.cfg.RecentAttemptsLimit)
	if err != nil {
		return StatsView{}, err
	}
	return StatsView{
		TotalUsers:       stats.TotalUsers,
		TotalAttempts:    stats.TotalAttempts,
		BlockedUsers:     stats.BlockedUsers,
		BlockedAttempts:  stats.BlockedAttempts,
		RiskDistribution: stats.RiskDistribution,
		RecentAttempts:   recent,
	}, nil
}

// ListAttempts returns the newest attempts first. A non-positive limit uses
// the configured default.
func (s *Service) ListAttempts(ctx context.Context, limit int) ([]AttemptView, error) {
	if limit <= 0 {
		limit = s.cfg.AttemptsListLimit
	}
	if limit > maxAttemptsListLimit {
		limit = maxAttemptsListLimit
	}
	attempts, err := s.attempts.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	views := make([]AttemptView, 0, len(attempts))
	for _, a := range attempts {
		views = append(views, toAttemptView(a))
	}
	return views, nil
}

// UnblockIdentity clears the policy flag and its counter.
func (s *Service) UnblockIdentity(ctx context.Context, rawEmail string) (UserView, error) {
	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return UserView{}, err
	}
	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		return UserView{}, err
	}
	if !identity.IsBlocked {
		return toUserView(identity), nil
	}
	updated, err := s.identities.SetBlocked(ctx, identity.UserID, false, s.nowFn())
	if err != nil {
		return UserView{}, err
	}
	if s.lockouts != nil {
		if err := s.lockouts.Clear(ctx, "block:"+email); err != nil {
			s.logger().WarnContext(ctx, "failed to clear block counter",
				"operation", "unblock_identity",
				"outcome", "failure",
				"error", err,
			)
		}
	}
	s.stats.Invalidate()
	s.enqueueEvent(ctx, eventTypeIdentityUnblocked, email, map[string]any{
		"user_id": updated.UserID,
		"email":   email,
	})
	return toUserView(updated), nil
}
