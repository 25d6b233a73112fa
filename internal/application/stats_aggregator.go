package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

// StatsAggregator derives rollups from the attempt log and identity registry.
// Nothing it returns is stored; the optional cache only holds a snapshot
// for a short TTL and is invalidated by writers. A snapshot computed across
// an invalidation is returned but never cached.
type StatsAggregator struct {
	identities ports.IdentityRepository
	attempts   ports.AttemptRepository
	cache      ports.StatsCache

	mu         sync.Mutex
	generation uint64
}

func NewStatsAggregator(identities ports.IdentityRepository, attempts ports.AttemptRepository, cache ports.StatsCache) *StatsAggregator {
	return &StatsAggregator{identities: identities, attempts: attempts, cache: cache}
}

func (a *StatsAggregator) ComputeStats(ctx context.Context) (domain.Stats, error) {
	if a.cache != nil {
		if cached, ok := a.cache.Get(); ok {
			return cached, nil
		}
	}
	generation := a.currentGeneration()

	users, err := a.identities.Count(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("count identities: %w", err)
	}
	blockedUsers, err := a.identities.CountBlocked(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("count blocked identities: %w", err)
	}
	total, err := a.attempts.CountAll(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("count attempts: %w", err)
	}
	blockedAttempts, err := a.attempts.CountBlocked(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("count blocked attempts: %w", err)
	}
	byLevel, err := a.attempts.CountByRiskLevel(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("count attempts by risk level: %w", err)
	}

	distribution := make(map[domain.RiskLevel]int64, len(domain.RiskLevels))
	for _, level := range domain.RiskLevels {
		distribution[level] = byLevel[level]
	}
	stats := domain.Stats{
		TotalUsers:       users,
		TotalAttempts:    total,
		BlockedUsers:     blockedUsers,
		BlockedAttempts:  blockedAttempts,
		RiskDistribution: distribution,
	}
	a.store(generation, stats)
	return stats, nil
}

// Invalidate drops any cached snapshot after a write.
func (a *StatsAggregator) Invalidate() {
	if a.cache == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.generation++
	a.cache.Invalidate()
}

func (a *StatsAggregator) currentGeneration() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.generation
}

func (a *StatsAggregator) store(generation uint64, stats domain.Stats) {
	if a.cache == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.generation == generation {
		a.cache.Set(stats)
	}
}
