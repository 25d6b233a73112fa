package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/Simran251393/fraud-detection-system/internal/domain"
)

const statsKey = "stats"

// StatsCache holds the latest stats snapshot in process for a short TTL.
type StatsCache struct {
	store *gocache.Cache
	ttl   time.Duration
}

func NewStatsCache(ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &StatsCache{store: gocache.New(ttl, time.Minute), ttl: ttl}
}

func (c *StatsCache) Get() (domain.Stats, bool) {
	raw, ok := c.store.Get(statsKey)
	if !ok {
		return domain.Stats{}, false
	}
	stats, ok := raw.(domain.Stats)
	if !ok {
		return domain.Stats{}, false
	}
	return copyStats(stats), true
}

func (c *StatsCache) Set(stats domain.Stats) {
	c.store.Set(statsKey, copyStats(stats), c.ttl)
}

func (c *StatsCache) Invalidate() {
	c.store.Delete(statsKey)
}

func copyStats(in domain.Stats) domain.Stats {
	out := in
	if in.RiskDistribution != nil {
		out.RiskDistribution = make(map[domain.RiskLevel]int64, len(in.RiskDistribution))
		for level, n := range in.RiskDistribution {
			out.RiskDistribution[level] = n
		}
	}
	return out
}
