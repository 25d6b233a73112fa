package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

const policyKeyPrefix = "riskauth:policy:"

// RedisLockoutStore keeps policy counters in Redis hashes. The window starts
// at the first counted event and ends with the key TTL.
type RedisLockoutStore struct {
	client *redis.Client
}

func NewRedisLockoutStore(client *redis.Client) *RedisLockoutStore {
	return &RedisLockoutStore{client: client}
}

func (s *RedisLockoutStore) Get(ctx context.Context, key string) (ports.LockoutState, error) {
	data, err := s.client.HGetAll(ctx, policyKeyPrefix+key).Result()
	if err != nil {
		return ports.LockoutState{}, err
	}
	return decodeLockoutState(data), nil
}

func (s *RedisLockoutStore) RecordFailure(ctx context.Context, key string, now time.Time, threshold int, window time.Duration) (ports.LockoutState, error) {
	redisKey := policyKeyPrefix + key

	count, err := s.client.HIncrBy(ctx, redisKey, "count", 1).Result()
	if err != nil {
		return ports.LockoutState{}, err
	}
	if count == 1 {
		if err := s.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return ports.LockoutState{}, err
		}
	}

	state := ports.LockoutState{FailedCount: int(count)}
	if int(count) < threshold {
		return state, nil
	}

	lockedUntil := now.Add(window).UTC()
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, redisKey, "locked_until", lockedUntil.Unix())
		p.Expire(ctx, redisKey, window)
		return nil
	})
	if err != nil {
		return ports.LockoutState{}, err
	}
	state.LockedUntil = &lockedUntil
	return state, nil
}

func (s *RedisLockoutStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, policyKeyPrefix+key).Err()
}

func decodeLockoutState(data map[string]string) ports.LockoutState {
	state := ports.LockoutState{}
	if raw, ok := data["count"]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			state.FailedCount = n
		}
	}
	if raw, ok := data["locked_until"]; ok && raw != "" {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil && unix > 0 {
			t := time.Unix(unix, 0).UTC()
			state.LockedUntil = &t
		}
	}
	return state
}
