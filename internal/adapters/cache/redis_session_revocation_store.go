package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "riskauth:revoked:"

// RedisSessionRevocationStore keeps one marker per revoked session until the
// token would have expired anyway.
type RedisSessionRevocationStore struct {
	client *redis.Client
	nowFn  func() time.Time
}

func NewRedisSessionRevocationStore(client *redis.Client) *RedisSessionRevocationStore {
	return &RedisSessionRevocationStore{client: client, nowFn: time.Now}
}

func (s *RedisSessionRevocationStore) MarkRevoked(ctx context.Context, sessionID uuid.UUID, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.nowFn())
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, revokedKeyPrefix+sessionID.String(), "1", ttl).Err()
}

func (s *RedisSessionRevocationStore) IsRevoked(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKeyPrefix+sessionID.String()).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
