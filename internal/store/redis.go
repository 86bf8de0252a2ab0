package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chaosclash/internal/ports"
)

// RedisStore keeps snapshots in Redis with a TTL so abandoned matches expire.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore wraps rdb. A zero ttl keeps snapshots forever.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func snapshotKey(matchID string) string {
	return "chaosclash:snapshot:" + matchID
}

func (s *RedisStore) SaveSnapshot(ctx context.Context, matchID string, snapshot []byte) error {
	if err := s.rdb.Set(ctx, snapshotKey(matchID), snapshot, s.ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot %s: %w", matchID, err)
	}
	return nil
}

func (s *RedisStore) LoadSnapshot(ctx context.Context, matchID string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, snapshotKey(matchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ports.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", matchID, err)
	}
	return data, nil
}

// Ping checks connectivity, used by the health endpoint.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

var _ ports.SnapshotStore = (*RedisStore)(nil)
