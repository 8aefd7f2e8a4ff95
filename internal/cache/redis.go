package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/config"
)

// RedisStore is the shared cache backend. Entries carry their own CachedAt;
// the redis key expiry is only housekeeping, set well past the TTL so a
// stale-but-present entry is still observable as stale rather than absent.
type RedisStore struct {
	client  *redis.Client
	keepFor time.Duration
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(cfg *config.Config) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisStore{
		client:  rdb,
		keepFor: 10 * cfg.CacheTTL(),
	}, nil
}

// Get returns the entry for key, or (nil, nil) when absent.
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("redis entry %q is corrupt: %w", key, err)
	}
	return &entry, nil
}

// Put stores payload under key.
func (s *RedisStore) Put(ctx context.Context, key string, payload json.RawMessage, cachedAt time.Time) error {
	raw, err := json.Marshal(Entry{Payload: payload, CachedAt: cachedAt})
	if err != nil {
		return fmt.Errorf("failed to marshal redis entry: %w", err)
	}

	if err := s.client.Set(ctx, key, raw, s.keepFor).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Close releases the redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
