// Package cache provides the keyed get-or-compute store backing every read
// shape. One TTL applies across all resource kinds; per-endpoint cache logic
// lives here and nowhere else.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Source tags where a response payload came from.
type Source string

const (
	SourceCached Source = "cached"
	SourceLive   Source = "live"
)

// Entry is a stored payload plus the time it was computed. Staleness is
// always judged against CachedAt, never against backend expiry.
type Entry struct {
	Payload  json.RawMessage `json:"payload"`
	CachedAt time.Time       `json:"cachedAt"`
}

// Store is the minimal contract a cache backend has to satisfy: atomic
// per-key get and put of an opaque payload with a timestamp.
type Store interface {
	// Get returns the entry for key, or (nil, nil) when absent.
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, key string, payload json.RawMessage, cachedAt time.Time) error
}

// ComputeFunc produces the value for a key on a cache miss. The returned
// value is marshaled to JSON before storage.
type ComputeFunc func(ctx context.Context) (interface{}, error)

// Result is what GetOrCompute hands back: the payload, when it was computed,
// and whether it was served from cache.
type Result struct {
	Payload  json.RawMessage
	CachedAt time.Time
	Source   Source
}

// Cache wraps a Store with TTL staleness checks and in-flight coalescing of
// identical misses.
type Cache struct {
	store Store
	ttl   time.Duration
	group singleflight.Group
	log   zerolog.Logger
	now   func() time.Time
}

// New creates a Cache over the given store with a fixed TTL.
func New(store Store, ttl time.Duration, log zerolog.Logger) *Cache {
	return &Cache{
		store: store,
		ttl:   ttl,
		log:   log,
		now:   time.Now,
	}
}

// Key builds a cache key from a resource kind, the target user, and any
// query parameters that change the result shape.
func Key(resource string, targetUserID int64, params ...string) string {
	key := fmt.Sprintf("%s:%d", resource, targetUserID)
	if len(params) > 0 {
		key += ":" + strings.Join(params, ":")
	}
	return key
}

// GetOrCompute returns the cached entry for key when it is younger than the
// TTL, and otherwise runs compute, stores the result and returns it tagged
// live. Concurrent misses on the same key share a single compute call.
//
// A compute failure is propagated unchanged and never written to the store.
// A store failure degrades to computing live; cache availability must never
// decide whether a request succeeds.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute ComputeFunc) (*Result, error) {
	entry, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache read failed, computing live")
		entry = nil
	}

	if entry != nil && c.now().Sub(entry.CachedAt) < c.ttl {
		return &Result{
			Payload:  entry.Payload,
			CachedAt: entry.CachedAt,
			Source:   SourceCached,
		}, nil
	}

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}

		payload, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal cache payload: %w", err)
		}

		cachedAt := c.now()
		if err := c.store.Put(ctx, key, payload, cachedAt); err != nil {
			// The fresh value is still good; only the next request pays.
			c.log.Warn().Err(err).Str("key", key).Msg("Cache write failed, serving live result")
		}

		return &Result{
			Payload:  payload,
			CachedAt: cachedAt,
			Source:   SourceLive,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.log.Debug().Str("key", key).Msg("Cache miss coalesced with in-flight compute")
	}
	return v.(*Result), nil
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}
