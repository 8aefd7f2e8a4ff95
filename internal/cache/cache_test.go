package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(store Store, ttl time.Duration) (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)}
	c := New(store, ttl, zerolog.Nop())
	c.now = clock.Now
	return c, clock
}

func computeValue(v string) ComputeFunc {
	return func(ctx context.Context) (interface{}, error) {
		return map[string]string{"value": v}, nil
	}
}

func TestGetOrCompute_MissThenHit(t *testing.T) {
	c, clock := newTestCache(NewMemoryStore(), 60*time.Second)
	ctx := context.Background()

	first, err := c.GetOrCompute(ctx, "grades:1", computeValue("a"))
	require.NoError(t, err)
	assert.Equal(t, SourceLive, first.Source)

	clock.Advance(30 * time.Second)

	second, err := c.GetOrCompute(ctx, "grades:1", computeValue("b"))
	require.NoError(t, err)
	assert.Equal(t, SourceCached, second.Source)
	assert.Equal(t, first.CachedAt, second.CachedAt, "hit must keep the original cachedAt")
	assert.JSONEq(t, string(first.Payload), string(second.Payload))
}

func TestGetOrCompute_ExpiresAfterTTL(t *testing.T) {
	c, clock := newTestCache(NewMemoryStore(), 60*time.Second)
	ctx := context.Background()

	first, err := c.GetOrCompute(ctx, "grades:1", computeValue("a"))
	require.NoError(t, err)

	clock.Advance(61 * time.Second)

	second, err := c.GetOrCompute(ctx, "grades:1", computeValue("b"))
	require.NoError(t, err)
	assert.Equal(t, SourceLive, second.Source)
	assert.True(t, second.CachedAt.After(first.CachedAt))
	assert.JSONEq(t, `{"value":"b"}`, string(second.Payload))
}

func TestGetOrCompute_FailedComputeLeavesNoEntry(t *testing.T) {
	store := NewMemoryStore()
	c, _ := newTestCache(store, 60*time.Second)
	ctx := context.Background()

	boom := errors.New("upstream exploded")
	_, err := c.GetOrCompute(ctx, "grades:1", func(ctx context.Context) (interface{}, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom, "compute error must propagate unchanged")
	assert.Equal(t, 0, store.Len(), "failed compute must not be cached")

	// The next call still misses and can succeed.
	result, err := c.GetOrCompute(ctx, "grades:1", computeValue("ok"))
	require.NoError(t, err)
	assert.Equal(t, SourceLive, result.Source)
}

type brokenStore struct{}

func (brokenStore) Get(ctx context.Context, key string) (*Entry, error) {
	return nil, errors.New("store down")
}

func (brokenStore) Put(ctx context.Context, key string, payload json.RawMessage, cachedAt time.Time) error {
	return errors.New("store down")
}

func TestGetOrCompute_DegradesWhenStoreUnavailable(t *testing.T) {
	c, _ := newTestCache(brokenStore{}, 60*time.Second)
	ctx := context.Background()

	result, err := c.GetOrCompute(ctx, "grades:1", computeValue("a"))
	require.NoError(t, err, "store failure must not fail the request")
	assert.Equal(t, SourceLive, result.Source)
	assert.JSONEq(t, `{"value":"a"}`, string(result.Payload))
}

func TestGetOrCompute_CoalescesConcurrentMisses(t *testing.T) {
	c, _ := newTestCache(NewMemoryStore(), 60*time.Second)
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	compute := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return map[string]string{"value": "shared"}, nil
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]*Result, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := c.GetOrCompute(ctx, "grades:1", compute)
			require.NoError(t, err)
			results[i] = r
		}(i)
	}

	// Give the goroutines a moment to pile up on the same key.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "concurrent misses must share one compute")
	for _, r := range results {
		assert.JSONEq(t, `{"value":"shared"}`, string(r.Payload))
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "grades:42", Key("grades", 42))
	assert.Equal(t, "assignments:42:7", Key("assignments", 42, "7"))
	assert.Equal(t, "upcoming:42:7:x", Key("upcoming", 42, "7", "x"))
}

func TestMemoryStore_CopiesPayload(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	payload := json.RawMessage(`{"a":1}`)
	require.NoError(t, store.Put(ctx, "k", payload, time.Now()))
	payload[2] = 'z'

	entry, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.JSONEq(t, `{"a":1}`, string(entry.Payload))
}
