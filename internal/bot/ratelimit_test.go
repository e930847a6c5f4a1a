package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeRedis is an in-memory RedisClient without TTL enforcement beyond
// recording what was set.
type fakeRedis struct {
	mu      sync.Mutex
	counts  map[string]int64
	values  map[string]string
	ttls    map[string]time.Duration
	failure error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		counts: map[string]int64{},
		values: map[string]string{},
		ttls:   map[string]time.Duration{},
	}
}

func (f *fakeRedis) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failure != nil {
		return 0, f.failure
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeRedis) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeRedis) Set(_ context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failure != nil {
		return f.failure
	}
	f.values[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failure != nil {
		return "", f.failure
	}
	value, ok := f.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (f *fakeRedis) Del(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

func TestUserLimiterEnforcesWindowBudget(t *testing.T) {
	redis := newFakeRedis()
	limiter := NewUserLimiter(redis, 2, time.Minute)

	now := time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC)
	limiter.SetClock(func() time.Time { return now })

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, 42)
		require.NoError(t, err)
		require.True(t, allowed)
	}

	allowed, err := limiter.Allow(ctx, 42)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestUserLimiterWindowsAreIndependent(t *testing.T) {
	redis := newFakeRedis()
	limiter := NewUserLimiter(redis, 1, time.Minute)

	now := time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC)
	limiter.SetClock(func() time.Time { return now })

	ctx := context.Background()
	allowed, err := limiter.Allow(ctx, 42)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, 42)
	require.NoError(t, err)
	require.False(t, allowed)

	// next window admits again
	now = now.Add(time.Minute)
	allowed, err = limiter.Allow(ctx, 42)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestUserLimiterIsolatesUsers(t *testing.T) {
	redis := newFakeRedis()
	limiter := NewUserLimiter(redis, 1, time.Minute)

	ctx := context.Background()
	allowed, err := limiter.Allow(ctx, 1)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, 2)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestUserLimiterDeniesOnRedisFailure(t *testing.T) {
	redis := newFakeRedis()
	redis.failure = errors.New("connection refused")
	limiter := NewUserLimiter(redis, 5, time.Minute)

	allowed, err := limiter.Allow(context.Background(), 42)
	require.Error(t, err)
	require.False(t, allowed)
}

func TestUserLimiterExpiresNewWindows(t *testing.T) {
	redis := newFakeRedis()
	limiter := NewUserLimiter(redis, 5, time.Minute)

	_, err := limiter.Allow(context.Background(), 42)
	require.NoError(t, err)

	require.Len(t, redis.ttls, 1)
	for _, ttl := range redis.ttls {
		require.Equal(t, time.Minute, ttl)
	}
}
