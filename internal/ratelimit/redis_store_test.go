package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis, *fakeClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := newFakeClock()
	return NewRedisStore(client, WithRedisClock(clock.Now)), mr, clock
}

func TestRedisStore_IncrementAndGet(t *testing.T) {
	store, mr, clock := newTestRedisStore(t)
	ctx := context.Background()

	n, start, err := store.IncrementAndGet(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.True(t, start.Equal(clock.Now()))
	assert.Equal(t, time.Minute, mr.TTL("k"))

	clock.Advance(10 * time.Second)
	n, start2, err := store.IncrementAndGet(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.True(t, start2.Equal(start), "window start must not move")
}

func TestRedisStore_WindowExpires(t *testing.T) {
	store, mr, clock := newTestRedisStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := store.IncrementAndGet(ctx, "k", time.Minute)
		require.NoError(t, err)
	}

	mr.FastForward(time.Minute)
	clock.Advance(time.Minute)

	n, start, err := store.IncrementAndGet(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.True(t, start.Equal(clock.Now()))
}

func TestRedisStore_Peek(t *testing.T) {
	store, _, clock := newTestRedisStore(t)
	ctx := context.Background()

	_, _, found, err := store.Peek(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = store.IncrementAndGet(ctx, "k", time.Minute)
	require.NoError(t, err)
	_, _, err = store.IncrementAndGet(ctx, "k", time.Minute)
	require.NoError(t, err)

	n, start, found, err := store.Peek(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.EqualValues(t, 2, n)
	assert.True(t, start.Equal(clock.Now()))
}

func TestRedisStore_ConcurrentLimiter(t *testing.T) {
	store, _, clock := newTestRedisStore(t)
	l := NewLimiter(store, WithClock(clock.Now))
	ctx := context.Background()

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := l.Allow(ctx, AddressSubject("192.0.2.10"), SignupPolicy)
			if err == nil && d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, SignupPolicy.MaxAttempts, allowed.Load())
}

func TestRedisStore_Ping(t *testing.T) {
	store, mr, _ := newTestRedisStore(t)

	require.NoError(t, store.Ping(context.Background()))
	mr.SetError("ERR server down")
	assert.Error(t, store.Ping(context.Background()))
}
