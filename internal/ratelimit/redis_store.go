package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript bumps the hash counter and, on the first hit of a window, stamps
// the start time and TTL. Running it as one script keeps concurrent requests
// for the same key from both seeing a stale count.
var incrScript = redis.NewScript(`
local n = redis.call('HINCRBY', KEYS[1], 'count', 1)
if n == 1 then
  redis.call('HSET', KEYS[1], 'start', ARGV[1])
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
elseif redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {n, tonumber(redis.call('HGET', KEYS[1], 'start'))}
`)

type RedisStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

type RedisOption func(*RedisStore)

func WithRedisClock(now func() time.Time) RedisOption {
	return func(s *RedisStore) { s.now = now }
}

func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) IncrementAndGet(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	ms := window.Milliseconds()
	if ms <= 0 {
		ms = 1
	}

	res, err := incrScript.Run(ctx, s.client, []string{key}, s.now().UnixMilli(), ms).Int64Slice()
	if err != nil {
		return 0, time.Time{}, err
	}
	if len(res) != 2 {
		return 0, time.Time{}, errors.New("ratelimit: unexpected script reply")
	}
	return res[0], time.UnixMilli(res[1]), nil
}

func (s *RedisStore) Peek(ctx context.Context, key string) (int64, time.Time, bool, error) {
	vals, err := s.client.HMGet(ctx, key, "count", "start").Result()
	if err != nil {
		return 0, time.Time{}, false, err
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return 0, time.Time{}, false, nil
	}

	count, err := strconv.ParseInt(vals[0].(string), 10, 64)
	if err != nil {
		return 0, time.Time{}, false, err
	}
	startMs, err := strconv.ParseInt(vals[1].(string), 10, 64)
	if err != nil {
		return 0, time.Time{}, false, err
	}
	return count, time.UnixMilli(startMs), true, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
