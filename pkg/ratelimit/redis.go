package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript prunes, counts and records in one round trip so concurrent
// callers cannot both pass the check. Scores are unix milliseconds.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local period = tonumber(ARGV[2])
local max = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - period)
local count = redis.call('ZCARD', key)
if count >= max then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  if oldest[2] then
    return {0, oldest[2]}
  end
  return {0, '0'}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, period)
return {1, '0'}
`)

// ScriptRunner is the part of cache.Cache the Redis store needs.
type ScriptRunner interface {
	Key(parts ...string) string
	RunScript(ctx context.Context, script *redis.Script, keys []string, args ...any) (any, error)
}

// RedisStore shares windows between bot processes through a sorted set per key.
type RedisStore struct {
	cache ScriptRunner
}

func NewRedisStore(cache ScriptRunner) *RedisStore {
	return &RedisStore{cache: cache}
}

func (s *RedisStore) Consume(ctx context.Context, key string, now time.Time, period time.Duration, max int) (Decision, error) {
	nowMs := now.UnixMilli()
	// Members must be unique or two hits in the same millisecond collapse into one.
	member := uuid.NewString()

	raw, err := s.cache.RunScript(ctx, slidingWindowScript,
		[]string{s.cache.Key("ratelimit", key)},
		nowMs, period.Milliseconds(), max, member)
	if err != nil {
		return Decision{}, fmt.Errorf("sliding window script: %w", err)
	}

	values, ok := raw.([]any)
	if !ok || len(values) != 2 {
		return Decision{}, fmt.Errorf("unexpected script result: %v", raw)
	}

	allowed, err := toInt64(values[0])
	if err != nil {
		return Decision{}, err
	}
	if allowed == 1 {
		return Decision{Allowed: true}, nil
	}

	oldestMs, err := toInt64(values[1])
	if err != nil {
		return Decision{}, err
	}
	decision := Decision{Allowed: false}
	if oldestMs > 0 {
		decision.Oldest = time.UnixMilli(oldestMs)
	}
	return decision, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("parse script value %q: %w", n, err)
		}
		return int64(f), nil
	}
	return 0, fmt.Errorf("unexpected script value type %T", v)
}
