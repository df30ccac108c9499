/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ppguide/site/log"
	"github.com/ppguide/site/retry"
)

// DefaultRedisKeyPrefix is prepended to every key stored in Redis.
const DefaultRedisKeyPrefix = "ppg:ratelimit:"

// Keys are hashes {count, reset_at}, reset_at is in Unix milliseconds of the caller's clock.
// The TTL only bounds memory, window boundaries are decided by comparing reset_at.
var incrementScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])
local vals = redis.call('HMGET', KEYS[1], 'count', 'reset_at')
local count = tonumber(vals[1])
local resetAt = tonumber(vals[2])
if count == nil or resetAt == nil or now > resetAt then
  resetAt = now + window
  redis.call('HSET', KEYS[1], 'count', 1, 'reset_at', resetAt)
  redis.call('PEXPIRE', KEYS[1], ttl)
  return {1, resetAt}
end
count = redis.call('HINCRBY', KEYS[1], 'count', 1)
return {count, resetAt}
`)

const redisTTLMargin = time.Second

// RedisStoreOpts represents options for RedisStore.
type RedisStoreOpts struct {
	KeyPrefix string
	Now       func() time.Time
}

// RedisStore is a Store shared by all processes connected to the same Redis.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	now       func() time.Time
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a new RedisStore. Close closes the client.
func NewRedisStore(client redis.UniversalClient, opts RedisStoreOpts) *RedisStore {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultRedisKeyPrefix
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &RedisStore{client: client, keyPrefix: opts.KeyPrefix, now: opts.Now}
}

// OpenRedisStore connects to Redis described by cfg and waits until it answers PING,
// retrying with exponential backoff.
func OpenRedisStore(ctx context.Context, cfg *RedisConfig, logger log.FieldLogger, opts RedisStoreOpts) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Address,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: time.Duration(cfg.DialTimeout),
	})
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = cfg.KeyPrefix
	}
	store := NewRedisStore(client, opts)

	policy := retry.NewExponentialBackoffPolicy(time.Duration(cfg.ConnectBackoff), cfg.ConnectAttempts)
	notify := func(err error, next time.Duration) {
		logger.Warn("redis is not reachable, will retry",
			log.String("address", cfg.Address), log.Error(err), log.Duration("retry_in", next))
	}
	if err := retry.DoWithRetry(ctx, policy, nil, notify, store.Ping); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Address, err)
	}
	return store, nil
}

// Increment implements Store.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (Entry, error) {
	vals, err := incrementScript.Run(ctx, s.client, []string{s.keyPrefix + key},
		s.now().UnixMilli(), window.Milliseconds(), (window + redisTTLMargin).Milliseconds()).Int64Slice()
	if err != nil {
		return Entry{}, fmt.Errorf("run increment script: %w", err)
	}
	if len(vals) != 2 {
		return Entry{}, fmt.Errorf("unexpected increment script result %v", vals)
	}
	return Entry{Count: vals[0], ResetAt: time.UnixMilli(vals[1])}, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	vals, err := s.client.HMGet(ctx, s.keyPrefix+key, "count", "reset_at").Result()
	if err != nil {
		return Entry{}, false, fmt.Errorf("get rate limit entry: %w", err)
	}
	count, countOK := parseRedisInt(vals[0])
	resetAtMs, resetAtOK := parseRedisInt(vals[1])
	if !countOK || !resetAtOK || s.now().UnixMilli() > resetAtMs {
		return Entry{}, false, nil
	}
	return Entry{Count: count, ResetAt: time.UnixMilli(resetAtMs)}, true, nil
}

// Reset implements Store.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("delete rate limit entry: %w", err)
	}
	return nil
}

// Ping checks that Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements Store.
func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}

func parseRedisInt(v interface{}) (int64, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}
