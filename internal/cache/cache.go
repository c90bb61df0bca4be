package cache

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"team-match-backend/internal/logger"

	"github.com/redis/go-redis/v9"
)

// Store is the cache interface consumed by the services. Implementations
// must treat every failure as a miss: the database remains the source of
// truth and callers never fail because the cache is down.
type Store interface {
	GetJSON(ctx context.Context, key string, dest interface{}) bool
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
}

// RedisStore is the Redis-backed Store used in production
type RedisStore struct {
	client *redis.Client
	jitter time.Duration
	log    *logger.Logger
}

// NewRedisClient parses a redis:// URL and connects a client
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

// NewRedisStore creates a Redis-backed store. Every SetJSON TTL gets up to
// jitter added so precomputed listings do not all expire in the same moment.
func NewRedisStore(client *redis.Client, jitter time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		jitter: jitter,
		log:    logger.New().WithField("component", "cache"),
	}
}

// GetJSON reads and decodes a cached value. Returns false on miss, decode
// failure, or any Redis error.
func (s *RedisStore) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.WithField("key", key).Warnf("cache read failed: %v", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		s.log.WithField("key", key).Warnf("cache decode failed: %v", err)
		return false
	}
	return true
}

// SetJSON encodes and writes a value with a jittered TTL. Failures are
// logged and swallowed.
func (s *RedisStore) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		s.log.WithField("key", key).Warnf("cache encode failed: %v", err)
		return
	}
	if s.jitter > 0 {
		ttl += time.Duration(rand.Int63n(int64(s.jitter)))
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		s.log.WithField("key", key).Warnf("cache write failed: %v", err)
	}
}

// Delete removes keys. Failures are logged and swallowed; stale entries
// expire on their own TTL.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.log.Warnf("cache delete failed: %v", err)
	}
}
