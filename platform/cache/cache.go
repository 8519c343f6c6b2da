// Package cache provides the TTL key/value store backing every source adapter.
// The store is selected once at startup: Redis when an address is configured,
// an in-process map otherwise. Callers cannot tell the two apart.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"prospection_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is the TTL key/value contract shared by the Redis and memory backends.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeletePattern removes every key matching a glob pattern, e.g. "sirene:*".
	DeletePattern(ctx context.Context, pattern string) error
}

// RedisStore backs the cache with a shared Redis instance.
type RedisStore struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed store.
func NewRedis(addr, password string, db int) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return &RedisStore{client: client}
}

// Ping tests the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) DeletePattern(ctx context.Context, pattern string) error {
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// GetOrSet returns the cached value for key if present and unexpired, otherwise
// invokes producer, stores its result under key with ttl, and returns it.
// Store failures are logged and treated as cache misses so an infrastructure
// outage never fails the pipeline.
func GetOrSet[T any](ctx context.Context, store Store, log *logger.Logger, key string, ttl time.Duration, producer func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	raw, err := store.Get(ctx, key)
	if err == nil {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		// Corrupt entry: fall through to the producer and overwrite.
		log.Warn("cache entry unreadable", "key", key)
	} else if !errors.Is(err, ErrMiss) {
		log.Warn("cache get failed", "key", key, "error", err)
	}

	value, err := producer(ctx)
	if err != nil {
		return zero, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		log.Warn("cache encode failed", "key", key, "error", err)
		return value, nil
	}
	if err := store.Set(ctx, key, encoded, ttl); err != nil {
		log.Warn("cache set failed", "key", key, "error", err)
	}

	return value, nil
}
