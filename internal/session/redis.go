package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

// RedisStore keeps each session as a Redis hash with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// NewRedisClient creates a Redis client with the connection settings used
// across the service.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// Get returns the value stored under key, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, sessionID, key string) (string, error) {
	value, err := s.client.HGet(ctx, redisKeyPrefix+sessionID, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading session key: %w", err)
	}
	return value, nil
}

// Put stores value under key and refreshes the session TTL.
func (s *RedisStore) Put(ctx context.Context, sessionID, key, value string) error {
	redisKey := redisKeyPrefix + sessionID
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, redisKey, key, value)
	pipe.Expire(ctx, redisKey, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing session key: %w", err)
	}
	return nil
}

// Delete removes the given keys.
func (s *RedisStore) Delete(ctx context.Context, sessionID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, redisKeyPrefix+sessionID, keys...).Err(); err != nil {
		return fmt.Errorf("deleting session keys: %w", err)
	}
	return nil
}

// Keys lists all keys present in the session.
func (s *RedisStore) Keys(ctx context.Context, sessionID string) ([]string, error) {
	keys, err := s.client.HKeys(ctx, redisKeyPrefix+sessionID).Result()
	if err != nil {
		return nil, fmt.Errorf("listing session keys: %w", err)
	}
	return keys, nil
}

// Clear removes the whole session.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
