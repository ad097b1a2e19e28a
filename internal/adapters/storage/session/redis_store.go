package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each session as one Redis hash that expires after the
// idle TTL. Every write refreshes the expiry.
type RedisStore struct {
	client  redis.UniversalClient
	idleTTL time.Duration
	prefix  string
}

// NewRedisStore creates a store over client.
// PRE: idleTTL > 0
func NewRedisStore(client redis.UniversalClient, idleTTL time.Duration) *RedisStore {
	return &RedisStore{client: client, idleTTL: idleTTL, prefix: "redline:session:"}
}

// NewRedisClient dials addr; the connection is established lazily.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (s *RedisStore) key(sid string) string {
	return s.prefix + sid
}

// Get returns the hash field for key.
func (s *RedisStore) Get(ctx context.Context, sid, key string) (string, bool, error) {
	v, err := s.client.HGet(ctx, s.key(sid), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget %s: %w", key, err)
	}
	return v, true, nil
}

// All returns every field of the session hash.
func (s *RedisStore) All(ctx context.Context, sid string) (map[string]string, error) {
	m, err := s.client.HGetAll(ctx, s.key(sid)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	return m, nil
}

// Set writes the field and refreshes the hash expiry in one round trip.
func (s *RedisStore) Set(ctx context.Context, sid, key, value string) error {
	k := s.key(sid)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, k, key, value)
		p.Expire(ctx, k, s.idleTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis hset %s: %w", key, err)
	}
	return nil
}

// Clear removes the field.
func (s *RedisStore) Clear(ctx context.Context, sid, key string) error {
	if err := s.client.HDel(ctx, s.key(sid), key).Err(); err != nil {
		return fmt.Errorf("redis hdel %s: %w", key, err)
	}
	return nil
}

// Purge is a no-op: Redis expires idle sessions itself.
func (s *RedisStore) Purge(context.Context, time.Time) (int64, error) {
	return 0, nil
}
