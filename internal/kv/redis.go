package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// admitScript performs the check-and-increment for a rate window in one
// atomic step server-side. Checking before incrementing keeps the stored
// count at or below the ceiling for the whole window.
var admitScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= tonumber(ARGV[1]) then
  return 0
end
current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('EXPIRE', KEYS[1], ARGV[2])
end
return 1
`)

// RedisStore implements Store on a Redis client.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an already connected Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return val, true, nil
}

func (s *RedisStore) SetEX(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) IncrWindow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	seconds := int64(window / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	res, err := admitScript.Run(ctx, s.client, []string{key}, limit, seconds).Int64()
	if err != nil {
		return false, fmt.Errorf("kv incr %s: %w", key, err)
	}
	return res == 1, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var _ Store = (*RedisStore)(nil)
