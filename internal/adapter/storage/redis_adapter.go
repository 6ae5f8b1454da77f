package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix  = "lock:"
	tokenKeyPrefix = "carrier:token:"
)

// Deletes the token only if it is still the one the caller saw rejected.
var invalidateTokenScript = redis.NewScript(`
local key = KEYS[1]
local stale = ARGV[1]

local current = redis.call('GET', key)
if not current then
	return 0
end

if current == stale then
	redis.call('DEL', key)
	return 1
end

return 0
`)

// Deletes the lock only while the caller still owns it.
var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, lockKeyPrefix+key, owner, ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseLock is a no-op when the lock expired and another owner took it.
func (r *RedisAdapter) ReleaseLock(ctx context.Context, key, owner string) error {
	return releaseLockScript.Run(ctx, r.client, []string{lockKeyPrefix + key}, owner).Err()
}

// TokenStore returns a carrier token store scoped to one carrier account, so
// every replica using the same account shares a single bearer token.
func (r *RedisAdapter) TokenStore(account string) *RedisTokenStore {
	return &RedisTokenStore{client: r.client, key: tokenKeyPrefix + account}
}

type RedisTokenStore struct {
	client *redis.Client
	key    string
}

func (s *RedisTokenStore) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	return token, nil
}

func (s *RedisTokenStore) SetToken(ctx context.Context, token string) error {
	return s.client.Set(ctx, s.key, token, 0).Err()
}

func (s *RedisTokenStore) InvalidateToken(ctx context.Context, stale string) error {
	return invalidateTokenScript.Run(ctx, s.client, []string{s.key}, stale).Err()
}
