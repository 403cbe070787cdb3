package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bloxpvp/robloxlink/internal/shared"
)

// compareAndRemoveLua atomically deletes the key only when it still holds
// the expected challenge value.
var compareAndRemoveLua = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  redis.call('DEL', KEYS[1])
  return 1
end
return 0
`)

// RedisRegistry keeps outstanding challenges in Redis, so restarts do not
// drop in-flight handshakes. TTL enforcement is native.
type RedisRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRegistry(client *redis.Client, ttl time.Duration) *RedisRegistry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisRegistry{client: client, ttl: ttl}
}

func registryKey(robloxID int64) string {
	return fmt.Sprintf("challenge:%d", robloxID)
}

func (r *RedisRegistry) Put(ctx context.Context, robloxID int64, challenge string) error {
	return r.client.Set(ctx, registryKey(robloxID), challenge, r.ttl).Err()
}

func (r *RedisRegistry) Get(ctx context.Context, robloxID int64) (string, error) {
	v, err := r.client.Get(ctx, registryKey(robloxID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", shared.ErrorNotFound
		}
		return "", err
	}
	return v, nil
}

func (r *RedisRegistry) Remove(ctx context.Context, robloxID int64) error {
	return r.client.Del(ctx, registryKey(robloxID)).Err()
}

func (r *RedisRegistry) CompareAndRemove(ctx context.Context, robloxID int64, challenge string) (bool, error) {
	n, err := compareAndRemoveLua.Run(ctx, r.client, []string{registryKey(robloxID)}, challenge).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
