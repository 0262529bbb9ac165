package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const KeyPrefix = "mnp:lease:"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Redis shares leases between gateway processes with SET NX PX.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// NewRedisFromURL parses a redis:// URL.
func NewRedisFromURL(url string) (*Redis, *redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	return NewRedis(client), client, nil
}

func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, KeyPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (r *Redis) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, r.client, []string{KeyPrefix + key}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release lease %s: %w", key, err)
	}
	return nil
}
