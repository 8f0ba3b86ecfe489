package cache

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/Combine-Capital/pgcache/pkg/config"
	"github.com/Combine-Capital/pgcache/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// touchScript sets the expiration of an existing key and never creates one.
var touchScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return redis.call("PEXPIREAT", KEYS[1], ARGV[1])
end
return 0
`)

// RedisStore keeps entries in Redis under a key prefix. Redis expires
// entries itself, so liveness follows the Redis server clock and
// PurgeExpired has nothing to do.
type RedisStore struct {
	client *redis.Client
	prefix string
	owned  bool
}

// NewRedis connects to the Redis server described by cfg.
//
// The client reconnects lazily after the initial ping, retrying according to
// MaxRetries.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, redisError(err, "failed to connect to Redis")
	}

	s := NewRedisFromClient(client, cfg.KeyPrefix)
	s.owned = true
	return s, nil
}

// NewRedisFromClient wraps a client the caller owns. Close leaves it open.
func NewRedisFromClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) Name() string { return config.BackendRedis }

func (r *RedisStore) key(key string) string {
	return Key(r.prefix, key)
}

func (r *RedisStore) Load(ctx context.Context, key string, now time.Time) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, redisError(err, "failed to get from cache")
	}
	if data == nil {
		data = []byte{}
	}
	return data, true, nil
}

func (r *RedisStore) Save(ctx context.Context, key string, value []byte, expiresAt *time.Time) error {
	k := r.key(key)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, k, value, 0)
		if expiresAt != nil {
			pipe.PExpireAt(ctx, k, *expiresAt)
		}
		return nil
	})
	if err != nil {
		return redisError(err, "failed to set cache key")
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return redisError(err, "failed to delete cache key")
	}
	return nil
}

func (r *RedisStore) Touch(ctx context.Context, key string, expiresAt time.Time) error {
	err := touchScript.Run(ctx, r.client, []string{r.key(key)}, expiresAt.UnixMilli()).Err()
	if err != nil && !stderrors.Is(err, redis.Nil) {
		return redisError(err, "failed to refresh cache key")
	}
	return nil
}

func (r *RedisStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (r *RedisStore) Check(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return redisError(err, "Redis health check failed")
	}
	return nil
}

func (r *RedisStore) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}

func redisError(err error, msg string) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewCanceled(msg, err)
	}
	return errors.NewTemporary(msg, err)
}
