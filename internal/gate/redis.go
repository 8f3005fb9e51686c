package gate

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// releaseScript deletes the key only when this holder still owns it, so a
// late Unlock never removes a lock another holder has since taken.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// RedisLock is a call-scoped TryLocker backed by Redis SET NX, for
// deployments that already run Redis and do not want a dedicated arbiter.
// Unlike ClientLock, each TryLock genuinely takes the lock and Unlock
// genuinely releases it. The TTL guards against a crashed holder wedging the
// lock; it must comfortably exceed the task body's runtime.
type RedisLock struct {
	client *redis.Client
	key    string
	value  string
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisLock creates a Redis-backed lock on key with the given TTL. The
// holder identity is a fresh uuid, so two instances never release each
// other's lock.
func NewRedisLock(client *redis.Client, key string, ttl time.Duration, logger zerolog.Logger) *RedisLock {
	return &RedisLock{
		client: client,
		key:    key,
		value:  uuid.NewString(),
		ttl:    ttl,
		logger: logger.With().Str("component", "redislock").Str("key", key).Logger(),
	}
}

// TryLock attempts a non-blocking acquire. Redis errors are logged and
// reported as "not acquired"; the next firing simply tries again.
func (l *RedisLock) TryLock() bool {
	ctx, cancel := context.WithTimeout(context.Background(), l.ttl)
	defer cancel()

	ok, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		l.logger.Warn().Err(err).Msg("acquire failed")
		return false
	}
	return ok
}

// Unlock releases the lock if this instance still holds it.
func (l *RedisLock) Unlock() {
	ctx, cancel := context.WithTimeout(context.Background(), l.ttl)
	defer cancel()

	if _, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Int64(); err != nil {
		l.logger.Warn().Err(err).Msg("release failed")
	}
}

// Key returns the lock's Redis key.
func (l *RedisLock) Key() string {
	return l.key
}
