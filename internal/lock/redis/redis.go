package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/slok/ordersaga/internal/lock"
	"github.com/slok/ordersaga/internal/log"
)

// releaseScript deletes the key only if it still holds our token.
// KEYS[1] = lock key
// ARGV[1] = token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockerConfig is the configuration of the redis locker.
type LockerConfig struct {
	Client redis.UniversalClient
	// Prefix is prepended to every lock key.
	Prefix string
	Logger log.Logger
}

func (c *LockerConfig) defaults() error {
	if c.Client == nil {
		return fmt.Errorf("redis client is required")
	}

	if c.Prefix == "" {
		c.Prefix = "ordersaga:lock:"
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "lock.Redis"})

	return nil
}

// Locker is a lock.Locker shared by every process using the same redis.
type Locker struct {
	client redis.UniversalClient
	prefix string
	logger log.Logger
}

var _ lock.Locker = &Locker{}

// NewLocker returns a new redis locker.
func NewLocker(cfg LockerConfig) (*Locker, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Locker{
		client: cfg.Client,
		prefix: cfg.Prefix,
		logger: cfg.Logger,
	}, nil
}

func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (lock.ReleaseFunc, error) {
	k := l.prefix + key
	token := ulid.Make().String()

	ok, err := l.client.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("could not take lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, lock.ErrLocked)
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{k}, token).Err(); err != nil {
			l.logger.Warningf("Could not release lock %s: %s", key, err)
			return fmt.Errorf("could not release lock %s: %w", key, err)
		}
		return nil
	}, nil
}
