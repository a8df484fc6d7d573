package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wholesale/orderflow/internal/domain/shared"
	"github.com/wholesale/orderflow/internal/infrastructure/config"
)

// Coordination bundles the order locker and the event idempotency store
type Coordination struct {
	Locker      shared.Locker
	Idempotency shared.IdempotencyStore
	closers     []func() error
	ping        func(ctx context.Context) error
	client      *redis.Client
}

// Distributed reports whether locks are shared with other instances
func (c *Coordination) Distributed() bool {
	return c.ping != nil
}

// Ping checks the Redis connection; in-memory stores are always reachable
func (c *Coordination) Ping(ctx context.Context) error {
	if c.ping == nil {
		return nil
	}
	return c.ping(ctx)
}

// RateLimiter returns a limiter of limit requests per window, shared through Redis when configured
func (c *Coordination) RateLimiter(limit int, window time.Duration) RateLimiter {
	if c.client != nil {
		return NewRedisRateLimiter(c.client, limit, window, "")
	}
	l := NewInMemoryRateLimiter(limit, window)
	c.closers = append(c.closers, l.Close)
	return l
}

// Close releases the Redis client or stops the in-memory eviction loops
func (c *Coordination) Close() error {
	var firstErr error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewCoordination builds Redis-backed stores when a Redis host is configured.
// Without one it falls back to in-memory stores, which only serialize requests within this process.
func NewCoordination(cfg config.RedisConfig, logger *zap.Logger) (*Coordination, error) {
	if cfg.Host == "" {
		logger.Warn("Redis not configured, using in-memory order locks and idempotency store. " +
			"Run a single instance only.")
		locker := NewInMemoryOrderLocker()
		store := NewInMemoryIdempotencyStore()
		return &Coordination{
			Locker:      locker,
			Idempotency: store,
			closers:     []func() error{locker.Close, store.Close},
		}, nil
	}

	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("using Redis for order locks and idempotency", zap.String("addr", cfg.Addr()))
	return newRedisCoordination(client, logger), nil
}

func newRedisCoordination(client *redis.Client, logger *zap.Logger) *Coordination {
	return &Coordination{
		Locker:      NewRedisOrderLocker(client, logger),
		Idempotency: NewRedisIdempotencyStore(client, ""),
		closers:     []func() error{client.Close},
		ping:        func(ctx context.Context) error { return client.Ping(ctx).Err() },
		client:      client,
	}
}
