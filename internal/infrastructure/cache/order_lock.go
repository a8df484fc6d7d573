package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wholesale/orderflow/internal/domain/shared"
)

// CodeOrderBusy is returned when another request holds the order's lock
const CodeOrderBusy = "ORDER_BUSY"

// releaseScript deletes the lock key only while it still holds the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func busy(key string) error {
	return shared.NewConflictError(CodeOrderBusy, fmt.Sprintf("%s is being modified by another request, retry shortly", key))
}

// RedisOrderLocker implements shared.Locker with SET NX PX and a token-checked release
type RedisOrderLocker struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisOrderLocker creates a distributed locker on client
func NewRedisOrderLocker(client *redis.Client, logger *zap.Logger) *RedisOrderLocker {
	return &RedisOrderLocker{client: client, logger: logger.Named("order_lock")}
}

// Acquire takes key for ttl. The lock expires on its own if release is never called.
func (l *RedisOrderLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, busy(key)
	}

	return func() {
		// The request context may already be done; release on a fresh one.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// InMemoryOrderLocker implements shared.Locker within one process
type InMemoryOrderLocker struct {
	set *expiringSet
}

// NewInMemoryOrderLocker creates a process-local locker
func NewInMemoryOrderLocker() *InMemoryOrderLocker {
	return &InMemoryOrderLocker{set: newExpiringSet(time.Minute)}
}

// Acquire takes key for ttl or returns a conflict when it is held
func (l *InMemoryOrderLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	if !l.set.add(key, token, ttl) {
		return nil, busy(key)
	}
	return func() { l.set.removeIf(key, token) }, nil
}

// Close stops the eviction loop
func (l *InMemoryOrderLocker) Close() error {
	l.set.close()
	return nil
}

var (
	_ shared.Locker = (*RedisOrderLocker)(nil)
	_ shared.Locker = (*InMemoryOrderLocker)(nil)
)
