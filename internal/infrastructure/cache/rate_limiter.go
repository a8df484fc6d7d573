package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter counts requests per key in fixed windows
type RateLimiter interface {
	// Allow counts one request and returns whether it is allowed, the requests left
	// and the time until the window resets
	Allow(ctx context.Context, key string) (bool, int, time.Duration, error)
	Limit() int
}

// incrWindowScript counts a hit and starts the window on the first one.
// Returns the count and the milliseconds left in the window.
var incrWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {count, redis.call("PTTL", KEYS[1])}
`)

// RedisRateLimiter counts requests per key in fixed windows shared by all instances
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedisRateLimiter allows limit requests per key in each window
func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration, prefix string) *RedisRateLimiter {
	if prefix == "" {
		prefix = "orderflow:ratelimit:"
	}
	return &RedisRateLimiter{client: client, limit: limit, window: window, prefix: prefix}
}

// Allow counts one request for key and reports whether it fits the window
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Duration, error) {
	res, err := incrWindowScript.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, 0, fmt.Errorf("rate limit %s: %w", key, err)
	}
	if len(res) != 2 {
		return false, 0, 0, fmt.Errorf("rate limit %s: unexpected reply %v", key, res)
	}

	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	if ttl < 0 {
		ttl = l.window
	}
	if count > l.limit {
		return false, 0, ttl, nil
	}
	return true, l.limit - count, ttl, nil
}

// Limit returns the requests allowed per window
func (l *RedisRateLimiter) Limit() int { return l.limit }

// InMemoryRateLimiter counts requests per key in fixed windows within one process
type InMemoryRateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	limit   int
	window  time.Duration
	now     func() time.Time

	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

// NewInMemoryRateLimiter allows limit requests per key in each window
func NewInMemoryRateLimiter(limit int, window time.Duration) *InMemoryRateLimiter {
	l := &InMemoryRateLimiter{
		windows:  make(map[string]*rateWindow),
		limit:    limit,
		window:   window,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	l.wg.Add(1)
	go l.sweepLoop()
	return l
}

// Allow counts one request for key and reports whether it fits the window
func (l *InMemoryRateLimiter) Allow(_ context.Context, key string) (bool, int, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &rateWindow{resetAt: now.Add(l.window)}
		l.windows[key] = w
	}
	w.count++

	retryAfter := w.resetAt.Sub(now)
	if w.count > l.limit {
		return false, 0, retryAfter, nil
	}
	return true, l.limit - w.count, retryAfter, nil
}

// Limit returns the requests allowed per window
func (l *InMemoryRateLimiter) Limit() int { return l.limit }

func (l *InMemoryRateLimiter) sweepLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *InMemoryRateLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
		}
	}
}

// Close stops the eviction loop
func (l *InMemoryRateLimiter) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

var (
	_ RateLimiter = (*RedisRateLimiter)(nil)
	_ RateLimiter = (*InMemoryRateLimiter)(nil)
)
