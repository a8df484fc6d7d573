package shared

import (
	"context"
	"time"
)

// Locker provides short-lived mutual exclusion keyed by resource
type Locker interface {
	// Acquire takes the lock for key and returns a release func.
	// It returns a ConflictError when the lock is held by someone else.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}
