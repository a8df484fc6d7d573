package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IdempotencyStore remembers which events a handler already applied.
// Keys come from ProcessedKey so handlers sharing a store do not collide.
type IdempotencyStore interface {
	// MarkProcessed records key for ttl and reports whether it was new
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
	// Scope namespaces the keys of one handler; empty means the shared "default" scope
	Scope string
}

// DefaultIdempotencyConfig keeps event IDs for a day, which covers outbox redelivery
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}

// ProcessedKey builds the store key of an event within a handler scope
func ProcessedKey(scope string, eventID uuid.UUID) string {
	if scope == "" {
		scope = "default"
	}
	return scope + ":" + eventID.String()
}
