package ordering

import (
	"context"
	"errors"
	"time"
)

// ReceiptStorage issues upload URLs for payment evidence and confirms uploads landed
type ReceiptStorage interface {
	// PresignUpload returns a URL the client can PUT the file to until expiresAt
	PresignUpload(ctx context.Context, key, contentType string) (url string, expiresAt time.Time, err error)
	// ObjectExists reports whether an object was uploaded under key
	ObjectExists(ctx context.Context, key string) (bool, error)
}

// ErrReceiptStorageDisabled is returned by upload operations when no bucket is configured
var ErrReceiptStorageDisabled = errors.New("receipt storage is not configured")

// LockSettings controls the per-order request lock
type LockSettings struct {
	TTL       time.Duration
	KeyPrefix string
}

// DefaultLockSettings returns the lock settings used when none are configured
func DefaultLockSettings() LockSettings {
	return LockSettings{TTL: 10 * time.Second, KeyPrefix: "orderflow:lock:order:"}
}
