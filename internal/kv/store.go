// Package kv defines the shared key-value contract backing the result cache,
// the task registry and the rate limiter. All mutating operations are atomic
// at the storage layer (set-with-expiry, increment-with-expiry) so request
// handlers and workers never need in-process coordination.
package kv

import (
	"context"
	"time"
)

// Store is the storage contract shared by every stateful component. Keys are
// namespaced by the caller (task:*, cache:*, ratelimit:*) and carry
// independent per-class TTLs.
type Store interface {
	// Get returns the value at key. A missing or expired key yields
	// ok=false with a nil error; err is reserved for store failures.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// SetEX writes value at key with the given TTL, overwriting silently.
	SetEX(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// IncrWindow atomically applies fixed-window admission on key: the
	// first admitted call in a window creates the counter at 1 with the
	// window as its expiry, later calls increment it, and calls arriving
	// at the limit are rejected without incrementing. The stored count
	// never exceeds limit while the window is live.
	IncrWindow(ctx context.Context, key string, limit int64, window time.Duration) (admitted bool, err error)

	// Ping verifies store connectivity.
	Ping(ctx context.Context) error
}
