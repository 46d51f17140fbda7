// Package ratelimit applies fixed-window admission control per user and
// operation class.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"fluxserver/internal/infra"
	"fluxserver/internal/kv"
)

const keyPrefix = "ratelimit:"

// Operation classes throttled independently of each other.
const (
	ClassImage = "image"
	ClassVideo = "video"
)

// Limiter admits or rejects requests against a per-user ceiling within a
// fixed window. The check-and-increment runs as one atomic store operation,
// so concurrent admissions for the same (user, class) key cannot overshoot
// the ceiling. When the backing store is unreachable the limiter fails open:
// availability is preferred over strict quota enforcement.
type Limiter struct {
	store  kv.Store
	window time.Duration
	logger infra.Logger
}

// New creates a Limiter with the configured window length.
func New(store kv.Store, window time.Duration, logger infra.Logger) *Limiter {
	return &Limiter{store: store, window: window, logger: logger}
}

// Admit reports whether the user may perform another operation of the given
// class. ceiling is the user's limit for the class; a non-positive ceiling
// rejects everything.
func (l *Limiter) Admit(ctx context.Context, userID, class string, ceiling int) bool {
	if ceiling <= 0 {
		return false
	}
	key := fmt.Sprintf("%s%s:%s", keyPrefix, userID, class)
	admitted, err := l.store.IncrWindow(ctx, key, int64(ceiling), l.window)
	if err != nil {
		l.logger.Warn().Err(err).Str("user_id", userID).Str("class", class).
			Msg("ratelimit: store unreachable, failing open")
		return true
	}
	return admitted
}
