// Package cache memoizes generation results by request fingerprint.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"fluxserver/internal/domain"
	"fluxserver/internal/infra"
	"fluxserver/internal/kv"
)

const keyPrefix = "cache:"

// ResultCache maps fingerprints to completed artifacts. Store failures are
// absorbed as cache misses: an unreachable backend degrades the request path
// to a fresh generation, never to an error.
type ResultCache struct {
	store  kv.Store
	ttl    time.Duration
	logger infra.Logger
}

// New creates a ResultCache with the configured retention window.
func New(store kv.Store, ttl time.Duration, logger infra.Logger) *ResultCache {
	return &ResultCache{store: store, ttl: ttl, logger: logger}
}

// Get returns the cached entry for fingerprint, or ok=false on a miss,
// an expired key, a corrupt record or a store failure.
func (c *ResultCache) Get(ctx context.Context, fingerprint string) (*domain.CacheEntry, bool) {
	raw, ok, err := c.store.Get(ctx, keyPrefix+fingerprint)
	if err != nil {
		c.logger.Warn().Err(err).Str("fingerprint", fingerprint).Msg("cache: lookup failed, treating as miss")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var entry domain.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn().Err(err).Str("fingerprint", fingerprint).Msg("cache: corrupt entry, treating as miss")
		return nil, false
	}
	return &entry, true
}

// Put stores entry under fingerprint with the cache TTL, overwriting
// silently. Equal fingerprints denote equal work, so overwrites are
// idempotent. A store failure is logged and swallowed: caching is an
// optimization, never a reason to fail a completed job.
func (c *ResultCache) Put(ctx context.Context, fingerprint string, entry domain.CacheEntry) {
	raw, err := json.Marshal(entry)
	if err != nil {
		c.logger.Error().Err(err).Str("fingerprint", fingerprint).Msg("cache: marshal entry")
		return
	}
	if err := c.store.SetEX(ctx, keyPrefix+fingerprint, raw, c.ttl); err != nil {
		c.logger.Warn().Err(err).Str("fingerprint", fingerprint).Msg("cache: store failed, result not memoized")
	}
}
