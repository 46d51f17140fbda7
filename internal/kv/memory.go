package kv

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value     []byte
	count     int64
	expiresAt time.Time
}

func (it memoryItem) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && now.After(it.expiresAt)
}

// MemoryStore is a mutex-protected in-process Store. It backs tests and
// single-process development setups; the mutex stands in for the atomicity
// Redis provides server-side.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

// SetClock overrides the time source. Tests use it to force window and TTL
// expiry without sleeping.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[key]
	if !ok || it.expired(s.now()) {
		delete(s.items, key)
		return nil, false, nil
	}
	return append([]byte(nil), it.value...), true, nil
}

func (s *MemoryStore) SetEX(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		it.expiresAt = s.now().Add(ttl)
	}
	s.items[key] = it
	return nil
}

func (s *MemoryStore) IncrWindow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	it, ok := s.items[key]
	if !ok || it.expired(now) {
		s.items[key] = memoryItem{count: 1, expiresAt: now.Add(window)}
		return true, nil
	}
	if it.count >= limit {
		return false, nil
	}
	it.count++
	s.items[key] = it
	return true, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

var _ Store = (*MemoryStore)(nil)
