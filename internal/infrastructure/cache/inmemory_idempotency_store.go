package cache

import (
	"context"
	"sync"
	"time"

	"github.com/wholesale/orderflow/internal/domain/shared"
)

// expiringSet holds keys with a deadline and an owner token.
// A background loop evicts expired keys until Close.
type expiringSet struct {
	mu        sync.Mutex
	entries   map[string]expiringEntry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type expiringEntry struct {
	token     string
	expiresAt time.Time
}

func newExpiringSet(sweepEvery time.Duration) *expiringSet {
	s := &expiringSet{
		entries:  make(map[string]expiringEntry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.sweepLoop(sweepEvery)
	return s
}

// add stores key unless a live entry exists and reports whether it was stored
func (s *expiringSet) add(key, token string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		return false
	}
	s.entries[key] = expiringEntry{token: token, expiresAt: now.Add(ttl)}
	return true
}

func (s *expiringSet) contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	return ok && s.now().Before(e.expiresAt)
}

// removeIf deletes key only while it is still owned by token
func (s *expiringSet) removeIf(key, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && e.token == token {
		delete(s.entries, key)
	}
}

func (s *expiringSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *expiringSet) close() {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
}

func (s *expiringSet) sweepLoop(every time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *expiringSet) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// InMemoryIdempotencyStore implements shared.IdempotencyStore for single-instance deployments.
// State is not shared between processes.
type InMemoryIdempotencyStore struct {
	set *expiringSet
}

// NewInMemoryIdempotencyStore creates a new in-memory idempotency store
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{set: newExpiringSet(5 * time.Minute)}
}

// MarkProcessed returns true when eventID was not seen within its TTL
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, eventID string, ttl time.Duration) (bool, error) {
	return s.set.add(eventID, "", ttl), nil
}

// IsProcessed checks if an event has already been processed
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	return s.set.contains(eventID), nil
}

// Close stops the eviction loop. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.set.close()
	return nil
}

// Size returns the number of tracked event IDs, expired ones included until swept
func (s *InMemoryIdempotencyStore) Size() int {
	return s.set.size()
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
