package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

type lockoutEntry struct {
	count       int
	windowStart time.Time
	lockedUntil *time.Time
}

// LockoutStore counts events per key within a fixed window starting at the
// first event.
type LockoutStore struct {
	mu      sync.Mutex
	entries map[string]*lockoutEntry
}

func NewLockoutStore() *LockoutStore {
	return &LockoutStore{entries: make(map[string]*lockoutEntry)}
}

func (s *LockoutStore) Get(_ context.Context, key string) (ports.LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return ports.LockoutState{}, nil
	}
	return ports.LockoutState{FailedCount: entry.count, LockedUntil: entry.lockedUntil}, nil
}

func (s *LockoutStore) RecordFailure(_ context.Context, key string, now time.Time, threshold int, window time.Duration) (ports.LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || now.Sub(entry.windowStart) >= window && (entry.lockedUntil == nil || !now.Before(*entry.lockedUntil)) {
		entry = &lockoutEntry{windowStart: now}
		s.entries[key] = entry
	}
	entry.count++
	if entry.count >= threshold {
		lockedUntil := now.Add(window)
		entry.lockedUntil = &lockedUntil
	}
	return ports.LockoutState{FailedCount: entry.count, LockedUntil: entry.lockedUntil}, nil
}

func (s *LockoutStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
