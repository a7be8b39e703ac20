// Package memlock implements the default, in-process domain.LockStore:
// a single mutex guarding a map, exactly as spec.md §5 describes for a
// single-instance deployment of rosterd.
package memlock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rosterforge/rosterd/internal/collab/domain"
)

// Store is an in-memory domain.LockStore. The zero value is not usable;
// construct with New.
type Store struct {
	mu    sync.Mutex
	locks map[domain.LockKey]*domain.Lock
}

// New creates an empty in-memory lock store.
func New() *Store {
	return &Store{locks: make(map[domain.LockKey]*domain.Lock)}
}

// TryAcquire grants, extends, or refuses a lock. Expired locks are treated
// as absent and silently replaced.
func (s *Store) TryAcquire(_ context.Context, key domain.LockKey, ownerUserID string, ttl time.Duration, metadata map[string]string) (*domain.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	existing, ok := s.locks[key]
	if ok && !existing.IsExpired(now) {
		if existing.IsOwnedBy(ownerUserID) {
			existing.Extend(ttl, now)
			return existing, nil
		}
		return existing, domain.ErrLockHeld
	}

	lock := domain.NewLock(ownerUserID, key.Type, key.ResourceID, ttl, metadata, now)
	s.locks[key] = lock
	return lock, nil
}

// Release removes the lock if ownerUserID currently holds it.
func (s *Store) Release(_ context.Context, lockID uuid.UUID, ownerUserID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, lock := range s.locks {
		if lock.ID() == lockID {
			if !lock.IsOwnedBy(ownerUserID) {
				return false, nil
			}
			delete(s.locks, key)
			return true, nil
		}
	}
	return false, nil
}

// Get returns the current lock for key, treating an expired lock as absent.
func (s *Store) Get(_ context.Context, key domain.LockKey) (*domain.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[key]
	if !ok || lock.IsExpired(time.Now()) {
		return nil, nil
	}
	return lock, nil
}

// Sweep removes and returns every lock expired as of now.
func (s *Store) Sweep(_ context.Context, now time.Time) ([]*domain.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []*domain.Lock
	for key, lock := range s.locks {
		if lock.IsExpired(now) {
			expired = append(expired, lock)
			delete(s.locks, key)
		}
	}
	return expired, nil
}

// Count returns the number of held, non-expired locks.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	n := 0
	for _, lock := range s.locks {
		if !lock.IsExpired(now) {
			n++
		}
	}
	return n, nil
}
