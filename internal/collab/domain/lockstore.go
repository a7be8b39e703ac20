package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrLockHeld is returned by TryAcquire when the (lock_type, resource_id)
// pair is already held by a different owner.
var ErrLockHeld = errors.New("collab: resource is locked by another owner")

// LockStore is the pluggable backend behind Core's lock bookkeeping.
// memlock is the in-process default; redislock lets several rosterd
// instances share one lock table. Implementations never block
// indefinitely and never panic: a backend outage surfaces as an error,
// which Core translates into a conservative refusal per spec.md §7.
type LockStore interface {
	// TryAcquire grants a new lock, or extends the caller's own existing
	// lock on the same key. Returns ErrLockHeld (with the current holder's
	// Lock) if a different owner holds the key and has not expired.
	TryAcquire(ctx context.Context, key LockKey, ownerUserID string, ttl time.Duration, metadata map[string]string) (*Lock, error)

	// Release removes the lock identified by lockID if ownerUserID holds
	// it. Returns false (no error) if the lock does not exist or is held
	// by someone else.
	Release(ctx context.Context, lockID uuid.UUID, ownerUserID string) (bool, error)

	// Get returns the current lock for key, or nil if absent or expired.
	Get(ctx context.Context, key LockKey) (*Lock, error)

	// Sweep removes every lock expired as of now and returns them, so
	// Core can notify queued waiters and untrack them from sessions.
	// Backends with native TTL expiry (Redis) may return an empty slice.
	Sweep(ctx context.Context, now time.Time) ([]*Lock, error)

	// Count returns the number of currently held, non-expired locks.
	Count(ctx context.Context) (int, error)
}
