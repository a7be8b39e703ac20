// Package domain holds the collaboration core's aggregates: sessions,
// resource locks, and conflict records, plus the ports (LockStore) its
// infrastructure adapters implement.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// LockType enumerates the kinds of resource a caller can lock. Two locks
// of different types may coexist on the same ResourceID: a
// worker_assignment lock on "2026-01-05:0" does not block a concurrent
// shift_edit lock on the same string.
type LockType string

const (
	LockTypeWorkerAssignment  LockType = "worker_assignment"
	LockTypeShiftEdit         LockType = "shift_edit"
	LockTypeScheduleGeneration LockType = "schedule_generation"
	LockTypeBulkOperation     LockType = "bulk_operation"
)

// LockKey identifies the (lock_type, resource_id) pair spec.md §4.7 says
// may have at most one non-expired lock at a time.
type LockKey struct {
	Type       LockType
	ResourceID string
}

// Lock is a held resource lock. ResourceID is host-opaque: typically
// "date:post" for a single assignment slot or "generation:root" for a
// whole-schedule regeneration.
type Lock struct {
	id         uuid.UUID
	ownerUserID string
	lockType   LockType
	resourceID string
	acquiredAt time.Time
	expiresAt  time.Time
	metadata   map[string]string
}

// NewLock creates a freshly-acquired lock expiring after ttl.
func NewLock(ownerUserID string, lockType LockType, resourceID string, ttl time.Duration, metadata map[string]string, now time.Time) *Lock {
	return &Lock{
		id:          uuid.New(),
		ownerUserID: ownerUserID,
		lockType:    lockType,
		resourceID:  resourceID,
		acquiredAt:  now,
		expiresAt:   now.Add(ttl),
		metadata:    metadata,
	}
}

// RehydrateLock reconstructs a Lock with an already-known id, for backends
// (redislock) that persist the id alongside the lock rather than
// generating it fresh on every read.
func RehydrateLock(id uuid.UUID, ownerUserID string, lockType LockType, resourceID string, acquiredAt, expiresAt time.Time, metadata map[string]string) *Lock {
	return &Lock{
		id:          id,
		ownerUserID: ownerUserID,
		lockType:    lockType,
		resourceID:  resourceID,
		acquiredAt:  acquiredAt,
		expiresAt:   expiresAt,
		metadata:    metadata,
	}
}

func (l *Lock) ID() uuid.UUID             { return l.id }
func (l *Lock) OwnerUserID() string       { return l.ownerUserID }
func (l *Lock) LockType() LockType        { return l.lockType }
func (l *Lock) ResourceID() string        { return l.resourceID }
func (l *Lock) AcquiredAt() time.Time     { return l.acquiredAt }
func (l *Lock) ExpiresAt() time.Time      { return l.expiresAt }
func (l *Lock) Metadata() map[string]string { return l.metadata }

// Key returns the (lock_type, resource_id) pair this lock occupies.
func (l *Lock) Key() LockKey {
	return LockKey{Type: l.lockType, ResourceID: l.resourceID}
}

// IsExpired reports whether the lock's TTL has elapsed as of now.
func (l *Lock) IsExpired(now time.Time) bool {
	return !now.Before(l.expiresAt)
}

// IsOwnedBy reports whether userID currently holds this lock.
func (l *Lock) IsOwnedBy(userID string) bool {
	return l.ownerUserID == userID
}

// Extend pushes the expiration out by ttl from now, for re-acquisition by
// the same owner per spec.md §4.7's lock state machine.
func (l *Lock) Extend(ttl time.Duration, now time.Time) {
	l.expiresAt = now.Add(ttl)
}
