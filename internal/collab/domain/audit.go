package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditEventType enumerates the collaboration lifecycle events worth a
// durable record, independent of the in-memory state Core holds while a
// session or conflict is live.
type AuditEventType string

const (
	AuditSessionCreated   AuditEventType = "session_created"
	AuditSessionEnded     AuditEventType = "session_ended"
	AuditLockAcquired     AuditEventType = "lock_acquired"
	AuditLockReleased     AuditEventType = "lock_released"
	AuditConflictDetected AuditEventType = "conflict_detected"
	AuditConflictResolved AuditEventType = "conflict_resolved"
)

// AuditEvent is a single durable record of something that happened in the
// collaboration core. Unlike Session/Lock/Conflict, which are discarded once
// a session ends or a conflict is garbage-collected, audit events persist
// for after-the-fact review of who held what and how conflicts were settled.
type AuditEvent struct {
	ID         uuid.UUID
	Type       AuditEventType
	SessionID  uuid.UUID
	UserID     string
	LockType   LockType
	ResourceID string
	ConflictID uuid.UUID
	Strategy   ConflictResolutionStrategy
	OccurredAt time.Time
}

// AuditStore is the port Core writes lifecycle events through. Writes are
// best-effort from Core's perspective: a failing AuditStore degrades to a
// logged warning, never a failed collaboration operation (spec.md §7).
type AuditStore interface {
	Append(ctx context.Context, event AuditEvent) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]AuditEvent, error)
}
