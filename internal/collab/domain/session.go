package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session tracks a connected user's held locks and idle timeout. Ending a
// session or letting it expire releases every lock it holds.
type Session struct {
	id             uuid.UUID
	userID         string
	permissions    []string
	metadata       map[string]string
	createdAt      time.Time
	lastActivityAt time.Time
	lockIDs        map[uuid.UUID]struct{}
}

// NewSession creates a session for userID, active as of now.
func NewSession(userID string, permissions []string, metadata map[string]string, now time.Time) *Session {
	return &Session{
		id:             uuid.New(),
		userID:         userID,
		permissions:    permissions,
		metadata:       metadata,
		createdAt:      now,
		lastActivityAt: now,
		lockIDs:        make(map[uuid.UUID]struct{}),
	}
}

func (s *Session) ID() uuid.UUID             { return s.id }
func (s *Session) UserID() string            { return s.userID }
func (s *Session) Permissions() []string     { return s.permissions }
func (s *Session) Metadata() map[string]string { return s.metadata }
func (s *Session) CreatedAt() time.Time      { return s.createdAt }
func (s *Session) LastActivityAt() time.Time { return s.lastActivityAt }

// Touch refreshes the session's idle timer.
func (s *Session) Touch(now time.Time) {
	s.lastActivityAt = now
}

// IsExpired reports whether the session has been idle longer than timeout.
func (s *Session) IsExpired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.lastActivityAt) >= timeout
}

// HasPermission reports whether the session's permission set grants perm.
func (s *Session) HasPermission(perm string) bool {
	for _, p := range s.permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// TrackLock records that this session holds lockID, for release-on-expiry.
func (s *Session) TrackLock(lockID uuid.UUID) {
	s.lockIDs[lockID] = struct{}{}
}

// UntrackLock forgets that this session holds lockID, after it is
// released or reassigned to a queued waiter.
func (s *Session) UntrackLock(lockID uuid.UUID) {
	delete(s.lockIDs, lockID)
}

// LockIDs returns the set of lock ids this session currently holds.
func (s *Session) LockIDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s.lockIDs))
	for id := range s.lockIDs {
		out = append(out, id)
	}
	return out
}
