// Package persistence implements domain.AuditStore, the collaboration
// core's durable record of session and conflict lifecycle events. It mirrors
// internal/roster/infrastructure/persistence's SQLite/Postgres split for the
// same reason: single-operator hosts get SQLite for free, shared
// deployments point DATABASE_URL at Postgres, and neither needs driver-level
// differences to leak into Core.
package persistence

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rosterforge/rosterd/internal/collab/domain"
)

// MemoryAuditStore is an in-process AuditStore, the default for hosts that
// don't need audit history to outlive the process (tests, the CLI's
// local-mode default).
type MemoryAuditStore struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

// NewMemoryAuditStore creates an empty in-memory audit store.
func NewMemoryAuditStore() *MemoryAuditStore {
	return &MemoryAuditStore{}
}

func (s *MemoryAuditStore) Append(_ context.Context, event domain.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryAuditStore) ListBySession(_ context.Context, sessionID uuid.UUID) ([]domain.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.AuditEvent
	for _, e := range s.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}
