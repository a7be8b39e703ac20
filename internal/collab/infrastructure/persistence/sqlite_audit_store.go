package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rosterforge/rosterd/internal/collab/domain"
	sharedPersistence "github.com/rosterforge/rosterd/internal/shared/infrastructure/persistence"
)

// SQLiteAuditStore persists collaboration audit events in SQLite.
type SQLiteAuditStore struct {
	db *sql.DB
}

// NewSQLiteAuditStore creates a new SQLite audit store. Callers are
// responsible for having run migrations.RunSQLiteMigrations first.
func NewSQLiteAuditStore(db *sql.DB) *SQLiteAuditStore {
	return &SQLiteAuditStore{db: db}
}

func (s *SQLiteAuditStore) Append(ctx context.Context, event domain.AuditEvent) error {
	exec := sharedPersistence.SQLiteExecutorFor(ctx, s.db)

	_, err := exec.ExecContext(ctx, `
		INSERT INTO collab_audit_events (
			id, event_type, session_id, user_id, lock_type, resource_id, conflict_id, strategy, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID.String(),
		string(event.Type),
		nullableUUID(event.SessionID),
		event.UserID,
		nullableString(string(event.LockType)),
		nullableString(event.ResourceID),
		nullableUUID(event.ConflictID),
		nullableString(string(event.Strategy)),
		event.OccurredAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("persistence: append audit event: %w", err)
	}
	return nil
}

func (s *SQLiteAuditStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.AuditEvent, error) {
	exec := sharedPersistence.SQLiteExecutorFor(ctx, s.db)

	rows, err := exec.QueryContext(ctx, `
		SELECT id, event_type, session_id, user_id, lock_type, resource_id, conflict_id, strategy, occurred_at
		FROM collab_audit_events
		WHERE session_id = ?
		ORDER BY occurred_at ASC
	`, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("persistence: list audit events: %w", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		event, err := scanAuditRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func nullableUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id.String()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// scanAuditRow reconstructs an AuditEvent from a SQLite row scanner
// (*sql.Rows.Scan). The Postgres store uses its own scanPgAuditRow.
func scanAuditRow(scan func(dest ...any) error) (domain.AuditEvent, error) {
	var (
		id, eventType, userID, occurredAt string
		sessionID, lockType, resourceID   sql.NullString
		conflictID, strategy              sql.NullString
	)

	if err := scan(&id, &eventType, &sessionID, &userID, &lockType, &resourceID, &conflictID, &strategy, &occurredAt); err != nil {
		return domain.AuditEvent{}, fmt.Errorf("persistence: scan audit event: %w", err)
	}

	event := domain.AuditEvent{
		Type:       domain.AuditEventType(eventType),
		UserID:     userID,
		LockType:   domain.LockType(lockType.String),
		ResourceID: resourceID.String,
		Strategy:   domain.ConflictResolutionStrategy(strategy.String),
	}

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return domain.AuditEvent{}, fmt.Errorf("persistence: parse audit event id: %w", err)
	}
	event.ID = parsedID

	if sessionID.Valid {
		parsed, err := uuid.Parse(sessionID.String)
		if err != nil {
			return domain.AuditEvent{}, fmt.Errorf("persistence: parse audit session id: %w", err)
		}
		event.SessionID = parsed
	}
	if conflictID.Valid {
		parsed, err := uuid.Parse(conflictID.String)
		if err != nil {
			return domain.AuditEvent{}, fmt.Errorf("persistence: parse audit conflict id: %w", err)
		}
		event.ConflictID = parsed
	}

	occurred, err := time.Parse(time.RFC3339, occurredAt)
	if err != nil {
		return domain.AuditEvent{}, fmt.Errorf("persistence: parse audit occurred_at: %w", err)
	}
	event.OccurredAt = occurred

	return event, nil
}
