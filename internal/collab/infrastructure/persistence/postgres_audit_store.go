package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rosterforge/rosterd/internal/collab/domain"
	sharedPersistence "github.com/rosterforge/rosterd/internal/shared/infrastructure/persistence"
)

// PostgresAuditStore persists collaboration audit events in PostgreSQL, for
// hosts running more than one rosterd process against the same roster.
type PostgresAuditStore struct {
	pool *pgxpool.Pool
}

// NewPostgresAuditStore creates a new Postgres audit store.
func NewPostgresAuditStore(pool *pgxpool.Pool) *PostgresAuditStore {
	return &PostgresAuditStore{pool: pool}
}

func (s *PostgresAuditStore) Append(ctx context.Context, event domain.AuditEvent) error {
	exec := sharedPersistence.PgExecutorFor(ctx, s.pool)

	_, err := exec.Exec(ctx, `
		INSERT INTO collab_audit_events (
			id, event_type, session_id, user_id, lock_type, resource_id, conflict_id, strategy, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		event.ID,
		string(event.Type),
		pgNullableUUID(event.SessionID),
		event.UserID,
		nullableString(string(event.LockType)),
		nullableString(event.ResourceID),
		pgNullableUUID(event.ConflictID),
		nullableString(string(event.Strategy)),
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("persistence: append audit event: %w", err)
	}
	return nil
}

func (s *PostgresAuditStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.AuditEvent, error) {
	exec := sharedPersistence.PgExecutorFor(ctx, s.pool)

	rows, err := exec.Query(ctx, `
		SELECT id, event_type, session_id, user_id, lock_type, resource_id, conflict_id, strategy, occurred_at
		FROM collab_audit_events
		WHERE session_id = $1
		ORDER BY occurred_at ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("persistence: list audit events: %w", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		event, err := scanPgAuditRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func pgNullableUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

// scanPgAuditRow mirrors scanAuditRow but scans pgx's native uuid.UUID and
// time.Time types directly instead of parsing the text encodings SQLite
// stores everything as.
func scanPgAuditRow(scan func(dest ...any) error) (domain.AuditEvent, error) {
	var (
		id                    uuid.UUID
		eventType, userID     string
		sessionID, conflictID *uuid.UUID
		lockType, resourceID  *string
		strategy              *string
		occurredAt            time.Time
	)

	if err := scan(&id, &eventType, &sessionID, &userID, &lockType, &resourceID, &conflictID, &strategy, &occurredAt); err != nil {
		return domain.AuditEvent{}, fmt.Errorf("persistence: scan audit event: %w", err)
	}

	event := domain.AuditEvent{
		ID:         id,
		Type:       domain.AuditEventType(eventType),
		UserID:     userID,
		OccurredAt: occurredAt,
	}
	if sessionID != nil {
		event.SessionID = *sessionID
	}
	if conflictID != nil {
		event.ConflictID = *conflictID
	}
	if lockType != nil {
		event.LockType = domain.LockType(*lockType)
	}
	if resourceID != nil {
		event.ResourceID = *resourceID
	}
	if strategy != nil {
		event.Strategy = domain.ConflictResolutionStrategy(*strategy)
	}

	return event, nil
}
