package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rosterforge/rosterd/internal/roster/domain"
	sharedPersistence "github.com/rosterforge/rosterd/internal/shared/infrastructure/persistence"
)

// PostgresScheduleRepository persists schedules in PostgreSQL, for hosts
// running rosterd as a shared service across several on-call coordinators.
// Like SQLiteScheduleRepository it folds the assignment grid into a single
// JSON payload column; see codec.go.
type PostgresScheduleRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresScheduleRepository creates a new Postgres schedule repository.
func NewPostgresScheduleRepository(pool *pgxpool.Pool) *PostgresScheduleRepository {
	return &PostgresScheduleRepository{pool: pool}
}

// Save inserts or updates a schedule, enforcing optimistic concurrency on
// Version(). Participates in an ambient application.UnitOfWork transaction
// when present via sharedPersistence.PgExecutorFor.
func (r *PostgresScheduleRepository) Save(ctx context.Context, schedule *domain.Schedule) error {
	payload, err := encodeSchedule(schedule)
	if err != nil {
		return fmt.Errorf("persistence: encode schedule: %w", err)
	}

	exec := sharedPersistence.PgExecutorFor(ctx, r.pool)

	var existingVersion int
	err = exec.QueryRow(ctx, `SELECT version FROM schedules WHERE id = $1`, schedule.ID()).Scan(&existingVersion)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, err = exec.Exec(ctx, `
			INSERT INTO schedules (
				id, version, period_start, period_end, payload, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			schedule.ID(),
			schedule.Version(),
			schedule.PeriodStart(),
			schedule.PeriodEnd(),
			string(payload),
			schedule.CreatedAt(),
			schedule.UpdatedAt(),
		)
		return err
	case err != nil:
		return err
	default:
		if existingVersion >= schedule.Version() {
			return ErrConcurrentModification
		}
		tag, execErr := exec.Exec(ctx, `
			UPDATE schedules
			SET version = $1, period_start = $2, period_end = $3, payload = $4, updated_at = $5
			WHERE id = $6 AND version = $7
		`,
			schedule.Version(),
			schedule.PeriodStart(),
			schedule.PeriodEnd(),
			string(payload),
			schedule.UpdatedAt(),
			schedule.ID(),
			existingVersion,
		)
		if execErr != nil {
			return execErr
		}
		if tag.RowsAffected() == 0 {
			return ErrConcurrentModification
		}
		return nil
	}
}

// FindByID loads a schedule by id, or returns ErrScheduleNotFound.
func (r *PostgresScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	exec := sharedPersistence.PgExecutorFor(ctx, r.pool)
	row := exec.QueryRow(ctx, `
		SELECT version, period_start, period_end, payload, created_at, updated_at
		FROM schedules WHERE id = $1
	`, id)

	var version int
	var periodStart, periodEnd, createdAt, updatedAt time.Time
	var payload string
	if err := row.Scan(&version, &periodStart, &periodEnd, &payload, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	return decodeSchedule(id, createdAt, updatedAt, version, periodStart, periodEnd, []byte(payload))
}

// Delete removes a schedule.
func (r *PostgresScheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	exec := sharedPersistence.PgExecutorFor(ctx, r.pool)
	_, err := exec.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	return err
}
