package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rosterforge/rosterd/internal/roster/domain"
	sharedPersistence "github.com/rosterforge/rosterd/internal/shared/infrastructure/persistence"
)

// ErrConcurrentModification is returned by Save when the schedule's stored
// version no longer matches the version the caller loaded, meaning another
// writer saved in between.
var ErrConcurrentModification = errors.New("persistence: schedule was modified concurrently")

// SQLiteScheduleRepository persists schedules in SQLite using hand-written
// SQL. The assignment grid, slot rules, and holiday calendar are folded into
// a single JSON payload column (see codec.go) since they only ever need to
// be read or written whole — the grid has no query pattern of its own that
// would benefit from being split into per-assignment rows.
type SQLiteScheduleRepository struct {
	db *sql.DB
}

// NewSQLiteScheduleRepository creates a new SQLite schedule repository.
// Callers are responsible for having run the schema migration that creates
// the schedules table (the embedded SQLite migrations applied by
// migrations.RunSQLiteMigrations).
func NewSQLiteScheduleRepository(db *sql.DB) *SQLiteScheduleRepository {
	return &SQLiteScheduleRepository{db: db}
}

// Save inserts or updates a schedule, enforcing optimistic concurrency: an
// update only applies if the stored version is lower than schedule.Version()
// (every Schedule mutator calls IncrementVersion), and a stored version equal
// to or above it returns ErrConcurrentModification. A stale copy that has
// been mutated past the stored version is not detected. It participates in an ambient
// application.UnitOfWork transaction when the context carries one, via
// sharedPersistence.SQLiteExecutorFor, so GenerateScheduleHandler's save and
// publish happen atomically.
func (r *SQLiteScheduleRepository) Save(ctx context.Context, schedule *domain.Schedule) error {
	payload, err := encodeSchedule(schedule)
	if err != nil {
		return fmt.Errorf("persistence: encode schedule: %w", err)
	}

	exec := sharedPersistence.SQLiteExecutorFor(ctx, r.db)

	var existingVersion int
	err = exec.QueryRowContext(ctx, `SELECT version FROM schedules WHERE id = ?`, schedule.ID().String()).Scan(&existingVersion)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = exec.ExecContext(ctx, `
			INSERT INTO schedules (
				id, version, period_start, period_end, payload, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			schedule.ID().String(),
			schedule.Version(),
			schedule.PeriodStart().Format(dateLayout),
			schedule.PeriodEnd().Format(dateLayout),
			string(payload),
			schedule.CreatedAt().Format(time.RFC3339),
			schedule.UpdatedAt().Format(time.RFC3339),
		)
		return err
	case err != nil:
		return err
	default:
		if existingVersion >= schedule.Version() {
			return ErrConcurrentModification
		}
		result, execErr := exec.ExecContext(ctx, `
			UPDATE schedules
			SET version = ?, period_start = ?, period_end = ?, payload = ?, updated_at = ?
			WHERE id = ? AND version = ?
		`,
			schedule.Version(),
			schedule.PeriodStart().Format(dateLayout),
			schedule.PeriodEnd().Format(dateLayout),
			string(payload),
			schedule.UpdatedAt().Format(time.RFC3339),
			schedule.ID().String(),
			existingVersion,
		)
		if execErr != nil {
			return execErr
		}
		affected, affectedErr := result.RowsAffected()
		if affectedErr != nil {
			return affectedErr
		}
		if affected == 0 {
			return ErrConcurrentModification
		}
		return nil
	}
}

// FindByID loads a schedule by id, or returns ErrScheduleNotFound.
func (r *SQLiteScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	exec := sharedPersistence.SQLiteExecutorFor(ctx, r.db)
	row := exec.QueryRowContext(ctx, `
		SELECT id, version, period_start, period_end, payload, created_at, updated_at
		FROM schedules WHERE id = ?
	`, id.String())

	var idStr, periodStartStr, periodEndStr, payload, createdAtStr, updatedAtStr string
	var version int
	if err := row.Scan(&idStr, &version, &periodStartStr, &periodEndStr, &payload, &createdAtStr, &updatedAtStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	periodStart, err := time.Parse(dateLayout, periodStartStr)
	if err != nil {
		return nil, err
	}
	periodEnd, err := time.Parse(dateLayout, periodEndStr)
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, err
	}
	updatedAt, err := time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, err
	}

	return decodeSchedule(id, createdAt, updatedAt, version, periodStart, periodEnd, []byte(payload))
}

// Delete removes a schedule.
func (r *SQLiteScheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	exec := sharedPersistence.SQLiteExecutorFor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id.String())
	return err
}
