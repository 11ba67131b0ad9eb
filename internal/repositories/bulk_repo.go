package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tarot-booking/backend/internal/models"
)

var (
	// ErrBulkNotFound is returned when a bulk operation id is unknown.
	ErrBulkNotFound = errors.New("bulk operation not found")
	// ErrBulkClosed is returned when recording against a finished operation.
	ErrBulkClosed = errors.New("bulk operation is no longer processing")
	// ErrBulkOverflow guards the successful+failed <= total invariant.
	ErrBulkOverflow = errors.New("bulk operation counters already cover all records")
)

type BulkRepo struct {
	pool *pgxpool.Pool
}

func NewBulkRepo(pool *pgxpool.Pool) *BulkRepo {
	return &BulkRepo{pool: pool}
}

const bulkColumns = `id, actor_id, operation_type, entity_type, total_records,
	successful_records, failed_records, status, error_details,
	started_at, completed_at, can_undo, undone_at`

func (r *BulkRepo) Create(ctx context.Context, b *models.BulkOperation) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO bulk_operations (actor_id, operation_type, entity_type, total_records, status, can_undo)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, started_at
	`, b.ActorID, b.OperationType, b.EntityType, b.TotalRecords, b.Status, b.CanUndo,
	).Scan(&b.ID, &b.StartedAt)
}

func (r *BulkRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.BulkOperation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bulkColumns+` FROM bulk_operations WHERE id = $1`, id)
	return scanBulkOperation(row)
}

// IncrementCounter bumps the success or failure counter in one guarded UPDATE.
// The predicate enforces both the processing status and the
// successful+failed <= total invariant under concurrent workers, so a lost
// update or an overflow is impossible at the SQL level.
func (r *BulkRepo) IncrementCounter(ctx context.Context, id uuid.UUID, succeeded bool) error {
	column := "failed_records"
	if succeeded {
		column = "successful_records"
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE bulk_operations
		SET `+column+` = `+column+` + 1
		WHERE id = $1 AND status = $2
		  AND successful_records + failed_records < total_records
	`, id, models.BulkStatusProcessing)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// The guard rejected the update; distinguish why.
	op, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !op.Open() {
		return ErrBulkClosed
	}
	return ErrBulkOverflow
}

// Close transitions processing -> status exactly once. Closing an already
// closed operation reports ErrBulkClosed.
func (r *BulkRepo) Close(ctx context.Context, id uuid.UUID, status string, details map[string]any, at time.Time) error {
	if !models.IsValidBulkTransition(models.BulkStatusProcessing, status) {
		return errors.New("invalid bulk close status: " + status)
	}
	var detailsJSON []byte
	if details != nil {
		var err error
		if detailsJSON, err = json.Marshal(details); err != nil {
			return err
		}
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE bulk_operations
		SET status = $2, error_details = $3, completed_at = $4
		WHERE id = $1 AND status = $5
	`, id, status, detailsJSON, at, models.BulkStatusProcessing)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrBulkClosed
	}
	return nil
}

// CloseCompleted transitions processing -> completed exactly once, deriving
// error_details from the row's own counters in the same statement. Counters
// only move while the row is processing, so the recorded failure count can
// never miss a concurrently recorded item.
func (r *BulkRepo) CloseCompleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bulk_operations
		SET status = $2,
		    completed_at = $3,
		    error_details = CASE WHEN failed_records > 0
		        THEN jsonb_build_object('failed_records', failed_records)
		        ELSE NULL END
		WHERE id = $1 AND status = $4
	`, id, models.BulkStatusCompleted, at, models.BulkStatusProcessing)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrBulkClosed
	}
	return nil
}

// DeleteClosedBefore removes up to limit completed/failed/cancelled operations
// older than the cutoff.
func (r *BulkRepo) DeleteClosedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM bulk_operations
		WHERE id IN (
			SELECT id FROM bulk_operations
			WHERE status <> $1 AND started_at < $2
			LIMIT $3
		)
	`, models.BulkStatusProcessing, cutoff, limit)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanBulkOperation(row pgx.Row) (*models.BulkOperation, error) {
	var (
		b       models.BulkOperation
		details []byte
	)
	err := row.Scan(&b.ID, &b.ActorID, &b.OperationType, &b.EntityType, &b.TotalRecords,
		&b.SuccessfulRecords, &b.FailedRecords, &b.Status, &details,
		&b.StartedAt, &b.CompletedAt, &b.CanUndo, &b.UndoneAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBulkNotFound
		}
		return nil, err
	}
	if details != nil {
		if err := json.Unmarshal(details, &b.ErrorDetails); err != nil {
			return nil, err
		}
	}
	return &b, nil
}
