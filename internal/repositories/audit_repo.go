package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tarot-booking/backend/internal/models"
	"github.com/tarot-booking/backend/internal/snapshot"
)

// ErrEntryNotFound is returned when an audit entry id is unknown.
var ErrEntryNotFound = errors.New("audit entry not found")

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

const auditColumns = `id, actor_id, action_kind, entity_type, affected_ids,
	before_snapshot, after_snapshot, bulk_operation_id, can_undo,
	undone_at, undone_by, created_at, expires_at`

func (r *AuditRepo) Create(ctx context.Context, e *models.AuditEntry) error {
	before, err := snapshotJSON(e.BeforeSnapshot)
	if err != nil {
		return err
	}
	after, err := snapshotJSON(e.AfterSnapshot)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO audit_entries (actor_id, action_kind, entity_type, affected_ids,
			before_snapshot, after_snapshot, bulk_operation_id, can_undo, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, e.ActorID, e.ActionKind, e.EntityType, e.AffectedIDs,
		before, after, e.BulkOperationID, e.CanUndo, e.ExpiresAt,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *AuditRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditEntry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+auditColumns+` FROM audit_entries WHERE id = $1`, id)
	return scanAuditEntry(row)
}

// GetForUpdate loads an entry inside the caller's transaction with a row lock,
// serializing concurrent undo attempts on the same entry.
func (r *AuditRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.AuditEntry, error) {
	row := tx.QueryRow(ctx, `SELECT `+auditColumns+` FROM audit_entries WHERE id = $1 FOR UPDATE`, id)
	return scanAuditEntry(row)
}

// MarkUndone flips the entry to its terminal consumed state. Runs in the same
// transaction as the inverse write.
func (r *AuditRepo) MarkUndone(ctx context.Context, tx pgx.Tx, id, actorID uuid.UUID, at time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE audit_entries
		SET undone_at = $2, undone_by = $3, can_undo = false
		WHERE id = $1 AND undone_at IS NULL
	`, id, at, actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrAlreadyUndone
	}
	return nil
}

type AuditFilter struct {
	EntityType      *string
	ActorID         *uuid.UUID
	ActionKind      *string
	BulkOperationID *uuid.UUID
	UndoableOnly    bool
	Limit           int
	Offset          int
}

func (r *AuditRepo) List(ctx context.Context, f AuditFilter) ([]models.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_entries`
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.EntityType != nil {
		where = append(where, fmt.Sprintf("entity_type = $%d", argIdx))
		args = append(args, *f.EntityType)
		argIdx++
	}
	if f.ActorID != nil {
		where = append(where, fmt.Sprintf("actor_id = $%d", argIdx))
		args = append(args, *f.ActorID)
		argIdx++
	}
	if f.ActionKind != nil {
		where = append(where, fmt.Sprintf("action_kind = $%d", argIdx))
		args = append(args, *f.ActionKind)
		argIdx++
	}
	if f.BulkOperationID != nil {
		where = append(where, fmt.Sprintf("bulk_operation_id = $%d", argIdx))
		args = append(args, *f.BulkOperationID)
		argIdx++
	}
	if f.UndoableOnly {
		where = append(where, "can_undo = true AND undone_at IS NULL AND expires_at > now()")
	}

	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// DeleteExpired removes up to limit expired entries. Chunked so the sweeper
// never holds long locks on a hot table.
func (r *AuditRepo) DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM audit_entries
		WHERE id IN (SELECT id FROM audit_entries WHERE expires_at < $1 LIMIT $2)
	`, now, limit)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// --- helpers ---

func snapshotJSON(doc snapshot.Document) ([]byte, error) {
	if doc == nil {
		return nil, nil
	}
	return doc.ToJSON()
}

func scanAuditEntry(row pgx.Row) (*models.AuditEntry, error) {
	var (
		e             models.AuditEntry
		before, after []byte
	)
	err := row.Scan(&e.ID, &e.ActorID, &e.ActionKind, &e.EntityType, &e.AffectedIDs,
		&before, &after, &e.BulkOperationID, &e.CanUndo,
		&e.UndoneAt, &e.UndoneBy, &e.CreatedAt, &e.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	if before != nil {
		if e.BeforeSnapshot, err = snapshot.FromJSON(before); err != nil {
			return nil, err
		}
	}
	if after != nil {
		if e.AfterSnapshot, err = snapshot.FromJSON(after); err != nil {
			return nil, err
		}
	}
	return &e, nil
}
