package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tarot-booking/backend/internal/models"
)

type ActivityRepo struct {
	pool *pgxpool.Pool
}

func NewActivityRepo(pool *pgxpool.Pool) *ActivityRepo {
	return &ActivityRepo{pool: pool}
}

func (r *ActivityRepo) Append(ctx context.Context, e *models.ActivityFeedEntry) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO activity_feed (actor_id, activity_type, title, description,
			related_entity_type, related_entity_id, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, e.ActorID, e.ActivityType, e.Title, e.Description,
		e.RelatedEntityType, e.RelatedEntityID, e.Priority,
	).Scan(&e.ID, &e.CreatedAt)
}

type ActivityFilter struct {
	RelatedEntityType *string
	Priority          *string
	Limit             int
	Offset            int
}

func (r *ActivityRepo) List(ctx context.Context, f ActivityFilter) ([]models.ActivityFeedEntry, error) {
	query := `
		SELECT id, actor_id, activity_type, title, description,
		       related_entity_type, related_entity_id, priority, read_by, created_at
		FROM activity_feed
	`
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.RelatedEntityType != nil {
		where = append(where, fmt.Sprintf("related_entity_type = $%d", argIdx))
		args = append(args, *f.RelatedEntityType)
		argIdx++
	}
	if f.Priority != nil {
		where = append(where, fmt.Sprintf("priority = $%d", argIdx))
		args = append(args, *f.Priority)
		argIdx++
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

	var entries []models.ActivityFeedEntry
	for rows.Next() {
		var e models.ActivityFeedEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActivityType, &e.Title, &e.Description,
			&e.RelatedEntityType, &e.RelatedEntityID, &e.Priority, &e.ReadBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkRead adds the actor to the entry's read set. Idempotent.
func (r *ActivityRepo) MarkRead(ctx context.Context, id, actorID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE activity_feed
		SET read_by = array_append(read_by, $2)
		WHERE id = $1 AND NOT ($2 = ANY(read_by))
	`, id, actorID)
	return err
}

// TrimPerActor keeps only the newest keep entries per actor, removing at most
// limit rows per call. The feed is a hot table; callers loop in chunks instead
// of holding one long delete lock.
func (r *ActivityRepo) TrimPerActor(ctx context.Context, keep, limit int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM activity_feed
		WHERE id IN (
			SELECT id FROM (
				SELECT id, row_number() OVER (PARTITION BY actor_id ORDER BY created_at DESC) AS rn
				FROM activity_feed
			) ranked
			WHERE rn > $1
			LIMIT $2
		)
	`, keep, limit)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
