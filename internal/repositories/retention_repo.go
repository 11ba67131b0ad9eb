package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RetentionRepo holds the sweep queries for the long-running log tables that
// have no service of their own: search history, notification execution
// history, and the analytics cache.
type RetentionRepo struct {
	pool *pgxpool.Pool
}

func NewRetentionRepo(pool *pgxpool.Pool) *RetentionRepo {
	return &RetentionRepo{pool: pool}
}

// TrimSearchHistory keeps the newest keep rows per actor, at most limit
// deletions per call.
func (r *RetentionRepo) TrimSearchHistory(ctx context.Context, keep, limit int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM search_history
		WHERE id IN (
			SELECT id FROM (
				SELECT id, row_number() OVER (PARTITION BY actor_id ORDER BY created_at DESC) AS rn
				FROM search_history
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

// TrimNotificationExecutions keeps the newest keep rows per actor, at most
// limit deletions per call.
func (r *RetentionRepo) TrimNotificationExecutions(ctx context.Context, keep, limit int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM notification_executions
		WHERE id IN (
			SELECT id FROM (
				SELECT id, row_number() OVER (PARTITION BY actor_id ORDER BY created_at DESC) AS rn
				FROM notification_executions
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

// DeleteExpiredAnalyticsCache removes up to limit cache rows past their expiry.
func (r *RetentionRepo) DeleteExpiredAnalyticsCache(ctx context.Context, now time.Time, limit int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM analytics_cache
		WHERE cache_key IN (
			SELECT cache_key FROM analytics_cache WHERE expires_at < $1 LIMIT $2
		)
	`, now, limit)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
