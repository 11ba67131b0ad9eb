package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// The sweep stores mirror the repository methods the sweeper drives. Every
// method deletes at most limit rows per call so no sweep class ever holds a
// long lock on a hot table.
type auditSweepStore interface {
	DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error)
}

type bulkSweepStore interface {
	DeleteClosedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

type feedSweepStore interface {
	TrimPerActor(ctx context.Context, keep, limit int) (int64, error)
}

type retentionSweepStore interface {
	TrimSearchHistory(ctx context.Context, keep, limit int) (int64, error)
	TrimNotificationExecutions(ctx context.Context, keep, limit int) (int64, error)
	DeleteExpiredAnalyticsCache(ctx context.Context, now time.Time, limit int) (int64, error)
}

// Config bounds each retention class. Chunk size caps how many rows a single
// delete statement may touch.
type Config struct {
	BulkRetention            time.Duration // closed bulk operations older than this are removed
	FeedKeepPerActor         int
	SearchKeepPerActor       int
	NotificationKeepPerActor int
	ChunkSize                int
}

// Sweeper enforces expiration and size bounds on audit and log data. Each
// cleanup class runs independently; a failure in one never blocks the others.
type Sweeper struct {
	auditRepo     auditSweepStore
	bulkRepo      bulkSweepStore
	activityRepo  feedSweepStore
	retentionRepo retentionSweepStore
	cfg           Config
	log           *zap.Logger
}

func New(
	auditRepo auditSweepStore,
	bulkRepo bulkSweepStore,
	activityRepo feedSweepStore,
	retentionRepo retentionSweepStore,
	cfg Config,
	log *zap.Logger,
) *Sweeper {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 500
	}
	return &Sweeper{
		auditRepo:     auditRepo,
		bulkRepo:      bulkRepo,
		activityRepo:  activityRepo,
		retentionRepo: retentionRepo,
		cfg:           cfg,
		log:           log,
	}
}

// RunOnce executes one full sweep pass.
func (s *Sweeper) RunOnce(ctx context.Context) {
	now := time.Now()

	s.sweepExpiredAuditEntries(ctx, now)
	s.sweepClosedBulkOperations(ctx, now)
	s.sweepAnalyticsCache(ctx, now)
	s.trimActivityFeed(ctx)
	s.trimSearchHistory(ctx)
	s.trimNotificationExecutions(ctx)
}

// chunked drives a bounded delete until a partial chunk signals the table is
// clean. Returns the total rows removed; errors are logged by the caller.
func (s *Sweeper) chunked(del func(limit int) (int64, error)) (int64, error) {
	var total int64
	for {
		n, err := del(s.cfg.ChunkSize)
		if err != nil {
			return total, err
		}
		total += n
		if n < int64(s.cfg.ChunkSize) {
			return total, nil
		}
	}
}

func (s *Sweeper) sweepExpiredAuditEntries(ctx context.Context, now time.Time) {
	total, err := s.chunked(func(limit int) (int64, error) {
		return s.auditRepo.DeleteExpired(ctx, now, limit)
	})
	if err != nil {
		s.log.Error("audit entry sweep failed", zap.Error(err))
		return
	}
	if total > 0 {
		s.log.Info("expired audit entries removed", zap.Int64("count", total))
	}
}

func (s *Sweeper) sweepClosedBulkOperations(ctx context.Context, now time.Time) {
	cutoff := now.Add(-s.cfg.BulkRetention)
	total, err := s.chunked(func(limit int) (int64, error) {
		return s.bulkRepo.DeleteClosedBefore(ctx, cutoff, limit)
	})
	if err != nil {
		s.log.Error("bulk operation sweep failed", zap.Error(err))
		return
	}
	if total > 0 {
		s.log.Info("closed bulk operations removed", zap.Int64("count", total))
	}
}

func (s *Sweeper) sweepAnalyticsCache(ctx context.Context, now time.Time) {
	total, err := s.chunked(func(limit int) (int64, error) {
		return s.retentionRepo.DeleteExpiredAnalyticsCache(ctx, now, limit)
	})
	if err != nil {
		s.log.Error("analytics cache sweep failed", zap.Error(err))
		return
	}
	if total > 0 {
		s.log.Info("expired analytics cache rows removed", zap.Int64("count", total))
	}
}

func (s *Sweeper) trimActivityFeed(ctx context.Context) {
	total, err := s.chunked(func(limit int) (int64, error) {
		return s.activityRepo.TrimPerActor(ctx, s.cfg.FeedKeepPerActor, limit)
	})
	if err != nil {
		s.log.Error("activity feed trim failed", zap.Error(err))
		return
	}
	if total > 0 {
		s.log.Info("activity feed trimmed", zap.Int64("count", total), zap.Int("keep", s.cfg.FeedKeepPerActor))
	}
}

func (s *Sweeper) trimSearchHistory(ctx context.Context) {
	total, err := s.chunked(func(limit int) (int64, error) {
		return s.retentionRepo.TrimSearchHistory(ctx, s.cfg.SearchKeepPerActor, limit)
	})
	if err != nil {
		s.log.Error("search history trim failed", zap.Error(err))
		return
	}
	if total > 0 {
		s.log.Info("search history trimmed", zap.Int64("count", total), zap.Int("keep", s.cfg.SearchKeepPerActor))
	}
}

func (s *Sweeper) trimNotificationExecutions(ctx context.Context) {
	total, err := s.chunked(func(limit int) (int64, error) {
		return s.retentionRepo.TrimNotificationExecutions(ctx, s.cfg.NotificationKeepPerActor, limit)
	})
	if err != nil {
		s.log.Error("notification execution trim failed", zap.Error(err))
		return
	}
	if total > 0 {
		s.log.Info("notification executions trimmed", zap.Int64("count", total), zap.Int("keep", s.cfg.NotificationKeepPerActor))
	}
}
