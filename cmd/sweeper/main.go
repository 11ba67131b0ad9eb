package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tarot-booking/backend/internal/config"
	"github.com/tarot-booking/backend/internal/db"
	"github.com/tarot-booking/backend/internal/repositories"
	"github.com/tarot-booking/backend/internal/sweeper"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	auditRepo := repositories.NewAuditRepo(pool)
	bulkRepo := repositories.NewBulkRepo(pool)
	activityRepo := repositories.NewActivityRepo(pool)
	retentionRepo := repositories.NewRetentionRepo(pool)

	sw := sweeper.New(auditRepo, bulkRepo, activityRepo, retentionRepo, sweeper.Config{
		BulkRetention:            cfg.BulkRetention,
		FeedKeepPerActor:         cfg.FeedKeepPerActor,
		SearchKeepPerActor:       cfg.SearchKeepPerActor,
		NotificationKeepPerActor: cfg.NotificationKeepPerActor,
		ChunkSize:                cfg.SweepChunk,
	}, log)

	log.Info("sweeper started", zap.Duration("interval", cfg.SweepInterval))

	// First pass runs immediately so a restart never postpones retention by a
	// full interval.
	sw.RunOnce(ctx)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			sw.RunOnce(ctx)
		case <-sigCh:
			log.Info("shutting down sweeper")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}
