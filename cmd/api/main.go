package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tarot-booking/backend/internal/audit"
	"github.com/tarot-booking/backend/internal/booking"
	"github.com/tarot-booking/backend/internal/config"
	"github.com/tarot-booking/backend/internal/db"
	"github.com/tarot-booking/backend/internal/entity"
	"github.com/tarot-booking/backend/internal/events"
	apphttp "github.com/tarot-booking/backend/internal/http"
	"github.com/tarot-booking/backend/internal/http/handlers"
	"github.com/tarot-booking/backend/internal/repositories"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	auditRepo := repositories.NewAuditRepo(pool)
	bulkRepo := repositories.NewBulkRepo(pool)
	activityRepo := repositories.NewActivityRepo(pool)
	adminRepo := repositories.NewAdminRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Watched entity types
	registry := entity.NewRegistry()
	for _, def := range []entity.Definition{
		{EntityType: booking.EntityBookings, Table: "bookings"},
		{EntityType: booking.EntityReviews, Table: "reviews"},
	} {
		if err := registry.Register(def); err != nil {
			log.Fatal("failed to register entity type", zap.Error(err))
		}
	}
	schema := entity.NewSchemaCache(pool)
	store := entity.NewStore(pool, registry, schema)

	// Audit core
	recorder := audit.NewRecorder(auditRepo, activityRepo, publisher, cfg.UndoWindow, log)
	interceptor := audit.NewInterceptor(store, recorder, log)
	undoEngine := audit.NewUndoEngine(pool, store, auditRepo, activityRepo, publisher, log)
	tracker := audit.NewTracker(bulkRepo, publisher, log)

	// Services
	bookingService := booking.NewService(interceptor, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(adminRepo, cfg, log)
	auditHandler := handlers.NewAuditHandler(auditRepo, undoEngine, log)
	bulkHandler := handlers.NewBulkHandler(tracker, log)
	feedHandler := handlers.NewFeedHandler(activityRepo, log)
	bookingHandler := handlers.NewBookingHandler(bookingService, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, auditHandler, bulkHandler, feedHandler, bookingHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
