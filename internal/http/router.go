package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tarot-booking/backend/internal/config"
	"github.com/tarot-booking/backend/internal/http/handlers"
	"github.com/tarot-booking/backend/internal/middleware"
	"github.com/tarot-booking/backend/internal/rbac"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	auditHandler *handlers.AuditHandler,
	bulkHandler *handlers.BulkHandler,
	feedHandler *handlers.FeedHandler,
	bookingHandler *handlers.BookingHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID, X-Bulk-Operation-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Auth (public)
	api.Post("/auth/login", authHandler.Login)

	// Rate-limited endpoints
	api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute))

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Bookings and reviews (watched entities; every write is audited)
	bookings := protected.Group("", middleware.RequirePermission(rbac.PermManageBookings))
	bookings.Post("/bookings", bookingHandler.Create)
	bookings.Get("/bookings/:id", bookingHandler.Get)
	bookings.Put("/bookings/:id", bookingHandler.Update)
	bookings.Delete("/bookings/:id", bookingHandler.Delete)
	bookings.Post("/reviews", bookingHandler.CreateReview)
	bookings.Delete("/reviews/:id", bookingHandler.DeleteReview)

	// Audit log browsing
	auditView := protected.Group("", middleware.RequirePermission(rbac.PermViewAudit))
	auditView.Get("/audit/entries", auditHandler.ListEntries)
	auditView.Get("/audit/entries/:id", auditHandler.GetEntry)

	// Undo is admin-only
	protected.Post("/audit/entries/:id/undo",
		middleware.RequirePermission(rbac.PermUndoAction), auditHandler.UndoEntry)

	// Bulk operation tracking
	bulk := protected.Group("", middleware.RequirePermission(rbac.PermManageBulk))
	bulk.Post("/bulk", bulkHandler.Start)
	bulk.Get("/bulk/:id", bulkHandler.Get)
	bulk.Post("/bulk/:id/items", bulkHandler.RecordItem)
	bulk.Post("/bulk/:id/finish", bulkHandler.Finish)
	bulk.Post("/bulk/:id/cancel", bulkHandler.Cancel)

	// Activity feed
	feed := protected.Group("", middleware.RequirePermission(rbac.PermViewFeed))
	feed.Get("/feed", feedHandler.List)
	feed.Post("/feed/:id/read", feedHandler.MarkRead)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
