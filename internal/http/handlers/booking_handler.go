package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tarot-booking/backend/internal/audit"
	"github.com/tarot-booking/backend/internal/booking"
	"github.com/tarot-booking/backend/internal/entity"
	"github.com/tarot-booking/backend/internal/http/dto"
	"github.com/tarot-booking/backend/internal/middleware"
)

type BookingHandler struct {
	bookingService *booking.Service
	log            *zap.Logger
}

func NewBookingHandler(bookingService *booking.Service, log *zap.Logger) *BookingHandler {
	return &BookingHandler{bookingService: bookingService, log: log}
}

// actorContext attaches the acting user to the request context so the
// mutation interceptor can attribute the write. Batch callers tag their
// requests with X-Bulk-Operation-ID to correlate per-row audit entries.
func actorContext(c *fiber.Ctx) context.Context {
	ctx := audit.WithActor(c.Context(), middleware.GetUserID(c))
	if v := c.Get("X-Bulk-Operation-ID"); v != "" {
		if bulkID, err := uuid.Parse(v); err == nil {
			ctx = audit.WithBulkOperation(ctx, bulkID)
		}
	}
	return ctx
}

func (h *BookingHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	b, err := h.bookingService.CreateBooking(actorContext(c), booking.CreateBookingInput{
		ClientID:        middleware.GetUserID(c),
		ReaderName:      req.ReaderName,
		SpreadType:      req.SpreadType,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
		Notes:           req.Notes,
	})
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: b})
}

func (h *BookingHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid booking id"})
	}
	b, err := h.bookingService.GetBooking(c.Context(), id)
	if err != nil {
		if errors.Is(err, entity.ErrRowNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "booking not found"})
		}
		h.log.Error("get booking failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: b})
}

func (h *BookingHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid booking id"})
	}
	var req dto.UpdateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	b, err := h.bookingService.UpdateBooking(actorContext(c), id, booking.UpdateBookingInput{
		ReaderName:  req.ReaderName,
		SpreadType:  req.SpreadType,
		Status:      req.Status,
		ScheduledAt: req.ScheduledAt,
		PriceCents:  req.PriceCents,
		Notes:       req.Notes,
	})
	if err != nil {
		if errors.Is(err, entity.ErrRowNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "booking not found"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: b})
}

func (h *BookingHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid booking id"})
	}
	if err := h.bookingService.DeleteBooking(actorContext(c), id); err != nil {
		if errors.Is(err, entity.ErrRowNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "booking not found"})
		}
		h.log.Error("delete booking failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *BookingHandler) CreateReview(c *fiber.Ctx) error {
	var req dto.CreateReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}
	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid booking_id"})
	}

	rv, err := h.bookingService.CreateReview(actorContext(c), booking.CreateReviewInput{
		BookingID: bookingID,
		AuthorID:  middleware.GetUserID(c),
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: rv})
}

func (h *BookingHandler) DeleteReview(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid review id"})
	}
	if err := h.bookingService.DeleteReview(actorContext(c), id); err != nil {
		if errors.Is(err, entity.ErrRowNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "review not found"})
		}
		h.log.Error("delete review failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
