package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tarot-booking/backend/internal/audit"
	"github.com/tarot-booking/backend/internal/http/dto"
	"github.com/tarot-booking/backend/internal/middleware"
	"github.com/tarot-booking/backend/internal/repositories"
)

type BulkHandler struct {
	tracker *audit.Tracker
	log     *zap.Logger
}

func NewBulkHandler(tracker *audit.Tracker, log *zap.Logger) *BulkHandler {
	return &BulkHandler{tracker: tracker, log: log}
}

func (h *BulkHandler) Start(c *fiber.Ctx) error {
	var req dto.StartBulkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}
	if req.OperationType == "" || req.EntityType == "" || req.TotalRecords <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "operation_type, entity_type and positive total_records are required"})
	}

	actorID := middleware.GetUserID(c)
	op, err := h.tracker.Start(c.Context(), actorID, req.OperationType, req.EntityType, req.TotalRecords)
	if err != nil {
		h.log.Error("start bulk operation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: op})
}

func (h *BulkHandler) RecordItem(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid bulk id"})
	}
	var req dto.RecordBulkItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	if err := h.tracker.RecordItem(c.Context(), id, req.Succeeded); err != nil {
		return h.bulkError(c, id, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *BulkHandler) Finish(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid bulk id"})
	}
	op, err := h.tracker.Finish(c.Context(), id)
	if err != nil {
		return h.bulkError(c, id, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: op})
}

func (h *BulkHandler) Cancel(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid bulk id"})
	}
	op, err := h.tracker.Cancel(c.Context(), id)
	if err != nil {
		return h.bulkError(c, id, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: op})
}

func (h *BulkHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid bulk id"})
	}
	op, err := h.tracker.Get(c.Context(), id)
	if err != nil {
		return h.bulkError(c, id, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: op})
}

func (h *BulkHandler) bulkError(c *fiber.Ctx, id uuid.UUID, err error) error {
	switch {
	case errors.Is(err, repositories.ErrBulkNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "bulk operation not found"})
	case errors.Is(err, repositories.ErrBulkClosed), errors.Is(err, repositories.ErrBulkOverflow):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
	default:
		h.log.Error("bulk operation failed", zap.String("bulk_id", id.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
}
