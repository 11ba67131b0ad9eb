package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tarot-booking/backend/internal/audit"
	"github.com/tarot-booking/backend/internal/http/dto"
	"github.com/tarot-booking/backend/internal/middleware"
	"github.com/tarot-booking/backend/internal/models"
	"github.com/tarot-booking/backend/internal/repositories"
	"github.com/tarot-booking/backend/internal/snapshot"
)

type AuditHandler struct {
	auditRepo  *repositories.AuditRepo
	undoEngine *audit.UndoEngine
	log        *zap.Logger
}

func NewAuditHandler(auditRepo *repositories.AuditRepo, undoEngine *audit.UndoEngine, log *zap.Logger) *AuditHandler {
	return &AuditHandler{auditRepo: auditRepo, undoEngine: undoEngine, log: log}
}

func (h *AuditHandler) ListEntries(c *fiber.Ctx) error {
	filter := repositories.AuditFilter{Limit: 50}

	if v := c.Query("entity_type"); v != "" {
		filter.EntityType = &v
	}
	if v := c.Query("action_kind"); v != "" {
		filter.ActionKind = &v
	}
	if v := c.Query("actor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid actor_id"})
		}
		filter.ActorID = &id
	}
	if v := c.Query("bulk_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid bulk_id"})
		}
		filter.BulkOperationID = &id
	}
	filter.UndoableOnly = c.Query("undoable") == "true"
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	entries, err := h.auditRepo.List(c.Context(), filter)
	if err != nil {
		h.log.Error("list audit entries failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}

func (h *AuditHandler) GetEntry(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid entry id"})
	}

	entry, err := h.auditRepo.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrEntryNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "audit entry not found"})
		}
		h.log.Error("get audit entry failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: entry})
}

// UndoEntry reverses the mutation the entry captured. Each refusal reason maps
// to its own status so dashboards can show an actionable message.
func (h *AuditHandler) UndoEntry(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid entry id"})
	}
	actorID := middleware.GetUserID(c)

	entry, err := h.undoEngine.Undo(c.Context(), id, actorID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrEntryNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "audit entry not found"})
		case errors.Is(err, models.ErrAlreadyUndone),
			errors.Is(err, models.ErrExpired),
			errors.Is(err, models.ErrUndoDisabled):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
		case errors.Is(err, snapshot.ErrSchemaMismatch):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Error: err.Error()})
		case errors.Is(err, audit.ErrInverseWrite):
			h.log.Error("inverse write failed", zap.String("entry_id", id.String()), zap.Error(err))
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
		default:
			h.log.Error("undo failed", zap.String("entry_id", id.String()), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
		}
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: entry})
}
