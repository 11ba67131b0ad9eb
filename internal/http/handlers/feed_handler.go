package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tarot-booking/backend/internal/http/dto"
	"github.com/tarot-booking/backend/internal/middleware"
	"github.com/tarot-booking/backend/internal/repositories"
)

type FeedHandler struct {
	activityRepo *repositories.ActivityRepo
	log          *zap.Logger
}

func NewFeedHandler(activityRepo *repositories.ActivityRepo, log *zap.Logger) *FeedHandler {
	return &FeedHandler{activityRepo: activityRepo, log: log}
}

func (h *FeedHandler) List(c *fiber.Ctx) error {
	filter := repositories.ActivityFilter{Limit: 50}

	if v := c.Query("entity_type"); v != "" {
		filter.RelatedEntityType = &v
	}
	if v := c.Query("priority"); v != "" {
		filter.Priority = &v
	}
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

	entries, err := h.activityRepo.List(c.Context(), filter)
	if err != nil {
		h.log.Error("list activity feed failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}

func (h *FeedHandler) MarkRead(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid feed entry id"})
	}

	actorID := middleware.GetUserID(c)
	if err := h.activityRepo.MarkRead(c.Context(), id, actorID); err != nil {
		h.log.Error("mark feed entry read failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
