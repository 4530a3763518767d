package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/tgvault/backend/internal/core/ports"
	"github.com/tgvault/backend/internal/infrastructure/logger"
	"github.com/tgvault/backend/internal/transport/http/dto"
)

type AnalyticsHandler struct {
	analytics ports.AnalyticsService
	logger    *logger.Logger
}

func NewAnalyticsHandler(analytics ports.AnalyticsService, logger *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, logger: logger}
}

func (h *AnalyticsHandler) Summary(c *fiber.Ctx) error {
	accountID, err := strconv.ParseUint(c.Query("account_id"), 10, 32)
	if err != nil || accountID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Error("account_id query parameter is required"))
	}

	summary, err := h.analytics.Summary(c.Context(), uint(accountID))
	if err != nil {
		h.logger.Errorw("analytics_summary_failed", "account_id", accountID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Error(err.Error()))
	}

	return c.JSON(fiber.Map{"success": true, "summary": summary})
}
