package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tgvault/backend/internal/core/ports"
	"github.com/tgvault/backend/internal/infrastructure/logger"
	"github.com/tgvault/backend/internal/transport/http/dto"
)

type AuditHandler struct {
	audit  ports.AuditService
	logger *logger.Logger
}

func NewAuditHandler(audit ports.AuditService, logger *logger.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, logger: logger}
}

// List returns the most recent audit entries, newest first.
func (h *AuditHandler) List(c *fiber.Ctx) error {
	entries, err := h.audit.List(c.Context(), c.QueryInt("limit"))
	if err != nil {
		h.logger.Errorw("audit_list_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Error(err.Error()))
	}
	return c.JSON(fiber.Map{"success": true, "entries": entries})
}
