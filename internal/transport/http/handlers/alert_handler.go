package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/tgvault/backend/internal/core/ports"
	"github.com/tgvault/backend/internal/core/services"
	"github.com/tgvault/backend/internal/domain"
	"github.com/tgvault/backend/internal/infrastructure/logger"
	"github.com/tgvault/backend/internal/transport/http/dto"
)

type AlertHandler struct {
	alerts ports.AlertService
	audit  ports.AuditService
	logger *logger.Logger
}

func NewAlertHandler(alerts ports.AlertService, audit ports.AuditService, logger *logger.Logger) *AlertHandler {
	return &AlertHandler{alerts: alerts, audit: audit, logger: logger}
}

func (h *AlertHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateAlertRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Error("invalid request body"))
	}

	if errs := req.Validate(); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	alert := req.ToModel()
	if err := h.alerts.CreateAlert(c.Context(), alert); err != nil {
		if errors.Is(err, services.ErrAlertBadPattern) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.Error(err.Error()))
		}
		h.logger.Errorw("alert_create_failed", "keyword", req.Keyword, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Error(err.Error()))
	}

	if h.audit != nil {
		h.audit.Record(c.Context(), domain.AuditLog{
			Action:      domain.AuditActionAlertCreate,
			Description: "keyword alert created: " + alert.Keyword,
			IPAddress:   c.IP(),
			UserAgent:   c.Get("User-Agent"),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "alert": alert})
}

func (h *AlertHandler) List(c *fiber.Ctx) error {
	alerts, err := h.alerts.ListAlerts(c.Context())
	if err != nil {
		h.logger.Errorw("alert_list_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Error(err.Error()))
	}
	return c.JSON(fiber.Map{"success": true, "alerts": alerts})
}

// Toggle flips an alert between active and paused.
func (h *AlertHandler) Toggle(c *fiber.Ctx) error {
	id, err := h.alertID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Error("invalid alert id"))
	}

	alert, err := h.alerts.ToggleAlert(c.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrAlertNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.Error("alert not found"))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Error(err.Error()))
	}
	return c.JSON(fiber.Map{"success": true, "alert": alert})
}

func (h *AlertHandler) Delete(c *fiber.Ctx) error {
	id, err := h.alertID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Error("invalid alert id"))
	}

	if err := h.alerts.DeleteAlert(c.Context(), id); err != nil {
		if errors.Is(err, services.ErrAlertNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.Error("alert not found"))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Error(err.Error()))
	}
	return c.JSON(dto.OK())
}

func (h *AlertHandler) alertID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	return uint(id), err
}
