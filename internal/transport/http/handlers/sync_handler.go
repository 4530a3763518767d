package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/tgvault/backend/internal/core/ports"
	"github.com/tgvault/backend/internal/core/services"
	"github.com/tgvault/backend/internal/domain"
	"github.com/tgvault/backend/internal/infrastructure/logger"
	"github.com/tgvault/backend/internal/transport/http/dto"
)

type SyncHandler struct {
	sync   ports.SyncService
	audit  ports.AuditService
	logger *logger.Logger
}

func NewSyncHandler(sync ports.SyncService, audit ports.AuditService, logger *logger.Logger) *SyncHandler {
	return &SyncHandler{sync: sync, audit: audit, logger: logger}
}

// StartSync launches a background sync task and returns its id immediately.
func (h *SyncHandler) StartSync(c *fiber.Ctx) error {
	var req dto.StartSyncRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("sync_start_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.Error("invalid request body"))
	}

	if errs := req.Validate(); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	taskID, err := h.sync.StartSync(c.Context(), req.AccountID, req.GetTaskType(), req.ChatID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSyncAlreadyRunning):
			return c.Status(fiber.StatusConflict).JSON(dto.Error("a sync is already in progress"))
		case errors.Is(err, services.ErrAccountNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.Error("account not found"))
		case errors.Is(err, services.ErrSyncNoSession):
			return c.Status(fiber.StatusBadRequest).JSON(dto.Error("account is not connected"))
		default:
			h.logger.Errorw("sync_start_failed", "account_id", req.AccountID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.Error(err.Error()))
		}
	}

	if h.audit != nil {
		h.audit.Record(c.Context(), domain.AuditLog{
			Action:      domain.AuditActionSyncStart,
			Description: "sync task " + taskID,
			AccountID:   &req.AccountID,
			IPAddress:   c.IP(),
			UserAgent:   c.Get("User-Agent"),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.StartSyncResponse{Success: true, TaskID: taskID})
}

// GetStatus is the polling endpoint; it snapshots the task row as-is.
func (h *SyncHandler) GetStatus(c *fiber.Ctx) error {
	task, err := h.sync.GetStatus(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.Error("sync task not found"))
	}
	return c.JSON(dto.TaskToStatusResponse(task))
}

// Cancel requests cooperative cancellation. The response only acknowledges
// the request; the task reports cancelled once the worker observes it.
func (h *SyncHandler) Cancel(c *fiber.Ctx) error {
	taskID := c.Params("id")

	if err := h.sync.CancelSync(c.Context(), taskID); err != nil {
		switch {
		case errors.Is(err, services.ErrSyncTaskNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.Error("sync task not found"))
		case errors.Is(err, services.ErrSyncNotRunning):
			return c.Status(fiber.StatusConflict).JSON(dto.Error("sync task is not running"))
		default:
			h.logger.Errorw("sync_cancel_failed", "task_id", taskID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.Error(err.Error()))
		}
	}

	if h.audit != nil {
		h.audit.Record(c.Context(), domain.AuditLog{
			Action:      domain.AuditActionSyncCancel,
			Description: "sync task " + taskID,
			IPAddress:   c.IP(),
			UserAgent:   c.Get("User-Agent"),
		})
	}

	return c.JSON(dto.OK())
}
