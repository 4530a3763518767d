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

type BackupHandler struct {
	backups *services.BackupService
	audit   ports.AuditService
	logger  *logger.Logger
}

func NewBackupHandler(backups *services.BackupService, audit ports.AuditService, logger *logger.Logger) *BackupHandler {
	return &BackupHandler{backups: backups, audit: audit, logger: logger}
}

func (h *BackupHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateBackupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Error("invalid request body"))
	}

	if errs := req.Validate(); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	backup := req.ToModel()
	if err := h.backups.CreateBackup(c.Context(), backup); err != nil {
		h.logger.Errorw("backup_create_failed", "name", req.Name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Error(err.Error()))
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "backup": backup})
}

func (h *BackupHandler) List(c *fiber.Ctx) error {
	backups, err := h.backups.ListBackups(c.Context())
	if err != nil {
		h.logger.Errorw("backup_list_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Error(err.Error()))
	}
	return c.JSON(fiber.Map{"success": true, "backups": backups})
}

// RunNow executes a schedule immediately. The run is synchronous; large
// archives can take a while, so clients should use a generous timeout.
func (h *BackupHandler) RunNow(c *fiber.Ctx) error {
	id, err := h.backupID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Error("invalid backup id"))
	}

	if err := h.backups.RunNow(c.Context(), id); err != nil {
		if errors.Is(err, services.ErrBackupNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.Error("backup schedule not found"))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Error(err.Error()))
	}

	if h.audit != nil {
		h.audit.Record(c.Context(), domain.AuditLog{
			Action:      domain.AuditActionBackupRun,
			Description: "backup run triggered manually",
			IPAddress:   c.IP(),
			UserAgent:   c.Get("User-Agent"),
		})
	}
	return c.JSON(dto.OK())
}

func (h *BackupHandler) Delete(c *fiber.Ctx) error {
	id, err := h.backupID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Error("invalid backup id"))
	}

	if err := h.backups.DeleteBackup(c.Context(), id); err != nil {
		if errors.Is(err, services.ErrBackupNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.Error("backup schedule not found"))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Error(err.Error()))
	}
	return c.JSON(dto.OK())
}

func (h *BackupHandler) backupID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	return uint(id), err
}
