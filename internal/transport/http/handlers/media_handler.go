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

type MediaHandler struct {
	media  ports.MediaService
	audit  ports.AuditService
	logger *logger.Logger
}

func NewMediaHandler(media ports.MediaService, audit ports.AuditService, logger *logger.Logger) *MediaHandler {
	return &MediaHandler{media: media, audit: audit, logger: logger}
}

// TriggerDownload fetches a message's media on demand.
func (h *MediaHandler) TriggerDownload(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("messageId"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Error("invalid message id"))
	}
	messageID := uint(id)

	result, err := h.media.TriggerDownload(c.Context(), messageID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMessageNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.Error("message not found"))
		case errors.Is(err, services.ErrNoMedia):
			return c.Status(fiber.StatusBadRequest).JSON(dto.Error("message has no media"))
		case errors.Is(err, services.ErrSyncNoSession):
			return c.Status(fiber.StatusBadRequest).JSON(dto.Error("account is not connected"))
		default:
			h.logger.Errorw("media_trigger_failed", "message_id", messageID, "error", err)
			return c.Status(fiber.StatusBadGateway).JSON(dto.Error("download failed"))
		}
	}

	if h.audit != nil {
		h.audit.Record(c.Context(), domain.AuditLog{
			Action:      domain.AuditActionDownloadMedia,
			Description: "media download " + result.FileName,
			MessageID:   &messageID,
			IPAddress:   c.IP(),
			UserAgent:   c.Get("User-Agent"),
		})
	}

	return c.JSON(dto.MediaDownloadResponse{
		Success:     true,
		FileName:    result.FileName,
		FileSize:    result.FileSize,
		Duplicate:   result.Duplicate,
		DuplicateOf: result.DuplicateOf,
	})
}
