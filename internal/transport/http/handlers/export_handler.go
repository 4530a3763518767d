package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tgvault/backend/internal/core/ports"
	"github.com/tgvault/backend/internal/core/services"
	"github.com/tgvault/backend/internal/domain"
	"github.com/tgvault/backend/internal/infrastructure/logger"
	"github.com/tgvault/backend/internal/transport/http/dto"
)

type ExportHandler struct {
	export ports.ExportService
	audit  ports.AuditService
	logger *logger.Logger
}

func NewExportHandler(export ports.ExportService, audit ports.AuditService, logger *logger.Logger) *ExportHandler {
	return &ExportHandler{export: export, audit: audit, logger: logger}
}

// Export streams the account archive as a download attachment.
func (h *ExportHandler) Export(c *fiber.Ctx) error {
	format := domain.ExportFormat(c.Params("format"))
	switch format {
	case domain.ExportFormatJSON, domain.ExportFormatCSV, domain.ExportFormatHTML:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(dto.Error("format must be json, csv or html"))
	}

	accountID, err := strconv.ParseUint(c.Query("account_id"), 10, 32)
	if err != nil || accountID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Error("account_id query parameter is required"))
	}
	id := uint(accountID)

	filename := fmt.Sprintf("archive_%d_%s.%s", id, time.Now().Format("20060102"), format)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	switch format {
	case domain.ExportFormatJSON:
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	case domain.ExportFormatHTML:
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	default:
		c.Set(fiber.HeaderContentType, "text/csv")
	}

	stats, err := h.export.Export(c.Context(), id, format, c.Response().BodyWriter())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccountNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.Error("account not found"))
		case errors.Is(err, services.ErrExportEmpty):
			return c.Status(fiber.StatusNotFound).JSON(dto.Error("account has no data"))
		default:
			h.logger.Errorw("export_failed", "account_id", id, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.Error(err.Error()))
		}
	}

	if h.audit != nil {
		h.audit.Record(c.Context(), domain.AuditLog{
			Action:      domain.AuditActionExportData,
			Description: fmt.Sprintf("exported %d messages as %s", stats.Messages, format),
			AccountID:   &id,
			IPAddress:   c.IP(),
			UserAgent:   c.Get("User-Agent"),
		})
	}

	return nil
}
