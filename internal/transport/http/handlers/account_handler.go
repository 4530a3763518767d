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

type AccountHandler struct {
	sessions ports.SessionService
	audit    ports.AuditService
	logger   *logger.Logger
}

func NewAccountHandler(sessions ports.SessionService, audit ports.AuditService, logger *logger.Logger) *AccountHandler {
	return &AccountHandler{sessions: sessions, audit: audit, logger: logger}
}

// Connect starts the login flow by requesting a verification code.
func (h *AccountHandler) Connect(c *fiber.Ctx) error {
	var req dto.ConnectRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("account_connect_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.Error("invalid request body"))
	}

	if errs := req.Validate(); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	login, err := h.sessions.SendCode(c.Context(), req.Phone)
	if err != nil {
		if errors.Is(err, services.ErrAccountInvalidPhone) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.Error(err.Error()))
		}
		h.logger.Errorw("account_connect_failed", "phone", req.Phone, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(dto.Error("failed to request verification code"))
	}

	return c.JSON(dto.ConnectResponse{
		Success:       true,
		Phone:         login.Phone,
		PhoneCodeHash: login.PhoneCodeHash,
		Session:       login.Session,
	})
}

// ResendCode re-requests a code for the same phone.
func (h *AccountHandler) ResendCode(c *fiber.Ctx) error {
	return h.Connect(c)
}

func (h *AccountHandler) VerifyCode(c *fiber.Ctx) error {
	var req dto.VerifyCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Error("invalid request body"))
	}

	if errs := req.Validate(); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	login := ports.PendingLogin{
		Phone:         req.Phone,
		PhoneCodeHash: req.PhoneCodeHash,
		Session:       req.Session,
	}

	account, err := h.sessions.VerifyCode(c.Context(), login, req.Code)
	if err != nil {
		if errors.Is(err, services.ErrTwoFARequired) {
			return c.JSON(dto.VerifyResponse{Success: true, Requires2FA: true})
		}
		h.logger.Warnw("account_verify_code_failed", "phone", req.Phone, "error", err)
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Error("invalid verification code"))
	}

	h.recordAudit(c, domain.AuditActionConnect, &account.ID, "account connected")
	h.logger.Infow("account_connected", "account_id", account.ID)
	return c.JSON(dto.VerifyResponse{Success: true, Account: dto.AccountToResponse(account)})
}

func (h *AccountHandler) Verify2FA(c *fiber.Ctx) error {
	var req dto.Verify2FARequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Error("invalid request body"))
	}

	if errs := req.Validate(); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	login := ports.PendingLogin{Phone: req.Phone, Session: req.Session}

	account, err := h.sessions.Verify2FA(c.Context(), login, req.Password)
	if err != nil {
		h.logger.Warnw("account_verify_2fa_failed", "phone", req.Phone, "error", err)
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Error("invalid two-factor password"))
	}

	h.recordAudit(c, domain.AuditActionConnect, &account.ID, "account connected with 2fa")
	h.logger.Infow("account_connected_2fa", "account_id", account.ID)
	return c.JSON(dto.VerifyResponse{Success: true, Account: dto.AccountToResponse(account)})
}

func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	accounts, err := h.sessions.ListAccounts(c.Context())
	if err != nil {
		h.logger.Errorw("accounts_list_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Error(err.Error()))
	}
	return c.JSON(fiber.Map{"success": true, "accounts": dto.AccountsToResponse(accounts)})
}

func (h *AccountHandler) SetCurrent(c *fiber.Ctx) error {
	id, err := h.accountID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Error("invalid account id"))
	}

	if err := h.sessions.SetCurrent(c.Context(), id); err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.Error("account not found"))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Error(err.Error()))
	}
	return c.JSON(dto.OK())
}

func (h *AccountHandler) Disconnect(c *fiber.Ctx) error {
	id, err := h.accountID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Error("invalid account id"))
	}

	if err := h.sessions.Disconnect(c.Context(), id); err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.Error("account not found"))
		}
		h.logger.Errorw("account_disconnect_failed", "account_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Error(err.Error()))
	}

	h.recordAudit(c, domain.AuditActionDisconnect, &id, "account disconnected")
	return c.JSON(dto.OK())
}

func (h *AccountHandler) DeleteAccount(c *fiber.Ctx) error {
	id, err := h.accountID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Error("invalid account id"))
	}

	if err := h.sessions.DeleteAccount(c.Context(), id); err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.Error("account not found"))
		}
		h.logger.Errorw("account_delete_failed", "account_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Error(err.Error()))
	}

	h.recordAudit(c, domain.AuditActionDisconnect, &id, "account deleted")
	return c.JSON(dto.OK())
}

func (h *AccountHandler) accountID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	return uint(id), err
}

func (h *AccountHandler) recordAudit(c *fiber.Ctx, action domain.AuditAction, accountID *uint, description string) {
	if h.audit == nil {
		return
	}
	h.audit.Record(c.Context(), domain.AuditLog{
		Action:      action,
		Description: description,
		AccountID:   accountID,
		IPAddress:   c.IP(),
		UserAgent:   c.Get("User-Agent"),
	})
}
