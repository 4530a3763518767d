package dto

import (
	"strings"

	"github.com/tgvault/backend/internal/domain"
)

type ConnectRequest struct {
	Phone string `json:"phone"`
}

func (r *ConnectRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if strings.TrimSpace(r.Phone) == "" {
		errors["phone"] = "phone is required"
	} else if !strings.HasPrefix(r.Phone, "+") {
		errors["phone"] = "phone must be in international format (+...)"
	}
	return errors
}

// ConnectResponse carries the pending-login state the client must echo back
// on verify-code. The server never stores it.
type ConnectResponse struct {
	Success       bool   `json:"success"`
	Phone         string `json:"phone"`
	PhoneCodeHash string `json:"phone_code_hash"`
	Session       string `json:"session"`
}

type VerifyCodeRequest struct {
	Phone         string `json:"phone"`
	PhoneCodeHash string `json:"phone_code_hash"`
	Session       string `json:"session"`
	Code          string `json:"code"`
}

func (r *VerifyCodeRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Phone == "" {
		errors["phone"] = "phone is required"
	}
	if r.PhoneCodeHash == "" {
		errors["phone_code_hash"] = "phone_code_hash is required"
	}
	if r.Code == "" {
		errors["code"] = "code is required"
	}
	return errors
}

type Verify2FARequest struct {
	Phone    string `json:"phone"`
	Session  string `json:"session"`
	Password string `json:"password"`
}

func (r *Verify2FARequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Session == "" {
		errors["session"] = "session is required"
	}
	if r.Password == "" {
		errors["password"] = "password is required"
	}
	return errors
}

type VerifyResponse struct {
	Success     bool             `json:"success"`
	Requires2FA bool             `json:"requires_2fa,omitempty"`
	Account     *AccountResponse `json:"account,omitempty"`
}

type AccountResponse struct {
	ID          uint   `json:"id"`
	PhoneNumber string `json:"phone_number"`
	Label       string `json:"label"`
	Username    string `json:"username,omitempty"`
	IsActive    bool   `json:"is_active"`
	IsCurrent   bool   `json:"is_current"`
}

func AccountToResponse(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:          a.ID,
		PhoneNumber: a.PhoneNumber,
		Label:       a.Label(),
		Username:    a.TelegramUsername,
		IsActive:    a.IsActive,
		IsCurrent:   a.IsCurrent,
	}
}

func AccountsToResponse(accounts []domain.Account) []*AccountResponse {
	out := make([]*AccountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, AccountToResponse(&accounts[i]))
	}
	return out
}
