package services

import (
	"context"
	"regexp"

	"github.com/tgvault/backend/internal/core/ports"
	"github.com/tgvault/backend/internal/domain"
	"github.com/tgvault/backend/internal/infrastructure/logger"
	"github.com/tgvault/backend/pkg/utils/crypto"
)

var phonePattern = regexp.MustCompile(`^\+[0-9]{7,15}$`)

type sessionService struct {
	accounts ports.AccountRepository
	gateway  ports.TelegramGateway
	cipher   *crypto.Cipher
	logger   *logger.Logger
}

type SessionServiceConfig struct {
	Accounts ports.AccountRepository
	Gateway  ports.TelegramGateway
	Cipher   *crypto.Cipher
	Logger   *logger.Logger
}

func NewSessionService(cfg SessionServiceConfig) ports.SessionService {
	return &sessionService{
		accounts: cfg.Accounts,
		gateway:  cfg.Gateway,
		cipher:   cfg.Cipher,
		logger:   cfg.Logger,
	}
}

func (s *sessionService) SendCode(ctx context.Context, phone string) (*ports.PendingLogin, error) {
	if !phonePattern.MatchString(phone) {
		return nil, ErrAccountInvalidPhone
	}

	code, err := s.gateway.SendCode(ctx, phone)
	if err != nil {
		s.logger.Errorw("session_send_code_failed", "phone", phone, "error", err)
		return nil, err
	}

	s.logger.Infow("session_code_sent", "phone", phone)
	return &ports.PendingLogin{
		Phone:         phone,
		PhoneCodeHash: code.PhoneCodeHash,
		Session:       code.Session,
	}, nil
}

// VerifyCode completes sign-in with the SMS code. An account protected by a
// cloud password gets ErrTwoFARequired; the client continues with Verify2FA.
func (s *sessionService) VerifyCode(ctx context.Context, login ports.PendingLogin, code string) (*domain.Account, error) {
	result, err := s.gateway.VerifyCode(ctx, login.Session, login.Phone, login.PhoneCodeHash, code)
	if err != nil {
		s.logger.Errorw("session_verify_code_failed", "phone", login.Phone, "error", err)
		return nil, ErrLoginFailed
	}

	if result.Requires2FA {
		s.logger.Infow("session_2fa_required", "phone", login.Phone)
		return nil, ErrTwoFARequired
	}

	return s.storeAccount(ctx, login.Phone, result)
}

func (s *sessionService) Verify2FA(ctx context.Context, login ports.PendingLogin, password string) (*domain.Account, error) {
	result, err := s.gateway.Verify2FA(ctx, login.Session, password)
	if err != nil {
		s.logger.Errorw("session_verify_2fa_failed", "phone", login.Phone, "error", err)
		return nil, ErrLoginFailed
	}

	return s.storeAccount(ctx, login.Phone, result)
}

// storeAccount encrypts the session string and creates or refreshes the
// account row. A first account becomes current automatically.
func (s *sessionService) storeAccount(ctx context.Context, phone string, result *ports.LoginResult) (*domain.Account, error) {
	encrypted, err := s.cipher.Encrypt(result.Session)
	if err != nil {
		s.logger.Errorw("session_encrypt_failed", "phone", phone, "error", err)
		return nil, err
	}

	account, err := s.accounts.GetByPhone(ctx, phone)
	if err != nil {
		existing, listErr := s.accounts.GetAll(ctx)
		if listErr != nil {
			return nil, listErr
		}

		account = &domain.Account{
			PhoneNumber:       phone,
			SessionString:     encrypted,
			TelegramUserID:    result.UserID,
			TelegramUsername:  result.Username,
			TelegramFirstName: result.FirstName,
			TelegramLastName:  result.LastName,
			IsActive:          true,
			IsCurrent:         len(existing) == 0,
		}
		if err := s.accounts.Create(ctx, account); err != nil {
			return nil, err
		}
		s.logger.Infow("session_account_created", "account_id", account.ID, "phone", phone)
		return account, nil
	}

	account.SessionString = encrypted
	account.TelegramUserID = result.UserID
	account.TelegramUsername = result.Username
	account.TelegramFirstName = result.FirstName
	account.TelegramLastName = result.LastName
	account.IsActive = true
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}
	s.logger.Infow("session_account_refreshed", "account_id", account.ID, "phone", phone)
	return account, nil
}

func (s *sessionService) Disconnect(ctx context.Context, accountID uint) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return ErrAccountNotFound
	}

	if account.SessionString != "" {
		if session, err := s.cipher.Decrypt(account.SessionString); err == nil {
			if err := s.gateway.LogOut(ctx, session); err != nil {
				s.logger.Warnw("session_logout_failed", "account_id", accountID, "error", err)
			}
		}
	}

	account.SessionString = ""
	account.IsActive = false
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}

	s.logger.Infow("session_disconnected", "account_id", accountID)
	return nil
}

// DeleteAccount logs the session out upstream, then removes the account row.
// Chats and messages cascade with it.
func (s *sessionService) DeleteAccount(ctx context.Context, accountID uint) error {
	if err := s.Disconnect(ctx, accountID); err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, accountID); err != nil {
		return err
	}
	s.logger.Infow("session_account_deleted", "account_id", accountID)
	return nil
}

func (s *sessionService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return s.accounts.GetAll(ctx)
}

func (s *sessionService) SetCurrent(ctx context.Context, accountID uint) error {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return ErrAccountNotFound
	}
	return s.accounts.SetCurrent(ctx, accountID)
}
