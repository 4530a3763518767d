package db

import (
	"context"

	"gorm.io/gorm"

	"github.com/tgvault/backend/internal/core/ports"
	"github.com/tgvault/backend/internal/domain"
	"github.com/tgvault/backend/internal/infrastructure/logger"
)

type accountRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAccountRepository(db *gorm.DB, log *logger.Logger) ports.AccountRepository {
	return &accountRepository{db: db, log: log}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		r.log.Errorw("account_repo_create_failed", "phone", account.PhoneNumber, "error", err)
		return err
	}
	r.log.Infow("account_repo_create_ok", "id", account.ID, "phone", account.PhoneNumber)
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id uint) (*domain.Account, error) {
	var account domain.Account
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) GetByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	var account domain.Account
	if err := r.db.WithContext(ctx).Where("phone_number = ?", phone).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) GetCurrent(ctx context.Context) (*domain.Account, error) {
	var account domain.Account
	if err := r.db.WithContext(ctx).Where("is_current = ?", true).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) GetAll(ctx context.Context) ([]domain.Account, error) {
	var accounts []domain.Account
	if err := r.db.WithContext(ctx).Find(&accounts).Error; err != nil {
		r.log.Errorw("account_repo_list_failed", "error", err)
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	if err := r.db.WithContext(ctx).Save(account).Error; err != nil {
		r.log.Errorw("account_repo_update_failed", "id", account.ID, "error", err)
		return err
	}
	return nil
}

// SetCurrent marks one account current and clears the flag on every other.
func (r *accountRepository) SetCurrent(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Account{}).Where("is_current = ?", true).Update("is_current", false).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Account{}).Where("id = ?", id).Update("is_current", true).Error
	})
}

func (r *accountRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&domain.Account{}, id).Error; err != nil {
		r.log.Errorw("account_repo_delete_failed", "id", id, "error", err)
		return err
	}
	r.log.Infow("account_repo_delete_ok", "id", id)
	return nil
}
