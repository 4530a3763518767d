package db

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tgvault/backend/internal/core/ports"
	"github.com/tgvault/backend/internal/domain"
	"github.com/tgvault/backend/internal/infrastructure/logger"
)

type chatRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatRepository(db *gorm.DB, log *logger.Logger) ports.ChatRepository {
	return &chatRepository{db: db, log: log}
}

func (r *chatRepository) Upsert(ctx context.Context, chat *domain.Chat) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"type", "title", "username", "members_count", "is_archived", "is_pinned", "updated_at",
		}),
	}).Create(chat).Error
	if err != nil {
		r.log.Errorw("chat_repo_upsert_failed", "chat_id", chat.ChatID, "error", err)
	}
	return err
}

func (r *chatRepository) GetByID(ctx context.Context, id uint) (*domain.Chat, error) {
	var chat domain.Chat
	if err := r.db.WithContext(ctx).First(&chat, id).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *chatRepository) GetByChatID(ctx context.Context, accountID uint, chatID int64) (*domain.Chat, error) {
	var chat domain.Chat
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND chat_id = ?", accountID, chatID).
		First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *chatRepository) ListByAccount(ctx context.Context, accountID uint) ([]domain.Chat, error) {
	var chats []domain.Chat
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("is_pinned DESC, title ASC").
		Find(&chats).Error
	return chats, err
}

func (r *chatRepository) Update(ctx context.Context, chat *domain.Chat) error {
	return r.db.WithContext(ctx).Save(chat).Error
}

func (r *chatRepository) CountByAccount(ctx context.Context, accountID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Chat{}).
		Where("account_id = ?", accountID).
		Count(&count).Error
	return count, err
}
