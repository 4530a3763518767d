package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tgvault/backend/internal/core/ports"
	"github.com/tgvault/backend/internal/domain"
	"github.com/tgvault/backend/internal/infrastructure/logger"
)

type messageRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepository(db *gorm.DB, log *logger.Logger) ports.MessageRepository {
	return &messageRepository{db: db, log: log}
}

func (r *messageRepository) Upsert(ctx context.Context, msg *domain.Message) (bool, string, error) {
	var existing domain.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND message_id = ?", msg.ChatID, msg.MessageID).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
			r.log.Errorw("message_repo_create_failed", "chat_id", msg.ChatID, "message_id", msg.MessageID, "error", err)
			return false, "", err
		}
		return true, "", nil
	}
	if err != nil {
		return false, "", err
	}

	previousText := existing.Text
	msg.ID = existing.ID
	msg.FirstSeenAt = existing.FirstSeenAt
	// Deletion flags survive re-sync: a message seen again is still the row
	// of record, but upstream reappearance never un-deletes it here.
	msg.IsDeleted = existing.IsDeleted
	msg.DeletedAt = existing.DeletedAt
	if err := r.db.WithContext(ctx).Save(msg).Error; err != nil {
		return false, "", err
	}
	return false, previousText, nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uint) (*domain.Message, error) {
	var msg domain.Message
	if err := r.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) ListByChat(ctx context.Context, chatID uint, limit, offset int) ([]domain.Message, error) {
	var msgs []domain.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("date DESC").
		Limit(limit).Offset(offset).
		Find(&msgs).Error
	return msgs, err
}

func (r *messageRepository) ListByAccount(ctx context.Context, accountID uint) ([]domain.Message, error) {
	var msgs []domain.Message
	err := r.db.WithContext(ctx).
		Joins("JOIN chats ON chats.id = messages.chat_id").
		Where("chats.account_id = ?", accountID).
		Order("messages.date ASC").
		Find(&msgs).Error
	return msgs, err
}

func (r *messageRepository) ListIDsByChat(ctx context.Context, chatID uint) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&domain.Message{}).
		Where("chat_id = ? AND is_deleted = ?", chatID, false).
		Pluck("message_id", &ids).Error
	return ids, err
}

func (r *messageRepository) MarkDeleted(ctx context.Context, chatID uint, messageIDs []int64, at time.Time) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&domain.Message{}).
		Where("chat_id = ? AND message_id IN ? AND is_deleted = ?", chatID, messageIDs, false).
		Updates(map[string]interface{}{"is_deleted": true, "deleted_at": at})
	if res.Error != nil {
		r.log.Errorw("message_repo_mark_deleted_failed", "chat_id", chatID, "error", res.Error)
		return 0, res.Error
	}
	r.log.Infow("message_repo_mark_deleted_ok", "chat_id", chatID, "count", res.RowsAffected)
	return res.RowsAffected, nil
}

func (r *messageRepository) Update(ctx context.Context, msg *domain.Message) error {
	return r.db.WithContext(ctx).Save(msg).Error
}

func (r *messageRepository) CreateEdit(ctx context.Context, edit *domain.MessageEdit) error {
	return r.db.WithContext(ctx).Create(edit).Error
}

func (r *messageRepository) CountByAccount(ctx context.Context, accountID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Message{}).
		Joins("JOIN chats ON chats.id = messages.chat_id").
		Where("chats.account_id = ?", accountID).
		Count(&count).Error
	return count, err
}

func (r *messageRepository) CountDeletedByAccount(ctx context.Context, accountID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Message{}).
		Joins("JOIN chats ON chats.id = messages.chat_id").
		Where("chats.account_id = ? AND messages.is_deleted = ?", accountID, true).
		Count(&count).Error
	return count, err
}

func (r *messageRepository) DailyCounts(ctx context.Context, accountID uint, days int) (map[string]int64, error) {
	since := time.Now().AddDate(0, 0, -days)

	type row struct {
		Day   string
		Count int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&domain.Message{}).
		Select("DATE(messages.date) AS day, COUNT(*) AS count").
		Joins("JOIN chats ON chats.id = messages.chat_id").
		Where("chats.account_id = ? AND messages.date >= ?", accountID, since).
		Group("DATE(messages.date)").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Day] = r.Count
	}
	return counts, nil
}

func (r *messageRepository) TopSenders(ctx context.Context, accountID uint, limit int) ([]ports.SenderCount, error) {
	var senders []ports.SenderCount
	err := r.db.WithContext(ctx).Model(&domain.Message{}).
		Select("messages.sender_id, messages.sender_name, COUNT(*) AS count").
		Joins("JOIN chats ON chats.id = messages.chat_id").
		Where("chats.account_id = ? AND messages.sender_id != 0", accountID).
		Group("messages.sender_id, messages.sender_name").
		Order("count DESC").
		Limit(limit).
		Scan(&senders).Error
	return senders, err
}

func (r *messageRepository) DistinctSenders(ctx context.Context, chatID uint) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&domain.Message{}).
		Where("chat_id = ? AND sender_id != 0", chatID).
		Distinct().
		Pluck("sender_id", &ids).Error
	return ids, err
}
