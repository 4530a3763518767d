package ports

import (
	"context"
	"time"

	"github.com/tgvault/backend/internal/domain"
)

type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uint) (*domain.Account, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Account, error)
	GetCurrent(ctx context.Context) (*domain.Account, error)
	GetAll(ctx context.Context) ([]domain.Account, error)
	Update(ctx context.Context, account *domain.Account) error
	SetCurrent(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}

type ChatRepository interface {
	Upsert(ctx context.Context, chat *domain.Chat) error
	GetByID(ctx context.Context, id uint) (*domain.Chat, error)
	GetByChatID(ctx context.Context, accountID uint, chatID int64) (*domain.Chat, error)
	ListByAccount(ctx context.Context, accountID uint) ([]domain.Chat, error)
	Update(ctx context.Context, chat *domain.Chat) error
	CountByAccount(ctx context.Context, accountID uint) (int64, error)
}

type MessageRepository interface {
	// Upsert stores a message keyed by (chat, message_id) and reports whether
	// a new row was created and, for existing rows, the previous text.
	Upsert(ctx context.Context, msg *domain.Message) (created bool, previousText string, err error)
	GetByID(ctx context.Context, id uint) (*domain.Message, error)
	ListByChat(ctx context.Context, chatID uint, limit, offset int) ([]domain.Message, error)
	ListByAccount(ctx context.Context, accountID uint) ([]domain.Message, error)
	ListIDsByChat(ctx context.Context, chatID uint) ([]int64, error)
	MarkDeleted(ctx context.Context, chatID uint, messageIDs []int64, at time.Time) (int64, error)
	Update(ctx context.Context, msg *domain.Message) error
	CreateEdit(ctx context.Context, edit *domain.MessageEdit) error
	CountByAccount(ctx context.Context, accountID uint) (int64, error)
	CountDeletedByAccount(ctx context.Context, accountID uint) (int64, error)
	DailyCounts(ctx context.Context, accountID uint, days int) (map[string]int64, error)
	TopSenders(ctx context.Context, accountID uint, limit int) ([]SenderCount, error)
	DistinctSenders(ctx context.Context, chatID uint) ([]int64, error)
}

type SenderCount struct {
	SenderID   int64  `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Count      int64  `json:"count"`
}

type SyncTaskRepository interface {
	Create(ctx context.Context, task *domain.SyncTask) error
	GetByID(ctx context.Context, id string) (*domain.SyncTask, error)
	Update(ctx context.Context, task *domain.SyncTask) error
	GetActiveByAccount(ctx context.Context, accountID uint) (*domain.SyncTask, error)
	ListByAccount(ctx context.Context, accountID uint, limit int) ([]domain.SyncTask, error)
}

type MediaHashRepository interface {
	Create(ctx context.Context, hash *domain.MediaHash) error
	GetByMessageID(ctx context.Context, messageID uint) (*domain.MediaHash, error)
	FindByFileHash(ctx context.Context, fileHash string, excludeMessageID uint) ([]domain.MediaHash, error)
	FindByPerceptualHash(ctx context.Context, perceptualHash string, excludeMessageID uint) ([]domain.MediaHash, error)
}

type AlertRepository interface {
	Create(ctx context.Context, alert *domain.KeywordAlert) error
	GetByID(ctx context.Context, id uint) (*domain.KeywordAlert, error)
	List(ctx context.Context) ([]domain.KeywordAlert, error)
	ListActive(ctx context.Context) ([]domain.KeywordAlert, error)
	Update(ctx context.Context, alert *domain.KeywordAlert) error
	Delete(ctx context.Context, id uint) error
	CreateTrigger(ctx context.Context, trigger *domain.AlertTrigger) error
}

type BackupRepository interface {
	Create(ctx context.Context, backup *domain.ScheduledBackup) error
	List(ctx context.Context) ([]domain.ScheduledBackup, error)
	ListActive(ctx context.Context) ([]domain.ScheduledBackup, error)
	GetByID(ctx context.Context, id uint) (*domain.ScheduledBackup, error)
	Update(ctx context.Context, backup *domain.ScheduledBackup) error
	Delete(ctx context.Context, id uint) error
	CreateHistory(ctx context.Context, history *domain.BackupHistory) error
}

type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
	List(ctx context.Context, limit int) ([]domain.AuditLog, error)
}

type AnalyticsCacheRepository interface {
	Get(ctx context.Context, accountID uint, cacheType string) (*domain.AnalyticsCache, error)
	Put(ctx context.Context, cache *domain.AnalyticsCache) error
}
