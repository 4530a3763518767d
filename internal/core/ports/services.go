package ports

import (
	"context"
	"io"

	"github.com/tgvault/backend/internal/domain"
)

type SessionService interface {
	SendCode(ctx context.Context, phone string) (*PendingLogin, error)
	// VerifyCode returns ErrTwoFARequired when the account still needs its
	// two-factor password; the caller then proceeds to Verify2FA.
	VerifyCode(ctx context.Context, login PendingLogin, code string) (*domain.Account, error)
	Verify2FA(ctx context.Context, login PendingLogin, password string) (*domain.Account, error)
	Disconnect(ctx context.Context, accountID uint) error
	DeleteAccount(ctx context.Context, accountID uint) error
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	SetCurrent(ctx context.Context, accountID uint) error
}

// PendingLogin carries the intermediate state of the code/2FA flow between
// requests. It is round-tripped through the client, never stored server-side.
type PendingLogin struct {
	Phone         string `json:"phone"`
	PhoneCodeHash string `json:"phone_code_hash"`
	Session       string `json:"session"`
}

type SyncService interface {
	StartSync(ctx context.Context, accountID uint, taskType domain.SyncTaskType, chatID int64) (string, error)
	CancelSync(ctx context.Context, taskID string) error
	GetStatus(ctx context.Context, taskID string) (*domain.SyncTask, error)
}

type MediaService interface {
	TriggerDownload(ctx context.Context, messageID uint) (*MediaDownloadResult, error)
}

type MediaDownloadResult struct {
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
	Duplicate   bool   `json:"duplicate"`
	DuplicateOf []uint `json:"duplicate_of,omitempty"`
}

type ExportService interface {
	Export(ctx context.Context, accountID uint, format domain.ExportFormat, w io.Writer) (*ExportStats, error)
}

type ExportStats struct {
	Chats    int   `json:"chats"`
	Messages int   `json:"messages"`
	Bytes    int64 `json:"bytes"`
}

type AnalyticsService interface {
	Summary(ctx context.Context, accountID uint) (*AnalyticsSummary, error)
}

type AnalyticsSummary struct {
	TotalChats      int64            `json:"total_chats"`
	TotalMessages   int64            `json:"total_messages"`
	DeletedMessages int64            `json:"deleted_messages"`
	DailyActivity   map[string]int64 `json:"daily_activity"`
	TopSenders      []SenderCount    `json:"top_senders"`
	Cached          bool             `json:"cached"`
}

type AlertService interface {
	EvaluateMessage(ctx context.Context, msg *domain.Message)
	CreateAlert(ctx context.Context, alert *domain.KeywordAlert) error
	ListAlerts(ctx context.Context) ([]domain.KeywordAlert, error)
	ToggleAlert(ctx context.Context, id uint) (*domain.KeywordAlert, error)
	DeleteAlert(ctx context.Context, id uint) error
}

type AuditService interface {
	Record(ctx context.Context, entry domain.AuditLog)
	List(ctx context.Context, limit int) ([]domain.AuditLog, error)
}
