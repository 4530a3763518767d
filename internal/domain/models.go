package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ==================== ENUMS ====================

type ChatType string

const (
	ChatTypeUser       ChatType = "user"
	ChatTypeGroup      ChatType = "group"
	ChatTypeSupergroup ChatType = "supergroup"
	ChatTypeChannel    ChatType = "channel"
)

type SyncTaskType string

const (
	SyncTaskTypeAll          SyncTaskType = "sync_all"
	SyncTaskTypeChat         SyncTaskType = "sync_chat"
	SyncTaskTypeCheckDeleted SyncTaskType = "check_deleted"
)

type SyncTaskStatus string

const (
	SyncStatusPending   SyncTaskStatus = "pending"
	SyncStatusRunning   SyncTaskStatus = "running"
	SyncStatusCompleted SyncTaskStatus = "completed"
	SyncStatusFailed    SyncTaskStatus = "failed"
	SyncStatusCancelled SyncTaskStatus = "cancelled"
)

// Terminal reports whether no further progress is possible for this status.
func (s SyncTaskStatus) Terminal() bool {
	return s == SyncStatusCompleted || s == SyncStatusFailed || s == SyncStatusCancelled
}

type MatchType string

const (
	MatchTypeExact    MatchType = "exact"
	MatchTypeContains MatchType = "contains"
	MatchTypeRegex    MatchType = "regex"
)

type BackupFrequency string

const (
	BackupFrequencyDaily   BackupFrequency = "daily"
	BackupFrequencyWeekly  BackupFrequency = "weekly"
	BackupFrequencyMonthly BackupFrequency = "monthly"
)

type ExportFormat string

const (
	ExportFormatJSON ExportFormat = "json"
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatHTML ExportFormat = "html"
)

type AuditAction string

const (
	AuditActionConnect       AuditAction = "connect_telegram"
	AuditActionDisconnect    AuditAction = "disconnect_telegram"
	AuditActionSyncStart     AuditAction = "sync_start"
	AuditActionSyncCancel    AuditAction = "sync_cancel"
	AuditActionExportData    AuditAction = "export_data"
	AuditActionDownloadMedia AuditAction = "download_media"
	AuditActionAlertCreate   AuditAction = "alert_create"
	AuditActionBackupRun     AuditAction = "backup_run"
)

// ==================== JSONB TYPES ====================

type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return errors.New("failed to scan JSONB: invalid type")
	}
}

// ==================== ENTITIES ====================

// Account is one connected Telegram account. The MTProto session string is
// stored AES-GCM encrypted and never serialized to clients.
type Account struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	PhoneNumber       string `gorm:"size:20;uniqueIndex;not null" json:"phone_number"`
	SessionString     string `gorm:"type:text" json:"-"`
	TelegramUserID    int64  `json:"telegram_user_id,omitempty"`
	TelegramUsername  string `gorm:"size:100" json:"telegram_username,omitempty"`
	TelegramFirstName string `gorm:"size:100" json:"telegram_first_name,omitempty"`
	TelegramLastName  string `gorm:"size:100" json:"telegram_last_name,omitempty"`
	DisplayName       string `gorm:"size:100" json:"display_name,omitempty"`
	IsActive          bool   `gorm:"default:false" json:"is_active"`
	IsCurrent         bool   `gorm:"default:false" json:"is_current"`

	Chats     []Chat     `gorm:"foreignKey:AccountID" json:"chats,omitempty"`
	SyncTasks []SyncTask `gorm:"foreignKey:AccountID" json:"sync_tasks,omitempty"`
}

// Label returns a human-readable name for the account.
func (a *Account) Label() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	if a.TelegramFirstName != "" {
		if a.TelegramLastName != "" {
			return a.TelegramFirstName + " " + a.TelegramLastName
		}
		return a.TelegramFirstName
	}
	if a.TelegramUsername != "" {
		return "@" + a.TelegramUsername
	}
	return a.PhoneNumber
}

// Chat is a synced Telegram dialog.
type Chat struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AccountID uint     `gorm:"not null;index;uniqueIndex:idx_chats_account_chat" json:"account_id"`
	Account   *Account `gorm:"constraint:OnDelete:CASCADE" json:"account,omitempty"`

	ChatID        int64      `gorm:"not null;uniqueIndex:idx_chats_account_chat" json:"chat_id"`
	Type          ChatType   `gorm:"size:20;not null" json:"type"`
	Title         string     `gorm:"size:255;not null" json:"title"`
	Username      string     `gorm:"size:100" json:"username,omitempty"`
	MembersCount  int        `json:"members_count,omitempty"`
	IsArchived    bool       `gorm:"default:false" json:"is_archived"`
	IsPinned      bool       `gorm:"default:false" json:"is_pinned"`
	LastMessageID int64      `json:"last_message_id,omitempty"`
	LastFullSync  *time.Time `json:"last_full_sync,omitempty"`
	TotalMessages int        `gorm:"default:0" json:"total_messages"`
}

// Message is one archived message with deletion and edit tracking. Rows are
// never removed when the message disappears upstream; they are flagged.
type Message struct {
	ID uint `gorm:"primaryKey" json:"id"`

	ChatID uint  `gorm:"not null;index;uniqueIndex:idx_messages_chat_msg" json:"chat_id"`
	Chat   *Chat `gorm:"constraint:OnDelete:CASCADE" json:"chat,omitempty"`

	MessageID    int64     `gorm:"not null;uniqueIndex:idx_messages_chat_msg" json:"message_id"`
	Text         string    `gorm:"type:text" json:"text"`
	Date         time.Time `gorm:"index" json:"date"`
	SenderID     int64     `json:"sender_id,omitempty"`
	SenderName   string    `gorm:"size:255" json:"sender_name,omitempty"`
	IsOutgoing   bool      `gorm:"default:false" json:"is_outgoing"`
	ReplyToMsgID int64     `json:"reply_to_msg_id,omitempty"`
	Forwards     int       `json:"forwards,omitempty"`
	Views        int       `json:"views,omitempty"`

	// Media
	HasMedia      bool   `gorm:"default:false" json:"has_media"`
	MediaType     string `gorm:"size:50" json:"media_type,omitempty"`
	MediaFilePath string `gorm:"size:500" json:"-"`
	MediaFileName string `gorm:"size:255" json:"media_file_name,omitempty"`
	MediaFileSize int64  `json:"media_file_size,omitempty"`
	MediaMimeType string `gorm:"size:100" json:"media_mime_type,omitempty"`
	MediaDuration int    `json:"media_duration,omitempty"`

	// Deletion tracking. Plain timestamp, not a gorm soft delete: deleted
	// messages stay fully queryable.
	IsDeleted bool       `gorm:"default:false;index" json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	FirstSeenAt time.Time `gorm:"autoCreateTime" json:"first_seen_at"`
	LastSeenAt  time.Time `gorm:"autoUpdateTime" json:"last_seen_at"`
}

// MessageEdit is one detected text change of an archived message.
type MessageEdit struct {
	ID uint `gorm:"primaryKey" json:"id"`

	MessageID uint     `gorm:"not null;index" json:"message_id"`
	Message   *Message `gorm:"constraint:OnDelete:CASCADE" json:"message,omitempty"`

	PreviousText string    `gorm:"type:text" json:"previous_text"`
	NewText      string    `gorm:"type:text" json:"new_text"`
	DetectedAt   time.Time `gorm:"autoCreateTime" json:"detected_at"`
}

// SyncTask tracks one background sync job and its observable progress. The
// row is the single source of truth the status endpoint snapshots from.
type SyncTask struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AccountID uint     `gorm:"not null;index" json:"account_id"`
	Account   *Account `gorm:"constraint:OnDelete:CASCADE" json:"account,omitempty"`

	Type   SyncTaskType   `gorm:"size:20;not null;default:'sync_all'" json:"type"`
	Status SyncTaskStatus `gorm:"size:20;not null;default:'pending'" json:"status"`

	// Counters are cumulative and never decrease within one task.
	TotalChats     int `gorm:"default:0" json:"total_chats"`
	SyncedChats    int `gorm:"default:0" json:"synced_chats"`
	TotalMessages  int `gorm:"default:0" json:"total_messages"`
	SyncedMessages int `gorm:"default:0" json:"synced_messages"`
	NewMessages    int `gorm:"default:0" json:"new_messages"`
	SyncedUsers    int `gorm:"default:0" json:"synced_users"`

	// Current activity, empty once the per-chat phase has passed.
	CurrentChatID    int64  `json:"current_chat_id,omitempty"`
	CurrentChatTitle string `gorm:"size:255" json:"current_chat_title,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	ErrorMessage string `gorm:"type:text" json:"error_message,omitempty"`
	Log          string `gorm:"type:text" json:"log,omitempty"`
}

// ProgressPercent derives overall progress from chat counters, clamped to
// [0,100]. Zero while chat discovery has not completed.
func (t *SyncTask) ProgressPercent() int {
	if t.TotalChats <= 0 {
		return 0
	}
	pct := t.SyncedChats * 100 / t.TotalChats
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func (t *SyncTask) IsRunning() bool {
	return t.Status == SyncStatusRunning
}

func (t *SyncTask) IsFinished() bool {
	return t.Status.Terminal()
}

// MediaHash stores content hashes of a downloaded media file for duplicate
// detection across chats.
type MediaHash struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	MessageID uint     `gorm:"not null;uniqueIndex" json:"message_id"`
	Message   *Message `gorm:"constraint:OnDelete:CASCADE" json:"message,omitempty"`

	FileHash       string `gorm:"size:64;index" json:"file_hash"`
	PerceptualHash string `gorm:"size:64;index" json:"perceptual_hash,omitempty"`
	FileSize       int64  `gorm:"default:0" json:"file_size"`
}

// KeywordAlert watches incoming messages for a keyword.
type KeywordAlert struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Keyword       string    `gorm:"size:200;not null" json:"keyword"`
	MatchType     MatchType `gorm:"size:20;not null;default:'contains'" json:"match_type"`
	CaseSensitive bool      `gorm:"default:false" json:"case_sensitive"`
	IsActive      bool      `gorm:"default:true" json:"is_active"`

	NotifyWebhook bool   `gorm:"default:false" json:"notify_webhook"`
	WebhookURL    string `gorm:"size:500" json:"webhook_url,omitempty"`

	LastTriggered *time.Time `json:"last_triggered,omitempty"`
	TriggerCount  int        `gorm:"default:0" json:"trigger_count"`
}

// AlertTrigger is one match of a keyword alert against a message.
type AlertTrigger struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	AlertID   uint          `gorm:"not null;index" json:"alert_id"`
	Alert     *KeywordAlert `gorm:"constraint:OnDelete:CASCADE" json:"alert,omitempty"`
	MessageID uint          `gorm:"not null;index" json:"message_id"`
	Message   *Message      `gorm:"constraint:OnDelete:CASCADE" json:"message,omitempty"`

	Notified bool `gorm:"default:false" json:"notified"`
}

// ScheduledBackup configures a recurring export of an account's archive.
type ScheduledBackup struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	AccountID uint     `gorm:"not null;index" json:"account_id"`
	Account   *Account `gorm:"constraint:OnDelete:CASCADE" json:"account,omitempty"`

	Name      string          `gorm:"size:100;not null" json:"name"`
	IsActive  bool            `gorm:"default:true" json:"is_active"`
	Frequency BackupFrequency `gorm:"size:20;not null;default:'weekly'" json:"frequency"`
	Format    ExportFormat    `gorm:"size:10;not null;default:'json'" json:"format"`

	LastRun *time.Time `json:"last_run,omitempty"`
	NextRun *time.Time `json:"next_run,omitempty"`
}

// BackupHistory is one completed or failed backup run.
type BackupHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	ScheduledBackupID *uint            `gorm:"index" json:"scheduled_backup_id,omitempty"`
	ScheduledBackup   *ScheduledBackup `json:"scheduled_backup,omitempty"`

	AccountID     uint   `gorm:"not null;index" json:"account_id"`
	Succeeded     bool   `gorm:"default:false" json:"succeeded"`
	FilePath      string `gorm:"size:500" json:"file_path,omitempty"`
	FileSize      int64  `gorm:"default:0" json:"file_size"`
	MessagesCount int    `gorm:"default:0" json:"messages_count"`
	ChatsCount    int    `gorm:"default:0" json:"chats_count"`
	Uploaded      bool   `gorm:"default:false" json:"uploaded"`
	ErrorMessage  string `gorm:"type:text" json:"error_message,omitempty"`
}

// AuditLog records a user-visible action against the archive.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Action      AuditAction `gorm:"size:50;not null;index" json:"action"`
	Description string      `gorm:"type:text" json:"description,omitempty"`
	IPAddress   string      `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent   string      `gorm:"type:text" json:"user_agent,omitempty"`

	AccountID *uint `gorm:"index" json:"account_id,omitempty"`
	ChatID    *uint `gorm:"index" json:"chat_id,omitempty"`
	MessageID *uint `gorm:"index" json:"message_id,omitempty"`

	Metadata JSONB `gorm:"type:jsonb" json:"metadata,omitempty"`
}

// AnalyticsCache holds a computed analytics payload with an expiry.
type AnalyticsCache struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	AccountID uint   `gorm:"not null;uniqueIndex:idx_analytics_account_type" json:"account_id"`
	CacheType string `gorm:"size:50;not null;uniqueIndex:idx_analytics_account_type" json:"cache_type"`

	Data      JSONB     `gorm:"type:jsonb" json:"data"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}
