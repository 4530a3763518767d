package ports

import (
	"context"
	"time"
)

// TelegramGateway abstracts the MTProto side of the system. The production
// adapter talks to a bridge sidecar; tests substitute a fake.
type TelegramGateway interface {
	SendCode(ctx context.Context, phone string) (*LoginCode, error)
	VerifyCode(ctx context.Context, session, phone, codeHash, code string) (*LoginResult, error)
	Verify2FA(ctx context.Context, session, password string) (*LoginResult, error)
	LogOut(ctx context.Context, session string) error
	ListDialogs(ctx context.Context, session string, limit int) ([]Dialog, error)
	FetchMessages(ctx context.Context, session string, chatID int64, limit int, offsetID int64) ([]RemoteMessage, error)
	ListMessageIDs(ctx context.Context, session string, chatID int64, limit int) ([]int64, error)
	DownloadMedia(ctx context.Context, session string, chatID, messageID int64, destDir string) (*MediaFile, error)
}

// LoginCode is the result of requesting a verification code.
type LoginCode struct {
	PhoneCodeHash string
	Session       string
}

// LoginResult is a completed (or 2FA-pending) sign-in.
type LoginResult struct {
	Session     string
	Requires2FA bool
	UserID      int64
	Username    string
	FirstName   string
	LastName    string
}

// Dialog is one chat as reported by the gateway.
type Dialog struct {
	ChatID       int64
	Title        string
	Type         string
	Username     string
	MembersCount int
	IsArchived   bool
	IsPinned     bool
	UnreadCount  int
}

// RemoteMessage is one upstream message before persistence.
type RemoteMessage struct {
	MessageID    int64
	Text         string
	Date         time.Time
	SenderID     int64
	SenderName   string
	IsOutgoing   bool
	HasMedia     bool
	MediaType    string
	MimeType     string
	FileName     string
	FileSize     int64
	Duration     int
	ReplyToMsgID int64
	Forwards     int
	Views        int
}

// MediaFile describes a downloaded media payload on local disk.
type MediaFile struct {
	Path     string
	FileName string
	FileSize int64
	MimeType string
}
