package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"html/template"
	"io"
	"strconv"
	"time"

	"github.com/tgvault/backend/internal/core/ports"
	"github.com/tgvault/backend/internal/domain"
	"github.com/tgvault/backend/internal/infrastructure/logger"
)

type exportService struct {
	accounts ports.AccountRepository
	chats    ports.ChatRepository
	messages ports.MessageRepository
	logger   *logger.Logger
}

type ExportServiceConfig struct {
	Accounts ports.AccountRepository
	Chats    ports.ChatRepository
	Messages ports.MessageRepository
	Logger   *logger.Logger
}

func NewExportService(cfg ExportServiceConfig) ports.ExportService {
	return &exportService{
		accounts: cfg.Accounts,
		chats:    cfg.Chats,
		messages: cfg.Messages,
		logger:   cfg.Logger,
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// exportChat is the serialized shape of one chat with its messages.
type exportChat struct {
	ChatID   int64           `json:"chat_id"`
	Title    string          `json:"title"`
	Type     domain.ChatType `json:"type"`
	Username string          `json:"username,omitempty"`
	Messages []exportMessage `json:"messages"`
}

type exportMessage struct {
	MessageID  int64      `json:"message_id"`
	Date       time.Time  `json:"date"`
	SenderID   int64      `json:"sender_id,omitempty"`
	SenderName string     `json:"sender_name,omitempty"`
	Text       string     `json:"text"`
	IsOutgoing bool       `json:"is_outgoing"`
	IsDeleted  bool       `json:"is_deleted"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	HasMedia   bool       `json:"has_media"`
	MediaType  string     `json:"media_type,omitempty"`
}

func (s *exportService) Export(ctx context.Context, accountID uint, format domain.ExportFormat, w io.Writer) (*ports.ExportStats, error) {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, ErrAccountNotFound
	}

	chats, err := s.chats.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return nil, ErrExportEmpty
	}

	cw := &countingWriter{w: w}
	var stats *ports.ExportStats

	switch format {
	case domain.ExportFormatJSON:
		stats, err = s.exportJSON(ctx, chats, cw)
	case domain.ExportFormatCSV:
		stats, err = s.exportCSV(ctx, chats, cw)
	case domain.ExportFormatHTML:
		stats, err = s.exportHTML(ctx, chats, cw)
	default:
		return nil, ErrExportFormat
	}
	if err != nil {
		return nil, err
	}

	stats.Bytes = cw.n
	s.logger.Infow("export_completed", "account_id", accountID, "format", format,
		"chats", stats.Chats, "messages", stats.Messages, "bytes", stats.Bytes)
	return stats, nil
}

func toExportChat(chat domain.Chat, msgs []domain.Message) exportChat {
	ec := exportChat{
		ChatID:   chat.ChatID,
		Title:    chat.Title,
		Type:     chat.Type,
		Username: chat.Username,
		Messages: make([]exportMessage, 0, len(msgs)),
	}
	for _, m := range msgs {
		ec.Messages = append(ec.Messages, exportMessage{
			MessageID:  m.MessageID,
			Date:       m.Date,
			SenderID:   m.SenderID,
			SenderName: m.SenderName,
			Text:       m.Text,
			IsOutgoing: m.IsOutgoing,
			IsDeleted:  m.IsDeleted,
			DeletedAt:  m.DeletedAt,
			HasMedia:   m.HasMedia,
			MediaType:  m.MediaType,
		})
	}
	return ec
}

// collectExportChats builds the serialized chat tree shared by the JSON and
// HTML writers.
func (s *exportService) collectExportChats(ctx context.Context, chats []domain.Chat, stats *ports.ExportStats) ([]exportChat, error) {
	out := make([]exportChat, 0, len(chats))
	for _, chat := range chats {
		msgs, err := s.collectMessages(ctx, chat.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, toExportChat(chat, msgs))
		stats.Chats++
		stats.Messages += len(msgs)
	}
	return out, nil
}

func (s *exportService) exportJSON(ctx context.Context, chats []domain.Chat, w io.Writer) (*ports.ExportStats, error) {
	stats := &ports.ExportStats{}
	out, err := s.collectExportChats(ctx, chats, stats)
	if err != nil {
		return nil, err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return stats, nil
}

var archiveTemplate = template.Must(template.New("archive").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Telegram Archive</title>
<style>
body { font-family: sans-serif; margin: 2em; max-width: 60em; }
h2 { border-bottom: 1px solid #ccc; padding-bottom: 4px; }
.msg { margin: 6px 0; }
.meta { color: #777; font-size: 0.85em; }
.deleted .text { color: #b00; text-decoration: line-through; }
</style>
</head>
<body>
<h1>Telegram Archive</h1>
{{range .}}<h2>{{.Title}}</h2>
{{range .Messages}}<div class="msg{{if .IsDeleted}} deleted{{end}}">
<span class="meta">{{.Date.Format "2006-01-02 15:04:05"}}{{if .SenderName}} / {{.SenderName}}{{end}}{{if .HasMedia}} [{{.MediaType}}]{{end}}</span>
<div class="text">{{.Text}}</div>
</div>
{{end}}{{end}}</body>
</html>
`))

func (s *exportService) exportHTML(ctx context.Context, chats []domain.Chat, w io.Writer) (*ports.ExportStats, error) {
	stats := &ports.ExportStats{}
	out, err := s.collectExportChats(ctx, chats, stats)
	if err != nil {
		return nil, err
	}

	if err := archiveTemplate.Execute(w, out); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *exportService) exportCSV(ctx context.Context, chats []domain.Chat, w io.Writer) (*ports.ExportStats, error) {
	stats := &ports.ExportStats{}
	cw := csv.NewWriter(w)

	header := []string{"chat_id", "chat_title", "message_id", "date", "sender_id", "sender_name", "text", "is_outgoing", "is_deleted", "has_media", "media_type"}
	if err := cw.Write(header); err != nil {
		return nil, err
	}

	for _, chat := range chats {
		msgs, err := s.collectMessages(ctx, chat.ID)
		if err != nil {
			return nil, err
		}

		for _, m := range msgs {
			record := []string{
				strconv.FormatInt(chat.ChatID, 10),
				chat.Title,
				strconv.FormatInt(m.MessageID, 10),
				m.Date.Format(time.RFC3339),
				strconv.FormatInt(m.SenderID, 10),
				m.SenderName,
				m.Text,
				strconv.FormatBool(m.IsOutgoing),
				strconv.FormatBool(m.IsDeleted),
				strconv.FormatBool(m.HasMedia),
				m.MediaType,
			}
			if err := cw.Write(record); err != nil {
				return nil, err
			}
		}

		stats.Chats++
		stats.Messages += len(msgs)
	}

	cw.Flush()
	return stats, cw.Error()
}

// collectMessages pages through a chat to keep memory bounded on big chats.
func (s *exportService) collectMessages(ctx context.Context, chatID uint) ([]domain.Message, error) {
	const page = 1000
	var all []domain.Message
	for offset := 0; ; offset += page {
		batch, err := s.messages.ListByChat(ctx, chatID, page, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < page {
			break
		}
	}
	return all, nil
}
