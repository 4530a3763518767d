package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tgvault/backend/internal/core/ports"
	"github.com/tgvault/backend/internal/infrastructure/logger"
)

// BridgeClient talks to the MTProto bridge sidecar over its local HTTP API.
// The bridge owns the Telegram session machinery; this adapter only shuttles
// JSON back and forth.
type BridgeClient struct {
	baseURL string
	http    *resty.Client
	log     *logger.Logger
}

func NewBridgeClient(baseURL string, timeout time.Duration, log *logger.Logger) *BridgeClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == 429 || (r.StatusCode() >= 500 && r.StatusCode() <= 504)
		})

	return &BridgeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
		log:     log,
	}
}

// bridgeEnvelope is the common shape of every bridge response.
type bridgeEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (e *bridgeEnvelope) err(op string) error {
	if e.Error != "" {
		return fmt.Errorf("bridge %s: %s", op, e.Error)
	}
	return fmt.Errorf("bridge %s: request failed", op)
}

func (c *BridgeClient) post(ctx context.Context, path string, body, out interface{}) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(out).
		Post(path)
	if err != nil {
		c.log.Errorw("bridge_request_failed", "path", path, "error", err)
		return err
	}
	if !resp.IsSuccess() {
		c.log.Errorw("bridge_request_http_error", "path", path, "status", resp.StatusCode())
		return fmt.Errorf("bridge %s: http %d", path, resp.StatusCode())
	}
	return nil
}

func (c *BridgeClient) SendCode(ctx context.Context, phone string) (*ports.LoginCode, error) {
	var result struct {
		bridgeEnvelope
		PhoneCodeHash string `json:"phone_code_hash"`
		Session       string `json:"session"`
	}
	body := map[string]string{"phone": phone}
	if err := c.post(ctx, "/auth/send-code", body, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, result.err("send-code")
	}
	return &ports.LoginCode{PhoneCodeHash: result.PhoneCodeHash, Session: result.Session}, nil
}

func (c *BridgeClient) VerifyCode(ctx context.Context, session, phone, codeHash, code string) (*ports.LoginResult, error) {
	var result struct {
		bridgeEnvelope
		Session     string `json:"session"`
		Requires2FA bool   `json:"requires_2fa"`
		UserID      int64  `json:"user_id"`
		Username    string `json:"username"`
		FirstName   string `json:"first_name"`
		LastName    string `json:"last_name"`
	}
	body := map[string]string{
		"session":         session,
		"phone":           phone,
		"phone_code_hash": codeHash,
		"code":            code,
	}
	if err := c.post(ctx, "/auth/verify-code", body, &result); err != nil {
		return nil, err
	}
	if !result.Success && !result.Requires2FA {
		return nil, result.err("verify-code")
	}
	return &ports.LoginResult{
		Session:     result.Session,
		Requires2FA: result.Requires2FA,
		UserID:      result.UserID,
		Username:    result.Username,
		FirstName:   result.FirstName,
		LastName:    result.LastName,
	}, nil
}

func (c *BridgeClient) Verify2FA(ctx context.Context, session, password string) (*ports.LoginResult, error) {
	var result struct {
		bridgeEnvelope
		Session   string `json:"session"`
		UserID    int64  `json:"user_id"`
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	body := map[string]string{"session": session, "password": password}
	if err := c.post(ctx, "/auth/verify-2fa", body, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, result.err("verify-2fa")
	}
	return &ports.LoginResult{
		Session:   result.Session,
		UserID:    result.UserID,
		Username:  result.Username,
		FirstName: result.FirstName,
		LastName:  result.LastName,
	}, nil
}

func (c *BridgeClient) LogOut(ctx context.Context, session string) error {
	var result bridgeEnvelope
	body := map[string]string{"session": session}
	if err := c.post(ctx, "/auth/logout", body, &result); err != nil {
		return err
	}
	if !result.Success {
		return result.err("logout")
	}
	return nil
}

func (c *BridgeClient) ListDialogs(ctx context.Context, session string, limit int) ([]ports.Dialog, error) {
	var result struct {
		bridgeEnvelope
		Dialogs []struct {
			ChatID       int64  `json:"chat_id"`
			Title        string `json:"title"`
			Type         string `json:"type"`
			Username     string `json:"username"`
			MembersCount int    `json:"members_count"`
			IsArchived   bool   `json:"is_archived"`
			IsPinned     bool   `json:"is_pinned"`
			UnreadCount  int    `json:"unread_count"`
		} `json:"dialogs"`
	}
	body := map[string]interface{}{"session": session, "limit": limit}
	if err := c.post(ctx, "/dialogs/list", body, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, result.err("list-dialogs")
	}
	dialogs := make([]ports.Dialog, 0, len(result.Dialogs))
	for _, d := range result.Dialogs {
		dialogs = append(dialogs, ports.Dialog{
			ChatID:       d.ChatID,
			Title:        d.Title,
			Type:         d.Type,
			Username:     d.Username,
			MembersCount: d.MembersCount,
			IsArchived:   d.IsArchived,
			IsPinned:     d.IsPinned,
			UnreadCount:  d.UnreadCount,
		})
	}
	return dialogs, nil
}

func (c *BridgeClient) FetchMessages(ctx context.Context, session string, chatID int64, limit int, offsetID int64) ([]ports.RemoteMessage, error) {
	var result struct {
		bridgeEnvelope
		Messages []struct {
			MessageID    int64     `json:"message_id"`
			Text         string    `json:"text"`
			Date         time.Time `json:"date"`
			SenderID     int64     `json:"sender_id"`
			SenderName   string    `json:"sender_name"`
			IsOutgoing   bool      `json:"is_outgoing"`
			HasMedia     bool      `json:"has_media"`
			MediaType    string    `json:"media_type"`
			MimeType     string    `json:"mime_type"`
			FileName     string    `json:"file_name"`
			FileSize     int64     `json:"file_size"`
			Duration     int       `json:"duration"`
			ReplyToMsgID int64     `json:"reply_to_msg_id"`
			Forwards     int       `json:"forwards"`
			Views        int       `json:"views"`
		} `json:"messages"`
	}
	body := map[string]interface{}{
		"session":   session,
		"chat_id":   chatID,
		"limit":     limit,
		"offset_id": offsetID,
	}
	if err := c.post(ctx, "/messages/fetch", body, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, result.err("fetch-messages")
	}
	msgs := make([]ports.RemoteMessage, 0, len(result.Messages))
	for _, m := range result.Messages {
		msgs = append(msgs, ports.RemoteMessage{
			MessageID:    m.MessageID,
			Text:         m.Text,
			Date:         m.Date,
			SenderID:     m.SenderID,
			SenderName:   m.SenderName,
			IsOutgoing:   m.IsOutgoing,
			HasMedia:     m.HasMedia,
			MediaType:    m.MediaType,
			MimeType:     m.MimeType,
			FileName:     m.FileName,
			FileSize:     m.FileSize,
			Duration:     m.Duration,
			ReplyToMsgID: m.ReplyToMsgID,
			Forwards:     m.Forwards,
			Views:        m.Views,
		})
	}
	return msgs, nil
}

func (c *BridgeClient) ListMessageIDs(ctx context.Context, session string, chatID int64, limit int) ([]int64, error) {
	var result struct {
		bridgeEnvelope
		MessageIDs []int64 `json:"message_ids"`
	}
	body := map[string]interface{}{"session": session, "chat_id": chatID, "limit": limit}
	if err := c.post(ctx, "/messages/ids", body, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, result.err("list-message-ids")
	}
	return result.MessageIDs, nil
}

func (c *BridgeClient) DownloadMedia(ctx context.Context, session string, chatID, messageID int64, destDir string) (*ports.MediaFile, error) {
	var result struct {
		bridgeEnvelope
		Path     string `json:"path"`
		FileName string `json:"file_name"`
		FileSize int64  `json:"file_size"`
		MimeType string `json:"mime_type"`
	}
	body := map[string]interface{}{
		"session":    session,
		"chat_id":    chatID,
		"message_id": messageID,
		"dest_dir":   destDir,
	}
	if err := c.post(ctx, "/media/download", body, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, result.err("download-media")
	}
	return &ports.MediaFile{
		Path:     result.Path,
		FileName: result.FileName,
		FileSize: result.FileSize,
		MimeType: result.MimeType,
	}, nil
}
