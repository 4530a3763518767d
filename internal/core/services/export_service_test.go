package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgvault/backend/internal/domain"
	"github.com/tgvault/backend/internal/infrastructure/logger"
)

func seedExportData(t *testing.T, chats *fakeChatRepo, messages *fakeMessageRepo) {
	t.Helper()
	chat := &domain.Chat{AccountID: 1, ChatID: 100, Type: domain.ChatTypeGroup, Title: "Family"}
	require.NoError(t, chats.Upsert(context.Background(), chat))

	deletedAt := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	seed := []*domain.Message{
		{ChatID: chat.ID, MessageID: 1, Text: "hello", Date: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), SenderID: 10, SenderName: "Alice"},
		{ChatID: chat.ID, MessageID: 2, Text: "gone", Date: time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC), SenderID: 11, SenderName: "Bob", IsDeleted: true, DeletedAt: &deletedAt},
	}
	for _, m := range seed {
		_, _, err := messages.Upsert(context.Background(), m)
		require.NoError(t, err)
	}
}

func TestExportService_JSON(t *testing.T) {
	account := &domain.Account{ID: 1, PhoneNumber: "+15550001"}
	chats := newFakeChatRepo()
	messages := newFakeMessageRepo()
	seedExportData(t, chats, messages)

	svc := NewExportService(ExportServiceConfig{
		Accounts: newFakeAccountRepo(account),
		Chats:    chats,
		Messages: messages,
		Logger:   logger.Nop(),
	})

	var buf bytes.Buffer
	stats, err := svc.Export(context.Background(), 1, domain.ExportFormatJSON, &buf)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Chats)
	assert.Equal(t, 2, stats.Messages)
	assert.EqualValues(t, buf.Len(), stats.Bytes)

	var out []exportChat
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "Family", out[0].Title)
	assert.Len(t, out[0].Messages, 2)

	// Deleted messages are exported with their flag, never dropped.
	var deleted bool
	for _, m := range out[0].Messages {
		if m.IsDeleted {
			deleted = true
			assert.NotNil(t, m.DeletedAt)
		}
	}
	assert.True(t, deleted)
}

func TestExportService_CSV(t *testing.T) {
	account := &domain.Account{ID: 1, PhoneNumber: "+15550001"}
	chats := newFakeChatRepo()
	messages := newFakeMessageRepo()
	seedExportData(t, chats, messages)

	svc := NewExportService(ExportServiceConfig{
		Accounts: newFakeAccountRepo(account),
		Chats:    chats,
		Messages: messages,
		Logger:   logger.Nop(),
	})

	var buf bytes.Buffer
	stats, err := svc.Export(context.Background(), 1, domain.ExportFormatCSV, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Messages)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "chat_id", records[0][0])
	assert.Equal(t, "Family", records[1][1])
}

func TestExportService_HTML(t *testing.T) {
	account := &domain.Account{ID: 1, PhoneNumber: "+15550001"}
	chats := newFakeChatRepo()
	messages := newFakeMessageRepo()
	seedExportData(t, chats, messages)

	svc := NewExportService(ExportServiceConfig{
		Accounts: newFakeAccountRepo(account),
		Chats:    chats,
		Messages: messages,
		Logger:   logger.Nop(),
	})

	var buf bytes.Buffer
	stats, err := svc.Export(context.Background(), 1, domain.ExportFormatHTML, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Chats)
	assert.Equal(t, 2, stats.Messages)
	assert.EqualValues(t, buf.Len(), stats.Bytes)

	page := buf.String()
	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, "<h2>Family</h2>")
	assert.Contains(t, page, "hello")
	assert.Contains(t, page, "Alice")
	// Deleted messages stay in the page, marked up instead of dropped.
	assert.Contains(t, page, `class="msg deleted"`)
}

func TestExportService_Errors(t *testing.T) {
	account := &domain.Account{ID: 1, PhoneNumber: "+15550001"}
	chats := newFakeChatRepo()
	messages := newFakeMessageRepo()

	svc := NewExportService(ExportServiceConfig{
		Accounts: newFakeAccountRepo(account),
		Chats:    chats,
		Messages: messages,
		Logger:   logger.Nop(),
	})

	var buf bytes.Buffer

	t.Run("Should reject unknown account", func(t *testing.T) {
		_, err := svc.Export(context.Background(), 42, domain.ExportFormatJSON, &buf)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("Should reject empty archive", func(t *testing.T) {
		_, err := svc.Export(context.Background(), 1, domain.ExportFormatJSON, &buf)
		assert.ErrorIs(t, err, ErrExportEmpty)
	})

	t.Run("Should reject unsupported format", func(t *testing.T) {
		seedExportData(t, chats, messages)
		_, err := svc.Export(context.Background(), 1, domain.ExportFormat("xml"), &buf)
		assert.ErrorIs(t, err, ErrExportFormat)
	})
}
