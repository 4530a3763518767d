package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tgvault/backend/internal/core/ports"
	"github.com/tgvault/backend/internal/domain"
	"github.com/tgvault/backend/internal/infrastructure/logger"
	"github.com/tgvault/backend/pkg/utils/crypto"
)

const (
	defaultMessagePageSize = 100
	defaultLogTailLines    = 500
)

type syncService struct {
	accounts ports.AccountRepository
	chats    ports.ChatRepository
	messages ports.MessageRepository
	tasks    ports.SyncTaskRepository
	gateway  ports.TelegramGateway
	alerts   ports.AlertService
	cipher   *crypto.Cipher
	logger   *logger.Logger

	pageSize     int
	maxChats     int
	logTailLines int

	mu        sync.RWMutex
	cancelled map[string]bool
}

type SyncServiceConfig struct {
	Accounts ports.AccountRepository
	Chats    ports.ChatRepository
	Messages ports.MessageRepository
	Tasks    ports.SyncTaskRepository
	Gateway  ports.TelegramGateway
	Alerts   ports.AlertService
	Cipher   *crypto.Cipher
	Logger   *logger.Logger

	MessagePageSize int
	MaxChats        int
	LogTailLines    int
}

func NewSyncService(cfg SyncServiceConfig) ports.SyncService {
	if cfg.MessagePageSize <= 0 {
		cfg.MessagePageSize = defaultMessagePageSize
	}
	if cfg.LogTailLines <= 0 {
		cfg.LogTailLines = defaultLogTailLines
	}
	return &syncService{
		accounts:     cfg.Accounts,
		chats:        cfg.Chats,
		messages:     cfg.Messages,
		tasks:        cfg.Tasks,
		gateway:      cfg.Gateway,
		alerts:       cfg.Alerts,
		cipher:       cfg.Cipher,
		logger:       cfg.Logger,
		pageSize:     cfg.MessagePageSize,
		maxChats:     cfg.MaxChats,
		logTailLines: cfg.LogTailLines,
		cancelled:    make(map[string]bool),
	}
}

// StartSync creates a task row and launches the background worker. Only one
// non-terminal task per account may exist at a time.
func (s *syncService) StartSync(ctx context.Context, accountID uint, taskType domain.SyncTaskType, chatID int64) (string, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return "", ErrAccountNotFound
	}
	if account.SessionString == "" {
		return "", ErrSyncNoSession
	}

	if active, err := s.tasks.GetActiveByAccount(ctx, accountID); err == nil && active != nil {
		s.logger.Warnw("sync_start_rejected_active", "account_id", accountID, "active_task_id", active.ID)
		return "", ErrSyncAlreadyRunning
	}

	task := &domain.SyncTask{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Type:      taskType,
		Status:    domain.SyncStatusPending,
	}
	if taskType == domain.SyncTaskTypeChat || taskType == domain.SyncTaskTypeCheckDeleted {
		task.CurrentChatID = chatID
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.cancelled[task.ID] = false
	s.mu.Unlock()

	s.logger.Infow("sync_started", "task_id", task.ID, "account_id", accountID, "type", taskType)
	go s.run(task.ID, account, taskType, chatID)

	return task.ID, nil
}

// CancelSync requests cooperative cancellation. The task remains running
// until the worker observes the flag between chats or message pages.
func (s *syncService) CancelSync(ctx context.Context, taskID string) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return ErrSyncTaskNotFound
	}
	if task.Status.Terminal() {
		return ErrSyncNotRunning
	}

	s.mu.Lock()
	s.cancelled[taskID] = true
	s.mu.Unlock()

	s.logger.Infow("sync_cancel_requested", "task_id", taskID)
	return nil
}

func (s *syncService) GetStatus(ctx context.Context, taskID string) (*domain.SyncTask, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, ErrSyncTaskNotFound
	}
	return task, nil
}

func (s *syncService) isCancelled(taskID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancelled[taskID]
}

func (s *syncService) forget(taskID string) {
	s.mu.Lock()
	delete(s.cancelled, taskID)
	s.mu.Unlock()
}

// run is the sync worker. It owns the task row from here on and persists
// every observable change so status polls see fresh counters.
func (s *syncService) run(taskID string, account *domain.Account, taskType domain.SyncTaskType, chatID int64) {
	ctx := context.Background()
	defer s.forget(taskID)

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		s.logger.Errorw("sync_worker_task_load_failed", "task_id", taskID, "error", err)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorw("sync_worker_panic", "task_id", taskID, "panic", r)
			s.fail(ctx, task, fmt.Sprintf("internal error: %v", r))
		}
	}()

	now := time.Now()
	task.Status = domain.SyncStatusRunning
	task.StartedAt = &now
	s.appendLog(task, "Sync started")
	if err := s.tasks.Update(ctx, task); err != nil {
		s.logger.Errorw("sync_worker_update_failed", "task_id", taskID, "error", err)
		return
	}

	session, err := s.cipher.Decrypt(account.SessionString)
	if err != nil {
		s.fail(ctx, task, "cannot decrypt session")
		return
	}

	switch taskType {
	case domain.SyncTaskTypeChat:
		err = s.syncSingleChat(ctx, task, account, session, chatID)
	case domain.SyncTaskTypeCheckDeleted:
		err = s.checkDeleted(ctx, task, account, session, chatID)
	default:
		err = s.syncAll(ctx, task, account, session)
	}

	if err != nil {
		if err == errCancelled {
			s.finish(ctx, task, domain.SyncStatusCancelled, "Sync cancelled")
			return
		}
		s.fail(ctx, task, err.Error())
		return
	}

	s.finish(ctx, task, domain.SyncStatusCompleted, "Sync completed")
}

// errCancelled is internal flow control for the worker, never surfaced.
var errCancelled = errors.New("sync cancelled")

func (s *syncService) syncAll(ctx context.Context, task *domain.SyncTask, account *domain.Account, session string) error {
	s.appendLog(task, "Fetching dialog list")
	s.tasks.Update(ctx, task)

	dialogs, err := s.gateway.ListDialogs(ctx, session, s.maxChats)
	if err != nil {
		return fmt.Errorf("failed to list dialogs: %w", err)
	}

	task.TotalChats = len(dialogs)
	s.appendLog(task, fmt.Sprintf("Found %d chats", len(dialogs)))
	if err := s.tasks.Update(ctx, task); err != nil {
		return err
	}

	seenSenders := make(map[int64]struct{})

	for _, dialog := range dialogs {
		if s.isCancelled(task.ID) {
			return errCancelled
		}

		chat, err := s.upsertChat(ctx, account.ID, dialog)
		if err != nil {
			s.appendLog(task, fmt.Sprintf("Skipping %s: %v", dialog.Title, err))
			task.SyncedChats++
			s.tasks.Update(ctx, task)
			continue
		}

		task.CurrentChatID = dialog.ChatID
		task.CurrentChatTitle = dialog.Title
		s.appendLog(task, fmt.Sprintf("Syncing %s", dialog.Title))
		s.tasks.Update(ctx, task)

		if err := s.syncChatMessages(ctx, task, session, chat, seenSenders); err != nil {
			if err == errCancelled {
				return err
			}
			s.appendLog(task, fmt.Sprintf("Error in %s: %v", dialog.Title, err))
		}

		task.SyncedChats++
		task.SyncedUsers = len(seenSenders)
		s.tasks.Update(ctx, task)
	}

	task.CurrentChatID = 0
	task.CurrentChatTitle = ""
	return nil
}

func (s *syncService) syncSingleChat(ctx context.Context, task *domain.SyncTask, account *domain.Account, session string, chatID int64) error {
	chat, err := s.chats.GetByChatID(ctx, account.ID, chatID)
	if err != nil {
		return fmt.Errorf("chat %d not synced yet", chatID)
	}

	task.TotalChats = 1
	task.CurrentChatID = chatID
	task.CurrentChatTitle = chat.Title
	s.appendLog(task, fmt.Sprintf("Syncing %s", chat.Title))
	s.tasks.Update(ctx, task)

	seenSenders := make(map[int64]struct{})
	if err := s.syncChatMessages(ctx, task, session, chat, seenSenders); err != nil {
		return err
	}

	if err := s.markMissingDeleted(ctx, task, session, chat); err != nil {
		return err
	}

	task.SyncedChats = 1
	task.SyncedUsers = len(seenSenders)
	task.CurrentChatID = 0
	task.CurrentChatTitle = ""
	return nil
}

func (s *syncService) checkDeleted(ctx context.Context, task *domain.SyncTask, account *domain.Account, session string, chatID int64) error {
	chat, err := s.chats.GetByChatID(ctx, account.ID, chatID)
	if err != nil {
		return fmt.Errorf("chat %d not synced yet", chatID)
	}

	task.TotalChats = 1
	task.CurrentChatID = chatID
	task.CurrentChatTitle = chat.Title
	s.appendLog(task, fmt.Sprintf("Checking %s for deleted messages", chat.Title))
	s.tasks.Update(ctx, task)

	if err := s.markMissingDeleted(ctx, task, session, chat); err != nil {
		return err
	}

	task.SyncedChats = 1
	task.CurrentChatID = 0
	task.CurrentChatTitle = ""
	return nil
}

// syncChatMessages pages backwards through a chat's history, upserting every
// message and recording edits when stored text differs.
func (s *syncService) syncChatMessages(ctx context.Context, task *domain.SyncTask, session string, chat *domain.Chat, seenSenders map[int64]struct{}) error {
	var offsetID int64
	var lastMessageID int64

	for {
		if s.isCancelled(task.ID) {
			return errCancelled
		}

		remote, err := s.gateway.FetchMessages(ctx, session, chat.ChatID, s.pageSize, offsetID)
		if err != nil {
			return fmt.Errorf("failed to fetch messages: %w", err)
		}
		if len(remote) == 0 {
			break
		}

		for _, rm := range remote {
			msg := &domain.Message{
				ChatID:        chat.ID,
				MessageID:     rm.MessageID,
				Text:          rm.Text,
				Date:          rm.Date,
				SenderID:      rm.SenderID,
				SenderName:    rm.SenderName,
				IsOutgoing:    rm.IsOutgoing,
				ReplyToMsgID:  rm.ReplyToMsgID,
				Forwards:      rm.Forwards,
				Views:         rm.Views,
				HasMedia:      rm.HasMedia,
				MediaType:     rm.MediaType,
				MediaFileName: rm.FileName,
				MediaFileSize: rm.FileSize,
				MediaMimeType: rm.MimeType,
				MediaDuration: rm.Duration,
			}

			created, previousText, err := s.messages.Upsert(ctx, msg)
			if err != nil {
				s.logger.Errorw("sync_message_upsert_failed", "chat_id", chat.ID, "message_id", rm.MessageID, "error", err)
				continue
			}

			task.SyncedMessages++
			task.TotalMessages++
			if created {
				task.NewMessages++
				if s.alerts != nil {
					s.alerts.EvaluateMessage(ctx, msg)
				}
			} else if previousText != msg.Text {
				edit := &domain.MessageEdit{
					MessageID:    msg.ID,
					PreviousText: previousText,
					NewText:      msg.Text,
				}
				if err := s.messages.CreateEdit(ctx, edit); err != nil {
					s.logger.Errorw("sync_edit_create_failed", "message_id", msg.ID, "error", err)
				}
				if s.alerts != nil {
					s.alerts.EvaluateMessage(ctx, msg)
				}
			}

			if rm.SenderID != 0 {
				seenSenders[rm.SenderID] = struct{}{}
			}
			if rm.MessageID > lastMessageID {
				lastMessageID = rm.MessageID
			}
			offsetID = rm.MessageID
		}

		task.SyncedUsers = len(seenSenders)
		s.tasks.Update(ctx, task)

		if len(remote) < s.pageSize {
			break
		}
	}

	if lastMessageID > chat.LastMessageID {
		chat.LastMessageID = lastMessageID
	}
	now := time.Now()
	chat.LastFullSync = &now
	if err := s.chats.Update(ctx, chat); err != nil {
		s.logger.Errorw("sync_chat_update_failed", "chat_id", chat.ID, "error", err)
	}

	return nil
}

// markMissingDeleted flags archived messages that no longer exist upstream.
func (s *syncService) markMissingDeleted(ctx context.Context, task *domain.SyncTask, session string, chat *domain.Chat) error {
	remoteIDs, err := s.gateway.ListMessageIDs(ctx, session, chat.ChatID, 0)
	if err != nil {
		return fmt.Errorf("failed to list remote message ids: %w", err)
	}

	localIDs, err := s.messages.ListIDsByChat(ctx, chat.ID)
	if err != nil {
		return err
	}

	remoteSet := make(map[int64]struct{}, len(remoteIDs))
	for _, id := range remoteIDs {
		remoteSet[id] = struct{}{}
	}

	var missing []int64
	for _, id := range localIDs {
		if _, ok := remoteSet[id]; !ok {
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 {
		return nil
	}

	marked, err := s.messages.MarkDeleted(ctx, chat.ID, missing, time.Now())
	if err != nil {
		return err
	}
	s.appendLog(task, fmt.Sprintf("Marked %d messages as deleted in %s", marked, chat.Title))
	s.tasks.Update(ctx, task)
	return nil
}

func (s *syncService) upsertChat(ctx context.Context, accountID uint, dialog ports.Dialog) (*domain.Chat, error) {
	chat := &domain.Chat{
		AccountID:    accountID,
		ChatID:       dialog.ChatID,
		Type:         chatType(dialog.Type),
		Title:        dialog.Title,
		Username:     dialog.Username,
		MembersCount: dialog.MembersCount,
		IsArchived:   dialog.IsArchived,
		IsPinned:     dialog.IsPinned,
	}
	if err := s.chats.Upsert(ctx, chat); err != nil {
		return nil, err
	}
	return s.chats.GetByChatID(ctx, accountID, dialog.ChatID)
}

func chatType(t string) domain.ChatType {
	switch domain.ChatType(t) {
	case domain.ChatTypeUser, domain.ChatTypeGroup, domain.ChatTypeSupergroup, domain.ChatTypeChannel:
		return domain.ChatType(t)
	default:
		return domain.ChatTypeUser
	}
}

func (s *syncService) finish(ctx context.Context, task *domain.SyncTask, status domain.SyncTaskStatus, msg string) {
	now := time.Now()
	task.Status = status
	task.CompletedAt = &now
	task.CurrentChatID = 0
	task.CurrentChatTitle = ""
	s.appendLog(task, msg)
	if err := s.tasks.Update(ctx, task); err != nil {
		s.logger.Errorw("sync_finish_update_failed", "task_id", task.ID, "error", err)
	}
	s.logger.Infow("sync_finished", "task_id", task.ID, "status", status,
		"chats", task.SyncedChats, "messages", task.SyncedMessages, "new", task.NewMessages)
}

func (s *syncService) fail(ctx context.Context, task *domain.SyncTask, errMsg string) {
	if task.Status.Terminal() {
		return
	}
	now := time.Now()
	task.Status = domain.SyncStatusFailed
	task.CompletedAt = &now
	task.ErrorMessage = errMsg
	s.appendLog(task, "Sync failed: "+errMsg)
	if err := s.tasks.Update(ctx, task); err != nil {
		s.logger.Errorw("sync_fail_update_failed", "task_id", task.ID, "error", err)
	}
	s.logger.Errorw("sync_failed", "task_id", task.ID, "error", errMsg)
}

// appendLog adds a timestamped line and trims the log to the configured tail
// so long runs cannot grow the row without bound.
func (s *syncService) appendLog(task *domain.SyncTask, msg string) {
	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), msg)
	if task.Log == "" {
		task.Log = line
		return
	}
	lines := strings.Split(task.Log, "\n")
	lines = append(lines, line)
	if len(lines) > s.logTailLines {
		lines = lines[len(lines)-s.logTailLines:]
	}
	task.Log = strings.Join(lines, "\n")
}
