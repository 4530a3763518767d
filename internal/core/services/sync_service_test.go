package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgvault/backend/internal/core/ports"
	"github.com/tgvault/backend/internal/domain"
	"github.com/tgvault/backend/internal/infrastructure/logger"
	"github.com/tgvault/backend/pkg/utils/crypto"
)

// ==================== FAKES ====================

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[uint]*domain.Account
}

func newFakeAccountRepo(accounts ...*domain.Account) *fakeAccountRepo {
	r := &fakeAccountRepo{accounts: make(map[uint]*domain.Account)}
	for _, a := range accounts {
		r.accounts[a.ID] = a
	}
	return r
}

func (r *fakeAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = uint(len(r.accounts) + 1)
	r.accounts[a.ID] = a
	return nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id uint) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAccountRepo) GetByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.PhoneNumber == phone {
			cp := *a
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (r *fakeAccountRepo) GetCurrent(ctx context.Context) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.IsCurrent {
			cp := *a
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (r *fakeAccountRepo) GetAll(ctx context.Context) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Account
	for _, a := range r.accounts {
		out = append(out, *a)
	}
	return out, nil
}

func (r *fakeAccountRepo) Update(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *fakeAccountRepo) SetCurrent(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		a.IsCurrent = a.ID == id
	}
	return nil
}

func (r *fakeAccountRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.accounts, id)
	return nil
}

type fakeChatRepo struct {
	mu     sync.Mutex
	nextID uint
	chats  map[uint]*domain.Chat
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{chats: make(map[uint]*domain.Chat)}
}

func (r *fakeChatRepo) Upsert(ctx context.Context, chat *domain.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.chats {
		if c.AccountID == chat.AccountID && c.ChatID == chat.ChatID {
			chat.ID = c.ID
			chat.LastMessageID = c.LastMessageID
			cp := *chat
			r.chats[c.ID] = &cp
			return nil
		}
	}
	r.nextID++
	chat.ID = r.nextID
	cp := *chat
	r.chats[chat.ID] = &cp
	return nil
}

func (r *fakeChatRepo) GetByID(ctx context.Context, id uint) (*domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	cp := *c
	return &cp, nil
}

func (r *fakeChatRepo) GetByChatID(ctx context.Context, accountID uint, chatID int64) (*domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.chats {
		if c.AccountID == accountID && c.ChatID == chatID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (r *fakeChatRepo) ListByAccount(ctx context.Context, accountID uint) ([]domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Chat
	for _, c := range r.chats {
		if c.AccountID == accountID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeChatRepo) Update(ctx context.Context, chat *domain.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *chat
	r.chats[chat.ID] = &cp
	return nil
}

func (r *fakeChatRepo) CountByAccount(ctx context.Context, accountID uint) (int64, error) {
	list, _ := r.ListByAccount(ctx, accountID)
	return int64(len(list)), nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	nextID   uint
	messages map[uint]*domain.Message
	edits    []domain.MessageEdit
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[uint]*domain.Message)}
}

func (r *fakeMessageRepo) Upsert(ctx context.Context, msg *domain.Message) (bool, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ChatID == msg.ChatID && m.MessageID == msg.MessageID {
			prev := m.Text
			msg.ID = m.ID
			cp := *msg
			r.messages[m.ID] = &cp
			return false, prev, nil
		}
	}
	r.nextID++
	msg.ID = r.nextID
	cp := *msg
	r.messages[msg.ID] = &cp
	return true, "", nil
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, id uint) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMessageRepo) ListByChat(ctx context.Context, chatID uint, limit, offset int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.messages {
		if m.ChatID == chatID {
			out = append(out, *m)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeMessageRepo) ListByAccount(ctx context.Context, accountID uint) ([]domain.Message, error) {
	return nil, nil
}

func (r *fakeMessageRepo) ListIDsByChat(ctx context.Context, chatID uint) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int64
	for _, m := range r.messages {
		if m.ChatID == chatID && !m.IsDeleted {
			out = append(out, m.MessageID)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) MarkDeleted(ctx context.Context, chatID uint, messageIDs []int64, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make(map[int64]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		ids[id] = struct{}{}
	}
	var marked int64
	for _, m := range r.messages {
		if m.ChatID != chatID || m.IsDeleted {
			continue
		}
		if _, ok := ids[m.MessageID]; ok {
			m.IsDeleted = true
			m.DeletedAt = &at
			marked++
		}
	}
	return marked, nil
}

func (r *fakeMessageRepo) Update(ctx context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *msg
	r.messages[msg.ID] = &cp
	return nil
}

func (r *fakeMessageRepo) CreateEdit(ctx context.Context, edit *domain.MessageEdit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edits = append(r.edits, *edit)
	return nil
}

func (r *fakeMessageRepo) CountByAccount(ctx context.Context, accountID uint) (int64, error) {
	return int64(len(r.messages)), nil
}

func (r *fakeMessageRepo) CountDeletedByAccount(ctx context.Context, accountID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.messages {
		if m.IsDeleted {
			n++
		}
	}
	return n, nil
}

func (r *fakeMessageRepo) DailyCounts(ctx context.Context, accountID uint, days int) (map[string]int64, error) {
	return map[string]int64{}, nil
}

func (r *fakeMessageRepo) TopSenders(ctx context.Context, accountID uint, limit int) ([]ports.SenderCount, error) {
	return nil, nil
}

func (r *fakeMessageRepo) DistinctSenders(ctx context.Context, chatID uint) ([]int64, error) {
	return nil, nil
}

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*domain.SyncTask
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]*domain.SyncTask)}
}

func (r *fakeTaskRepo) Create(ctx context.Context, task *domain.SyncTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *task
	r.tasks[task.ID] = &cp
	return nil
}

func (r *fakeTaskRepo) GetByID(ctx context.Context, id string) (*domain.SyncTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTaskRepo) Update(ctx context.Context, task *domain.SyncTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *task
	r.tasks[task.ID] = &cp
	return nil
}

func (r *fakeTaskRepo) GetActiveByAccount(ctx context.Context, accountID uint) (*domain.SyncTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.AccountID == accountID && !t.Status.Terminal() {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (r *fakeTaskRepo) ListByAccount(ctx context.Context, accountID uint, limit int) ([]domain.SyncTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SyncTask
	for _, t := range r.tasks {
		if t.AccountID == accountID {
			out = append(out, *t)
		}
	}
	return out, nil
}

// fakeGateway serves a fixed set of dialogs and messages. The optional
// chatStarted/proceed channels let tests pause the worker mid-run.
type fakeGateway struct {
	dialogs     []ports.Dialog
	messages    map[int64][]ports.RemoteMessage
	chatStarted chan int64
	proceed     chan struct{}
}

func (g *fakeGateway) SendCode(ctx context.Context, phone string) (*ports.LoginCode, error) {
	return &ports.LoginCode{PhoneCodeHash: "hash", Session: "pending"}, nil
}

func (g *fakeGateway) VerifyCode(ctx context.Context, session, phone, codeHash, code string) (*ports.LoginResult, error) {
	return &ports.LoginResult{Session: "session", UserID: 1}, nil
}

func (g *fakeGateway) Verify2FA(ctx context.Context, session, password string) (*ports.LoginResult, error) {
	return &ports.LoginResult{Session: "session", UserID: 1}, nil
}

func (g *fakeGateway) LogOut(ctx context.Context, session string) error { return nil }

func (g *fakeGateway) ListDialogs(ctx context.Context, session string, limit int) ([]ports.Dialog, error) {
	return g.dialogs, nil
}

func (g *fakeGateway) FetchMessages(ctx context.Context, session string, chatID int64, limit int, offsetID int64) ([]ports.RemoteMessage, error) {
	if g.chatStarted != nil {
		g.chatStarted <- chatID
		<-g.proceed
	}
	if offsetID != 0 {
		return nil, nil
	}
	return g.messages[chatID], nil
}

func (g *fakeGateway) ListMessageIDs(ctx context.Context, session string, chatID int64, limit int) ([]int64, error) {
	var ids []int64
	for _, m := range g.messages[chatID] {
		ids = append(ids, m.MessageID)
	}
	return ids, nil
}

func (g *fakeGateway) DownloadMedia(ctx context.Context, session string, chatID, messageID int64, destDir string) (*ports.MediaFile, error) {
	return nil, fmt.Errorf("no media")
}

// ==================== HELPERS ====================

func newTestAccount(t *testing.T, cipher *crypto.Cipher) *domain.Account {
	t.Helper()
	encrypted, err := cipher.Encrypt("mtproto-session")
	require.NoError(t, err)
	return &domain.Account{ID: 1, PhoneNumber: "+15550001", SessionString: encrypted, IsActive: true}
}

func waitTerminal(t *testing.T, tasks ports.SyncTaskRepository, taskID string) *domain.SyncTask {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		task, err := tasks.GetByID(context.Background(), taskID)
		require.NoError(t, err)
		if task.Status.Terminal() {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("task never reached a terminal status")
	return nil
}

func remoteMsg(id int64, sender int64, text string) ports.RemoteMessage {
	return ports.RemoteMessage{
		MessageID:  id,
		Text:       text,
		Date:       time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		SenderID:   sender,
		SenderName: fmt.Sprintf("sender-%d", sender),
	}
}

// ==================== TESTS ====================

func TestSyncService_FullSync(t *testing.T) {
	cipher, err := crypto.NewCipher("test-key")
	require.NoError(t, err)

	account := newTestAccount(t, cipher)
	accounts := newFakeAccountRepo(account)
	chats := newFakeChatRepo()
	messages := newFakeMessageRepo()
	tasks := newFakeTaskRepo()

	gateway := &fakeGateway{
		dialogs: []ports.Dialog{
			{ChatID: 100, Title: "Family", Type: "group"},
			{ChatID: 200, Title: "Work", Type: "supergroup"},
		},
		messages: map[int64][]ports.RemoteMessage{
			100: {remoteMsg(1, 10, "hello"), remoteMsg(2, 11, "hi back")},
			200: {remoteMsg(1, 10, "standup at 10")},
		},
	}

	svc := NewSyncService(SyncServiceConfig{
		Accounts: accounts,
		Chats:    chats,
		Messages: messages,
		Tasks:    tasks,
		Gateway:  gateway,
		Cipher:   cipher,
		Logger:   logger.Nop(),
	})

	taskID, err := svc.StartSync(context.Background(), account.ID, domain.SyncTaskTypeAll, 0)
	require.NoError(t, err)

	task := waitTerminal(t, tasks, taskID)
	assert.Equal(t, domain.SyncStatusCompleted, task.Status)
	assert.Equal(t, 2, task.TotalChats)
	assert.Equal(t, 2, task.SyncedChats)
	assert.Equal(t, 3, task.NewMessages)
	assert.Equal(t, 2, task.SyncedUsers)
	assert.Equal(t, 100, task.ProgressPercent())
	assert.NotNil(t, task.StartedAt)
	assert.NotNil(t, task.CompletedAt)
	assert.Empty(t, task.CurrentChatTitle)
	assert.Contains(t, task.Log, "Found 2 chats")
	assert.Contains(t, task.Log, "Sync completed")

	stored, err := chats.GetByChatID(context.Background(), account.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, "Family", stored.Title)
	assert.EqualValues(t, 2, stored.LastMessageID)
}

func TestSyncService_RejectsConcurrentSync(t *testing.T) {
	cipher, err := crypto.NewCipher("test-key")
	require.NoError(t, err)

	account := newTestAccount(t, cipher)
	tasks := newFakeTaskRepo()
	gateway := &fakeGateway{
		dialogs:     []ports.Dialog{{ChatID: 100, Title: "Family", Type: "group"}},
		messages:    map[int64][]ports.RemoteMessage{100: {remoteMsg(1, 10, "hello")}},
		chatStarted: make(chan int64),
		proceed:     make(chan struct{}),
	}

	svc := NewSyncService(SyncServiceConfig{
		Accounts: newFakeAccountRepo(account),
		Chats:    newFakeChatRepo(),
		Messages: newFakeMessageRepo(),
		Tasks:    tasks,
		Gateway:  gateway,
		Cipher:   cipher,
		Logger:   logger.Nop(),
	})

	taskID, err := svc.StartSync(context.Background(), account.ID, domain.SyncTaskTypeAll, 0)
	require.NoError(t, err)
	<-gateway.chatStarted

	_, err = svc.StartSync(context.Background(), account.ID, domain.SyncTaskTypeAll, 0)
	assert.ErrorIs(t, err, ErrSyncAlreadyRunning)

	close(gateway.proceed)
	waitTerminal(t, tasks, taskID)

	// Terminal task frees the slot.
	secondID, err := svc.StartSync(context.Background(), account.ID, domain.SyncTaskTypeAll, 0)
	require.NoError(t, err)
	<-gateway.chatStarted
	waitTerminal(t, tasks, secondID)
}

func TestSyncService_Cancel(t *testing.T) {
	cipher, err := crypto.NewCipher("test-key")
	require.NoError(t, err)

	account := newTestAccount(t, cipher)
	tasks := newFakeTaskRepo()
	gateway := &fakeGateway{
		dialogs: []ports.Dialog{
			{ChatID: 100, Title: "First", Type: "group"},
			{ChatID: 200, Title: "Second", Type: "group"},
		},
		messages: map[int64][]ports.RemoteMessage{
			100: {remoteMsg(1, 10, "one")},
			200: {remoteMsg(1, 10, "two")},
		},
		chatStarted: make(chan int64),
		proceed:     make(chan struct{}),
	}

	svc := NewSyncService(SyncServiceConfig{
		Accounts: newFakeAccountRepo(account),
		Chats:    newFakeChatRepo(),
		Messages: newFakeMessageRepo(),
		Tasks:    tasks,
		Gateway:  gateway,
		Cipher:   cipher,
		Logger:   logger.Nop(),
	})

	taskID, err := svc.StartSync(context.Background(), account.ID, domain.SyncTaskTypeAll, 0)
	require.NoError(t, err)

	// Cancel while the first chat is mid-fetch. The worker observes the
	// flag before starting the second chat.
	<-gateway.chatStarted
	require.NoError(t, svc.CancelSync(context.Background(), taskID))

	// Still observable as running until the worker notices.
	task, err := svc.GetStatus(context.Background(), taskID)
	require.NoError(t, err)
	assert.False(t, task.Status.Terminal())

	close(gateway.proceed)
	task = waitTerminal(t, tasks, taskID)
	assert.Equal(t, domain.SyncStatusCancelled, task.Status)
	assert.NotNil(t, task.CompletedAt)
	assert.Contains(t, task.Log, "Sync cancelled")

	// A second cancel on a terminal task is rejected.
	err = svc.CancelSync(context.Background(), taskID)
	assert.ErrorIs(t, err, ErrSyncNotRunning)
}

func TestSyncService_CancelUnknownTask(t *testing.T) {
	cipher, err := crypto.NewCipher("test-key")
	require.NoError(t, err)

	svc := NewSyncService(SyncServiceConfig{
		Accounts: newFakeAccountRepo(),
		Chats:    newFakeChatRepo(),
		Messages: newFakeMessageRepo(),
		Tasks:    newFakeTaskRepo(),
		Gateway:  &fakeGateway{},
		Cipher:   cipher,
		Logger:   logger.Nop(),
	})

	err = svc.CancelSync(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSyncTaskNotFound)
}

func TestSyncService_EditDetection(t *testing.T) {
	cipher, err := crypto.NewCipher("test-key")
	require.NoError(t, err)

	account := newTestAccount(t, cipher)
	tasks := newFakeTaskRepo()
	messages := newFakeMessageRepo()
	gateway := &fakeGateway{
		dialogs:  []ports.Dialog{{ChatID: 100, Title: "Chatter", Type: "group"}},
		messages: map[int64][]ports.RemoteMessage{100: {remoteMsg(1, 10, "original text")}},
	}

	svc := NewSyncService(SyncServiceConfig{
		Accounts: newFakeAccountRepo(account),
		Chats:    newFakeChatRepo(),
		Messages: messages,
		Tasks:    tasks,
		Gateway:  gateway,
		Cipher:   cipher,
		Logger:   logger.Nop(),
	})

	taskID, err := svc.StartSync(context.Background(), account.ID, domain.SyncTaskTypeAll, 0)
	require.NoError(t, err)
	first := waitTerminal(t, tasks, taskID)
	assert.Equal(t, 1, first.NewMessages)

	// Second run sees edited text for the same message id.
	gateway.messages[100] = []ports.RemoteMessage{remoteMsg(1, 10, "edited text")}
	taskID, err = svc.StartSync(context.Background(), account.ID, domain.SyncTaskTypeAll, 0)
	require.NoError(t, err)
	second := waitTerminal(t, tasks, taskID)
	assert.Equal(t, 0, second.NewMessages)

	require.Len(t, messages.edits, 1)
	assert.Equal(t, "original text", messages.edits[0].PreviousText)
	assert.Equal(t, "edited text", messages.edits[0].NewText)
}

func TestAppendLogTrimsTail(t *testing.T) {
	svc := &syncService{logTailLines: 5}
	task := &domain.SyncTask{}

	for i := 0; i < 20; i++ {
		svc.appendLog(task, fmt.Sprintf("line %d", i))
	}

	lines := strings.Split(task.Log, "\n")
	assert.Len(t, lines, 5)
	assert.Contains(t, lines[0], "line 15")
	assert.Contains(t, lines[4], "line 19")
	for _, line := range lines {
		assert.Regexp(t, `^\[\d{2}:\d{2}:\d{2}\] `, line)
	}
}
