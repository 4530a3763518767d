package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgvault/backend/internal/core/ports"
	"github.com/tgvault/backend/internal/domain"
	"github.com/tgvault/backend/internal/infrastructure/logger"
)

// ==================== FAKES ====================

type fakeBackupRepo struct {
	mu      sync.Mutex
	nextID  uint
	backups map[uint]*domain.ScheduledBackup
	history []domain.BackupHistory
}

func newFakeBackupRepo() *fakeBackupRepo {
	return &fakeBackupRepo{backups: make(map[uint]*domain.ScheduledBackup)}
}

func (r *fakeBackupRepo) Create(ctx context.Context, backup *domain.ScheduledBackup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	backup.ID = r.nextID
	cp := *backup
	r.backups[backup.ID] = &cp
	return nil
}

func (r *fakeBackupRepo) List(ctx context.Context) ([]domain.ScheduledBackup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ScheduledBackup
	for _, b := range r.backups {
		out = append(out, *b)
	}
	return out, nil
}

func (r *fakeBackupRepo) ListActive(ctx context.Context) ([]domain.ScheduledBackup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ScheduledBackup
	for _, b := range r.backups {
		if b.IsActive {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeBackupRepo) GetByID(ctx context.Context, id uint) (*domain.ScheduledBackup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.backups[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBackupRepo) Update(ctx context.Context, backup *domain.ScheduledBackup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *backup
	r.backups[backup.ID] = &cp
	return nil
}

func (r *fakeBackupRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.backups, id)
	return nil
}

func (r *fakeBackupRepo) CreateHistory(ctx context.Context, history *domain.BackupHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, *history)
	return nil
}

// stubExporter writes a fixed payload so backup runs have something to ship.
type stubExporter struct {
	err error
}

func (e *stubExporter) Export(ctx context.Context, accountID uint, format domain.ExportFormat, w io.Writer) (*ports.ExportStats, error) {
	if e.err != nil {
		return nil, e.err
	}
	n, err := w.Write([]byte(`[{"title":"Family"}]`))
	if err != nil {
		return nil, err
	}
	return &ports.ExportStats{Chats: 1, Messages: 3, Bytes: int64(n)}, nil
}

func newBackupFixture(t *testing.T, exporter ports.ExportService) (*BackupService, *fakeBackupRepo) {
	t.Helper()
	repo := newFakeBackupRepo()
	svc := NewBackupService(BackupServiceConfig{
		Backups:  repo,
		Exporter: exporter,
		Logger:   logger.Nop(),
		Dir:      t.TempDir(),
	})
	return svc, repo
}

// ==================== TESTS ====================

func TestBackupService_CreateBackup(t *testing.T) {
	svc, repo := newBackupFixture(t, &stubExporter{})

	b := &domain.ScheduledBackup{
		AccountID: 1,
		Name:      "weekly archive",
		Frequency: domain.BackupFrequencyWeekly,
		Format:    domain.ExportFormatJSON,
		IsActive:  true,
	}
	require.NoError(t, svc.CreateBackup(context.Background(), b))
	assert.NotZero(t, b.ID)

	stored, err := repo.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.NextRun)
	assert.True(t, stored.NextRun.After(time.Now()))
}

func TestBackupService_RunNow(t *testing.T) {
	t.Run("Should run a schedule and record history", func(t *testing.T) {
		svc, repo := newBackupFixture(t, &stubExporter{})

		b := &domain.ScheduledBackup{AccountID: 1, Name: "adhoc", Frequency: domain.BackupFrequencyDaily, Format: domain.ExportFormatJSON, IsActive: true}
		require.NoError(t, svc.CreateBackup(context.Background(), b))

		require.NoError(t, svc.RunNow(context.Background(), b.ID))

		require.Len(t, repo.history, 1)
		entry := repo.history[0]
		assert.True(t, entry.Succeeded)
		assert.Equal(t, 3, entry.MessagesCount)
		assert.NotEmpty(t, entry.FilePath)

		stored, err := repo.GetByID(context.Background(), b.ID)
		require.NoError(t, err)
		assert.NotNil(t, stored.LastRun)
	})

	t.Run("Should record a failed run without dropping the schedule", func(t *testing.T) {
		svc, repo := newBackupFixture(t, &stubExporter{err: fmt.Errorf("export broke")})

		b := &domain.ScheduledBackup{AccountID: 1, Name: "broken", Frequency: domain.BackupFrequencyDaily, Format: domain.ExportFormatJSON, IsActive: true}
		require.NoError(t, svc.CreateBackup(context.Background(), b))

		require.NoError(t, svc.RunNow(context.Background(), b.ID))

		require.Len(t, repo.history, 1)
		assert.False(t, repo.history[0].Succeeded)
		assert.Contains(t, repo.history[0].ErrorMessage, "export broke")
	})

	t.Run("Should fail on unknown schedules", func(t *testing.T) {
		svc, _ := newBackupFixture(t, &stubExporter{})
		assert.ErrorIs(t, svc.RunNow(context.Background(), 42), ErrBackupNotFound)
	})
}

func TestBackupService_DeleteBackup(t *testing.T) {
	svc, repo := newBackupFixture(t, &stubExporter{})

	b := &domain.ScheduledBackup{AccountID: 1, Name: "old", Frequency: domain.BackupFrequencyMonthly, Format: domain.ExportFormatCSV}
	require.NoError(t, svc.CreateBackup(context.Background(), b))

	require.NoError(t, svc.DeleteBackup(context.Background(), b.ID))
	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, svc.DeleteBackup(context.Background(), b.ID), ErrBackupNotFound)
}

func TestNextRun(t *testing.T) {
	from := time.Date(2026, 8, 14, 15, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 8, 15, 3, 0, 0, 0, time.UTC), nextRun(domain.BackupFrequencyDaily, from))
	assert.Equal(t, time.Date(2026, 8, 21, 3, 0, 0, 0, time.UTC), nextRun(domain.BackupFrequencyWeekly, from))
	assert.Equal(t, time.Date(2026, 9, 14, 3, 0, 0, 0, time.UTC), nextRun(domain.BackupFrequencyMonthly, from))
}
