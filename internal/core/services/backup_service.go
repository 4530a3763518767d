package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tgvault/backend/internal/core/ports"
	"github.com/tgvault/backend/internal/domain"
	"github.com/tgvault/backend/internal/infrastructure/logger"
	"github.com/tgvault/backend/internal/infrastructure/remote"
)

// BackupService runs scheduled archive exports and optionally ships them to
// a remote host over SFTP.
type BackupService struct {
	backups  ports.BackupRepository
	exporter ports.ExportService
	uploader *remote.SFTPUploader
	logger   *logger.Logger

	dir       string
	remoteDir string
	cron      *cron.Cron
}

type BackupServiceConfig struct {
	Backups  ports.BackupRepository
	Exporter ports.ExportService
	Uploader *remote.SFTPUploader
	Logger   *logger.Logger

	Dir       string
	RemoteDir string
}

func NewBackupService(cfg BackupServiceConfig) *BackupService {
	return &BackupService{
		backups:   cfg.Backups,
		exporter:  cfg.Exporter,
		uploader:  cfg.Uploader,
		logger:    cfg.Logger,
		dir:       cfg.Dir,
		remoteDir: cfg.RemoteDir,
		cron:      cron.New(),
	}
}

// Start schedules the due-backup sweep. The sweep runs hourly; each backup's
// own frequency decides whether it is due.
func (s *BackupService) Start() error {
	if _, err := s.cron.AddFunc("@hourly", s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Infow("backup_scheduler_started", "dir", s.dir)
	return nil
}

func (s *BackupService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Infow("backup_scheduler_stopped")
}

// CreateBackup stores a new schedule with its first due time precomputed.
func (s *BackupService) CreateBackup(ctx context.Context, b *domain.ScheduledBackup) error {
	next := nextRun(b.Frequency, time.Now())
	b.NextRun = &next

	if err := s.backups.Create(ctx, b); err != nil {
		return err
	}
	s.logger.Infow("backup_schedule_created", "backup_id", b.ID, "name", b.Name,
		"frequency", b.Frequency, "next_run", next)
	return nil
}

func (s *BackupService) ListBackups(ctx context.Context) ([]domain.ScheduledBackup, error) {
	return s.backups.List(ctx)
}

func (s *BackupService) DeleteBackup(ctx context.Context, id uint) error {
	if _, err := s.backups.GetByID(ctx, id); err != nil {
		return ErrBackupNotFound
	}
	if err := s.backups.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Infow("backup_schedule_deleted", "backup_id", id)
	return nil
}

// RunNow executes a schedule immediately, outside its cron window.
func (s *BackupService) RunNow(ctx context.Context, id uint) error {
	b, err := s.backups.GetByID(ctx, id)
	if err != nil {
		return ErrBackupNotFound
	}
	s.RunBackup(ctx, b)
	return nil
}

func (s *BackupService) sweep() {
	ctx := context.Background()

	backups, err := s.backups.ListActive(ctx)
	if err != nil {
		s.logger.Errorw("backup_sweep_list_failed", "error", err)
		return
	}

	now := time.Now()
	for i := range backups {
		b := &backups[i]
		if b.NextRun != nil && b.NextRun.After(now) {
			continue
		}
		s.RunBackup(ctx, b)
	}
}

// RunBackup executes one backup end to end and records the outcome.
func (s *BackupService) RunBackup(ctx context.Context, b *domain.ScheduledBackup) {
	history := &domain.BackupHistory{
		ScheduledBackupID: &b.ID,
		AccountID:         b.AccountID,
	}

	if err := s.execute(ctx, b, history); err != nil {
		history.ErrorMessage = err.Error()
		s.logger.Errorw("backup_run_failed", "backup_id", b.ID, "error", err)
	} else {
		history.Succeeded = true
		s.logger.Infow("backup_run_ok", "backup_id", b.ID,
			"file", history.FilePath, "messages", history.MessagesCount, "uploaded", history.Uploaded)
	}

	if err := s.backups.CreateHistory(ctx, history); err != nil {
		s.logger.Errorw("backup_history_failed", "backup_id", b.ID, "error", err)
	}

	now := time.Now()
	next := nextRun(b.Frequency, now)
	b.LastRun = &now
	b.NextRun = &next
	if err := s.backups.Update(ctx, b); err != nil {
		s.logger.Errorw("backup_schedule_update_failed", "backup_id", b.ID, "error", err)
	}
}

func (s *BackupService) execute(ctx context.Context, b *domain.ScheduledBackup, history *domain.BackupHistory) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("cannot create backup dir: %w", err)
	}

	name := fmt.Sprintf("backup_%d_%s.%s", b.AccountID, time.Now().Format("20060102_150405"), b.Format)
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create backup file: %w", err)
	}

	stats, err := s.exporter.Export(ctx, b.AccountID, b.Format, f)
	closeErr := f.Close()
	if err != nil {
		os.Remove(path)
		return err
	}
	if closeErr != nil {
		return closeErr
	}

	history.FilePath = path
	history.FileSize = stats.Bytes
	history.MessagesCount = stats.Messages
	history.ChatsCount = stats.Chats

	if s.uploader != nil {
		if _, err := s.uploader.Upload(ctx, path, s.remoteDir); err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
		history.Uploaded = true
	}

	return nil
}

// nextRun computes the next due time for a frequency, anchored at 03:00.
func nextRun(freq domain.BackupFrequency, from time.Time) time.Time {
	anchor := time.Date(from.Year(), from.Month(), from.Day(), 3, 0, 0, 0, from.Location())
	switch freq {
	case domain.BackupFrequencyDaily:
		return anchor.AddDate(0, 0, 1)
	case domain.BackupFrequencyMonthly:
		return anchor.AddDate(0, 1, 0)
	default:
		return anchor.AddDate(0, 0, 7)
	}
}
