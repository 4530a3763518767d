package db

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tgvault/backend/internal/core/ports"
	"github.com/tgvault/backend/internal/domain"
	"github.com/tgvault/backend/internal/infrastructure/logger"
)

// ==================== MEDIA HASHES ====================

type mediaHashRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMediaHashRepository(db *gorm.DB, log *logger.Logger) ports.MediaHashRepository {
	return &mediaHashRepository{db: db, log: log}
}

func (r *mediaHashRepository) Create(ctx context.Context, hash *domain.MediaHash) error {
	if err := r.db.WithContext(ctx).Create(hash).Error; err != nil {
		r.log.Errorw("media_hash_repo_create_failed", "message_id", hash.MessageID, "error", err)
		return err
	}
	return nil
}

func (r *mediaHashRepository) GetByMessageID(ctx context.Context, messageID uint) (*domain.MediaHash, error) {
	var hash domain.MediaHash
	if err := r.db.WithContext(ctx).Where("message_id = ?", messageID).First(&hash).Error; err != nil {
		return nil, err
	}
	return &hash, nil
}

func (r *mediaHashRepository) FindByFileHash(ctx context.Context, fileHash string, excludeMessageID uint) ([]domain.MediaHash, error) {
	var hashes []domain.MediaHash
	err := r.db.WithContext(ctx).
		Where("file_hash = ? AND message_id != ?", fileHash, excludeMessageID).
		Find(&hashes).Error
	return hashes, err
}

func (r *mediaHashRepository) FindByPerceptualHash(ctx context.Context, perceptualHash string, excludeMessageID uint) ([]domain.MediaHash, error) {
	var hashes []domain.MediaHash
	err := r.db.WithContext(ctx).
		Where("perceptual_hash = ? AND message_id != ?", perceptualHash, excludeMessageID).
		Find(&hashes).Error
	return hashes, err
}

// ==================== KEYWORD ALERTS ====================

type alertRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAlertRepository(db *gorm.DB, log *logger.Logger) ports.AlertRepository {
	return &alertRepository{db: db, log: log}
}

func (r *alertRepository) Create(ctx context.Context, alert *domain.KeywordAlert) error {
	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		r.log.Errorw("alert_repo_create_failed", "keyword", alert.Keyword, "error", err)
		return err
	}
	return nil
}

func (r *alertRepository) GetByID(ctx context.Context, id uint) (*domain.KeywordAlert, error) {
	var alert domain.KeywordAlert
	if err := r.db.WithContext(ctx).First(&alert, id).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *alertRepository) List(ctx context.Context) ([]domain.KeywordAlert, error) {
	var alerts []domain.KeywordAlert
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&alerts).Error
	return alerts, err
}

func (r *alertRepository) ListActive(ctx context.Context) ([]domain.KeywordAlert, error) {
	var alerts []domain.KeywordAlert
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Find(&alerts).Error
	return alerts, err
}

func (r *alertRepository) Update(ctx context.Context, alert *domain.KeywordAlert) error {
	return r.db.WithContext(ctx).Save(alert).Error
}

func (r *alertRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.KeywordAlert{}, id).Error
}

func (r *alertRepository) CreateTrigger(ctx context.Context, trigger *domain.AlertTrigger) error {
	if err := r.db.WithContext(ctx).Create(trigger).Error; err != nil {
		r.log.Errorw("alert_repo_trigger_create_failed", "alert_id", trigger.AlertID, "error", err)
		return err
	}
	return nil
}

// ==================== SCHEDULED BACKUPS ====================

type backupRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBackupRepository(db *gorm.DB, log *logger.Logger) ports.BackupRepository {
	return &backupRepository{db: db, log: log}
}

func (r *backupRepository) Create(ctx context.Context, backup *domain.ScheduledBackup) error {
	if err := r.db.WithContext(ctx).Create(backup).Error; err != nil {
		r.log.Errorw("backup_repo_create_failed", "name", backup.Name, "error", err)
		return err
	}
	return nil
}

func (r *backupRepository) List(ctx context.Context) ([]domain.ScheduledBackup, error) {
	var backups []domain.ScheduledBackup
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&backups).Error
	return backups, err
}

func (r *backupRepository) ListActive(ctx context.Context) ([]domain.ScheduledBackup, error) {
	var backups []domain.ScheduledBackup
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Find(&backups).Error
	return backups, err
}

func (r *backupRepository) GetByID(ctx context.Context, id uint) (*domain.ScheduledBackup, error) {
	var backup domain.ScheduledBackup
	if err := r.db.WithContext(ctx).First(&backup, id).Error; err != nil {
		return nil, err
	}
	return &backup, nil
}

func (r *backupRepository) Update(ctx context.Context, backup *domain.ScheduledBackup) error {
	return r.db.WithContext(ctx).Save(backup).Error
}

func (r *backupRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.ScheduledBackup{}, id).Error
}

func (r *backupRepository) CreateHistory(ctx context.Context, history *domain.BackupHistory) error {
	if err := r.db.WithContext(ctx).Create(history).Error; err != nil {
		r.log.Errorw("backup_repo_history_create_failed", "account_id", history.AccountID, "error", err)
		return err
	}
	return nil
}

// ==================== AUDIT LOG ====================

type auditRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuditRepository(db *gorm.DB, log *logger.Logger) ports.AuditRepository {
	return &auditRepository{db: db, log: log}
}

func (r *auditRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		r.log.Errorw("audit_repo_create_failed", "action", entry.Action, "error", err)
		return err
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	var entries []domain.AuditLog
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

// ==================== ANALYTICS CACHE ====================

type analyticsCacheRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnalyticsCacheRepository(db *gorm.DB, log *logger.Logger) ports.AnalyticsCacheRepository {
	return &analyticsCacheRepository{db: db, log: log}
}

func (r *analyticsCacheRepository) Get(ctx context.Context, accountID uint, cacheType string) (*domain.AnalyticsCache, error) {
	var cache domain.AnalyticsCache
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND cache_type = ?", accountID, cacheType).
		First(&cache).Error
	if err != nil {
		return nil, err
	}
	return &cache, nil
}

func (r *analyticsCacheRepository) Put(ctx context.Context, cache *domain.AnalyticsCache) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "cache_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "expires_at"}),
	}).Create(cache).Error
}
