package db

import (
	"context"

	"gorm.io/gorm"

	"github.com/tgvault/backend/internal/core/ports"
	"github.com/tgvault/backend/internal/domain"
	"github.com/tgvault/backend/internal/infrastructure/logger"
)

type syncTaskRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSyncTaskRepository(db *gorm.DB, log *logger.Logger) ports.SyncTaskRepository {
	return &syncTaskRepository{db: db, log: log}
}

func (r *syncTaskRepository) Create(ctx context.Context, task *domain.SyncTask) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		r.log.Errorw("sync_task_repo_create_failed", "account_id", task.AccountID, "error", err)
		return err
	}
	r.log.Infow("sync_task_repo_create_ok", "task_id", task.ID, "type", task.Type)
	return nil
}

func (r *syncTaskRepository) GetByID(ctx context.Context, id string) (*domain.SyncTask, error) {
	var task domain.SyncTask
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *syncTaskRepository) Update(ctx context.Context, task *domain.SyncTask) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		r.log.Errorw("sync_task_repo_update_failed", "task_id", task.ID, "error", err)
		return err
	}
	return nil
}

func (r *syncTaskRepository) GetActiveByAccount(ctx context.Context, accountID uint) (*domain.SyncTask, error) {
	var task domain.SyncTask
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND status IN ?", accountID,
			[]domain.SyncTaskStatus{domain.SyncStatusPending, domain.SyncStatusRunning}).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *syncTaskRepository) ListByAccount(ctx context.Context, accountID uint, limit int) ([]domain.SyncTask, error) {
	var tasks []domain.SyncTask
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}
