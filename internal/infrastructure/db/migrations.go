package db

import (
	"gorm.io/gorm"

	"github.com/tgvault/backend/internal/domain"
)

func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Account{},
		&domain.Chat{},
		&domain.Message{},
		&domain.MessageEdit{},
		&domain.SyncTask{},
		&domain.MediaHash{},
		&domain.KeywordAlert{},
		&domain.AlertTrigger{},
		&domain.ScheduledBackup{},
		&domain.BackupHistory{},
		&domain.AuditLog{},
		&domain.AnalyticsCache{},
	)
}
