package dto

import (
	"strings"

	"github.com/tgvault/backend/internal/domain"
)

type CreateBackupRequest struct {
	AccountID uint   `json:"account_id"`
	Name      string `json:"name"`
	Frequency string `json:"frequency"`
	Format    string `json:"format"`
}

func (r *CreateBackupRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.AccountID == 0 {
		errors["account_id"] = "account_id is required"
	}
	if strings.TrimSpace(r.Name) == "" {
		errors["name"] = "name is required"
	}
	switch r.Frequency {
	case "", string(domain.BackupFrequencyDaily), string(domain.BackupFrequencyWeekly), string(domain.BackupFrequencyMonthly):
	default:
		errors["frequency"] = "frequency must be daily, weekly or monthly"
	}
	switch r.Format {
	case "", string(domain.ExportFormatJSON), string(domain.ExportFormatCSV), string(domain.ExportFormatHTML):
	default:
		errors["format"] = "format must be json, csv or html"
	}
	return errors
}

func (r *CreateBackupRequest) ToModel() *domain.ScheduledBackup {
	frequency := domain.BackupFrequency(r.Frequency)
	if r.Frequency == "" {
		frequency = domain.BackupFrequencyWeekly
	}
	format := domain.ExportFormat(r.Format)
	if r.Format == "" {
		format = domain.ExportFormatJSON
	}
	return &domain.ScheduledBackup{
		AccountID: r.AccountID,
		Name:      strings.TrimSpace(r.Name),
		IsActive:  true,
		Frequency: frequency,
		Format:    format,
	}
}
