package services

import "errors"

// Account errors
var (
	ErrAccountNotFound     = errors.New("account: not found")
	ErrAccountInvalidPhone = errors.New("account: invalid phone number")
	ErrLoginFailed         = errors.New("account: login failed")
	ErrTwoFARequired       = errors.New("account: two-factor password required")
)

// Sync errors
var (
	ErrSyncTaskNotFound   = errors.New("sync: task not found")
	ErrSyncAlreadyRunning = errors.New("sync: a sync is already in progress for this account")
	ErrSyncNotRunning     = errors.New("sync: task is not running")
	ErrSyncNoSession      = errors.New("sync: account has no session")
)

// Media errors
var (
	ErrMessageNotFound = errors.New("media: message not found")
	ErrNoMedia         = errors.New("media: message has no media")
	ErrDownloadFailed  = errors.New("media: download failed")
)

// Export errors
var (
	ErrExportFormat = errors.New("export: unsupported format")
	ErrExportEmpty  = errors.New("export: account has no data")
)

// Alert errors
var (
	ErrAlertBadPattern = errors.New("alert: invalid regex pattern")
	ErrAlertNotFound   = errors.New("alert: not found")
)

// Backup errors
var (
	ErrBackupNotFound = errors.New("backup: schedule not found")
)
