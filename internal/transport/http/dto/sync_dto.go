package dto

import (
	"time"

	"github.com/tgvault/backend/internal/domain"
)

type StartSyncRequest struct {
	AccountID uint   `json:"account_id"`
	TaskType  string `json:"task_type"`
	ChatID    int64  `json:"chat_id"`
}

func (r *StartSyncRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.AccountID == 0 {
		errors["account_id"] = "account_id is required"
	}
	switch domain.SyncTaskType(r.TaskType) {
	case "", domain.SyncTaskTypeAll:
	case domain.SyncTaskTypeChat, domain.SyncTaskTypeCheckDeleted:
		if r.ChatID == 0 {
			errors["chat_id"] = "chat_id is required for this task type"
		}
	default:
		errors["task_type"] = "unknown task type"
	}
	return errors
}

func (r *StartSyncRequest) GetTaskType() domain.SyncTaskType {
	if r.TaskType == "" {
		return domain.SyncTaskTypeAll
	}
	return domain.SyncTaskType(r.TaskType)
}

type StartSyncResponse struct {
	Success bool   `json:"success"`
	TaskID  string `json:"task_id"`
}

// SyncStatusResponse is the polled task snapshot. Timestamps are ISO 8601
// and omitted while unset.
type SyncStatusResponse struct {
	Success          bool   `json:"success"`
	Status           string `json:"status"`
	ProgressPercent  int    `json:"progress_percent"`
	SyncedChats      int    `json:"synced_chats"`
	TotalChats       int    `json:"total_chats"`
	CurrentChatTitle string `json:"current_chat_title"`
	TotalMessages    int    `json:"total_messages"`
	NewMessages      int    `json:"new_messages"`
	SyncedUsers      int    `json:"synced_users"`
	Log              string `json:"log"`
	ErrorMessage     string `json:"error_message,omitempty"`
	StartedAt        string `json:"started_at,omitempty"`
	CompletedAt      string `json:"completed_at,omitempty"`
	IsFinished       bool   `json:"is_finished"`
}

func TaskToStatusResponse(task *domain.SyncTask) SyncStatusResponse {
	resp := SyncStatusResponse{
		Success:          true,
		Status:           string(task.Status),
		ProgressPercent:  task.ProgressPercent(),
		SyncedChats:      task.SyncedChats,
		TotalChats:       task.TotalChats,
		CurrentChatTitle: task.CurrentChatTitle,
		TotalMessages:    task.TotalMessages,
		NewMessages:      task.NewMessages,
		SyncedUsers:      task.SyncedUsers,
		Log:              task.Log,
		ErrorMessage:     task.ErrorMessage,
		IsFinished:       task.IsFinished(),
	}
	if task.StartedAt != nil {
		resp.StartedAt = task.StartedAt.UTC().Format(time.RFC3339)
	}
	if task.CompletedAt != nil {
		resp.CompletedAt = task.CompletedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

type MediaDownloadResponse struct {
	Success     bool   `json:"success"`
	FileName    string `json:"file_name,omitempty"`
	FileSize    int64  `json:"file_size,omitempty"`
	Duplicate   bool   `json:"duplicate,omitempty"`
	DuplicateOf []uint `json:"duplicate_of,omitempty"`
}
