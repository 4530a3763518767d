// Package watch observes a running sync task from the client side: it polls
// the status endpoint at a fixed interval, projects each snapshot into a
// renderable frame, tracks wall-clock elapsed time, and requests advisory
// cancellation. It drives the tgvault watch command but has no terminal or
// transport concerns of its own.
package watch

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the task can make no further progress.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

var ErrSnapshotRejected = errors.New("watch: server rejected snapshot request")

// Snapshot is one poll's worth of task state. It is immutable once decoded;
// consumers compare snapshots, they never mutate them.
type Snapshot struct {
	Success          bool       `json:"success"`
	Status           Status     `json:"status"`
	ProgressPercent  int        `json:"progress_percent"`
	SyncedChats      int        `json:"synced_chats"`
	TotalChats       int        `json:"total_chats"`
	CurrentChatTitle string     `json:"current_chat_title"`
	TotalMessages    int        `json:"total_messages"`
	NewMessages      int        `json:"new_messages"`
	SyncedUsers      int        `json:"synced_users"`
	Log              string     `json:"log"`
	ErrorMessage     string     `json:"error_message"`
	StartedAt        *time.Time `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at"`
	IsFinished       bool       `json:"is_finished"`

	// Error carries the server's message on success=false envelopes.
	Error string `json:"error"`
}

// Validate rejects envelopes the poller must treat as a failed retrieval.
func (s *Snapshot) Validate() error {
	if !s.Success {
		if s.Error != "" {
			return errors.New("watch: " + s.Error)
		}
		return ErrSnapshotRejected
	}
	return nil
}
