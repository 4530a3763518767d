package watch

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Category is the visual palette bucket a status maps to.
type Category string

const (
	CategoryWaiting Category = "waiting"
	CategoryActive  Category = "active"
	CategorySuccess Category = "success"
	CategoryDanger  Category = "danger"
	CategoryNeutral Category = "neutral"
)

// Frame is the fully rendered projection of one snapshot: plain display
// values, no terminal codes. Painting is the caller's concern.
type Frame struct {
	StatusLabel    string
	StatusCategory Category

	// ProgressPercent is clamped to [0,100]; the source is untrusted here.
	ProgressPercent int
	BarAnimated     bool

	ChatsSummary     string
	CurrentChatTitle string

	TotalMessages string
	NewMessages   string
	SyncedUsers   string

	Log          string
	ErrorMessage string

	StartedAt   string
	CompletedAt string
	Finished    bool
}

const timestampLayout = "Jan 2, 2006, 15:04:05"

// Renderer projects snapshots to Frames. It owns the little display state
// the protocol requires: the sticky chat title, the latched error panel and
// the once-recorded start time. Rendering the same snapshot twice yields an
// identical Frame.
type Renderer struct {
	stickyTitle  string
	latchedError string
	startedAt    string
}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Render(s *Snapshot) Frame {
	// Sticky: a snapshot without a title never clears the displayed one.
	if s.CurrentChatTitle != "" {
		r.stickyTitle = s.CurrentChatTitle
	}
	if s.ErrorMessage != "" {
		r.latchedError = s.ErrorMessage
	}
	if r.startedAt == "" && s.StartedAt != nil {
		r.startedAt = s.StartedAt.Local().Format(timestampLayout)
	}

	frame := Frame{
		StatusLabel:      statusLabel(s.Status),
		StatusCategory:   statusCategory(s.Status),
		ProgressPercent:  clampPercent(s.ProgressPercent),
		BarAnimated:      !s.IsFinished,
		ChatsSummary:     fmt.Sprintf("%d/%d", s.SyncedChats, s.TotalChats),
		CurrentChatTitle: r.stickyTitle,
		TotalMessages:    humanize.Comma(int64(s.TotalMessages)),
		NewMessages:      humanize.Comma(int64(s.NewMessages)),
		SyncedUsers:      humanize.Comma(int64(s.SyncedUsers)),
		Log:              s.Log,
		ErrorMessage:     r.latchedError,
		StartedAt:        r.startedAt,
		Finished:         s.IsFinished,
	}

	if s.CompletedAt != nil {
		frame.CompletedAt = s.CompletedAt.Local().Format(timestampLayout)
	}

	return frame
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func statusLabel(s Status) string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusRunning:
		return "Running"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

func statusCategory(s Status) Category {
	switch s {
	case StatusPending:
		return CategoryWaiting
	case StatusRunning:
		return CategoryActive
	case StatusCompleted:
		return CategorySuccess
	case StatusFailed:
		return CategoryDanger
	case StatusCancelled:
		return CategoryNeutral
	default:
		return CategoryNeutral
	}
}
