package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/tgvault/backend/internal/watch"
)

var (
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	dangerColor  = lipgloss.Color("#EF4444")
	warningColor = lipgloss.Color("#F59E0B")
	mutedColor   = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	labelStyle = lipgloss.NewStyle().Foreground(mutedColor)
	errorStyle = lipgloss.NewStyle().Foreground(dangerColor)
	logStyle   = lipgloss.NewStyle().Foreground(mutedColor).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)
)

func categoryStyle(c watch.Category) lipgloss.Style {
	switch c {
	case watch.CategorySuccess:
		return lipgloss.NewStyle().Bold(true).Foreground(successColor)
	case watch.CategoryDanger:
		return lipgloss.NewStyle().Bold(true).Foreground(dangerColor)
	case watch.CategoryWaiting:
		return lipgloss.NewStyle().Foreground(warningColor)
	case watch.CategoryNeutral:
		return lipgloss.NewStyle().Foreground(mutedColor)
	default:
		return lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	}
}

const progressBarWidth = 40

func progressBar(percent int, category watch.Category) string {
	filled := percent * progressBarWidth / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressBarWidth-filled)
	return categoryStyle(category).Render(bar) + fmt.Sprintf(" %3d%%", percent)
}

// screen repaints the whole frame in place. Elapsed updates arrive from a
// separate goroutine than snapshot updates, so painting is serialized.
type screen struct {
	mu      sync.Mutex
	frame   watch.Frame
	elapsed string
	painted bool
	logTail int
}

func newScreen(logTail int) *screen {
	return &screen{logTail: logTail}
}

func (s *screen) SetFrame(f watch.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = f
	s.paint()
}

func (s *screen) SetElapsed(elapsed string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elapsed = elapsed
	s.paint()
}

func (s *screen) paint() {
	f := s.frame

	var b strings.Builder
	b.WriteString(titleStyle.Render("tgvault sync") + "\n\n")
	b.WriteString(labelStyle.Render("Status  ") + categoryStyle(f.StatusCategory).Render(f.StatusLabel) + "\n")
	b.WriteString(labelStyle.Render("Progress") + " " + progressBar(f.ProgressPercent, f.StatusCategory) + "\n")
	b.WriteString(labelStyle.Render("Chats   ") + " " + f.ChatsSummary + "\n")
	if f.CurrentChatTitle != "" {
		b.WriteString(labelStyle.Render("Syncing ") + " " + f.CurrentChatTitle + "\n")
	}
	b.WriteString(labelStyle.Render("Messages") + " " + f.TotalMessages +
		labelStyle.Render("  new ") + f.NewMessages +
		labelStyle.Render("  users ") + f.SyncedUsers + "\n")
	if f.StartedAt != "" {
		b.WriteString(labelStyle.Render("Started ") + " " + f.StartedAt)
		if s.elapsed != "" {
			b.WriteString(labelStyle.Render("  elapsed ") + s.elapsed)
		}
		b.WriteString("\n")
	}
	if f.CompletedAt != "" {
		b.WriteString(labelStyle.Render("Finished") + " " + f.CompletedAt + "\n")
	}
	if f.ErrorMessage != "" {
		b.WriteString("\n" + errorStyle.Render("Error: "+f.ErrorMessage) + "\n")
	}
	if f.Log != "" {
		b.WriteString("\n" + logStyle.Render(tailLines(f.Log, s.logTail)) + "\n")
	}
	if !f.Finished {
		b.WriteString("\n" + labelStyle.Render("Press c then Enter to cancel, Ctrl+C to detach.") + "\n")
	}

	out := b.String()
	if s.painted {
		// Home the cursor and clear below before repainting.
		fmt.Print("\033[H\033[J")
	} else {
		fmt.Print("\033[2J\033[H")
		s.painted = true
	}
	fmt.Print(out)
}

func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
