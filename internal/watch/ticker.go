package watch

import (
	"fmt"
	"sync"
	"time"
)

// ElapsedTicker emits a human-readable elapsed duration every second,
// independent of polling. It keeps ticking after the task finishes: it shows
// wall-clock time since start, not time spent running.
type ElapsedTicker struct {
	started time.Time
	sink    func(string)
	now     func() time.Time

	mu      sync.Mutex
	stopCh  chan struct{}
	stopped bool
}

func NewElapsedTicker(started time.Time, sink func(string)) *ElapsedTicker {
	return &ElapsedTicker{
		started: started,
		sink:    sink,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
}

// Start begins emitting once per second. No-op when the start time is
// unknown.
func (t *ElapsedTicker) Start() {
	if t.started.IsZero() {
		return
	}

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		t.emit()
		for {
			select {
			case <-t.stopCh:
				return
			case <-ticker.C:
				t.emit()
			}
		}
	}()
}

func (t *ElapsedTicker) emit() {
	if t.sink != nil {
		t.sink(FormatElapsed(t.now().Sub(t.started)))
	}
}

func (t *ElapsedTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	close(t.stopCh)
}

// FormatElapsed renders a duration as H:MM:SS, dropping the hours segment
// when zero (M:SS). Negative durations render as 0:00.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
