package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource plays back a fixed sequence of snapshots, repeating the
// last one. Entries with Err simulate transient retrieval failures.
type scriptedSource struct {
	mu        sync.Mutex
	script    []scriptStep
	calls     int
	cancelErr error
	cancelled int
}

type scriptStep struct {
	snap *Snapshot
	err  error
}

func (s *scriptedSource) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	s.calls++
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	step := s.script[idx]
	return step.snap, step.err
}

func (s *scriptedSource) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled++
	return s.cancelErr
}

func (s *scriptedSource) snapshotCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func running(percent int) *Snapshot {
	return &Snapshot{
		Success:         true,
		Status:          StatusRunning,
		ProgressPercent: percent,
		IsFinished:      false,
	}
}

func finished(status Status) *Snapshot {
	done := time.Date(2026, 8, 20, 14, 5, 0, 0, time.UTC)
	return &Snapshot{
		Success:     true,
		Status:      status,
		IsFinished:  true,
		CompletedAt: &done,
	}
}

// ==================== POLLER ====================

func TestPoller_ForwardsSnapshotsInOrderAndStopsOnTerminal(t *testing.T) {
	source := &scriptedSource{script: []scriptStep{
		{snap: running(10)},
		{snap: running(50)},
		{snap: finished(StatusCompleted)},
	}}

	var mu sync.Mutex
	var seen []int
	terminal := make(chan *Snapshot, 1)

	poller := NewPoller(PollerConfig{
		Source:   source,
		Interval: 10 * time.Millisecond,
		Sink: func(s *Snapshot) {
			mu.Lock()
			seen = append(seen, s.ProgressPercent)
			mu.Unlock()
		},
		OnTerminal: func(s *Snapshot) { terminal <- s },
	})

	poller.Start(context.Background())

	select {
	case snap := <-terminal:
		assert.Equal(t, StatusCompleted, snap.Status)
	case <-time.After(time.Second):
		t.Fatal("terminal callback never fired")
	}

	assert.True(t, poller.Stopped())

	mu.Lock()
	assert.Equal(t, []int{10, 50, 0}, seen)
	mu.Unlock()

	// No polls after terminal.
	calls := source.snapshotCalls()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, source.snapshotCalls())
}

func TestPoller_AlreadyFinishedAtStartSkipsInterval(t *testing.T) {
	source := &scriptedSource{script: []scriptStep{
		{snap: finished(StatusCancelled)},
	}}

	terminalFired := false
	poller := NewPoller(PollerConfig{
		Source:     source,
		Interval:   5 * time.Millisecond,
		OnTerminal: func(s *Snapshot) { terminalFired = true },
	})

	poller.Start(context.Background())

	assert.True(t, terminalFired)
	assert.True(t, poller.Stopped())

	// The first poll was the only poll; no interval ever started.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, source.snapshotCalls())
}

func TestPoller_TransientFailuresKeepPolling(t *testing.T) {
	source := &scriptedSource{script: []scriptStep{
		{snap: running(10)},
		{err: errors.New("connection refused")},
		{snap: &Snapshot{Success: false, Error: "busy"}, err: ErrSnapshotRejected},
		{snap: finished(StatusCompleted)},
	}}

	var mu sync.Mutex
	var seen []int
	terminal := make(chan struct{})

	poller := NewPoller(PollerConfig{
		Source:   source,
		Interval: 10 * time.Millisecond,
		Sink: func(s *Snapshot) {
			mu.Lock()
			seen = append(seen, s.ProgressPercent)
			mu.Unlock()
		},
		OnTerminal: func(s *Snapshot) { close(terminal) },
	})

	poller.Start(context.Background())

	select {
	case <-terminal:
	case <-time.After(time.Second):
		t.Fatal("poller never recovered from transient failures")
	}

	// Both failed polls were skipped, not fatal.
	mu.Lock()
	assert.Equal(t, []int{10, 0}, seen)
	mu.Unlock()
}

func TestPoller_StopIsIdempotent(t *testing.T) {
	source := &scriptedSource{script: []scriptStep{{snap: running(10)}}}
	poller := NewPoller(PollerConfig{Source: source, Interval: time.Hour})

	poller.Start(context.Background())
	poller.Stop()
	poller.Stop()
	assert.True(t, poller.Stopped())
}

func TestPoller_PollNowTriggersOutOfCyclePoll(t *testing.T) {
	source := &scriptedSource{script: []scriptStep{
		{snap: running(10)},
		{snap: finished(StatusCancelled)},
	}}

	terminal := make(chan struct{})
	poller := NewPoller(PollerConfig{
		Source:     source,
		Interval:   time.Hour,
		OnTerminal: func(s *Snapshot) { close(terminal) },
	})

	poller.Start(context.Background())
	require.Equal(t, 1, source.snapshotCalls())

	poller.PollNow()

	select {
	case <-terminal:
	case <-time.After(time.Second):
		t.Fatal("PollNow never reached the source")
	}
	assert.Equal(t, 2, source.snapshotCalls())
}

// ==================== RENDERER ====================

func TestRenderer_IdempotentForSameSnapshot(t *testing.T) {
	started := time.Date(2026, 8, 20, 13, 0, 0, 0, time.UTC)
	snap := running(42)
	snap.StartedAt = &started
	snap.CurrentChatTitle = "Family"
	snap.TotalMessages = 1523406

	r := NewRenderer()
	first := r.Render(snap)
	second := r.Render(snap)

	assert.Equal(t, first, second)
}

func TestRenderer_ClampsProgress(t *testing.T) {
	r := NewRenderer()
	assert.Equal(t, 100, r.Render(running(250)).ProgressPercent)
	assert.Equal(t, 0, r.Render(running(-5)).ProgressPercent)
	assert.Equal(t, 73, r.Render(running(73)).ProgressPercent)
}

func TestRenderer_StickyChatTitle(t *testing.T) {
	r := NewRenderer()

	withTitle := running(50)
	withTitle.CurrentChatTitle = "Work"
	frame := r.Render(withTitle)
	assert.Equal(t, "Work", frame.CurrentChatTitle)

	// A later snapshot without the field leaves the title untouched.
	withoutTitle := running(60)
	frame = r.Render(withoutTitle)
	assert.Equal(t, "Work", frame.CurrentChatTitle)
}

func TestRenderer_ThousandsGrouping(t *testing.T) {
	snap := running(10)
	snap.TotalMessages = 1523406
	snap.NewMessages = 999
	snap.SyncedUsers = 1000

	frame := NewRenderer().Render(snap)
	assert.Equal(t, "1,523,406", frame.TotalMessages)
	assert.Equal(t, "999", frame.NewMessages)
	assert.Equal(t, "1,000", frame.SyncedUsers)
}

func TestRenderer_ErrorPanelLatches(t *testing.T) {
	r := NewRenderer()

	failedSnap := running(80)
	failedSnap.Status = StatusFailed
	failedSnap.IsFinished = true
	failedSnap.ErrorMessage = "flood wait"

	frame := r.Render(failedSnap)
	assert.Equal(t, "flood wait", frame.ErrorMessage)
	assert.Equal(t, CategoryDanger, frame.StatusCategory)

	// Error stays displayed even if a later snapshot omits it.
	frame = r.Render(running(80))
	assert.Equal(t, "flood wait", frame.ErrorMessage)
}

func TestRenderer_TerminalBarTreatment(t *testing.T) {
	r := NewRenderer()

	frame := r.Render(running(50))
	assert.True(t, frame.BarAnimated)

	frame = r.Render(finished(StatusCompleted))
	assert.False(t, frame.BarAnimated)
	assert.True(t, frame.Finished)
	assert.Equal(t, CategorySuccess, frame.StatusCategory)
	assert.NotEmpty(t, frame.CompletedAt)
}

func TestRenderer_RecordsStartTimeOnce(t *testing.T) {
	r := NewRenderer()

	t0 := time.Date(2026, 8, 20, 13, 0, 0, 0, time.UTC)
	snap := running(10)
	snap.StartedAt = &t0
	first := r.Render(snap)
	require.NotEmpty(t, first.StartedAt)

	// A shifted started_at in a later snapshot must not change the
	// recorded value.
	t1 := t0.Add(time.Hour)
	snap2 := running(20)
	snap2.StartedAt = &t1
	second := r.Render(snap2)
	assert.Equal(t, first.StartedAt, second.StartedAt)
}

func TestRenderer_StatusPalette(t *testing.T) {
	tests := []struct {
		status   Status
		label    string
		category Category
	}{
		{StatusPending, "Pending", CategoryWaiting},
		{StatusRunning, "Running", CategoryActive},
		{StatusCompleted, "Completed", CategorySuccess},
		{StatusFailed, "Failed", CategoryDanger},
		{StatusCancelled, "Cancelled", CategoryNeutral},
	}

	for _, tt := range tests {
		snap := &Snapshot{Success: true, Status: tt.status}
		frame := NewRenderer().Render(snap)
		assert.Equal(t, tt.label, frame.StatusLabel)
		assert.Equal(t, tt.category, frame.StatusCategory)
	}
}

// ==================== ELAPSED TICKER ====================

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		seconds  int
		expected string
	}{
		{0, "0:00"},
		{5, "0:05"},
		{65, "1:05"},
		{600, "10:00"},
		{3599, "59:59"},
		{3600, "1:00:00"},
		{3725, "1:02:05"},
		{86400, "24:00:00"},
	}

	for _, tt := range tests {
		got := FormatElapsed(time.Duration(tt.seconds) * time.Second)
		assert.Equal(t, tt.expected, got, "for %d seconds", tt.seconds)
	}
}

func TestFormatElapsed_NegativeClampsToZero(t *testing.T) {
	assert.Equal(t, "0:00", FormatElapsed(-5*time.Second))
}

func TestElapsedTicker_NoOpWithoutStartTime(t *testing.T) {
	emitted := make(chan string, 1)
	ticker := NewElapsedTicker(time.Time{}, func(s string) { emitted <- s })
	ticker.Start()

	select {
	case <-emitted:
		t.Fatal("ticker emitted without a start time")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestElapsedTicker_EmitsElapsed(t *testing.T) {
	emitted := make(chan string, 4)
	ticker := NewElapsedTicker(time.Now().Add(-65*time.Second), func(s string) { emitted <- s })
	ticker.now = time.Now
	ticker.Start()
	defer ticker.Stop()

	select {
	case s := <-emitted:
		assert.Equal(t, "1:05", s)
	case <-time.After(time.Second):
		t.Fatal("ticker never emitted")
	}
}

// ==================== CANCELLER ====================

func TestCanceller_DeclineIsANoOp(t *testing.T) {
	source := &scriptedSource{}
	c := NewCanceller(CancellerConfig{
		Source:  source,
		Confirm: func() bool { return false },
	})

	err := c.Cancel(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, CancelIdle, c.State())
	assert.Equal(t, 0, source.cancelled)
}

func TestCanceller_SuccessTriggersPollAndAwaits(t *testing.T) {
	source := &scriptedSource{}
	polled := false
	c := NewCanceller(CancellerConfig{
		Source:      source,
		Confirm:     func() bool { return true },
		OnRequested: func() { polled = true },
	})

	err := c.Cancel(context.Background())
	require.NoError(t, err)
	assert.True(t, polled)
	assert.Equal(t, CancelAwaitingPoll, c.State())
	assert.Equal(t, 1, source.cancelled)

	// While awaiting the confirming poll, further requests are ignored.
	require.NoError(t, c.Cancel(context.Background()))
	assert.Equal(t, 1, source.cancelled)

	c.Rearm()
	assert.Equal(t, CancelIdle, c.State())
}

func TestCanceller_FailureSurfacesErrorAndRearms(t *testing.T) {
	source := &scriptedSource{cancelErr: errors.New("busy")}
	c := NewCanceller(CancellerConfig{Source: source})

	err := c.Cancel(context.Background())
	require.Error(t, err)
	assert.Equal(t, "busy", err.Error())
	assert.Equal(t, CancelIdle, c.State())

	// Re-armed: the user may try again.
	source.cancelErr = nil
	require.NoError(t, c.Cancel(context.Background()))
	assert.Equal(t, CancelAwaitingPoll, c.State())
}

// ==================== SNAPSHOT ====================

func TestSnapshotValidate(t *testing.T) {
	ok := &Snapshot{Success: true, Status: StatusRunning}
	assert.NoError(t, ok.Validate())

	rejected := &Snapshot{Success: false}
	assert.ErrorIs(t, rejected.Validate(), ErrSnapshotRejected)

	withMessage := &Snapshot{Success: false, Error: "sync task not found"}
	err := withMessage.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync task not found")
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}
