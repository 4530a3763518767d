package watch

import (
	"context"
	"sync"
)

type CancelState int

const (
	CancelIdle CancelState = iota
	CancelConfirming
	CancelRequesting
	CancelAwaitingPoll
)

func (s CancelState) String() string {
	switch s {
	case CancelConfirming:
		return "confirming"
	case CancelRequesting:
		return "requesting"
	case CancelAwaitingPoll:
		return "awaiting-next-poll"
	default:
		return "idle"
	}
}

// Canceller requests advisory cancellation of the observed task. The server
// response only acknowledges the request; ground truth arrives with the next
// snapshot, which the onRequested hook is expected to hurry along.
type Canceller struct {
	source      Source
	confirm     func() bool
	onRequested func()

	mu    sync.Mutex
	state CancelState
}

type CancellerConfig struct {
	Source Source
	// Confirm gates the request behind a yes/no prompt. A nil gate
	// auto-confirms.
	Confirm func() bool
	// OnRequested fires after a successful request, typically Poller.PollNow.
	OnRequested func()
}

func NewCanceller(cfg CancellerConfig) *Canceller {
	return &Canceller{
		source:      cfg.Source,
		confirm:     cfg.Confirm,
		onRequested: cfg.OnRequested,
	}
}

// Cancel runs the idle→confirming→requesting transition. On decline it
// returns to idle silently. On request failure it re-arms and returns the
// server's error for the caller to surface; no automatic retry.
func (c *Canceller) Cancel(ctx context.Context) error {
	c.mu.Lock()
	if c.state != CancelIdle {
		c.mu.Unlock()
		return nil
	}
	c.state = CancelConfirming
	c.mu.Unlock()

	if c.confirm != nil && !c.confirm() {
		c.setState(CancelIdle)
		return nil
	}

	c.setState(CancelRequesting)

	if err := c.source.Cancel(ctx); err != nil {
		c.setState(CancelIdle)
		return err
	}

	c.setState(CancelAwaitingPoll)
	if c.onRequested != nil {
		c.onRequested()
	}
	return nil
}

// Rearm resets to idle once a terminal snapshot resolves the request.
func (c *Canceller) Rearm() {
	c.setState(CancelIdle)
}

func (c *Canceller) State() CancelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Canceller) setState(s CancelState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
