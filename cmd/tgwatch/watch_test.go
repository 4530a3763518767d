package main

import (
	"bufio"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tgvault/backend/internal/watch"
)

type stubSource struct {
	mu        sync.Mutex
	cancelled int
}

func (s *stubSource) Snapshot(ctx context.Context) (*watch.Snapshot, error) {
	return &watch.Snapshot{Success: true, Status: watch.StatusRunning}, nil
}

func (s *stubSource) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled++
	return nil
}

func (s *stubSource) cancelCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

func TestWatchKeys(t *testing.T) {
	t.Run("Should confirm from the same reader as the key loop", func(t *testing.T) {
		// All input arrives up front: the key line and the confirmation
		// answer share one buffered reader, so the answer must still be
		// there when the prompt reads it.
		in := bufio.NewReader(strings.NewReader("x\nc\ny\n"))
		source := &stubSource{}
		canceller := watch.NewCanceller(watch.CancellerConfig{
			Source:  source,
			Confirm: confirmPrompt(in),
		})

		watchKeys(context.Background(), in, canceller)

		assert.Equal(t, 1, source.cancelCalls())
		assert.Equal(t, watch.CancelAwaitingPoll, canceller.State())
	})

	t.Run("Should treat a declined confirmation as a no-op", func(t *testing.T) {
		in := bufio.NewReader(strings.NewReader("c\nn\n"))
		source := &stubSource{}
		canceller := watch.NewCanceller(watch.CancellerConfig{
			Source:  source,
			Confirm: confirmPrompt(in),
		})

		watchKeys(context.Background(), in, canceller)

		assert.Equal(t, 0, source.cancelCalls())
		assert.Equal(t, watch.CancelIdle, canceller.State())
	})

	t.Run("Should ignore unrelated input lines", func(t *testing.T) {
		in := bufio.NewReader(strings.NewReader("hello\nq\n\n"))
		source := &stubSource{}
		canceller := watch.NewCanceller(watch.CancellerConfig{
			Source:  source,
			Confirm: confirmPrompt(in),
		})

		watchKeys(context.Background(), in, canceller)

		assert.Equal(t, 0, source.cancelCalls())
	})
}
