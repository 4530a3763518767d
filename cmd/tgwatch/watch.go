package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tgvault/backend/internal/watch"
)

var (
	watchInterval time.Duration
	watchLogLines int
	watchCancel   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <task-id>",
	Short: "Follow a sync task until it finishes",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", watch.DefaultPollInterval, "poll interval")
	watchCmd.Flags().IntVar(&watchLogLines, "log-lines", 12, "log lines to show")
	watchCmd.Flags().BoolVar(&watchCancel, "cancel", false, "request cancellation, then keep watching until the task settles")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	source := watch.NewHTTPSource(serverAddr, args[0], resolveToken())
	renderer := watch.NewRenderer()
	view := newScreen(watchLogLines)

	done := make(chan *watch.Snapshot, 1)

	var ticker *watch.ElapsedTicker

	poller := watch.NewPoller(watch.PollerConfig{
		Source:   source,
		Interval: watchInterval,
		Sink: func(s *watch.Snapshot) {
			if ticker == nil && s.StartedAt != nil {
				ticker = watch.NewElapsedTicker(*s.StartedAt, view.SetElapsed)
				ticker.Start()
			}
			view.SetFrame(renderer.Render(s))
		},
		OnTerminal: func(s *watch.Snapshot) {
			done <- s
		},
	})

	canceller := watch.NewCanceller(watch.CancellerConfig{
		Source:      source,
		Confirm:     confirmPrompt(stdin),
		OnRequested: poller.PollNow,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	go watchKeys(ctx, stdin, canceller)

	poller.Start(ctx)

	if watchCancel && !poller.Stopped() {
		if err := canceller.Cancel(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "cancel failed: %v\n", err)
		}
	}

	final := <-done
	if ticker != nil {
		ticker.Stop()
	}
	canceller.Rearm()

	if final.Status == watch.StatusFailed {
		return fmt.Errorf("sync failed: %s", final.ErrorMessage)
	}
	return nil
}

// stdin is shared between the key loop and the confirmation prompt. A second
// buffered reader on os.Stdin would race the first one for input, so every
// read goes through this one.
var stdin = bufio.NewReader(os.Stdin)

// watchKeys turns "c" lines into cancellation attempts. The confirm prompt
// reads its follow-up line from the same reader on the same goroutine, so the
// answer is never swallowed by readahead.
func watchKeys(ctx context.Context, in *bufio.Reader, canceller *watch.Canceller) {
	for {
		line, err := in.ReadString('\n')
		if err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		line = strings.ToLower(strings.TrimSpace(line))
		if line != "c" && line != "cancel" {
			continue
		}
		if err := canceller.Cancel(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "cancel failed: %v\n", err)
		}
	}
}

func confirmPrompt(in *bufio.Reader) func() bool {
	return func() bool {
		fmt.Print("Cancel this sync? [y/N] ")
		line, err := in.ReadString('\n')
		if err != nil {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}
