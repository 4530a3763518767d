package watch

import (
	"context"
	"sync"
	"time"

	"github.com/tgvault/backend/internal/infrastructure/logger"
)

const DefaultPollInterval = 2 * time.Second

// Poller retrieves snapshots from a Source at a fixed interval and forwards
// them, in order, to a sink. It stops itself on the first terminal snapshot.
// Transient retrieval failures are logged and skipped; the interval keeps
// running (a failed poll self-heals on the next cycle).
type Poller struct {
	source     Source
	sink       func(*Snapshot)
	onTerminal func(*Snapshot)
	interval   time.Duration
	log        *logger.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	pollCh  chan struct{}
	stopped bool
	started bool

	// seq/applied discard responses overtaken by a later poll. Polls run
	// serially from the loop goroutine, so this only matters for the
	// out-of-cycle PollNow path, but it is cheap to keep unconditional.
	seq     uint64
	applied uint64
}

type PollerConfig struct {
	Source     Source
	Sink       func(*Snapshot)
	OnTerminal func(*Snapshot)
	Interval   time.Duration
	Logger     *logger.Logger
}

func NewPoller(cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	return &Poller{
		source:     cfg.Source,
		sink:       cfg.Sink,
		onTerminal: cfg.OnTerminal,
		interval:   cfg.Interval,
		log:        cfg.Logger,
		stopCh:     make(chan struct{}),
		pollCh:     make(chan struct{}, 1),
	}
}

// Start polls once immediately, then on the interval until Stop or a
// terminal snapshot. A task already finished at start is routed straight to
// terminal handling without ever starting the interval.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	if terminal := p.poll(ctx); terminal {
		p.Stop()
		return
	}

	go p.loop(ctx)
}

func (p *Poller) loop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.Stop()
			return
		case <-p.stopCh:
			return
		case <-p.pollCh:
		case <-ticker.C:
		}

		if terminal := p.poll(ctx); terminal {
			p.Stop()
			return
		}
	}
}

// poll performs one retrieval. Returns true when the snapshot is terminal.
func (p *Poller) poll(ctx context.Context) bool {
	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	snap, err := p.source.Snapshot(ctx)
	if err != nil {
		p.log.Warnw("watch_poll_failed", "error", err)
		return false
	}

	p.mu.Lock()
	if seq < p.applied || p.stopped {
		p.mu.Unlock()
		return false
	}
	p.applied = seq
	p.mu.Unlock()

	if p.sink != nil {
		p.sink(snap)
	}

	if snap.IsFinished {
		if p.onTerminal != nil {
			p.onTerminal(snap)
		}
		return true
	}
	return false
}

// PollNow requests one out-of-cycle poll, used right after a successful
// cancellation so the result shows before the next scheduled tick.
func (p *Poller) PollNow() {
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return
	}
	select {
	case p.pollCh <- struct{}{}:
	default:
	}
}

// Stop ends polling. Idempotent.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	close(p.stopCh)
}

// Stopped reports whether the poller has shut down.
func (p *Poller) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}
