// Package availability tracks whether the detection backend is reachable by
// polling its health check on a fixed interval.
package availability

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/chatguard/internal/common"
)

// DefaultInterval is the poll interval of the reference deployment.
const DefaultInterval = 20 * time.Second

// ErrAlreadyRunning is returned by Start when the poller is already running.
var ErrAlreadyRunning = errors.New("poller already running")

// State is the observed reachability of the backend.
type State int

// Availability states.
const (
	StateChecking State = iota
	StateOnline
	StateOffline
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateOnline:
		return "online"
	case StateOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only view of the poller state.
type Snapshot struct {
	LastCheckedAt time.Time
	Err           error
	State         State
}

// Checked reports whether at least one check has completed.
func (s Snapshot) Checked() bool {
	return !s.LastCheckedAt.IsZero()
}

// Checker performs a single health check.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Config configures a Poller.
type Config struct {
	Logger   *slog.Logger
	Now      func() time.Time
	Interval time.Duration
}

// Poller runs health checks on an interval and publishes state transitions.
// Ticks never overlap: a tick that fires while a check is in flight is skipped.
type Poller struct {
	checker  Checker
	logger   *slog.Logger
	now      func() time.Time
	cancel   context.CancelFunc
	done     chan struct{}
	subs     map[chan Snapshot]struct{}
	snapshot Snapshot
	interval time.Duration
	// generation invalidates checks started by an earlier run.
	generation uint64
	inFlight   bool
	mu         sync.Mutex
}

// New creates a poller for checker. It starts in StateChecking and does
// nothing until Start is called.
func New(checker Checker, cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Poller{
		checker:  checker,
		logger:   common.LoggerOrDefault(cfg.Logger),
		now:      cfg.Now,
		interval: cfg.Interval,
		subs:     make(map[chan Snapshot]struct{}),
		snapshot: Snapshot{State: StateChecking},
	}
}

// Start checks immediately and then on every interval until Stop is called
// or ctx is canceled. Restarting after Stop begins again from StateChecking.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.generation++
	p.inFlight = false
	p.snapshot = Snapshot{State: StateChecking}
	p.publishLocked()

	go p.run(runCtx, p.generation, p.done)

	p.logger.Info("Availability poller started", "interval", p.interval)
	return nil
}

// Stop cancels the pending timer and any in-flight check. A check that
// resolves after Stop does not change the state or notify subscribers.
// Stop is idempotent and waits for the polling loop, not for in-flight checks.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.cancel == nil {
		p.mu.Unlock()
		return
	}
	p.cancel()
	p.cancel = nil
	p.generation++
	done := p.done
	p.mu.Unlock()

	<-done
	p.logger.Info("Availability poller stopped")
}

// Snapshot returns the current state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot
}

// Subscribe registers for state updates. The returned channel receives every
// published snapshot; updates are dropped for a subscriber whose buffer is
// full. Calling the returned function unsubscribes and closes the channel.
func (p *Poller) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Snapshot, buffer)

	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, ch)
			p.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsubscribe
}

func (p *Poller) run(ctx context.Context, generation uint64, done chan struct{}) {
	defer close(done)
	defer p.finish(generation)

	p.tick(ctx, generation)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx, generation)
		}
	}
}

// finish releases the run when its context ended without a call to Stop.
func (p *Poller) finish(generation uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.generation == generation {
		p.cancel()
		p.cancel = nil
		p.generation++
	}
}

// tick starts a check unless one is already in flight.
func (p *Poller) tick(ctx context.Context, generation uint64) {
	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		p.logger.Debug("Skipping availability check, previous check still running")
		return
	}
	p.inFlight = true
	p.mu.Unlock()

	go func() {
		err := p.checker.HealthCheck(ctx)
		p.apply(ctx, generation, err)
	}()
}

// apply records the outcome of a check unless its run has ended.
func (p *Poller) apply(ctx context.Context, generation uint64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if generation != p.generation || ctx.Err() != nil {
		return
	}
	p.inFlight = false

	previous := p.snapshot.State
	next := Snapshot{State: StateOnline, LastCheckedAt: p.now()}
	if err != nil {
		next.State = StateOffline
		next.Err = err
	}
	p.snapshot = next

	if previous != next.State {
		if err != nil {
			p.logger.Warn("Backend unavailable", "previous", previous.String(), "error", err)
		} else {
			p.logger.Info("Backend available", "previous", previous.String())
		}
	}
	p.publishLocked()
}

// publishLocked fans the current snapshot out to subscribers without blocking.
func (p *Poller) publishLocked() {
	for ch := range p.subs {
		select {
		case ch <- p.snapshot:
		default:
		}
	}
}
