// Package scheduler drives evaluation cycles on a fixed interval, delivers the
// resulting alerts and persists the watch-list after each cycle.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/0xsamyy/fibwatch/internal/alert"
	"github.com/0xsamyy/fibwatch/internal/metrics"
	"github.com/0xsamyy/fibwatch/internal/watchlist"
)

// Cycler runs one evaluation cycle.
type Cycler interface {
	RunCycle(ctx context.Context, tokens []string) alert.Report
}

// Notifier delivers one formatted alert.
type Notifier interface {
	Notify(ctx context.Context, html string) error
}

// Saver writes the watch-list snapshot.
type Saver interface {
	Save(ctx context.Context, snap watchlist.Snapshot) error
}

const notifyTimeout = 15 * time.Second

// Scheduler runs cycles one at a time. A cycle never starts while another is
// in progress, whether it came from the ticker or from Trigger.
type Scheduler struct {
	engine   Cycler
	wl       *watchlist.Store
	notifier Notifier
	saver    Saver

	interval     time.Duration
	startDelay   time.Duration
	pruneStopped bool
	log          zerolog.Logger
	metrics      *metrics.Metrics

	trigger chan struct{}
	runMu   sync.Mutex
	saveMu  sync.Mutex

	mu      sync.RWMutex
	last    alert.Report
	hasLast bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithStartDelay sets the pause before the first cycle (default 2s).
func WithStartDelay(d time.Duration) Option {
	return func(s *Scheduler) { s.startDelay = d }
}

// WithPruneStopped removes budget-exhausted tokens after each cycle.
func WithPruneStopped(on bool) Option {
	return func(s *Scheduler) { s.pruneStopped = on }
}

// WithLogger sets the scheduler logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = l.With().Str("component", "scheduler").Logger() }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// New builds a Scheduler. saver may be nil to disable persistence.
func New(engine Cycler, wl *watchlist.Store, notifier Notifier, saver Saver, interval time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		engine:     engine,
		wl:         wl,
		notifier:   notifier,
		saver:      saver,
		interval:   interval,
		startDelay: 2 * time.Second,
		log:        zerolog.Nop(),
		trigger:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until ctx is done, running a cycle after the start delay, on
// every tick, and whenever Trigger is called.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info().Dur("interval", s.interval).Msg("alert loop started")

	select {
	case <-ctx.Done():
		return
	case <-time.After(s.startDelay):
	}
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("alert loop stopped")
			return
		case <-ticker.C:
		case <-s.trigger:
		}
		s.RunOnce(ctx)
	}
}

// Trigger asks the loop for an immediate cycle. Requests made while one is
// already pending are coalesced; the return value reports whether this call
// queued a new one.
func (s *Scheduler) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// RunOnce runs a single cycle over the current watch-list snapshot, delivers
// its alerts, optionally prunes stopped tokens and persists the result.
func (s *Scheduler) RunOnce(ctx context.Context) alert.Report {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	tokens := s.wl.Snapshot()
	rep := s.engine.RunCycle(ctx, tokens)

	// State for these events is already committed, so deliver them even when
	// shutdown has begun.
	for _, ev := range rep.Events {
		if !s.wl.Contains(ev.Token) {
			s.log.Debug().Str("token", ev.Token).Msg("token removed before delivery; alert dropped")
			continue
		}
		s.deliver(context.WithoutCancel(ctx), ev)
	}

	if s.pruneStopped {
		if pruned := s.wl.PruneStopped(); len(pruned) > 0 {
			s.log.Info().Strs("tokens", pruned).Msg("pruned tokens with exhausted alert budget")
		}
	}

	s.Persist(ctx)

	watched, stopped, _ := s.wl.Stats()
	s.metrics.SetWatchList(watched, stopped)

	s.mu.Lock()
	s.last, s.hasLast = rep, true
	s.mu.Unlock()
	return rep
}

func (s *Scheduler) deliver(ctx context.Context, ev alert.Event) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(ctx, ev.HTML()); err != nil {
		s.metrics.RecordNotifyError()
		s.log.Error().Err(err).Str("token", ev.Token).Int("alerts_sent", ev.AlertsSent).Msg("alert delivery failed")
	}
}

// Persist saves the current watch-list. Failures are logged and counted; the
// process keeps running in memory.
func (s *Scheduler) Persist(ctx context.Context) {
	if s.saver == nil {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := s.saver.Save(context.WithoutCancel(ctx), s.wl.Export()); err != nil {
		s.metrics.RecordPersistError("save")
		s.log.Warn().Err(err).Msg("persist failed; continuing in memory")
	}
}

// LastReport returns the most recent cycle report.
func (s *Scheduler) LastReport() (alert.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.hasLast
}
