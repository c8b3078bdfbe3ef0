// Package session owns one running campaign: its event bus, ledger,
// scheduler, and director, plus the host loop that serializes every input
// and advances the virtual clock.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/iwvelando/boom-bust/internal/config"
	"github.com/iwvelando/boom-bust/internal/content"
	"github.com/iwvelando/boom-bust/internal/director"
	"github.com/iwvelando/boom-bust/internal/economy"
	"github.com/iwvelando/boom-bust/internal/events"
	"github.com/iwvelando/boom-bust/internal/sequencer"
	"github.com/iwvelando/boom-bust/pkg/eventbus"
)

const tickInterval = 50 * time.Millisecond

var (
	// ErrStopped is returned by Do once the host loop has exited.
	ErrStopped = errors.New("session stopped")
	// ErrRunning is returned when Run is called on a session already running.
	ErrRunning = errors.New("session already running")
	// ErrNotInbound is returned by Send for events that flow core to world.
	ErrNotInbound = errors.New("event is not an inbound kind")
)

// Snapshot is a point-in-time view of the campaign and its ledger.
type Snapshot struct {
	Campaign director.CampaignState `json:"campaign"`
	Ledger   economy.LedgerState    `json:"ledger"`
	ClockMs  int64                  `json:"clockMs"`
}

type command struct {
	fn   func(*Session)
	done chan struct{}
}

// Session wires the campaign core together. Methods other than Do,
// Subscribe, and Run must be called from the host loop (inside Do) or from a
// single goroutine when the loop is not running.
type Session struct {
	logger *zap.Logger
	cfg    *config.Configuration

	bus      *eventbus.Bus
	tables   *content.Tables
	econ     *economy.Economy
	sched    *sequencer.Scheduler
	director *director.Director

	timeScale float64
	autoClose bool
	pending   []string
	lastErr   error
	trips     []economy.TripResult
	tickCarry time.Duration
	started   bool

	cmds    chan command
	stopped chan struct{}
	running atomic.Bool
}

// New builds a session from cfg. A nil cfg uses the defaults.
func New(logger *zap.Logger, cfg *config.Configuration) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.Default()
	}

	tables, err := content.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load content tables: %w", err)
	}

	bus := eventbus.New(logger.Named("bus"))
	econ := economy.New(logger.Named("economy"), bus, economy.DefaultTables(), cfg.EconomySettings())
	sched := sequencer.New(logger.Named("sequencer"))
	dir := director.New(logger.Named("director"), bus, econ, tables, sched, cfg.DirectorOptions())

	s := &Session{
		logger:    logger,
		cfg:       cfg,
		bus:       bus,
		tables:    tables,
		econ:      econ,
		sched:     sched,
		director:  dir,
		timeScale: cfg.Director.TimeScale,
		autoClose: cfg.Director.AutoCloseScenes,
		cmds:      make(chan command),
		stopped:   make(chan struct{}),
	}

	for _, kind := range events.Inbound {
		bus.SubscribeKind(kind, s.route)
	}
	eventbus.Subscribe(bus, func(ev economy.TripCommitted) {
		s.trips = append(s.trips, ev.Result)
	})
	eventbus.Subscribe(bus, func(ev events.ShowScene) {
		if s.autoClose && informational(ev.Scene) {
			s.pending = append(s.pending, ev.Scene.ID)
		}
	})
	return s, nil
}

func (s *Session) route(ev eventbus.Event) {
	if err := s.director.HandleEvent(ev); err != nil {
		s.logger.Debug("inbound event rejected",
			zap.String("op", "session.route"),
			zap.String("kind", string(ev.Kind())),
			zap.Error(err),
		)
		s.lastErr = err
	}
}

// Start begins the campaign. Calling it again has no effect.
func (s *Session) Start() {
	if s.started {
		return
	}
	s.started = true
	s.director.Start()
	s.settle()
}

// Send publishes an inbound event and reports the director's verdict.
func (s *Session) Send(ev eventbus.Event) error {
	if ev == nil || !events.IsInbound(ev.Kind()) {
		return ErrNotInbound
	}
	s.lastErr = nil
	s.bus.Publish(ev)
	s.settle()
	err := s.lastErr
	s.lastErr = nil
	return err
}

// Apply runs fn against the director for operations that have no inbound
// event (ledger requests, debug jumps), then closes informational scenes
// fn opened.
func (s *Session) Apply(fn func(d *director.Director) error) error {
	err := fn(s.director)
	s.settle()
	return err
}

// Advance moves the virtual clock forward, firing due sequence steps and
// timers, and pays passive income for each whole second elapsed.
func (s *Session) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	s.sched.Advance(d)
	s.tickCarry += d
	for s.tickCarry >= time.Second {
		s.tickCarry -= time.Second
		s.econ.Tick()
	}
	s.settle()
}

// Skip aborts the running sequence and applies its settlement.
func (s *Session) Skip() bool {
	ok := s.director.SkipSequence()
	s.settle()
	return ok
}

// Reset restarts the campaign from its initial snapshot.
func (s *Session) Reset() {
	s.director.Reset()
	s.trips = nil
	s.pending = nil
	s.tickCarry = 0
	s.director.Start()
	s.settle()
}

// informational reports whether a scene offers nothing but dismissal.
func informational(sc content.Scene) bool {
	for _, c := range sc.Choices {
		if c.Action != content.ActionClose {
			return false
		}
	}
	return true
}

// settle closes informational scenes queued for auto-close.
func (s *Session) settle() {
	for len(s.pending) > 0 {
		id := s.pending[0]
		s.pending = s.pending[1:]
		if s.director.State().CurrentScene != id {
			continue
		}
		if err := s.director.CloseScene(id); err != nil {
			s.logger.Warn("auto close failed", zap.String("op", "session.settle"), zap.String("scene", id), zap.Error(err))
		}
	}
}

// Snapshot returns the current campaign and ledger state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Campaign: s.director.State(),
		Ledger:   s.econ.State(),
		ClockMs:  s.sched.Now().Milliseconds(),
	}
}

// Trips returns every committed trip since the last reset.
func (s *Session) Trips() []economy.TripResult {
	return slices.Clone(s.trips)
}

// Director returns the campaign director.
func (s *Session) Director() *director.Director { return s.director }

// Economy returns the ledger.
func (s *Session) Economy() *economy.Economy { return s.econ }

// Tables returns the static content tables.
func (s *Session) Tables() *content.Tables { return s.tables }

// Config returns the configuration the session was built from.
func (s *Session) Config() *config.Configuration { return s.cfg }

// Subscribe registers fn for every core to world event. fn runs on the host
// loop and must not block.
func (s *Session) Subscribe(fn func(eventbus.Event)) eventbus.Subscription {
	return s.bus.SubscribeAll(func(ev eventbus.Event) {
		if !events.IsInbound(ev.Kind()) {
			fn(ev)
		}
	})
}

// Do runs fn on the host loop and waits for it to finish.
func (s *Session) Do(ctx context.Context, fn func(*Session)) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case s.cmds <- cmd:
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-cmd.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the campaign and serves Do requests until ctx is cancelled.
// Wall-clock time is scaled by the configured time scale and fed to the
// virtual clock on every tick.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer close(s.stopped)

	s.Start()
	s.logger.Info("session running",
		zap.String("op", "session.Run"),
		zap.Float64("timeScale", s.timeScale),
	)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session stopping", zap.String("op", "session.Run"))
			return ctx.Err()
		case cmd := <-s.cmds:
			s.exec(cmd)
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now
			s.Advance(time.Duration(float64(elapsed) * s.timeScale))
		}
	}
}

func (s *Session) exec(cmd command) {
	defer close(cmd.done)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session command panicked", zap.String("op", "session.exec"), zap.Any("panic", r))
		}
	}()
	cmd.fn(s)
}
