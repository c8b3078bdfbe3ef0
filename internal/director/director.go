// Package director runs the campaign: the phase machine, objective
// checklists, scene and choice handling, input gating, and the interpreter
// for scripted trip sequences.
//
// A Director is not safe for concurrent use. The host calls it from the same
// goroutine that drives its scheduler; sequence steps run on the scheduler's
// task goroutine only while the host is blocked.
package director

import (
	"errors"
	"maps"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/iwvelando/boom-bust/internal/content"
	"github.com/iwvelando/boom-bust/internal/economy"
	"github.com/iwvelando/boom-bust/internal/events"
	"github.com/iwvelando/boom-bust/internal/sequencer"
	"github.com/iwvelando/boom-bust/pkg/constants"
	"github.com/iwvelando/boom-bust/pkg/eventbus"
)

var (
	// ErrInputBlocked is returned when gating rejects a player input.
	ErrInputBlocked = errors.New("input blocked")
	// ErrUnknown is returned for unknown phase, scene, choice, or building ids.
	ErrUnknown = errors.New("unknown id")
	// ErrInsufficientFunds is returned when a choice costs more than the
	// player holds.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

const (
	signalSceneClosed sequencer.Signal = "scene_closed"

	loanRecallScene = "loan_recall"
)

// Campaign progress flags. Every flag starts false and Reset restores that
// set; content may add more through set_flag.
const (
	FlagFirstLoanTaken  = "first_loan_taken"
	FlagLoanRepaid      = "loan_repaid"
	FlagSavingsChosen   = "savings_chosen"
	FlagMotorboatBought = "motorboat_bought"
	FlagTrawlerBought   = "trawler_bought"
	FlagDredgePurchased = "dredge_purchased"
	FlagEngineInstalled = "engine_installed"
)

func defaultFlags() map[string]any {
	return map[string]any{
		FlagFirstLoanTaken:  false,
		FlagLoanRepaid:      false,
		FlagSavingsChosen:   false,
		FlagMotorboatBought: false,
		FlagTrawlerBought:   false,
		FlagDredgePurchased: false,
		FlagEngineInstalled: false,
	}
}

// Options tunes director timing.
type Options struct {
	// HintDelay is how long after a phase change the boat hint appears if
	// no trip was taken. Zero disables the reminder.
	HintDelay time.Duration
}

// DefaultOptions returns the default timing.
func DefaultOptions() Options {
	return Options{HintDelay: time.Duration(constants.DefaultHintDelayMs) * time.Millisecond}
}

// CampaignState is the narrative state of the campaign.
type CampaignState struct {
	Phase      content.PhaseID     `json:"phase"`
	PhaseTitle string              `json:"phaseTitle"`
	Objectives []content.Objective `json:"objectives"`
	Flags      map[string]any      `json:"flags"`

	SceneActive            bool     `json:"sceneActive"`
	CurrentScene           string   `json:"currentScene,omitempty"`
	QueuedScenes           []string `json:"queuedScenes,omitempty"`
	IntroRunning           bool     `json:"introRunning"`
	WaitingForPlayerAction bool     `json:"waitingForPlayerAction"`
	SequenceRunning        bool     `json:"sequenceRunning"`
	AwaitingClick          string   `json:"awaitingClick,omitempty"`

	ForceDockLock bool   `json:"forceDockLock"`
	DockLockUntil string `json:"dockLockUntil,omitempty"`

	PhaseTrips      int  `json:"phaseTrips"`
	TotalTrips      int  `json:"totalTrips"`
	ProfitableTrips int  `json:"profitableTrips"`
	RecallPending   bool `json:"recallPending"`
	CompletionShown bool `json:"completionShown"`

	Ended     bool   `json:"ended"`
	EndReason string `json:"endReason,omitempty"`
}

func (s CampaignState) clone() CampaignState {
	s.Objectives = slices.Clone(s.Objectives)
	s.Flags = maps.Clone(s.Flags)
	s.QueuedScenes = slices.Clone(s.QueuedScenes)
	return s
}

// Director orchestrates one campaign.
type Director struct {
	logger *zap.Logger
	bus    *eventbus.Bus
	econ   *economy.Economy
	tables *content.Tables
	sched  *sequencer.Scheduler
	opts   Options

	state   CampaignState
	phase   content.Phase
	actions map[string]action

	hintTimer   sequencer.TimerID
	pendingTrip *economy.TripResult
}

// New creates a director at the initial campaign snapshot. It subscribes to
// economy events on bus.
func New(logger *zap.Logger, bus *eventbus.Bus, econ *economy.Economy, tables *content.Tables, sched *sequencer.Scheduler, opts Options) *Director {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Director{
		logger: logger,
		bus:    bus,
		econ:   econ,
		tables: tables,
		sched:  sched,
		opts:   opts,
	}
	d.actions = d.actionTable()
	d.state, d.phase = d.initialState()

	eventbus.Subscribe(bus, func(ev economy.LoanRecallTriggered) {
		d.state.RecallPending = true
		d.logger.Debug("loan recall queued",
			zap.String("op", "director.onLoanRecall"),
			zap.Float64("due", ev.TotalDue),
		)
	})
	return d
}

func (d *Director) initialState() (CampaignState, content.Phase) {
	p, err := d.tables.Phase(content.Tutorial)
	if err != nil {
		d.logger.Error("initial phase missing", zap.String("op", "director.initialState"), zap.Error(err))
	}
	return CampaignState{
		Phase:      content.Tutorial,
		PhaseTitle: p.Title,
		Objectives: p.Objectives,
		Flags:      defaultFlags(),
	}, p
}

// State returns a copy of the campaign state.
func (d *Director) State() CampaignState {
	s := d.state.clone()
	s.SequenceRunning = d.sched.Busy()
	return s
}

// Phase returns the current phase id.
func (d *Director) Phase() content.PhaseID {
	return d.state.Phase
}

// Objectives returns a copy of the current objective list.
func (d *Director) Objectives() []content.Objective {
	return slices.Clone(d.state.Objectives)
}

// Flags returns a copy of the campaign flags.
func (d *Director) Flags() map[string]any {
	return maps.Clone(d.state.Flags)
}

// Economy returns the ledger the director drives.
func (d *Director) Economy() *economy.Economy {
	return d.econ
}

// Start begins the campaign with the tutorial intro.
func (d *Director) Start() {
	d.state.IntroRunning = true
	if err := d.SetPhase(content.Tutorial); err != nil {
		d.state.IntroRunning = false
		return
	}
	if !d.state.SceneActive {
		d.state.IntroRunning = false
	}
	d.logger.Info("campaign started", zap.String("op", "director.Start"))
}

// Reset restores the initial snapshots of both the ledger and the campaign
// and cancels every pending task and timer.
func (d *Director) Reset() {
	d.sched.Reset()
	d.econ.Reset()
	d.pendingTrip = nil
	d.hintTimer = 0
	d.state, d.phase = d.initialState()
	d.logger.Info("campaign reset", zap.String("op", "director.Reset"))
	d.publish(events.PhaseChanged{PhaseID: d.state.Phase, Title: d.state.PhaseTitle})
	d.publishObjectives()
}

// JumpToPhase abandons any running sequence and open scene and enters id.
// A settled trip still waiting on its commit is committed first. Intended
// for debugging.
func (d *Director) JumpToPhase(id content.PhaseID) error {
	if !id.Valid() {
		d.logger.Warn("jump to unknown phase", zap.String("op", "director.JumpToPhase"), zap.String("phase", string(id)))
		return ErrUnknown
	}
	res := d.pendingTrip
	d.sched.Abort()
	d.pendingTrip = nil
	if d.econ.CommitTrip(res) {
		d.logger.Info("pending trip committed before jump", zap.String("op", "director.JumpToPhase"), zap.String("trip", res.ID))
	}
	d.state.SceneActive = false
	d.state.CurrentScene = ""
	d.state.QueuedScenes = nil
	d.state.IntroRunning = false
	d.state.WaitingForPlayerAction = false
	d.state.AwaitingClick = ""
	d.state.Ended = false
	d.state.EndReason = ""
	d.logger.Info("jumping to phase", zap.String("op", "director.JumpToPhase"), zap.String("phase", string(id)))
	return d.SetPhase(id)
}

func (d *Director) publish(ev eventbus.Event) {
	if d.bus != nil {
		d.bus.Publish(ev)
	}
}

func (d *Director) publishObjectives() {
	d.publish(events.ObjectivesUpdated{Objectives: slices.Clone(d.state.Objectives)})
}

func (d *Director) message(text string) {
	d.publish(events.ShowMessage{Text: text})
}
