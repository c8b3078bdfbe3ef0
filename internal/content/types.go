// Package content holds the static campaign tables: phases with their
// objective checklists, narrative scenes with choices, and the declarative
// trip sequences the director interprets.
package content

import "slices"

// PhaseID identifies a campaign phase.
type PhaseID string

// Campaign phases in their fixed order.
const (
	Tutorial        PhaseID = "TUTORIAL"
	Stagnation      PhaseID = "STAGNATION"
	Boom            PhaseID = "BOOM"
	Crunch          PhaseID = "CRUNCH"
	GrowthTrap      PhaseID = "GROWTH_TRAP"
	Efficiency      PhaseID = "EFFICIENCY"
	Cannibalization PhaseID = "CANNIBALIZATION"
	Collapse        PhaseID = "COLLAPSE"
)

// PhaseOrder lists every phase in campaign order.
var PhaseOrder = []PhaseID{Tutorial, Stagnation, Boom, Crunch, GrowthTrap, Efficiency, Cannibalization, Collapse}

// Valid reports whether id is a known phase.
func (id PhaseID) Valid() bool {
	return slices.Contains(PhaseOrder, id)
}

// Objective is one checklist entry of a phase. Target/Current support
// incremental objectives such as "complete three profitable trips".
type Objective struct {
	ID      string `yaml:"id" json:"id" validate:"required"`
	Text    string `yaml:"text" json:"text" validate:"required"`
	Done    bool   `yaml:"-" json:"done"`
	Target  int    `yaml:"target,omitempty" json:"target,omitempty" validate:"gte=0"`
	Current int    `yaml:"-" json:"current,omitempty"`
	Track   string `yaml:"track,omitempty" json:"-"`
}

// Phase is the static definition of a campaign phase.
type Phase struct {
	ID            PhaseID           `yaml:"id" validate:"required"`
	Title         string            `yaml:"title" validate:"required"`
	Objectives    []Objective       `yaml:"objectives" validate:"dive"`
	IntroScene    string            `yaml:"introScene,omitempty"`
	CompleteScene string            `yaml:"completeScene,omitempty"`
	Buildings     map[string]string `yaml:"buildings,omitempty"`

	// DeferredSettlement holds ledger writes until the trip reveal commits them.
	DeferredSettlement bool `yaml:"deferredSettlement,omitempty"`
}

// Choice is one option offered by a scene.
type Choice struct {
	ID     string  `yaml:"id" json:"id" validate:"required"`
	Text   string  `yaml:"text" json:"text" validate:"required"`
	Action string  `yaml:"action" json:"action" validate:"required"`
	Cost   float64 `yaml:"cost,omitempty" json:"cost,omitempty" validate:"gte=0"`
	Gain   float64 `yaml:"gain,omitempty" json:"gain,omitempty" validate:"gte=0"`
	Param  string  `yaml:"param,omitempty" json:"param,omitempty"`
}

// Scene is a modal narrative beat.
type Scene struct {
	ID       string   `yaml:"id" json:"id" validate:"required"`
	Speakers []string `yaml:"speakers,omitempty" json:"speakers,omitempty"`
	Body     string   `yaml:"body" json:"body" validate:"required"`
	Choices  []Choice `yaml:"choices,omitempty" json:"choices,omitempty" validate:"dive"`
	Next     string   `yaml:"next,omitempty" json:"next,omitempty"`
}

// Choice looks up a choice by id.
func (s Scene) Choice(id string) (Choice, bool) {
	for _, c := range s.Choices {
		if c.ID == id {
			return c, true
		}
	}
	return Choice{}, false
}

// Step verbs understood by the director's sequence interpreter.
const (
	StepDeliver      = "deliver"
	StepReaction     = "reaction"
	StepWait         = "wait"
	StepCommit       = "commit"
	StepLedgerDelta  = "ledger_delta"
	StepCoinLeg      = "coin_leg"
	StepBillboard    = "billboard"
	StepBark         = "bark"
	StepBoatHint     = "boat_hint"
	StepBuildingHint = "building_hint"
	StepCamera       = "camera"
	StepAwaitScene   = "await_scene"
	StepAwaitClick   = "await_click"
	StepSetFlag      = "set_flag"
	StepLockDock     = "lock_dock"
	StepUnlockDock   = "unlock_dock"
)

// StepVerbs is the closed set of step verbs.
var StepVerbs = []string{
	StepDeliver, StepReaction, StepWait, StepCommit, StepLedgerDelta, StepCoinLeg,
	StepBillboard, StepBark, StepBoatHint, StepBuildingHint, StepCamera,
	StepAwaitScene, StepAwaitClick, StepSetFlag, StepLockDock, StepUnlockDock,
}

// Step is one beat of a trip sequence.
type Step struct {
	Do           string `yaml:"do" validate:"required"`
	Counterparty string `yaml:"counterparty,omitempty" validate:"omitempty,oneof=shipyard tavern"`
	Ms           int    `yaml:"ms,omitempty" validate:"gte=0"`
	Text         string `yaml:"text,omitempty"`
	Speaker      string `yaml:"speaker,omitempty"`
	Mood         string `yaml:"mood,omitempty"`
	Scene        string `yaml:"scene,omitempty"`
	Building     string `yaml:"building,omitempty"`
	Flag         string `yaml:"flag,omitempty"`
	Value        any    `yaml:"value,omitempty"`
	Until        string `yaml:"until,omitempty"`
	From         string `yaml:"from,omitempty"`
	To           string `yaml:"to,omitempty"`
	Target       string `yaml:"target,omitempty"`
}

// Sequence is a declarative trip reveal keyed by phase and trip index.
// Trip 0 is the phase default. Austerity sequences are keyed by the
// austerity trip counter instead of the phase trip counter.
type Sequence struct {
	Name      string  `yaml:"name" validate:"required"`
	Phase     PhaseID `yaml:"phase,omitempty"`
	Trip      int     `yaml:"trip" validate:"gte=0"`
	Austerity bool    `yaml:"austerity,omitempty"`
	Steps     []Step  `yaml:"steps" validate:"required,dive"`
}

// Scene choice actions understood by the director's dispatch table.
const (
	ActionClose        = "close"
	ActionAdvancePhase = "advance_phase"
	ActionTakeLoan     = "take_loan"
	ActionRepayLoan    = "repay_loan"
	ActionBuy          = "buy"
	ActionOpenSavings  = "open_savings"
	ActionSendTrip     = "send_trip"
	ActionTrigger      = "trigger_scene"
	ActionSetFlag      = "set_flag"
	ActionRelease      = "release_boats"
	ActionRestart      = "restart"
	ActionEndCampaign  = "end_campaign"
)

// Actions is the closed set of choice actions.
var Actions = []string{
	ActionClose, ActionAdvancePhase, ActionTakeLoan, ActionRepayLoan, ActionBuy,
	ActionOpenSavings, ActionSendTrip, ActionTrigger, ActionSetFlag, ActionRelease,
	ActionRestart, ActionEndCampaign,
}
