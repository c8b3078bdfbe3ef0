// Package economy owns the campaign ledger: cash, market health, the loan,
// the ecological stock, and equipment. It settles fishing trips into
// TripResult records and implements the loan sub-protocol.
//
// An Economy is not safe for concurrent use. The host runs it on a single
// logical thread together with the director.
package economy

import (
	"go.uber.org/zap"

	"github.com/iwvelando/boom-bust/pkg/constants"
	"github.com/iwvelando/boom-bust/pkg/eventbus"
	"github.com/iwvelando/boom-bust/pkg/mathutil"
)

// Publisher is the subset of the event bus the economy needs.
type Publisher interface {
	Publish(ev eventbus.Event)
}

// SavingsConfig is the austerity policy chosen by the player.
type SavingsConfig struct {
	TavernLevel   string `json:"tavernLevel"`
	ShipyardLevel string `json:"shipyardLevel"`
}

// Loan is the single open loan, if any.
type Loan struct {
	Principal         float64 `json:"principal"`
	InterestRate      float64 `json:"interestRate"`
	AccruedInterest   float64 `json:"accruedInterest"`
	TripsSinceLoan    int     `json:"tripsSinceLoan"`
	PaymentDueInTrips int     `json:"paymentDueInTrips"`
	PrincipalDue      float64 `json:"principalDue"`

	interestApplied bool
}

// Open reports whether a loan is outstanding.
func (l Loan) Open() bool {
	return l.Principal > 0
}

// TotalOwed is principal plus accrued interest.
func (l Loan) TotalOwed() float64 {
	return l.Principal + l.AccruedInterest
}

// Ecology is the depletable fish stock.
type Ecology struct {
	Stock float64 `json:"stock"`
	Max   float64 `json:"max"`
}

// Percent is the stock as a percentage of its maximum.
func (e Ecology) Percent() float64 {
	return mathutil.CalculatePercentage(e.Stock, e.Max)
}

// Fleet counts owned boats.
type Fleet struct {
	Rowboats   int `json:"rowboats"`
	Motorboats int `json:"motorboats"`
	Trawlers   int `json:"trawlers"`
}

// Tech is fitted equipment.
type Tech struct {
	NetType    string `json:"netType"`
	EngineType string `json:"engineType"`
}

// Override forces the next settlement's market health or acceptance rate.
// It is consumed by exactly one SettleTrip call.
type Override struct {
	MarketHealth   *float64 `json:"marketHealth,omitempty"`
	AcceptanceRate *float64 `json:"acceptanceRate,omitempty"`
}

// LedgerState is the complete numeric state of the campaign.
type LedgerState struct {
	Cash             float64       `json:"cash"`
	CirculatingMoney float64       `json:"circulatingMoney"`
	MarketHealth     float64       `json:"marketHealth"`
	IsSavingActive   bool          `json:"isSavingActive"`
	SavingsAmount    float64       `json:"savingsAmount"`
	SavingsConfig    SavingsConfig `json:"savingsConfig"`
	AusterityTrips   int           `json:"austerityTrips"`
	Loan             Loan          `json:"loan"`
	Ecology          Ecology       `json:"ecology"`
	Fleet            Fleet         `json:"fleet"`
	Tech             Tech          `json:"tech"`

	TickIndex              int       `json:"tickIndex"`
	IsSimulationRunning    bool      `json:"isSimulationRunning"`
	ForcedNextTripOverride *Override `json:"forcedNextTripOverride,omitempty"`
}

// clone returns a copy that shares no pointers with s.
func (s LedgerState) clone() LedgerState {
	if s.ForcedNextTripOverride != nil {
		o := *s.ForcedNextTripOverride
		s.ForcedNextTripOverride = &o
	}
	return s
}

// Economy is the ledger and settlement engine.
type Economy struct {
	logger   *zap.Logger
	bus      Publisher
	tables   Tables
	settings Settings

	state   LedgerState
	initial LedgerState

	allowNegativeCash bool
}

// New creates an economy at its initial snapshot.
func New(logger *zap.Logger, bus Publisher, tables Tables, settings Settings) *Economy {
	if logger == nil {
		logger = zap.NewNop()
	}
	settings = settings.withDefaults()
	initial := LedgerState{
		Cash:             settings.StartingCash,
		CirculatingMoney: settings.StartingCirculating,
		MarketHealth:     1,
		SavingsConfig:    SavingsConfig{TavernLevel: constants.LevelFull, ShipyardLevel: constants.LevelFull},
		Ecology:          Ecology{Stock: settings.EcologyMax, Max: settings.EcologyMax},
		Fleet:            Fleet{Rowboats: 1},
		Tech:             Tech{NetType: constants.NetStandard, EngineType: constants.EngineOar},
	}
	return &Economy{
		logger:   logger,
		bus:      bus,
		tables:   tables,
		settings: settings,
		state:    initial,
		initial:  initial,
	}
}

// State returns a copy of the ledger.
func (e *Economy) State() LedgerState {
	return e.state.clone()
}

// Settings returns the active tunables.
func (e *Economy) Settings() Settings {
	return e.settings
}

// Reset restores the initial snapshot.
func (e *Economy) Reset() {
	e.state = e.initial.clone()
	e.allowNegativeCash = false
	e.logger.Info("ledger reset", zap.String("op", "economy.Reset"))
}

// Restore replaces the ledger wholesale. Intended for tests and debug jumps.
func (e *Economy) Restore(s LedgerState) {
	e.state = s.clone()
	e.state.MarketHealth = mathutil.Clamp01(e.state.MarketHealth)
	e.state.Ecology.Stock = mathutil.Clamp(e.state.Ecology.Stock, 0, e.state.Ecology.Max)
}

// SetNegativeCashAllowed toggles the tutorial guard. While negative cash is
// disallowed, AdjustCash floors the balance at zero.
func (e *Economy) SetNegativeCashAllowed(allowed bool) {
	e.allowNegativeCash = allowed
}

// AdjustCash applies a scripted cash change and returns the new balance.
func (e *Economy) AdjustCash(delta float64) float64 {
	e.state.Cash += delta
	if !e.allowNegativeCash && e.state.Cash < 0 {
		e.state.Cash = 0
	}
	return e.state.Cash
}

// SetMarketHealth sets market health, clamped to [0,1].
func (e *Economy) SetMarketHealth(h float64) {
	e.state.MarketHealth = mathutil.Clamp01(h)
}

// ForceNextTrip installs a one-shot settlement override.
func (e *Economy) ForceNextTrip(o Override) {
	e.state.ForcedNextTripOverride = &o
	e.logger.Debug("forced next trip override installed", zap.String("op", "economy.ForceNextTrip"))
}

// Owns reports whether the fleet includes a boat of the given type.
func (e *Economy) Owns(boatType string) bool {
	switch boatType {
	case constants.BoatRow:
		return e.state.Fleet.Rowboats > 0
	case constants.BoatMotor:
		return e.state.Fleet.Motorboats > 0
	case constants.BoatTrawler:
		return e.state.Fleet.Trawlers > 0
	}
	return false
}

// StartSimulation enables the legacy passive income ticker.
func (e *Economy) StartSimulation() {
	e.state.IsSimulationRunning = true
}

// StopSimulation disables the legacy passive income ticker.
func (e *Economy) StopSimulation() {
	e.state.IsSimulationRunning = false
}

// Tick pays passive income from the circulating pool while the simulation
// runs and returns the amount credited.
func (e *Economy) Tick() float64 {
	if !e.state.IsSimulationRunning {
		return 0
	}
	e.state.TickIndex++
	income := mathutil.Round(e.state.CirculatingMoney * e.settings.PassiveIncomeRate * e.state.MarketHealth)
	e.state.Cash += income
	return income
}

func (e *Economy) publish(ev eventbus.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}
