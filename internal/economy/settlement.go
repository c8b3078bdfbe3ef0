package economy

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iwvelando/boom-bust/pkg/constants"
	"github.com/iwvelando/boom-bust/pkg/mathutil"
)

// Mode selects when a settlement touches cash.
type Mode int

const (
	// ModeImmediate debits costs and credits revenue inside SettleTrip.
	ModeImmediate Mode = iota
	// ModeDeferred leaves cash untouched until CommitTrip, so a scripted
	// reveal can credit money in step with its delivery beats.
	ModeDeferred
)

func (m Mode) String() string {
	if m == ModeDeferred {
		return "deferred"
	}
	return "immediate"
}

// MarshalText renders the mode for JSON payloads.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses a mode written by MarshalText.
func (m *Mode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "immediate":
		*m = ModeImmediate
	case "deferred":
		*m = ModeDeferred
	default:
		return fmt.Errorf("unknown settlement mode %q", b)
	}
	return nil
}

// SettleOptions carries the caller's context into a settlement.
type SettleOptions struct {
	// Phase is informational; the engine records it but does not branch on it.
	Phase string
	Mode  Mode
}

// Counterparty is the per-side breakdown of a trip.
type Counterparty struct {
	Cost     float64 `json:"cost"`
	Paid     float64 `json:"paid"`
	Offered  int     `json:"offered"`
	Accepted int     `json:"accepted"`
	Revenue  float64 `json:"revenue"`
	Targeted bool    `json:"targeted,omitempty"`
}

// TripResult is the outcome of one settled trip.
type TripResult struct {
	ID       string `json:"id"`
	BoatType string `json:"boatType"`
	Key      string `json:"key"`
	Phase    string `json:"phase"`
	Mode     Mode   `json:"mode"`

	Shipyard Counterparty `json:"shipyard"`
	Tavern   Counterparty `json:"tavern"`

	TotalCost  float64 `json:"totalCost"`
	ActualPaid float64 `json:"actualPaid"`
	Revenue    float64 `json:"revenue"`
	Profit     float64 `json:"profit"`

	PartialPayment bool `json:"partialPayment"`
	Crash          bool `json:"crash"`
	AusterityTrip  int  `json:"austerityTrip,omitempty"`
	Overridden     bool `json:"overridden,omitempty"`

	Catch       float64 `json:"catch"`
	Collateral  float64 `json:"collateral,omitempty"`
	StockBefore float64 `json:"stockBefore"`
	StockAfter  float64 `json:"stockAfter"`

	MarketHealthBefore float64 `json:"marketHealthBefore"`
	MarketHealthAfter  float64 `json:"marketHealthAfter"`
	CashBefore         float64 `json:"cashBefore"`
	CashAfter          float64 `json:"cashAfter"`

	Committed bool `json:"committed"`
}

// Profitable reports whether revenue exceeded what was paid.
func (r TripResult) Profitable() bool {
	return r.Profit > 0
}

// Crates returns total offered and accepted crates.
func (r TripResult) Crates() (offered, accepted int) {
	return r.Shipyard.Offered + r.Tavern.Offered, r.Shipyard.Accepted + r.Tavern.Accepted
}

// ResolveKey picks the cost/yield table for a boat type. Destructive
// netting wins over everything; owning a trawler upgrades any trip.
func (e *Economy) ResolveKey(boatType string) string {
	if e.state.Tech.NetType == constants.NetDredge {
		return constants.KeyDredge
	}
	if e.state.Fleet.Trawlers > 0 {
		return constants.BoatTrawler
	}
	if _, ok := e.tables.OperatingCost[boatType]; ok {
		return boatType
	}
	return constants.BoatRow
}

// SettleTrip settles exactly one trip. It must not be called twice for the
// same logical trip.
func (e *Economy) SettleTrip(boatType string, opts SettleOptions) TripResult {
	s := &e.state
	key := e.ResolveKey(boatType)

	res := TripResult{
		ID:                 uuid.NewString(),
		BoatType:           boatType,
		Key:                key,
		Phase:              opts.Phase,
		Mode:               opts.Mode,
		StockBefore:        s.Ecology.Stock,
		MarketHealthBefore: s.MarketHealth,
		CashBefore:         s.Cash,
	}

	austerity := s.IsSavingActive
	if austerity {
		s.AusterityTrips++
		res.AusterityTrip = s.AusterityTrips
	}

	// Operating costs.
	var costs Split
	if austerity {
		costs.Shipyard = e.tables.AusterityCost[levelOrFull(s.SavingsConfig.ShipyardLevel)].Shipyard
		costs.Tavern = e.tables.AusterityCost[levelOrFull(s.SavingsConfig.TavernLevel)].Tavern
		res.Shipyard.Targeted = s.SavingsConfig.ShipyardLevel == constants.LevelBasic
		res.Tavern.Targeted = s.SavingsConfig.TavernLevel == constants.LevelBasic
	} else {
		costs = e.tables.OperatingCost[key]
	}
	res.Shipyard.Cost = costs.Shipyard
	res.Tavern.Cost = costs.Tavern
	res.TotalCost = costs.Total()

	// Liquidity: the shipyard is paid first.
	available := mathutil.Max(s.Cash, 0)
	res.ActualPaid = mathutil.Min(available, res.TotalCost)
	res.PartialPayment = res.ActualPaid < res.TotalCost
	res.Shipyard.Paid = mathutil.Min(res.ActualPaid, costs.Shipyard)
	res.Tavern.Paid = res.ActualPaid - res.Shipyard.Paid
	if opts.Mode == ModeImmediate {
		s.Cash -= res.ActualPaid
	}

	// Market reaction.
	override := s.ForcedNextTripOverride
	s.ForcedNextTripOverride = nil
	switch {
	case austerity:
		if idx := res.AusterityTrip - 1; idx < len(e.tables.AusterityDecay) {
			s.MarketHealth = mathutil.Clamp01(s.MarketHealth - e.tables.AusterityDecay[idx])
		} else {
			s.MarketHealth = 0
		}
	case res.PartialPayment:
		s.MarketHealth = mathutil.Max(0, s.MarketHealth-constants.PartialPaymentDecay)
	default:
		s.MarketHealth = mathutil.Min(1, s.MarketHealth+constants.FullPaymentRecovery)
	}
	if override != nil && override.MarketHealth != nil {
		s.MarketHealth = mathutil.Clamp01(*override.MarketHealth)
		res.Overridden = true
	}

	// Demand.
	offered := e.tables.Crates[key]
	res.Shipyard.Offered = offered.Shipyard
	res.Tavern.Offered = offered.Tavern
	res.Crash = s.MarketHealth < constants.CrashThreshold
	switch {
	case override != nil && override.AcceptanceRate != nil:
		rate := mathutil.Clamp01(*override.AcceptanceRate)
		res.Shipyard.Accepted = mathutil.FloorCrates(offered.Shipyard, rate)
		res.Tavern.Accepted = mathutil.FloorCrates(offered.Tavern, rate)
		res.Overridden = true
	case austerity:
		ratios := e.austerityIntake(res.AusterityTrip)
		res.Shipyard.Accepted = mathutil.FloorCrates(offered.Shipyard, ratios.pick(res.Shipyard.Targeted))
		res.Tavern.Accepted = mathutil.FloorCrates(offered.Tavern, ratios.pick(res.Tavern.Targeted))
		if res.AusterityTrip > len(e.tables.AusterityDecay) {
			res.Crash = true
		}
	default:
		res.Shipyard.Accepted = mathutil.FloorCrates(offered.Shipyard, s.MarketHealth)
		res.Tavern.Accepted = mathutil.FloorCrates(offered.Tavern, s.MarketHealth)
	}

	// Revenue.
	res.Shipyard.Revenue = float64(res.Shipyard.Accepted) * e.settings.CrateValue
	res.Tavern.Revenue = float64(res.Tavern.Accepted) * e.settings.CrateValue
	res.Revenue = res.Shipyard.Revenue + res.Tavern.Revenue
	res.Profit = res.Revenue - res.ActualPaid
	if opts.Mode == ModeImmediate {
		s.Cash += res.Revenue
	}

	// Ecology.
	res.Catch, res.Collateral = e.extract(key)
	res.StockAfter = s.Ecology.Stock
	res.MarketHealthAfter = s.MarketHealth

	if opts.Mode == ModeImmediate {
		res.Committed = true
		res.CashAfter = s.Cash
		if s.Loan.Open() {
			e.AccrueInterestForTrip()
		}
	} else {
		res.CashAfter = res.CashBefore - res.ActualPaid + res.Revenue
	}

	e.logger.Debug("trip settled",
		zap.String("op", "economy.SettleTrip"),
		zap.String("trip", res.ID),
		zap.String("key", key),
		zap.String("mode", opts.Mode.String()),
		zap.Float64("paid", res.ActualPaid),
		zap.Float64("revenue", res.Revenue),
		zap.Bool("partial", res.PartialPayment),
		zap.Bool("crash", res.Crash),
		zap.Float64("marketHealth", s.MarketHealth),
		zap.Float64("stock", s.Ecology.Stock),
	)

	e.publish(TripCompleted{Result: res})
	if res.Committed {
		e.publish(TripCommitted{Result: res})
	}
	if s.Ecology.Percent() < e.settings.WarnPercent {
		e.publish(EcologicalWarning{Stock: s.Ecology.Stock, Percent: s.Ecology.Percent()})
	}
	return res
}

// CommitTrip applies a deferred settlement's debit and credit, then runs
// the loan hook. It returns false if the result was already committed.
func (e *Economy) CommitTrip(res *TripResult) bool {
	if res == nil || res.Committed {
		return false
	}
	e.state.Cash -= res.ActualPaid
	e.state.Cash += res.Revenue
	res.Committed = true
	res.CashAfter = e.state.Cash
	if e.state.Loan.Open() {
		e.AccrueInterestForTrip()
	}
	e.logger.Debug("deferred trip committed",
		zap.String("op", "economy.CommitTrip"),
		zap.String("trip", res.ID),
		zap.Float64("cash", e.state.Cash),
	)
	e.publish(TripCommitted{Result: *res})
	return true
}

func (e *Economy) austerityIntake(trip int) IntakeRatios {
	n := len(e.tables.AusterityIntake)
	if n == 0 {
		return IntakeRatios{Targeted: 1, Untargeted: 1}
	}
	idx := trip - 1
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return e.tables.AusterityIntake[idx]
}

func (r IntakeRatios) pick(targeted bool) float64 {
	if targeted {
		return r.Targeted
	}
	return r.Untargeted
}

func levelOrFull(level string) string {
	if level == constants.LevelBasic {
		return constants.LevelBasic
	}
	return constants.LevelFull
}
