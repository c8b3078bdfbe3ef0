package economy

import (
	"github.com/iwvelando/boom-bust/pkg/constants"
)

// Split holds a value for each counterparty.
type Split struct {
	Shipyard float64
	Tavern   float64
}

// Total sums both sides.
func (s Split) Total() float64 {
	return s.Shipyard + s.Tavern
}

// CrateSplit holds offered crates per counterparty.
type CrateSplit struct {
	Shipyard int
	Tavern   int
}

// IntakeRatios are the scripted acceptance ratios for one austerity trip.
type IntakeRatios struct {
	Targeted   float64
	Untargeted float64
}

// Tables are the content-tuned settlement constants. The values are
// deliberately preserved as authored.
type Tables struct {
	// OperatingCost is keyed by effective settlement key.
	OperatingCost map[string]Split
	// AusterityCost is keyed by savings level.
	AusterityCost map[string]Split
	// Crates offered per trip, keyed by effective settlement key.
	Crates map[string]CrateSplit
	// Catch per trip, keyed by effective settlement key.
	Catch map[string]float64
	// Prices of purchasable items.
	Prices map[string]float64

	// AusterityDecay is applied to market health on austerity trips 1..n.
	// Trips beyond the schedule force market health to zero.
	AusterityDecay []float64
	// AusterityIntake is indexed by austerity trip - 1; the last entry
	// applies to every later trip.
	AusterityIntake []IntakeRatios
}

// DefaultTables returns the campaign's settlement tables.
func DefaultTables() Tables {
	return Tables{
		OperatingCost: map[string]Split{
			constants.BoatRow:     {Shipyard: 20, Tavern: 10},
			constants.BoatMotor:   {Shipyard: 35, Tavern: 25},
			constants.BoatTrawler: {Shipyard: 60, Tavern: 40},
			constants.KeyDredge:   {Shipyard: 80, Tavern: 50},
		},
		AusterityCost: map[string]Split{
			constants.LevelFull:  {Shipyard: 20, Tavern: 10},
			constants.LevelBasic: {Shipyard: 8, Tavern: 4},
		},
		Crates: map[string]CrateSplit{
			constants.BoatRow:     {Shipyard: 2, Tavern: 3},
			constants.BoatMotor:   {Shipyard: 4, Tavern: 4},
			constants.BoatTrawler: {Shipyard: 6, Tavern: 6},
			constants.KeyDredge:   {Shipyard: 8, Tavern: 8},
		},
		Catch: map[string]float64{
			constants.BoatRow:     15,
			constants.BoatMotor:   25,
			constants.BoatTrawler: 50,
			constants.KeyDredge:   constants.DestructiveCatch,
		},
		Prices: map[string]float64{
			constants.ItemMotorboat:    150,
			constants.ItemTrawler:      400,
			constants.ItemDredgeNet:    250,
			constants.ItemDieselEngine: 120,
		},
		AusterityDecay: []float64{0.10, 0.30},
		AusterityIntake: []IntakeRatios{
			{Targeted: 0.5, Untargeted: 1.0},
			{Targeted: 0.25, Untargeted: 0.5},
			{Targeted: 0, Untargeted: 0},
		},
	}
}

// Settings are the scalar tunables that configuration may override.
type Settings struct {
	StartingCash        float64
	StartingCirculating float64
	CrateValue          float64
	RecallThreshold     float64
	DefaultLoanRate     float64
	StimulusThreshold   float64
	PassiveIncomeRate   float64

	EcologyMax        float64
	EcologyGrowthRate float64
	CollateralDamage  float64
	WarnPercent       float64
}

// DefaultSettings returns the campaign defaults.
func DefaultSettings() Settings {
	return Settings{
		StartingCash:        constants.StartingCash,
		StartingCirculating: constants.StartingCirculatingMoney,
		CrateValue:          constants.CrateValue,
		RecallThreshold:     constants.RecallThreshold,
		DefaultLoanRate:     constants.DefaultLoanRate,
		StimulusThreshold:   constants.StimulusThreshold,
		PassiveIncomeRate:   constants.PassiveIncomeRate,
		EcologyMax:          constants.EcologyMax,
		EcologyGrowthRate:   constants.EcologyGrowthRate,
		CollateralDamage:    constants.CollateralDamage,
		WarnPercent:         constants.EcologyWarnPercent,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.StartingCash < 0 {
		s.StartingCash = d.StartingCash
	}
	if s.CrateValue <= 0 {
		s.CrateValue = d.CrateValue
	}
	if s.RecallThreshold <= 0 {
		s.RecallThreshold = d.RecallThreshold
	}
	if s.DefaultLoanRate <= 0 {
		s.DefaultLoanRate = d.DefaultLoanRate
	}
	if s.StimulusThreshold <= 0 {
		s.StimulusThreshold = d.StimulusThreshold
	}
	if s.PassiveIncomeRate <= 0 {
		s.PassiveIncomeRate = d.PassiveIncomeRate
	}
	if s.EcologyMax <= 0 {
		s.EcologyMax = d.EcologyMax
	}
	if s.EcologyGrowthRate <= 0 {
		s.EcologyGrowthRate = d.EcologyGrowthRate
	}
	if s.CollateralDamage <= 0 {
		s.CollateralDamage = d.CollateralDamage
	}
	if s.WarnPercent <= 0 {
		s.WarnPercent = d.WarnPercent
	}
	return s
}
