// Package constants provides shared constants for the boom-bust campaign.
package constants

// Boat types a player may dispatch.
const (
	BoatRow     = "row"
	BoatMotor   = "motor"
	BoatTrawler = "trawler"

	// KeyDredge is the effective settlement key when destructive netting is fitted.
	KeyDredge = "dredge"
)

// Counterparties paid on every trip.
const (
	// Shipyard is the dock-side counterparty and is always paid first.
	Shipyard = "shipyard"

	// Tavern is the crew-side counterparty.
	Tavern = "tavern"
)

// Buildings the player can click.
const (
	BuildingDock     = "dock"
	BuildingBank     = "bank"
	BuildingTavern   = "tavern"
	BuildingShipyard = "shipyard"
	BuildingMarket   = "market"
)

// Savings levels for the austerity policy.
const (
	LevelFull  = "full"
	LevelBasic = "basic"
)

// Net and engine tech identifiers.
const (
	NetStandard  = "standard"
	NetDredge    = "dredge"
	EngineOar    = "oar"
	EngineDiesel = "diesel"
)

// Purchasable items.
const (
	ItemMotorboat    = "motorboat"
	ItemTrawler      = "trawler"
	ItemDredgeNet    = "dredge_net"
	ItemDieselEngine = "diesel_engine"
)

// Economy tuning defaults.
const (
	// CrateValue is the gold credited for each accepted crate.
	CrateValue = 10.0

	// StartingCash is the player's opening balance.
	StartingCash = 100.0

	// StartingCirculatingMoney seeds the legacy passive income pool.
	StartingCirculatingMoney = 1000.0

	// PassiveIncomeRate is the share of circulating money paid out per tick.
	PassiveIncomeRate = 0.01

	// PartialPaymentDecay is subtracted from market health on underpayment.
	PartialPaymentDecay = 0.25

	// FullPaymentRecovery is added to market health on full payment.
	FullPaymentRecovery = 0.05

	// CrashThreshold marks a market crash when market health falls below it.
	CrashThreshold = 0.2

	// DefaultLoanRate is the flat interest charged once per loan.
	DefaultLoanRate = 0.10

	// RecallThreshold is the cash level at which an open loan is recalled.
	RecallThreshold = 300.0

	// StimulusThreshold is the loan size that resets market health and ends austerity.
	StimulusThreshold = 200.0

	// LoanPaymentDueInTrips is informational only; recall ignores it.
	LoanPaymentDueInTrips = 5
)

// Ecology tuning defaults.
const (
	EcologyMax             = 1000.0
	EcologyGrowthRate      = 0.08
	CollateralDamage       = 0.18
	DestructiveCatch       = 70.0
	EcologyWarnPercent     = 30.0
	EcologyCollapsePercent = 10.0
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Logging defaults
const (
	// DefaultLogLevel is used when neither the config nor the CLI sets one
	DefaultLogLevel = "info"

	// DefaultLogFormat is the production encoder
	DefaultLogFormat = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "boom-bust.yaml"

	// EnvPrefix is the prefix for environment overrides
	EnvPrefix = "BOOMBUST"
)

// Server configuration defaults
const (
	// DefaultMaxBodySizeBytes caps inbound command bodies
	DefaultMaxBodySizeBytes = 64 * 1024

	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultCommandsPerSecond limits inbound player commands
	DefaultCommandsPerSecond = 20.0

	// DefaultCommandBurst is the limiter burst size
	DefaultCommandBurst = 40
)

// Director defaults
const (
	// DefaultHintDelayMs is how long the director waits before nudging an idle player.
	DefaultHintDelayMs = 20000

	// DefaultTimeScale maps wall-clock time to sequence time.
	DefaultTimeScale = 1.0
)
