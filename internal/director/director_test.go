package director

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iwvelando/boom-bust/internal/content"
	"github.com/iwvelando/boom-bust/internal/economy"
	"github.com/iwvelando/boom-bust/internal/events"
	"github.com/iwvelando/boom-bust/internal/sequencer"
	"github.com/iwvelando/boom-bust/pkg/constants"
	"github.com/iwvelando/boom-bust/pkg/eventbus"
)

type harness struct {
	tables *content.Tables
	bus    *eventbus.Bus
	econ   *economy.Economy
	sched  *sequencer.Scheduler
	d      *Director
	events []eventbus.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tables, err := content.Load()
	require.NoError(t, err)

	h := &harness{tables: tables, bus: eventbus.New(nil)}
	h.bus.SubscribeAll(func(ev eventbus.Event) { h.events = append(h.events, ev) })
	h.econ = economy.New(nil, h.bus, economy.DefaultTables(), economy.DefaultSettings())
	h.sched = sequencer.New(nil)
	h.d = New(nil, h.bus, h.econ, tables, h.sched, DefaultOptions())
	return h
}

func (h *harness) count(kind eventbus.Kind) int {
	n := 0
	for _, ev := range h.events {
		if ev.Kind() == kind {
			n++
		}
	}
	return n
}

func (h *harness) clear() {
	h.events = nil
}

// finish runs every pending sleep of the active sequence.
func (h *harness) finish() {
	h.sched.Advance(time.Minute)
}

func (h *harness) setCash(cash float64) {
	st := h.econ.State()
	st.Cash = cash
	h.econ.Restore(st)
}

// enter jumps to a phase and dismisses its intro scene.
func (h *harness) enter(t *testing.T, id content.PhaseID) {
	t.Helper()
	require.NoError(t, h.d.JumpToPhase(id))
	if st := h.d.State(); st.SceneActive {
		require.NoError(t, h.d.CloseScene(st.CurrentScene))
	}
}

func TestMarkObjectiveDoneIsIdempotent(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.d.SetPhase(content.Tutorial))
	h.clear()

	assert.True(t, h.d.MarkObjectiveDone("visit_tavern"))
	assert.False(t, h.d.MarkObjectiveDone("visit_tavern"))
	assert.False(t, h.d.MarkObjectiveDone("no_such_objective"))

	assert.Equal(t, 1, h.count(events.KindObjectivesUpdated))
	for _, o := range h.d.Objectives() {
		if o.ID == "visit_tavern" {
			assert.True(t, o.Done)
		}
	}
}

func TestAdvanceObjectiveCountsToTarget(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.d.SetPhase(content.Boom))

	assert.True(t, h.d.AdvanceObjective("profitable_trips", 1))
	assert.True(t, h.d.AdvanceObjective("profitable_trips", 1))
	objs := h.d.Objectives()
	assert.Equal(t, 2, objs[1].Current)
	assert.False(t, objs[1].Done)

	assert.True(t, h.d.AdvanceObjective("profitable_trips", 5))
	objs = h.d.Objectives()
	assert.Equal(t, 3, objs[1].Current)
	assert.True(t, objs[1].Done)
	assert.False(t, h.d.AdvanceObjective("profitable_trips", 1))
}

func TestStartShowsIntroAndGatesTrips(t *testing.T) {
	h := newHarness(t)
	h.d.Start()

	st := h.d.State()
	assert.Equal(t, content.Tutorial, st.Phase)
	assert.True(t, st.IntroRunning)
	assert.Equal(t, "harbor_intro", st.CurrentScene)
	assert.ErrorIs(t, h.d.HandleTripRequest(constants.BoatRow), ErrInputBlocked)

	require.NoError(t, h.d.CloseScene("harbor_intro"))
	assert.False(t, h.d.State().IntroRunning)

	require.NoError(t, h.d.HandleTripRequest(constants.BoatRow))
	assert.True(t, h.d.State().SequenceRunning)
	assert.ErrorIs(t, h.d.HandleTripRequest(constants.BoatRow), ErrInputBlocked)
	assert.ErrorIs(t, h.d.HandleBuildingClick(constants.BuildingTavern, "tavern-1"), ErrInputBlocked)

	h.finish()
	st = h.d.State()
	assert.False(t, st.SequenceRunning)
	assert.True(t, st.Objectives[0].Done)
	assert.Equal(t, 120.0, h.econ.State().Cash)
	assert.Equal(t, 1, h.count(events.KindReleaseBoats))
	assert.Equal(t, 1, h.count(events.KindShowBuildingHint))
}

func TestUnownedBoatIsBlocked(t *testing.T) {
	h := newHarness(t)
	h.enter(t, content.Boom)
	assert.ErrorIs(t, h.d.HandleTripRequest(constants.BoatTrawler), ErrInputBlocked)
}

func TestTutorialCompletesIntoStagnation(t *testing.T) {
	h := newHarness(t)
	h.d.Start()
	require.NoError(t, h.d.CloseScene("harbor_intro"))
	require.NoError(t, h.d.HandleTripRequest(constants.BoatRow))
	h.finish()

	require.NoError(t, h.d.HandleBuildingClick(constants.BuildingTavern, "tavern-1"))
	assert.Equal(t, "tavern_menu", h.d.State().CurrentScene)
	require.NoError(t, h.d.HandleSceneChoice("tavern_menu", "leave"))

	require.NoError(t, h.d.HandleBuildingClick(constants.BuildingShipyard, "shipyard-1"))
	assert.Equal(t, "tutorial_complete", h.d.State().CurrentScene)

	require.NoError(t, h.d.HandleSceneChoice("tutorial_complete", "continue"))
	st := h.d.State()
	assert.Equal(t, content.Stagnation, st.Phase)
	assert.Equal(t, "stagnation_intro", st.CurrentScene)
	for _, o := range st.Objectives {
		assert.False(t, o.Done, o.ID)
	}
}

func TestAusterityCrashAndStimulus(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.d.JumpToPhase(content.Stagnation))
	require.Equal(t, "stagnation_intro", h.d.State().CurrentScene)

	require.NoError(t, h.d.HandleSceneChoice("stagnation_intro", "plan"))
	assert.Equal(t, 1, h.count(events.KindShowSavingsPanel))
	assert.False(t, h.d.State().SceneActive)

	require.NoError(t, h.d.HandleSavingsConfirmed(0, economy.SavingsConfig{
		TavernLevel:   constants.LevelBasic,
		ShipyardLevel: constants.LevelFull,
	}))
	assert.True(t, h.econ.State().IsSavingActive)
	assert.ErrorIs(t, h.d.HandleBuildingClick(constants.BuildingTavern, "tavern-1"), ErrInputBlocked)

	for i := 0; i < 2; i++ {
		require.NoError(t, h.d.HandleTripRequest(constants.BoatRow))
		h.finish()
		require.False(t, h.d.State().SequenceRunning)
	}
	assert.Equal(t, 92.0, h.econ.State().Cash)

	require.NoError(t, h.d.HandleTripRequest(constants.BoatRow))
	h.finish()
	st := h.d.State()
	require.Equal(t, "austerity_crash", st.CurrentScene)
	assert.True(t, st.WaitingForPlayerAction)
	assert.Equal(t, 68.0, h.econ.State().Cash)
	assert.Equal(t, 0.0, h.econ.State().MarketHealth)

	require.NoError(t, h.d.CloseScene("austerity_crash"))
	st = h.d.State()
	assert.True(t, st.ForceDockLock)
	assert.Equal(t, "bank", st.AwaitingClick)
	assert.ErrorIs(t, h.d.HandleTripRequest(constants.BoatRow), ErrInputBlocked)

	require.NoError(t, h.d.HandleBuildingClick(constants.BuildingBank, "bank-1"))
	require.Equal(t, "bank_stimulus", h.d.State().CurrentScene)

	require.NoError(t, h.d.HandleSceneChoice("bank_stimulus", "take"))
	st = h.d.State()
	assert.False(t, st.SequenceRunning)
	assert.False(t, st.ForceDockLock)
	assert.Equal(t, content.Stagnation, st.Phase)
	assert.Equal(t, "stagnation_complete", st.CurrentScene)

	ledger := h.econ.State()
	assert.Equal(t, 368.0, ledger.Cash)
	assert.Equal(t, 300.0, ledger.Loan.Principal)
	assert.Equal(t, 1.0, ledger.MarketHealth)
	assert.False(t, ledger.IsSavingActive)

	require.NoError(t, h.d.HandleSceneChoice("stagnation_complete", "continue"))
	st = h.d.State()
	assert.Equal(t, content.Boom, st.Phase)
	assert.Equal(t, "boom_intro", st.CurrentScene)
}

func TestDeferredSettlementCreditsAtCommit(t *testing.T) {
	h := newHarness(t)
	h.enter(t, content.Boom)

	require.NoError(t, h.d.HandleTripRequest(constants.BoatRow))
	assert.Equal(t, 100.0, h.econ.State().Cash, "cash must not move before the commit step")

	h.finish()
	assert.Equal(t, 120.0, h.econ.State().Cash)
	assert.Equal(t, 1, h.d.Objectives()[1].Current)
	assert.Equal(t, 1, h.count(events.KindCoinLeg))
	assert.Equal(t, 1, h.count(events.KindShowBark))
}

func TestSkipSequenceCommitsPendingTrip(t *testing.T) {
	h := newHarness(t)
	h.enter(t, content.Boom)
	h.clear()

	require.NoError(t, h.d.HandleTripRequest(constants.BoatRow))
	require.True(t, h.d.SkipSequence())

	assert.False(t, h.d.State().SequenceRunning)
	assert.Equal(t, 120.0, h.econ.State().Cash)
	assert.Equal(t, 1, h.count(events.KindReleaseBoats))
	assert.False(t, h.d.SkipSequence())

	var finished []events.SequenceFinished
	for _, ev := range h.events {
		if f, ok := ev.(events.SequenceFinished); ok {
			finished = append(finished, f)
		}
	}
	require.Len(t, finished, 1)
	assert.True(t, finished[0].Aborted)
}

func TestGrowthLockReleasedByPurchase(t *testing.T) {
	h := newHarness(t)
	h.enter(t, content.GrowthTrap)

	require.NoError(t, h.d.HandleTripRequest(constants.BoatRow))
	h.finish()
	require.Equal(t, "growth_lock", h.d.State().CurrentScene)
	h.clear()

	require.NoError(t, h.d.CloseScene("growth_lock"))
	st := h.d.State()
	assert.True(t, st.ForceDockLock)
	assert.False(t, st.SequenceRunning)
	assert.Zero(t, h.count(events.KindReleaseBoats))
	assert.ErrorIs(t, h.d.HandleTripRequest(constants.BoatRow), ErrInputBlocked)

	h.setCash(500)
	require.NoError(t, h.d.HandleBuildingClick(constants.BuildingShipyard, "shipyard-1"))
	require.NoError(t, h.d.HandleSceneChoice("shipyard_menu", "buy_trawler"))

	st = h.d.State()
	assert.False(t, st.ForceDockLock)
	assert.Equal(t, 1, h.count(events.KindReleaseBoats))
	assert.True(t, st.Objectives[0].Done)
	assert.Equal(t, 1, h.econ.State().Fleet.Trawlers)
}

func TestChoiceCostCheckedAgainstCash(t *testing.T) {
	h := newHarness(t)
	h.enter(t, content.Boom)

	require.NoError(t, h.d.HandleBuildingClick(constants.BuildingShipyard, "shipyard-1"))
	err := h.d.HandleSceneChoice("shipyard_menu", "buy_trawler")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, "shipyard_menu", h.d.State().CurrentScene)
	assert.Equal(t, 1, h.count(events.KindShowMessage))

	h.setCash(200)
	require.NoError(t, h.d.HandleSceneChoice("shipyard_menu", "buy_motorboat"))
	assert.False(t, h.d.State().SceneActive)
	assert.Equal(t, 1, h.econ.State().Fleet.Motorboats)
	assert.True(t, h.d.Objectives()[0].Done)
}

func TestUnknownIDsAreNoOps(t *testing.T) {
	h := newHarness(t)
	h.enter(t, content.Boom)

	assert.ErrorIs(t, h.d.HandleBuildingClick("lighthouse", "x"), ErrUnknown)
	assert.ErrorIs(t, h.d.SetPhase("ATLANTIS"), ErrUnknown)
	assert.ErrorIs(t, h.d.JumpToPhase("ATLANTIS"), ErrUnknown)
	assert.ErrorIs(t, h.d.CloseScene("boom_intro"), ErrUnknown)
	assert.False(t, h.d.TriggerScene("no_such_scene"))

	require.NoError(t, h.d.HandleBuildingClick(constants.BuildingDock, "dock-1"))
	assert.ErrorIs(t, h.d.HandleSceneChoice("dock_menu", "fly"), ErrUnknown)
	assert.ErrorIs(t, h.d.HandleSceneChoice("bank_menu", "borrow"), ErrUnknown)
	assert.Equal(t, content.Boom, h.d.Phase())
}

func TestDockMenuSendsTrip(t *testing.T) {
	h := newHarness(t)
	h.enter(t, content.Efficiency)

	require.NoError(t, h.d.HandleBuildingClick(constants.BuildingDock, "dock-1"))
	require.NoError(t, h.d.HandleSceneChoice("dock_menu", "send_row"))
	assert.True(t, h.d.State().SequenceRunning)
	h.finish()
	assert.Equal(t, 1, h.d.State().PhaseTrips)
}

func TestLoanRecallSceneAfterTrip(t *testing.T) {
	h := newHarness(t)
	h.enter(t, content.Efficiency)
	st := h.econ.State()
	st.Cash = 290
	st.Loan = economy.Loan{Principal: 200, InterestRate: 0.1}
	h.econ.Restore(st)

	require.NoError(t, h.d.HandleTripRequest(constants.BoatRow))
	h.finish()
	require.Equal(t, loanRecallScene, h.d.State().CurrentScene)
	assert.Equal(t, 1, h.count(events.KindLoanRecallTriggered))

	require.NoError(t, h.d.HandleSceneChoice(loanRecallScene, "repay"))
	assert.False(t, h.econ.State().Loan.Open())
	assert.Equal(t, 90.0, h.econ.State().Cash)
	assert.False(t, h.d.State().SceneActive)
}

func TestEcologicalCollapseForcesCollapsePhase(t *testing.T) {
	h := newHarness(t)
	h.enter(t, content.Cannibalization)
	st := h.econ.State()
	st.Ecology.Stock = 120
	st.Tech.NetType = constants.NetDredge
	h.econ.Restore(st)

	require.NoError(t, h.d.HandleTripRequest(constants.BoatRow))
	h.finish()

	cs := h.d.State()
	assert.Equal(t, content.Collapse, cs.Phase)
	assert.Equal(t, "collapse_intro", cs.CurrentScene)
	assert.ErrorIs(t, h.d.HandleTripRequest(constants.BoatRow), ErrInputBlocked)

	require.NoError(t, h.d.HandleSceneChoice("collapse_intro", "end"))
	assert.True(t, h.d.State().Ended)
	assert.Equal(t, 1, h.count(events.KindCampaignEnded))
}

func TestTutorialNeverCollapses(t *testing.T) {
	h := newHarness(t)
	h.enter(t, content.Tutorial)
	st := h.econ.State()
	st.Ecology.Stock = 20
	h.econ.Restore(st)

	require.NoError(t, h.d.HandleTripRequest(constants.BoatRow))
	h.finish()
	assert.Equal(t, content.Tutorial, h.d.Phase())
}

func TestBoatHintAfterIdlePhase(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.d.SetPhase(content.Crunch))

	h.sched.Advance(19 * time.Second)
	assert.Zero(t, h.count(events.KindShowBoatHint))
	h.sched.Advance(time.Second)
	assert.Equal(t, 1, h.count(events.KindShowBoatHint))
}

func TestBoatHintCancelledByTrip(t *testing.T) {
	h := newHarness(t)
	h.enter(t, content.Crunch)
	require.Equal(t, 1, h.sched.Pending())

	require.NoError(t, h.d.HandleTripRequest(constants.BoatRow))
	h.finish()
	if h.d.State().SceneActive {
		require.NoError(t, h.d.CloseScene(h.d.State().CurrentScene))
	}
	h.sched.Advance(time.Minute)
	assert.Zero(t, h.count(events.KindShowBoatHint))
}

func TestResetFromGrowthTrapLeavesNoTimers(t *testing.T) {
	h := newHarness(t)
	h.d.Start()
	require.NoError(t, h.d.CloseScene("harbor_intro"))
	require.NoError(t, h.d.HandleTripRequest(constants.BoatRow))
	h.finish()
	require.True(t, h.d.Objectives()[0].Done)

	h.enter(t, content.GrowthTrap)
	h.sched.AfterFunc(time.Hour, "unrelated", func() {})
	require.NoError(t, h.d.HandleTripRequest(constants.BoatRow))
	require.True(t, h.sched.Busy())
	require.NotZero(t, h.sched.Pending())

	h.d.Reset()
	assert.Zero(t, h.sched.Pending())
	assert.False(t, h.sched.Busy())
	assert.Equal(t, constants.StartingCash, h.econ.State().Cash)

	require.NoError(t, h.d.SetPhase(content.Tutorial))
	template, err := h.tables.Phase(content.Tutorial)
	require.NoError(t, err)
	assert.Equal(t, template.Objectives, h.d.Objectives())
	for _, o := range h.d.Objectives() {
		assert.False(t, o.Done)
	}
}

func TestRestartChoiceRestartsCampaign(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.d.JumpToPhase(content.Collapse))
	h.econ.TakeLoan(300, 0)

	require.NoError(t, h.d.HandleSceneChoice("collapse_intro", "restart"))
	st := h.d.State()
	assert.Equal(t, content.Tutorial, st.Phase)
	assert.Equal(t, "harbor_intro", st.CurrentScene)
	assert.False(t, h.econ.State().Loan.Open())
}

func TestHandleEventRoutesInbound(t *testing.T) {
	h := newHarness(t)
	h.enter(t, content.Boom)

	require.NoError(t, h.d.HandleEvent(events.BuildingClicked{Type: constants.BuildingBank, ID: "bank-1"}))
	require.Equal(t, "bank_menu", h.d.State().CurrentScene)
	require.NoError(t, h.d.HandleEvent(events.ChoiceMade{SceneID: "bank_menu", ChoiceID: "borrow"}))
	assert.Equal(t, 200.0, h.econ.State().Loan.Principal)

	require.NoError(t, h.d.HandleEvent(events.TripRequested{BoatType: constants.BoatRow}))
	h.finish()
	assert.ErrorIs(t, h.d.HandleEvent(events.ShowMessage{Text: "x"}), ErrUnknown)
}

func TestLedgerOperationsFeedObjectives(t *testing.T) {
	h := newHarness(t)
	h.enter(t, content.Boom)
	h.clear()

	assert.ErrorIs(t, h.d.TakeLoan(0, 0), ErrRejected)

	_, err := h.d.Purchase(constants.ItemMotorboat)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, 1, h.count(events.KindShowMessage))

	require.NoError(t, h.d.TakeLoan(200, 0))
	assert.Equal(t, 300.0, h.econ.State().Cash)

	res, err := h.d.Purchase(constants.ItemMotorboat)
	require.NoError(t, err)
	assert.Equal(t, 150.0, res.Price)
	assert.True(t, h.d.State().Objectives[0].Done)

	_, err = h.d.Purchase("submarine")
	assert.ErrorIs(t, err, ErrRejected)
}

func TestRepayLoan(t *testing.T) {
	h := newHarness(t)
	h.enter(t, content.Boom)

	_, err := h.d.RepayLoan()
	assert.ErrorIs(t, err, ErrRejected)

	require.NoError(t, h.d.TakeLoan(200, 0))
	h.setCash(150)
	res, err := h.d.RepayLoan()
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, 50.0, res.Shortfall)

	h.setCash(250)
	res, err = h.d.RepayLoan()
	require.NoError(t, err)
	assert.Equal(t, 200.0, res.Paid)
	assert.Equal(t, 50.0, h.econ.State().Cash)
}

func TestLedgerRequestsBlockedDuringSequence(t *testing.T) {
	h := newHarness(t)
	h.enter(t, content.Boom)
	require.True(t, h.d.MarkObjectiveDone("profitable_trips"))
	h.setCash(500)

	require.NoError(t, h.d.HandleTripRequest(constants.BoatRow))
	require.True(t, h.d.State().SequenceRunning)

	_, err := h.d.Purchase(constants.ItemMotorboat)
	assert.ErrorIs(t, err, ErrInputBlocked)
	assert.ErrorIs(t, h.d.TakeLoan(200, 0), ErrInputBlocked)
	_, err = h.d.RepayLoan()
	assert.ErrorIs(t, err, ErrInputBlocked)

	st := h.d.State()
	assert.False(t, st.SceneActive)
	assert.False(t, st.CompletionShown)
	assert.Equal(t, 0, h.econ.State().Fleet.Motorboats)
	assert.Equal(t, 500.0, h.econ.State().Cash)

	h.finish()
	st = h.d.State()
	require.False(t, st.SequenceRunning)
	assert.Equal(t, content.Boom, st.Phase)
	assert.False(t, st.SceneActive)

	_, err = h.d.Purchase(constants.ItemMotorboat)
	require.NoError(t, err)
	require.Equal(t, "boom_complete", h.d.State().CurrentScene)

	require.NoError(t, h.d.HandleSceneChoice("boom_complete", "continue"))
	st = h.d.State()
	assert.Equal(t, content.Crunch, st.Phase)
	for _, o := range st.Objectives {
		assert.Zero(t, o.Current, o.ID)
	}
}

func TestCompletionSceneWaitsForTripCommit(t *testing.T) {
	h := newHarness(t)
	h.enter(t, content.Boom)

	require.NoError(t, h.d.HandleTripRequest(constants.BoatRow))
	require.True(t, h.d.MarkObjectiveDone("buy_motorboat"))
	require.True(t, h.d.MarkObjectiveDone("profitable_trips"))

	st := h.d.State()
	assert.False(t, st.SceneActive, "completion must not open mid-sequence")
	assert.False(t, st.CompletionShown)

	h.finish()
	st = h.d.State()
	assert.False(t, st.SequenceRunning)
	assert.Equal(t, "boom_complete", st.CurrentScene)
	assert.Equal(t, 120.0, h.econ.State().Cash)
}

func TestSavingsOnlyWhereOffered(t *testing.T) {
	h := newHarness(t)
	cfg := economy.SavingsConfig{TavernLevel: constants.LevelBasic, ShipyardLevel: constants.LevelFull}

	assert.ErrorIs(t, h.d.HandleSavingsConfirmed(0, cfg), ErrInputBlocked)

	h.enter(t, content.Boom)
	assert.ErrorIs(t, h.d.HandleSavingsConfirmed(0, cfg), ErrInputBlocked)
	assert.False(t, h.econ.State().IsSavingActive)

	h.enter(t, content.Stagnation)
	require.NoError(t, h.d.HandleTripRequest(constants.BoatRow))
	assert.ErrorIs(t, h.d.HandleSavingsConfirmed(0, cfg), ErrInputBlocked)
	assert.False(t, h.econ.State().IsSavingActive)

	h.finish()
	require.NoError(t, h.d.HandleSavingsConfirmed(0, cfg))
	assert.True(t, h.econ.State().IsSavingActive)
}

func TestProgressFlags(t *testing.T) {
	h := newHarness(t)
	flags := h.d.Flags()
	require.Len(t, flags, 7)
	for name, v := range flags {
		assert.Equal(t, false, v, name)
	}

	h.enter(t, content.Boom)
	require.NoError(t, h.d.TakeLoan(200, 0))
	_, err := h.d.Purchase(constants.ItemMotorboat)
	require.NoError(t, err)

	flags = h.d.Flags()
	assert.Equal(t, true, flags[FlagFirstLoanTaken])
	assert.Equal(t, true, flags[FlagMotorboatBought])
	assert.Equal(t, false, flags[FlagDredgePurchased])

	flags[FlagDredgePurchased] = true
	assert.Equal(t, false, h.d.Flags()[FlagDredgePurchased], "Flags returns a copy")

	h.d.Reset()
	assert.Equal(t, defaultFlags(), h.d.Flags())
}

func TestJumpToPhaseCommitsPendingTrip(t *testing.T) {
	h := newHarness(t)
	h.enter(t, content.Boom)

	require.NoError(t, h.d.HandleTripRequest(constants.BoatRow))
	require.Equal(t, 100.0, h.econ.State().Cash)

	require.NoError(t, h.d.JumpToPhase(content.Crunch))
	assert.False(t, h.d.State().SequenceRunning)
	assert.Equal(t, 120.0, h.econ.State().Cash)

	h.finish()
	assert.Equal(t, 120.0, h.econ.State().Cash, "the aborted reveal must not commit again")
}
