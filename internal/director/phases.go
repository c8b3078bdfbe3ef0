package director

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/iwvelando/boom-bust/internal/content"
	"github.com/iwvelando/boom-bust/internal/events"
	"github.com/iwvelando/boom-bust/pkg/constants"
)

// Progress signals matched against objective tracks.
const (
	signalTrip             = "trip"
	signalProfitableTrip   = "profitable_trip"
	signalAusterityTrip    = "austerity_trip"
	signalLoanTaken        = "loan_taken"
	signalLoanRepaid       = "loan_repaid"
	signalSavingsConfirmed = "savings_confirmed"
	signalVisitPrefix      = "visit:"
	signalBuyPrefix        = "buy:"
)

// signalFlags maps progress signals to the flags they raise.
var signalFlags = map[string]string{
	signalLoanTaken:                              FlagFirstLoanTaken,
	signalLoanRepaid:                             FlagLoanRepaid,
	signalSavingsConfirmed:                       FlagSavingsChosen,
	signalBuyPrefix + constants.ItemMotorboat:    FlagMotorboatBought,
	signalBuyPrefix + constants.ItemTrawler:      FlagTrawlerBought,
	signalBuyPrefix + constants.ItemDredgeNet:    FlagDredgePurchased,
	signalBuyPrefix + constants.ItemDieselEngine: FlagEngineInstalled,
}

// SetPhase enters a phase: it copies the phase's objective template, resets
// per-phase counters and the dock lock, announces the change, opens the
// intro scene, and schedules the boat hint.
func (d *Director) SetPhase(id content.PhaseID) error {
	p, err := d.tables.Phase(id)
	if err != nil {
		d.logger.Warn("unknown phase", zap.String("op", "director.SetPhase"), zap.String("phase", string(id)))
		return fmt.Errorf("set phase: %w", ErrUnknown)
	}
	from := d.state.Phase

	d.cancelHint()
	d.phase = p
	d.state.Phase = id
	d.state.PhaseTitle = p.Title
	d.state.Objectives = p.Objectives
	d.state.PhaseTrips = 0
	d.state.ProfitableTrips = 0
	d.state.CompletionShown = false
	d.state.ForceDockLock = false
	d.state.DockLockUntil = ""
	d.econ.SetNegativeCashAllowed(id != content.Tutorial)

	d.logger.Info("phase changed",
		zap.String("op", "director.SetPhase"),
		zap.String("from", string(from)),
		zap.String("to", string(id)),
	)
	d.publish(events.PhaseChanged{PhaseID: id, Title: p.Title})
	d.publishObjectives()

	if p.IntroScene != "" {
		d.TriggerScene(p.IntroScene)
	}
	d.scheduleHint()
	return nil
}

// MarkObjectiveDone flips an objective to done. Repeated calls are no-ops
// and emit nothing.
func (d *Director) MarkObjectiveDone(id string) bool {
	i := d.objectiveIndex(id)
	if i < 0 {
		d.logger.Warn("unknown objective", zap.String("op", "director.MarkObjectiveDone"), zap.String("objective", id))
		return false
	}
	obj := &d.state.Objectives[i]
	if obj.Done {
		return false
	}
	obj.Done = true
	if obj.Target > 0 {
		obj.Current = obj.Target
	}
	d.publishObjectives()
	d.checkPhaseComplete()
	return true
}

// AdvanceObjective adds delta to a counted objective, completing it when it
// reaches its target. Objectives without a target complete on any advance.
func (d *Director) AdvanceObjective(id string, delta int) bool {
	i := d.objectiveIndex(id)
	if i < 0 {
		d.logger.Warn("unknown objective", zap.String("op", "director.AdvanceObjective"), zap.String("objective", id))
		return false
	}
	obj := &d.state.Objectives[i]
	if obj.Done || delta <= 0 {
		return false
	}
	if obj.Target <= 0 {
		return d.MarkObjectiveDone(id)
	}
	obj.Current += delta
	if obj.Current >= obj.Target {
		obj.Current = obj.Target
		obj.Done = true
	}
	d.publishObjectives()
	if obj.Done {
		d.checkPhaseComplete()
	}
	return true
}

func (d *Director) objectiveIndex(id string) int {
	for i, o := range d.state.Objectives {
		if o.ID == id {
			return i
		}
	}
	return -1
}

func (d *Director) allObjectivesDone() bool {
	for _, o := range d.state.Objectives {
		if !o.Done {
			return false
		}
	}
	return len(d.state.Objectives) > 0
}

// checkPhaseComplete opens the completion scene once every objective is
// done. While a sequence runs the scene is held; afterTrip shows it after the
// trip has committed.
func (d *Director) checkPhaseComplete() {
	if d.sched.Busy() {
		return
	}
	d.completePhase()
}

func (d *Director) completePhase() {
	if d.state.CompletionShown || !d.allObjectivesDone() {
		return
	}
	d.state.CompletionShown = true
	d.logger.Info("phase objectives complete",
		zap.String("op", "director.completePhase"),
		zap.String("phase", string(d.state.Phase)),
	)
	if d.phase.CompleteScene != "" {
		d.TriggerScene(d.phase.CompleteScene)
	}
}

// notify raises the signal's flag, feeds the signal to every open objective
// tracking it, and releases a dock lock waiting on it.
func (d *Director) notify(signal string) {
	if flag, ok := signalFlags[signal]; ok {
		d.state.Flags[flag] = true
	}
	if d.state.ForceDockLock && d.state.DockLockUntil == signal {
		d.unlockDock()
	}
	ids := make([]string, 0, len(d.state.Objectives))
	for _, o := range d.state.Objectives {
		if o.Track == signal && !o.Done {
			ids = append(ids, o.ID)
		}
	}
	for _, id := range ids {
		d.AdvanceObjective(id, 1)
	}
}

func (d *Director) unlockDock() {
	d.state.ForceDockLock = false
	d.state.DockLockUntil = ""
	if !d.sched.Busy() {
		d.publish(events.ReleaseBoats{})
	}
}

func (d *Director) scheduleHint() {
	if d.opts.HintDelay <= 0 {
		return
	}
	phase := d.state.Phase
	d.hintTimer = d.sched.AfterFunc(d.opts.HintDelay, "boat_hint", func() {
		d.hintTimer = 0
		if d.state.Phase != phase || d.state.PhaseTrips > 0 {
			return
		}
		d.publish(events.ShowBoatHint{Text: "Send a boat out from the dock."})
	})
}

func (d *Director) cancelHint() {
	if d.hintTimer != 0 {
		d.sched.Cancel(d.hintTimer)
		d.hintTimer = 0
	}
}
