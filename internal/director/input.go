package director

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/iwvelando/boom-bust/internal/content"
	"github.com/iwvelando/boom-bust/internal/economy"
	"github.com/iwvelando/boom-bust/internal/events"
	"github.com/iwvelando/boom-bust/internal/sequencer"
	"github.com/iwvelando/boom-bust/pkg/constants"
	"github.com/iwvelando/boom-bust/pkg/eventbus"
)

// HandleEvent routes an inbound world event to its handler.
func (d *Director) HandleEvent(ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.TripRequested:
		return d.HandleTripRequest(e.BoatType)
	case events.BuildingClicked:
		return d.HandleBuildingClick(e.Type, e.ID)
	case events.SavingsConfirmed:
		return d.HandleSavingsConfirmed(e.Amount, economy.SavingsConfig{
			TavernLevel:   e.TavernLevel,
			ShipyardLevel: e.ShipyardLevel,
		})
	case events.DialogClosed:
		return d.CloseScene(e.ID)
	case events.ChoiceMade:
		return d.HandleSceneChoice(e.SceneID, e.ChoiceID)
	}
	d.logger.Warn("unhandled inbound event", zap.String("op", "director.HandleEvent"), zap.String("kind", string(ev.Kind())))
	return fmt.Errorf("event %s: %w", ev.Kind(), ErrUnknown)
}

func (d *Director) blocked(op, reason string, fields ...zap.Field) error {
	d.logger.Debug("input blocked", append([]zap.Field{zap.String("op", op), zap.String("reason", reason)}, fields...)...)
	return fmt.Errorf("%s: %w", reason, ErrInputBlocked)
}

// HandleBuildingClick resolves a click awaited by a sequence first, then
// applies gating, then opens the building's scene for the current phase.
func (d *Director) HandleBuildingClick(buildingType, id string) error {
	const op = "director.HandleBuildingClick"
	if d.state.AwaitingClick != "" && d.state.AwaitingClick == buildingType {
		d.notify(signalVisitPrefix + buildingType)
		d.sched.Deliver(clickSignal(buildingType))
		return nil
	}
	switch {
	case d.state.Ended:
		return d.blocked(op, "campaign ended")
	case d.state.IntroRunning:
		return d.blocked(op, "intro running")
	case d.state.SceneActive:
		return d.blocked(op, "scene active", zap.String("scene", d.state.CurrentScene))
	case d.sched.Busy():
		return d.blocked(op, "sequence running")
	}
	if d.econ.State().IsSavingActive && buildingType != constants.BuildingDock && buildingType != constants.BuildingBank {
		d.message("Austerity: only the dock and the bank are open.")
		return d.blocked(op, "austerity", zap.String("building", buildingType))
	}

	sceneID, ok := d.phase.Buildings[buildingType]
	if !ok {
		d.logger.Warn("unknown building",
			zap.String("op", op),
			zap.String("building", buildingType),
			zap.String("id", id),
			zap.String("phase", string(d.state.Phase)),
		)
		return fmt.Errorf("building %q: %w", buildingType, ErrUnknown)
	}
	d.notify(signalVisitPrefix + buildingType)
	if d.state.SceneActive {
		// The visit completed the phase; its completion scene replaces the menu.
		return nil
	}
	d.TriggerScene(sceneID)
	return nil
}

// HandleTripRequest settles a trip and runs its reveal sequence.
func (d *Director) HandleTripRequest(boatType string) error {
	const op = "director.HandleTripRequest"
	if boatType == "" {
		boatType = constants.BoatRow
	}
	switch {
	case d.state.Ended:
		return d.blocked(op, "campaign ended")
	case d.state.Phase == content.Collapse:
		return d.blocked(op, "the sea is empty")
	case d.state.IntroRunning:
		return d.blocked(op, "intro running")
	case d.state.SceneActive:
		return d.blocked(op, "scene active", zap.String("scene", d.state.CurrentScene))
	case d.sched.Busy():
		return d.blocked(op, "sequence running")
	case d.state.ForceDockLock:
		return d.blocked(op, "dock locked", zap.String("until", d.state.DockLockUntil))
	case !d.econ.Owns(boatType):
		return d.blocked(op, "boat not owned", zap.String("boat", boatType))
	}

	d.cancelHint()
	d.state.PhaseTrips++
	d.state.TotalTrips++

	mode := economy.ModeImmediate
	if d.phase.DeferredSettlement || d.econ.State().IsSavingActive {
		mode = economy.ModeDeferred
	}
	res := d.econ.SettleTrip(boatType, economy.SettleOptions{Phase: string(d.state.Phase), Mode: mode})
	seq := d.tables.Sequence(d.state.Phase, d.state.PhaseTrips, res.AusterityTrip)

	d.logger.Info("trip dispatched",
		zap.String("op", op),
		zap.String("boat", boatType),
		zap.String("phase", string(d.state.Phase)),
		zap.Int("phaseTrip", d.state.PhaseTrips),
		zap.String("sequence", seq.Name),
		zap.String("mode", mode.String()),
	)

	d.pendingTrip = &res
	d.publish(events.SequenceStarted{Name: seq.Name})
	if _, err := d.sched.Start(seq.Name, d.tripRoutine(seq, d.pendingTrip)); err != nil {
		d.pendingTrip = nil
		return fmt.Errorf("start sequence %s: %w", seq.Name, err)
	}
	return nil
}

// HandleSavingsConfirmed activates the austerity policy chosen in the
// savings panel. Only phases whose scenes offer the savings plan accept it.
// A zero amount is derived from the chosen levels.
func (d *Director) HandleSavingsConfirmed(amount float64, cfg economy.SavingsConfig) error {
	const op = "director.HandleSavingsConfirmed"
	switch {
	case d.state.Ended:
		return d.blocked(op, "campaign ended")
	case d.sched.Busy():
		return d.blocked(op, "sequence running")
	case !d.offersSavings():
		return d.blocked(op, "savings not offered", zap.String("phase", string(d.state.Phase)))
	}
	if amount <= 0 {
		amount = d.econ.SavingsFor(cfg)
	}
	d.econ.ActivateSavings(amount, cfg)
	d.notify(signalSavingsConfirmed)
	return nil
}

// offersSavings reports whether the current phase's intro or building
// scenes carry an open_savings choice.
func (d *Director) offersSavings() bool {
	ids := make([]string, 0, len(d.phase.Buildings)+1)
	if d.phase.IntroScene != "" {
		ids = append(ids, d.phase.IntroScene)
	}
	for _, id := range d.phase.Buildings {
		ids = append(ids, id)
	}
	for _, id := range ids {
		sc, ok := d.tables.Scene(id)
		if !ok {
			continue
		}
		for _, ch := range sc.Choices {
			if ch.Action == content.ActionOpenSavings {
				return true
			}
		}
	}
	return false
}

// SkipSequence aborts the running sequence, commits its pending settlement,
// and runs the post-trip bookkeeping so play can continue.
func (d *Director) SkipSequence() bool {
	if !d.sched.Busy() {
		return false
	}
	res := d.pendingTrip
	d.sched.Abort()
	d.state.WaitingForPlayerAction = false
	d.state.AwaitingClick = ""
	if res == nil {
		return true
	}
	d.pendingTrip = nil
	d.econ.CommitTrip(res)
	d.logger.Info("sequence skipped", zap.String("op", "director.SkipSequence"), zap.String("trip", res.ID))
	d.afterTrip(*res)
	return true
}

func clickSignal(building string) sequencer.Signal {
	return sequencer.Signal("click:" + building)
}
