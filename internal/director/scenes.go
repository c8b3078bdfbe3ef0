package director

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/iwvelando/boom-bust/internal/content"
	"github.com/iwvelando/boom-bust/internal/events"
	"github.com/iwvelando/boom-bust/pkg/mathutil"
)

// TriggerScene opens a scene, or queues it behind the scene already open.
func (d *Director) TriggerScene(id string) bool {
	if _, ok := d.tables.Scene(id); !ok {
		d.logger.Warn("unknown scene", zap.String("op", "director.TriggerScene"), zap.String("scene", id))
		return false
	}
	if d.state.SceneActive {
		if d.state.CurrentScene != id && !slices.Contains(d.state.QueuedScenes, id) {
			d.state.QueuedScenes = append(d.state.QueuedScenes, id)
		}
		return true
	}
	d.showScene(id)
	return true
}

func (d *Director) showScene(id string) {
	sc, ok := d.tables.Scene(id)
	if !ok {
		d.logger.Warn("unknown scene", zap.String("op", "director.showScene"), zap.String("scene", id))
		return
	}
	d.state.SceneActive = true
	d.state.CurrentScene = id
	d.logger.Debug("scene shown", zap.String("op", "director.showScene"), zap.String("scene", id))
	d.publish(events.ShowScene{Scene: sc})
}

// CloseScene dismisses the open scene. A scene with a follow-up opens it
// in place; otherwise a sequence waiting on the scene resumes and the next
// queued scene, if any, opens.
func (d *Director) CloseScene(id string) error {
	return d.closeScene(id, "")
}

func (d *Director) closeScene(id, chain string) error {
	if !d.state.SceneActive || (id != "" && id != d.state.CurrentScene) {
		d.logger.Warn("close of inactive scene",
			zap.String("op", "director.CloseScene"),
			zap.String("scene", id),
			zap.String("current", d.state.CurrentScene),
		)
		return fmt.Errorf("close scene %q: %w", id, ErrUnknown)
	}
	closed := d.state.CurrentScene
	sc, _ := d.tables.Scene(closed)
	d.state.SceneActive = false
	d.state.CurrentScene = ""
	d.publish(events.SceneHidden{SceneID: closed})

	next := chain
	if next == "" {
		next = sc.Next
	}
	if next != "" {
		d.showScene(next)
		return nil
	}

	d.state.IntroRunning = false
	d.sched.Deliver(signalSceneClosed)
	if !d.state.SceneActive {
		d.flushScenes()
	}
	return nil
}

func (d *Director) flushScenes() {
	if d.state.SceneActive || len(d.state.QueuedScenes) == 0 {
		return
	}
	next := d.state.QueuedScenes[0]
	d.state.QueuedScenes = d.state.QueuedScenes[1:]
	d.showScene(next)
}

// HandleSceneChoice applies a choice of the open scene through the action
// table. A choice that costs more than the player holds is rejected and the
// scene stays open.
func (d *Director) HandleSceneChoice(sceneID, choiceID string) error {
	if !d.state.SceneActive || d.state.CurrentScene != sceneID {
		d.logger.Warn("choice for inactive scene",
			zap.String("op", "director.HandleSceneChoice"),
			zap.String("scene", sceneID),
			zap.String("choice", choiceID),
		)
		return fmt.Errorf("scene %q not open: %w", sceneID, ErrUnknown)
	}
	sc, _ := d.tables.Scene(sceneID)
	ch, ok := sc.Choice(choiceID)
	if !ok {
		d.logger.Warn("unknown choice",
			zap.String("op", "director.HandleSceneChoice"),
			zap.String("scene", sceneID),
			zap.String("choice", choiceID),
		)
		return fmt.Errorf("choice %q: %w", choiceID, ErrUnknown)
	}
	act, ok := d.actions[ch.Action]
	if !ok {
		d.logger.Warn("unknown action",
			zap.String("op", "director.HandleSceneChoice"),
			zap.String("action", ch.Action),
		)
		return fmt.Errorf("action %q: %w", ch.Action, ErrUnknown)
	}
	if cash := d.econ.State().Cash; ch.Cost > 0 && cash < ch.Cost {
		d.message(fmt.Sprintf("You need %.0f more coins.", mathutil.Round(ch.Cost-cash)))
		return ErrInsufficientFunds
	}

	d.logger.Debug("choice made",
		zap.String("op", "director.HandleSceneChoice"),
		zap.String("scene", sceneID),
		zap.String("choice", choiceID),
		zap.String("action", ch.Action),
	)

	switch act.close {
	case closeBefore:
		if err := d.closeScene(sceneID, ""); err != nil {
			return err
		}
		return act.run(ch)
	case closeAfter:
		if err := act.run(ch); err != nil {
			return err
		}
		if d.state.SceneActive && d.state.CurrentScene == sceneID {
			return d.closeScene(sceneID, "")
		}
		return nil
	default:
		return act.run(ch)
	}
}

type closeMode int

const (
	closeAfter closeMode = iota
	closeBefore
	closeSelf
)

type action struct {
	close closeMode
	run   func(ch content.Choice) error
}

func (d *Director) actionTable() map[string]action {
	return map[string]action{
		content.ActionClose: {run: func(content.Choice) error { return nil }},
		content.ActionAdvancePhase: {run: func(ch content.Choice) error {
			target := content.PhaseID(ch.Param)
			if target == "" {
				next, ok := content.Next(d.state.Phase)
				if !ok {
					return fmt.Errorf("no phase after %s: %w", d.state.Phase, ErrUnknown)
				}
				target = next
			}
			return d.SetPhase(target)
		}},
		content.ActionTakeLoan: {run: func(ch content.Choice) error {
			return d.takeLoan(ch.Gain, 0)
		}},
		content.ActionRepayLoan: {run: func(content.Choice) error {
			if _, err := d.repayLoan(); err != nil && !errors.Is(err, ErrRejected) {
				return err
			}
			return nil
		}},
		content.ActionBuy: {run: func(ch content.Choice) error {
			_, err := d.purchase(ch.Param)
			return err
		}},
		content.ActionOpenSavings: {run: func(content.Choice) error {
			d.publish(events.ShowSavingsPanel{})
			return nil
		}},
		content.ActionSendTrip: {close: closeBefore, run: func(ch content.Choice) error {
			return d.HandleTripRequest(ch.Param)
		}},
		content.ActionTrigger: {close: closeSelf, run: func(ch content.Choice) error {
			return d.closeScene(d.state.CurrentScene, ch.Param)
		}},
		content.ActionSetFlag: {run: func(ch content.Choice) error {
			d.state.Flags[ch.Param] = true
			return nil
		}},
		content.ActionRelease: {run: func(content.Choice) error {
			d.publish(events.ReleaseBoats{})
			return nil
		}},
		content.ActionRestart: {close: closeSelf, run: func(content.Choice) error {
			d.Reset()
			d.Start()
			return nil
		}},
		content.ActionEndCampaign: {run: func(content.Choice) error {
			d.state.Ended = true
			d.state.EndReason = "player ended the campaign"
			d.cancelHint()
			d.logger.Info("campaign ended", zap.String("op", "director.endCampaign"))
			d.publish(events.CampaignEnded{Reason: d.state.EndReason})
			return nil
		}},
	}
}
