package director

import (
	"errors"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/iwvelando/boom-bust/internal/content"
	"github.com/iwvelando/boom-bust/internal/economy"
	"github.com/iwvelando/boom-bust/internal/events"
	"github.com/iwvelando/boom-bust/internal/sequencer"
	"github.com/iwvelando/boom-bust/pkg/constants"
)

type stepFunc func(t *sequencer.Task, st content.Step, res *economy.TripResult) error

func (d *Director) stepTable() map[string]stepFunc {
	return map[string]stepFunc{
		content.StepDeliver: func(_ *sequencer.Task, st content.Step, res *economy.TripResult) error {
			cp := counterparty(res, st.Counterparty)
			d.publish(events.DeliverCrates{Counterparty: st.Counterparty, Offered: cp.Offered, Accepted: cp.Accepted})
			return nil
		},
		content.StepReaction: func(_ *sequencer.Task, st content.Step, res *economy.TripResult) error {
			mood := st.Mood
			if mood == "" {
				mood = moodFor(counterparty(res, st.Counterparty))
			}
			d.publish(events.ShowReaction{Counterparty: st.Counterparty, Mood: mood})
			return nil
		},
		content.StepWait: func(t *sequencer.Task, st content.Step, _ *economy.TripResult) error {
			return t.Sleep(time.Duration(st.Ms) * time.Millisecond)
		},
		content.StepCommit: func(_ *sequencer.Task, _ content.Step, res *economy.TripResult) error {
			d.econ.CommitTrip(res)
			return nil
		},
		content.StepLedgerDelta: func(_ *sequencer.Task, _ content.Step, res *economy.TripResult) error {
			s := d.econ.State()
			d.publish(events.ShowLedgerDelta{Cash: s.Cash, Delta: res.Revenue - res.ActualPaid, MarketHealth: s.MarketHealth})
			return nil
		},
		content.StepCoinLeg: func(_ *sequencer.Task, st content.Step, res *economy.TripResult) error {
			d.publish(events.CoinLeg{From: st.From, To: st.To, Amount: res.Revenue})
			return nil
		},
		content.StepBillboard: func(_ *sequencer.Task, st content.Step, _ *economy.TripResult) error {
			d.publish(events.ShowBillboard{Text: st.Text})
			return nil
		},
		content.StepBark: func(_ *sequencer.Task, st content.Step, _ *economy.TripResult) error {
			d.publish(events.ShowBark{Speaker: st.Speaker, Text: st.Text})
			return nil
		},
		content.StepBoatHint: func(_ *sequencer.Task, st content.Step, _ *economy.TripResult) error {
			d.publish(events.ShowBoatHint{Text: st.Text})
			return nil
		},
		content.StepBuildingHint: func(_ *sequencer.Task, st content.Step, _ *economy.TripResult) error {
			d.publish(events.ShowBuildingHint{Building: st.Building, Text: st.Text})
			return nil
		},
		content.StepCamera: func(_ *sequencer.Task, st content.Step, _ *economy.TripResult) error {
			d.publish(events.CameraHint{Target: st.Target})
			return nil
		},
		content.StepAwaitScene: func(t *sequencer.Task, st content.Step, _ *economy.TripResult) error {
			if !d.TriggerScene(st.Scene) {
				return nil
			}
			d.state.WaitingForPlayerAction = true
			defer func() { d.state.WaitingForPlayerAction = false }()
			return t.AwaitUntil(signalSceneClosed, func() bool {
				return d.state.CurrentScene != st.Scene && !slices.Contains(d.state.QueuedScenes, st.Scene)
			})
		},
		content.StepAwaitClick: func(t *sequencer.Task, st content.Step, _ *economy.TripResult) error {
			d.state.AwaitingClick = st.Building
			d.state.WaitingForPlayerAction = true
			defer func() {
				d.state.AwaitingClick = ""
				d.state.WaitingForPlayerAction = false
			}()
			return t.Await(clickSignal(st.Building))
		},
		content.StepSetFlag: func(_ *sequencer.Task, st content.Step, _ *economy.TripResult) error {
			var v any = true
			if st.Value != nil {
				v = st.Value
			}
			d.state.Flags[st.Flag] = v
			return nil
		},
		content.StepLockDock: func(_ *sequencer.Task, st content.Step, _ *economy.TripResult) error {
			d.state.ForceDockLock = true
			d.state.DockLockUntil = st.Until
			return nil
		},
		content.StepUnlockDock: func(_ *sequencer.Task, _ content.Step, _ *economy.TripResult) error {
			d.state.ForceDockLock = false
			d.state.DockLockUntil = ""
			return nil
		},
	}
}

// tripRoutine interprets seq against a settled trip. A deferred settlement
// not committed by the script is committed when the script ends.
func (d *Director) tripRoutine(seq content.Sequence, res *economy.TripResult) sequencer.Routine {
	steps := d.stepTable()
	return func(t *sequencer.Task) error {
		for i, st := range seq.Steps {
			fn, ok := steps[st.Do]
			if !ok {
				d.logger.Warn("unknown step verb",
					zap.String("op", "director.tripRoutine"),
					zap.String("sequence", seq.Name),
					zap.Int("step", i),
					zap.String("do", st.Do),
				)
				continue
			}
			if err := fn(t, st, res); err != nil {
				if errors.Is(err, sequencer.ErrAborted) {
					d.publish(events.SequenceFinished{Name: seq.Name, Aborted: true})
				}
				return err
			}
		}
		d.econ.CommitTrip(res)
		if d.pendingTrip == res {
			d.pendingTrip = nil
		}
		d.afterTrip(*res)
		d.publish(events.SequenceFinished{Name: seq.Name})
		return nil
	}
}

// afterTrip feeds progress signals, checks for ecological collapse, shows a
// held completion scene and a pending loan recall, and releases the boats
// unless the dock is locked.
func (d *Director) afterTrip(res economy.TripResult) {
	d.notify(signalTrip)
	if res.Profitable() {
		d.state.ProfitableTrips++
		d.notify(signalProfitableTrip)
	}
	if res.AusterityTrip > 0 {
		d.notify(signalAusterityTrip)
	}

	if d.state.Phase != content.Tutorial && d.state.Phase != content.Collapse && d.econ.CollapseReached() {
		d.logger.Info("ecological collapse",
			zap.String("op", "director.afterTrip"),
			zap.Float64("stock", res.StockAfter),
		)
		d.state.QueuedScenes = nil
		d.state.RecallPending = false
		if d.state.SceneActive {
			d.state.SceneActive = false
			d.publish(events.SceneHidden{SceneID: d.state.CurrentScene})
			d.state.CurrentScene = ""
		}
		_ = d.SetPhase(content.Collapse)
		return
	}

	d.completePhase()
	if d.state.RecallPending {
		d.state.RecallPending = false
		d.TriggerScene(loanRecallScene)
	}
	if !d.state.ForceDockLock {
		d.publish(events.ReleaseBoats{})
	}
	d.flushScenes()
}

func counterparty(res *economy.TripResult, name string) economy.Counterparty {
	if name == constants.Tavern {
		return res.Tavern
	}
	return res.Shipyard
}

func moodFor(cp economy.Counterparty) string {
	switch {
	case cp.Offered == 0 || cp.Accepted == cp.Offered:
		return "happy"
	case cp.Accepted == 0:
		return "angry"
	default:
		return "worried"
	}
}
