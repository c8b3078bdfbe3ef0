// Package events defines the closed set of events exchanged between the
// campaign core and the presentation layer.
package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iwvelando/boom-bust/internal/content"
	"github.com/iwvelando/boom-bust/pkg/eventbus"
)

// Core to world.
const (
	KindPhaseChanged        eventbus.Kind = "phase_changed"
	KindObjectivesUpdated   eventbus.Kind = "objectives_updated"
	KindTripCompleted       eventbus.Kind = "trip_completed"
	KindTripCommitted       eventbus.Kind = "trip_committed"
	KindLoanRecallTriggered eventbus.Kind = "loan_recall_triggered"
	KindEcologicalWarning   eventbus.Kind = "ecological_warning"
	KindShowScene           eventbus.Kind = "show_scene"
	KindSceneHidden         eventbus.Kind = "scene_hidden"
	KindShowBillboard       eventbus.Kind = "show_billboard"
	KindShowBark            eventbus.Kind = "show_bark"
	KindCoinLeg             eventbus.Kind = "coin_leg"
	KindReleaseBoats        eventbus.Kind = "release_boats"
	KindShowBoatHint        eventbus.Kind = "show_boat_hint"
	KindShowBuildingHint    eventbus.Kind = "show_building_hint"
	KindDeliverCrates       eventbus.Kind = "deliver_crates"
	KindShowReaction        eventbus.Kind = "show_reaction"
	KindShowLedgerDelta     eventbus.Kind = "show_ledger_delta"
	KindShowMessage         eventbus.Kind = "show_message"
	KindCameraHint          eventbus.Kind = "camera_hint"
	KindShowSavingsPanel    eventbus.Kind = "show_savings_panel"
	KindCampaignEnded       eventbus.Kind = "campaign_ended"
	KindSequenceStarted     eventbus.Kind = "sequence_started"
	KindSequenceFinished    eventbus.Kind = "sequence_finished"
)

// World to core.
const (
	KindTripRequested    eventbus.Kind = "trip_requested"
	KindBuildingClicked  eventbus.Kind = "building_clicked"
	KindSavingsConfirmed eventbus.Kind = "savings_confirmed"
	KindDialogClosed     eventbus.Kind = "dialog_closed"
	KindChoiceMade       eventbus.Kind = "choice_made"
)

// Inbound lists the kinds the core consumes.
var Inbound = []eventbus.Kind{
	KindTripRequested, KindBuildingClicked, KindSavingsConfirmed, KindDialogClosed, KindChoiceMade,
}

// IsInbound reports whether kind flows from the world into the core.
func IsInbound(kind eventbus.Kind) bool {
	for _, k := range Inbound {
		if k == kind {
			return true
		}
	}
	return false
}

type PhaseChanged struct {
	PhaseID content.PhaseID `json:"phaseId"`
	Title   string          `json:"title"`
}

func (PhaseChanged) Kind() eventbus.Kind { return KindPhaseChanged }

type ObjectivesUpdated struct {
	Objectives []content.Objective `json:"objectives"`
}

func (ObjectivesUpdated) Kind() eventbus.Kind { return KindObjectivesUpdated }

type ShowScene struct {
	Scene content.Scene `json:"scene"`
}

func (ShowScene) Kind() eventbus.Kind { return KindShowScene }

// SceneHidden tells the presentation layer a scene was dismissed by the core.
type SceneHidden struct {
	SceneID string `json:"sceneId"`
}

func (SceneHidden) Kind() eventbus.Kind { return KindSceneHidden }

type ShowBillboard struct {
	Text string `json:"text"`
}

func (ShowBillboard) Kind() eventbus.Kind { return KindShowBillboard }

type ShowBark struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

func (ShowBark) Kind() eventbus.Kind { return KindShowBark }

// CoinLeg animates money moving between two buildings.
type CoinLeg struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

func (CoinLeg) Kind() eventbus.Kind { return KindCoinLeg }

type ReleaseBoats struct{}

func (ReleaseBoats) Kind() eventbus.Kind { return KindReleaseBoats }

type ShowBoatHint struct {
	Text string `json:"text"`
}

func (ShowBoatHint) Kind() eventbus.Kind { return KindShowBoatHint }

type ShowBuildingHint struct {
	Building string `json:"building"`
	Text     string `json:"text"`
}

func (ShowBuildingHint) Kind() eventbus.Kind { return KindShowBuildingHint }

type DeliverCrates struct {
	Counterparty string `json:"counterparty"`
	Offered      int    `json:"offered"`
	Accepted     int    `json:"accepted"`
}

func (DeliverCrates) Kind() eventbus.Kind { return KindDeliverCrates }

type ShowReaction struct {
	Counterparty string `json:"counterparty"`
	Mood         string `json:"mood"`
}

func (ShowReaction) Kind() eventbus.Kind { return KindShowReaction }

type ShowLedgerDelta struct {
	Cash         float64 `json:"cash"`
	Delta        float64 `json:"delta"`
	MarketHealth float64 `json:"marketHealth"`
}

func (ShowLedgerDelta) Kind() eventbus.Kind { return KindShowLedgerDelta }

type ShowMessage struct {
	Text string `json:"text"`
}

func (ShowMessage) Kind() eventbus.Kind { return KindShowMessage }

type CameraHint struct {
	Target string `json:"target"`
}

func (CameraHint) Kind() eventbus.Kind { return KindCameraHint }

type ShowSavingsPanel struct{}

func (ShowSavingsPanel) Kind() eventbus.Kind { return KindShowSavingsPanel }

type CampaignEnded struct {
	Reason string `json:"reason"`
}

func (CampaignEnded) Kind() eventbus.Kind { return KindCampaignEnded }

type SequenceStarted struct {
	Name string `json:"name"`
}

func (SequenceStarted) Kind() eventbus.Kind { return KindSequenceStarted }

type SequenceFinished struct {
	Name    string `json:"name"`
	Aborted bool   `json:"aborted"`
}

func (SequenceFinished) Kind() eventbus.Kind { return KindSequenceFinished }

// TripRequested asks the core to dispatch a boat.
type TripRequested struct {
	BoatType string `json:"boatType"`
}

func (TripRequested) Kind() eventbus.Kind { return KindTripRequested }

type BuildingClicked struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func (BuildingClicked) Kind() eventbus.Kind { return KindBuildingClicked }

type SavingsConfirmed struct {
	Amount        float64 `json:"amount"`
	TavernLevel   string  `json:"tavernLevel"`
	ShipyardLevel string  `json:"shipyardLevel"`
}

func (SavingsConfirmed) Kind() eventbus.Kind { return KindSavingsConfirmed }

type DialogClosed struct {
	ID string `json:"id"`
}

func (DialogClosed) Kind() eventbus.Kind { return KindDialogClosed }

type ChoiceMade struct {
	SceneID  string `json:"sceneId"`
	ChoiceID string `json:"choiceId"`
}

func (ChoiceMade) Kind() eventbus.Kind { return KindChoiceMade }

// Envelope is the wire form of an event.
type Envelope struct {
	Kind    eventbus.Kind  `json:"kind"`
	Payload eventbus.Event `json:"payload"`
}

// Wrap builds the wire envelope for ev.
func Wrap(ev eventbus.Event) Envelope {
	return Envelope{Kind: ev.Kind(), Payload: ev}
}

// ErrUnknownKind is returned when decoding a kind outside the inbound set.
var ErrUnknownKind = errors.New("unknown inbound event kind")

// RawEnvelope is an envelope whose payload has not been decoded yet.
type RawEnvelope struct {
	Kind    eventbus.Kind   `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeInbound decodes the payload of an inbound event of the given kind.
// An empty payload decodes to the zero event.
func DecodeInbound(kind eventbus.Kind, payload json.RawMessage) (eventbus.Event, error) {
	switch kind {
	case KindTripRequested:
		return decode[TripRequested](payload)
	case KindBuildingClicked:
		return decode[BuildingClicked](payload)
	case KindSavingsConfirmed:
		return decode[SavingsConfirmed](payload)
	case KindDialogClosed:
		return decode[DialogClosed](payload)
	case KindChoiceMade:
		return decode[ChoiceMade](payload)
	}
	return nil, fmt.Errorf("%q: %w", kind, ErrUnknownKind)
}

func decode[T eventbus.Event](payload json.RawMessage) (eventbus.Event, error) {
	var ev T
	if len(bytes.TrimSpace(payload)) == 0 {
		return ev, nil
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ev); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", ev.Kind(), err)
	}
	return ev, nil
}
