package economy

import (
	"github.com/iwvelando/boom-bust/internal/events"
	"github.com/iwvelando/boom-bust/pkg/eventbus"
)

// TripCompleted is published once per settled trip.
type TripCompleted struct {
	Result TripResult `json:"result"`
}

func (TripCompleted) Kind() eventbus.Kind { return events.KindTripCompleted }

// TripCommitted is published once a trip's cash has moved: at settlement in
// immediate mode, at CommitTrip in deferred mode.
type TripCommitted struct {
	Result TripResult `json:"result"`
}

func (TripCommitted) Kind() eventbus.Kind { return events.KindTripCommitted }

// LoanRecallTriggered is published when the bank demands immediate repayment.
type LoanRecallTriggered struct {
	TotalDue  float64 `json:"totalDue"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
}

func (LoanRecallTriggered) Kind() eventbus.Kind { return events.KindLoanRecallTriggered }

// EcologicalWarning is published after a trip leaves the stock below the
// warning threshold.
type EcologicalWarning struct {
	Stock   float64 `json:"stock"`
	Percent float64 `json:"percent"`
}

func (EcologicalWarning) Kind() eventbus.Kind { return events.KindEcologicalWarning }
