// Package output provides utilities for formatting and displaying trip reports.
package output

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/iwvelando/boom-bust/internal/economy"
	"github.com/iwvelando/boom-bust/pkg/constants"
	"github.com/iwvelando/boom-bust/pkg/validation"
)

// Totals summarizes a run of trips.
type Totals struct {
	Trips      int
	Profitable int
	Offered    int
	Accepted   int
	Paid       float64
	Revenue    float64
	Profit     float64
}

// Summarize adds up a run of trips.
func Summarize(trips []economy.TripResult) Totals {
	var t Totals
	for _, trip := range trips {
		offered, accepted := trip.Crates()
		t.Trips++
		if trip.Profitable() {
			t.Profitable++
		}
		t.Offered += offered
		t.Accepted += accepted
		t.Paid += trip.ActualPaid
		t.Revenue += trip.Revenue
		t.Profit += trip.Profit
	}
	return t
}

// Notes lists the notable outcomes of a trip.
func Notes(trip economy.TripResult) []string {
	var notes []string
	if trip.Crash {
		notes = append(notes, "market crash")
	}
	if trip.PartialPayment {
		notes = append(notes, "partial payment")
	}
	if trip.AusterityTrip > 0 {
		notes = append(notes, fmt.Sprintf("austerity trip %d", trip.AusterityTrip))
	}
	if trip.Collateral > 0 {
		notes = append(notes, fmt.Sprintf("dredge damage %.0f", trip.Collateral))
	}
	if trip.Overridden {
		notes = append(notes, "forced")
	}
	return notes
}

// PrettyFormat writes a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, trips []economy.TripResult) {
	p := message.NewPrinter(language.English)
	_, _ = fmt.Fprintf(w, "--- Trip ledger (%d trips) ---\n", len(trips))
	_, _ = fmt.Fprintf(w, "Trip | Phase | Boat | Crates | Paid | Revenue | Profit | Cash | Health | Stock | Notes\n")
	_, _ = fmt.Fprintf(w, "____ | _____ | ____ | ______ | ____ | _______ | ______ | ____ | ______ | _____ | _____\n")
	for i, trip := range trips {
		offered, accepted := trip.Crates()
		_, _ = p.Fprintf(w, "%d | %s | %s | %d/%d | %.2f | %.2f | %.2f | %.2f | %.0f%% | %.0f | %s\n",
			i+1, trip.Phase, trip.BoatType, accepted, offered,
			trip.ActualPaid, trip.Revenue, trip.Profit, trip.CashAfter,
			trip.MarketHealthAfter*100, trip.StockAfter, strings.Join(Notes(trip), ","))
	}
	t := Summarize(trips)
	_, _ = p.Fprintf(w, "Total | %d profitable | %d/%d crates | paid %.2f | revenue %.2f | profit %.2f\n",
		t.Profitable, t.Accepted, t.Offered, t.Paid, t.Revenue, t.Profit)
}

// CsvFormat writes comma-separated values.
func CsvFormat(w io.Writer, trips []economy.TripResult) {
	_, _ = fmt.Fprintf(w, `"trip","id","phase","boat","offered","accepted","paid","revenue","profit","cash","health","stock","notes"`)
	_, _ = fmt.Fprintf(w, "\n")
	for i, trip := range trips {
		offered, accepted := trip.Crates()
		_, _ = fmt.Fprintf(w, `"%d","%s","%s","%s","%d","%d","%.2f","%.2f","%.2f","%.2f","%.2f","%.2f","%s"`,
			i+1, trip.ID, trip.Phase, trip.BoatType, offered, accepted,
			trip.ActualPaid, trip.Revenue, trip.Profit, trip.CashAfter,
			trip.MarketHealthAfter, trip.StockAfter, strings.Join(Notes(trip), ","))
		_, _ = fmt.Fprintf(w, "\n")
	}
}

// Write renders trips in the named format.
func Write(w io.Writer, format string, trips []economy.TripResult) error {
	if err := validation.ValidateOutputFormat(format); err != nil {
		return err
	}
	if format == constants.OutputFormatCSV {
		CsvFormat(w, trips)
		return nil
	}
	PrettyFormat(w, trips)
	return nil
}
