package director

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/iwvelando/boom-bust/internal/economy"
)

// ErrRejected is returned when the ledger refuses a request for a reason
// other than missing funds.
var ErrRejected = errors.New("request rejected")

// ledgerGate rejects ledger requests made from outside a scene choice while
// the campaign is over or a sequence still owns the settlement.
func (d *Director) ledgerGate(op string) error {
	switch {
	case d.state.Ended:
		return d.blocked(op, "campaign ended")
	case d.sched.Busy():
		return d.blocked(op, "sequence running")
	}
	return nil
}

// TakeLoan borrows amount at rate and feeds the loan_taken signal. A zero
// rate uses the default.
func (d *Director) TakeLoan(amount, rate float64) error {
	if err := d.ledgerGate("director.TakeLoan"); err != nil {
		return err
	}
	return d.takeLoan(amount, rate)
}

func (d *Director) takeLoan(amount, rate float64) error {
	if d.state.Ended {
		return d.blocked("director.TakeLoan", "campaign ended")
	}
	if !d.econ.TakeLoan(amount, rate) {
		return fmt.Errorf("loan of %.2f: %w", amount, ErrRejected)
	}
	d.logger.Info("loan taken",
		zap.String("op", "director.TakeLoan"),
		zap.Float64("amount", amount),
		zap.Float64("rate", rate),
	)
	d.notify(signalLoanTaken)
	return nil
}

// RepayLoan pays the open loan in full or not at all.
func (d *Director) RepayLoan() (economy.PaymentResult, error) {
	if err := d.ledgerGate("director.RepayLoan"); err != nil {
		return economy.PaymentResult{}, err
	}
	return d.repayLoan()
}

func (d *Director) repayLoan() (economy.PaymentResult, error) {
	if d.state.Ended {
		return economy.PaymentResult{}, d.blocked("director.RepayLoan", "campaign ended")
	}
	res := d.econ.ProcessLoanPayment()
	if !res.OK {
		if res.Shortfall > 0 {
			d.message(fmt.Sprintf("You are %.0f coins short of repaying the loan.", res.Shortfall))
			return res, ErrInsufficientFunds
		}
		d.message("There is no loan to repay.")
		return res, fmt.Errorf("%s: %w", res.Reason, ErrRejected)
	}
	d.notify(signalLoanRepaid)
	return res, nil
}

// Purchase buys item from the shipyard and feeds its buy signal.
func (d *Director) Purchase(item string) (economy.PurchaseResult, error) {
	if err := d.ledgerGate("director.Purchase"); err != nil {
		return economy.PurchaseResult{}, err
	}
	return d.purchase(item)
}

func (d *Director) purchase(item string) (economy.PurchaseResult, error) {
	if d.state.Ended {
		return economy.PurchaseResult{}, d.blocked("director.Purchase", "campaign ended")
	}
	res := d.econ.Purchase(item)
	if !res.OK {
		if res.Shortfall > 0 {
			d.message(fmt.Sprintf("You need %.0f more coins.", res.Shortfall))
			return res, ErrInsufficientFunds
		}
		d.message(fmt.Sprintf("Cannot buy %s: %s.", item, res.Reason))
		return res, fmt.Errorf("buy %q: %w", item, ErrRejected)
	}
	d.notify(signalBuyPrefix + item)
	return res, nil
}
