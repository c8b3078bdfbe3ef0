package economy

import (
	"go.uber.org/zap"

	"github.com/iwvelando/boom-bust/pkg/constants"
	"github.com/iwvelando/boom-bust/pkg/mathutil"
)

// PaymentResult reports the outcome of a repayment attempt.
type PaymentResult struct {
	OK        bool    `json:"ok"`
	Paid      float64 `json:"paid"`
	Shortfall float64 `json:"shortfall"`
	Reason    string  `json:"reason,omitempty"`
}

// TakeLoan opens a loan, replacing any existing one. A rate of zero or less
// uses the default rate. Loans at or above the stimulus threshold restore
// market health and end austerity.
func (e *Economy) TakeLoan(amount, rate float64) bool {
	if amount <= 0 {
		return false
	}
	if rate <= 0 {
		rate = e.settings.DefaultLoanRate
	}
	if e.state.Loan.Open() {
		e.logger.Info("replacing open loan",
			zap.String("op", "economy.TakeLoan"),
			zap.Float64("previousPrincipal", e.state.Loan.Principal),
		)
	}

	e.state.Cash += amount
	e.state.Loan = Loan{
		Principal:         amount,
		InterestRate:      rate,
		PaymentDueInTrips: constants.LoanPaymentDueInTrips,
	}

	if amount >= e.settings.StimulusThreshold {
		e.state.MarketHealth = 1
		e.DeactivateSavings()
	}

	e.logger.Info("loan taken",
		zap.String("op", "economy.TakeLoan"),
		zap.Float64("amount", amount),
		zap.Float64("rate", rate),
		zap.Float64("cash", e.state.Cash),
	)
	return true
}

// AccrueInterestForTrip counts a trip against the open loan. Interest is
// flat: principal × rate is charged once, on the first trip after the loan
// was taken. Recall eligibility is checked afterwards.
func (e *Economy) AccrueInterestForTrip() {
	loan := &e.state.Loan
	if !loan.Open() {
		return
	}
	loan.TripsSinceLoan++
	if !loan.interestApplied {
		loan.AccruedInterest = mathutil.Round(loan.Principal * loan.InterestRate)
		loan.interestApplied = true
	}
	e.CheckLoanRecall()
}

// CheckLoanRecall demands immediate repayment once cash reaches the recall
// threshold. Only liquidity matters; the trip-count due date is ignored.
// It fires at most once per loan.
func (e *Economy) CheckLoanRecall() bool {
	loan := &e.state.Loan
	if !loan.Open() || loan.PrincipalDue > 0 || e.state.Cash < e.settings.RecallThreshold {
		return false
	}
	loan.PrincipalDue = loan.TotalOwed()
	e.logger.Info("loan recalled",
		zap.String("op", "economy.CheckLoanRecall"),
		zap.Float64("due", loan.PrincipalDue),
		zap.Float64("cash", e.state.Cash),
	)
	e.publish(LoanRecallTriggered{
		TotalDue:  loan.PrincipalDue,
		Principal: loan.Principal,
		Interest:  loan.AccruedInterest,
	})
	return true
}

// ProcessLoanPayment repays the loan in full or not at all.
func (e *Economy) ProcessLoanPayment() PaymentResult {
	loan := e.state.Loan
	if !loan.Open() {
		return PaymentResult{Reason: "no open loan"}
	}
	owed := loan.TotalOwed()
	if e.state.Cash < owed {
		return PaymentResult{
			Shortfall: mathutil.Round(owed - e.state.Cash),
			Reason:    "insufficient funds",
		}
	}
	e.state.Cash -= owed
	e.state.Loan = Loan{}
	e.logger.Info("loan repaid",
		zap.String("op", "economy.ProcessLoanPayment"),
		zap.Float64("paid", owed),
		zap.Float64("cash", e.state.Cash),
	)
	return PaymentResult{OK: true, Paid: owed}
}
