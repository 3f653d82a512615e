// Package credit derives repayment figures and due dates from a credit
// account snapshot. Nothing here touches storage.
package credit

import (
	"github.com/shopspring/decimal"

	"github.com/cupitman9/family-budget-bot/internal/model"
)

var monthsPerYearPercent = decimal.NewFromInt(1200)

// Remaining is principal minus payments, never below zero.
func Remaining(c model.CreditAccount) decimal.Decimal {
	rest := c.Principal.Sub(c.AmountPaid)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// MonthsToPayoff reports how many monthly payments of the planned size cover
// the remaining balance. ok is false when the plan is not positive.
func MonthsToPayoff(c model.CreditAccount) (months int64, ok bool) {
	rest := Remaining(c)
	if !rest.IsPositive() {
		return 0, true
	}
	if !c.MonthlyPlan.IsPositive() {
		return 0, false
	}
	return rest.Div(c.MonthlyPlan).Ceil().IntPart(), true
}

// MonthlyInterestEstimate is a simple non-compounding figure for display.
func MonthlyInterestEstimate(c model.CreditAccount) decimal.Decimal {
	return c.Principal.Mul(c.AnnualRatePercent).Div(monthsPerYearPercent).Round(2)
}

// Plan is the amortization view of one credit.
type Plan struct {
	Credit          model.CreditAccount
	Remaining       decimal.Decimal
	Months          int64
	MonthsKnown     bool
	MonthlyInterest decimal.Decimal
}

func BuildPlan(c model.CreditAccount) Plan {
	months, ok := MonthsToPayoff(c)
	return Plan{
		Credit:          c,
		Remaining:       Remaining(c),
		Months:          months,
		MonthsKnown:     ok,
		MonthlyInterest: MonthlyInterestEstimate(c),
	}
}
