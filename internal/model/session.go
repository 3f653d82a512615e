package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type State int

const (
	StateIdle State = iota
	StateChooseCategory
	StateChooseSubcategory
	StateAwaitAmount
	StateAwaitCreditName
	StateAwaitPrincipal
	StateAwaitRate
	StateAwaitMonthlyPlan
	StateAwaitPayDay
	StateAwaitPaymentAmount
	StateFreeformQuery
)

var stateNames = map[State]string{
	StateIdle:               "idle",
	StateChooseCategory:     "choose_category",
	StateChooseSubcategory:  "choose_subcategory",
	StateAwaitAmount:        "await_amount",
	StateAwaitCreditName:    "await_credit_name",
	StateAwaitPrincipal:     "await_principal",
	StateAwaitRate:          "await_rate",
	StateAwaitMonthlyPlan:   "await_monthly_plan",
	StateAwaitPayDay:        "await_pay_day",
	StateAwaitPaymentAmount: "await_payment_amount",
	StateFreeformQuery:      "freeform_query",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// UserSession is the in-progress flow of one user. Only the fields relevant
// to the current State are populated.
type UserSession struct {
	State       State
	Kind        EntryKind
	Category    string
	Subcategory string

	CreditName  string
	Principal   decimal.Decimal
	Rate        decimal.Decimal
	MonthlyPlan decimal.Decimal
	CreditID    int64

	UpdatedAt time.Time
}
