package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AllOwners selects every owner in listing queries.
const AllOwners int64 = 0

type User struct {
	ID          int64
	DisplayName string
	CreatedAt   time.Time
}

type EntryKind uint8

const (
	TransactionTypeIncome EntryKind = iota + 1
	TransactionTypeExpense
)

func (k EntryKind) String() string {
	switch k {
	case TransactionTypeIncome:
		return "income"
	case TransactionTypeExpense:
		return "expense"
	default:
		return "unknown"
	}
}

func (k EntryKind) Valid() bool {
	return k == TransactionTypeIncome || k == TransactionTypeExpense
}

// LedgerEntry is one immutable income or expense event.
type LedgerEntry struct {
	ID          int64
	OwnerID     int64
	Kind        EntryKind
	Label       string
	Category    string
	Subcategory string
	Amount      decimal.Decimal
	CreditRef   *int64
	CreatedDate time.Time
}

// CreditAccount is a tracked loan. NextDueDate is nil until the scheduler
// or the creation path computes it.
type CreditAccount struct {
	ID                int64
	OwnerID           int64
	Name              string
	Principal         decimal.Decimal
	AmountPaid        decimal.Decimal
	AnnualRatePercent decimal.Decimal
	PayDayOfMonth     int
	MonthlyPlan       decimal.Decimal
	NextDueDate       *time.Time
}

// NewCredit carries the fields of a credit being created. A zero
// NextDueDate is stored as absent and filled in by the scheduler.
type NewCredit struct {
	OwnerID           int64
	Name              string
	Principal         decimal.Decimal
	AnnualRatePercent decimal.Decimal
	PayDayOfMonth     int
	MonthlyPlan       decimal.Decimal
	NextDueDate       time.Time
}

type NewEntry struct {
	OwnerID     int64
	Kind        EntryKind
	Label       string
	Category    string
	Subcategory string
	Amount      decimal.Decimal
	CreditRef   *int64
}

type Balance struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

func (b Balance) Net() decimal.Decimal {
	return b.Income.Sub(b.Expense)
}

func (b Balance) Add(other Balance) Balance {
	return Balance{Income: b.Income.Add(other.Income), Expense: b.Expense.Add(other.Expense)}
}

type OwnerBalance struct {
	Owner User
	Balance
}

type FamilyBalance struct {
	Owners []OwnerBalance
	Total  Balance
}

// MonthlyAggregate holds totals for one calendar month, Month is "2006-01".
type MonthlyAggregate struct {
	Month   string
	Income  decimal.Decimal
	Expense decimal.Decimal
}
