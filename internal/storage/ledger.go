package storage

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cupitman9/family-budget-bot/internal/credit"
	"github.com/cupitman9/family-budget-bot/internal/model"
)

// Ledger is the durable store for users, entries and credits. Storage and
// Memory both satisfy it.
type Ledger interface {
	EnsureUser(ctx context.Context, user model.User) error
	ListUsers(ctx context.Context) ([]model.User, error)

	RecordEntry(ctx context.Context, entry model.NewEntry) (int64, error)
	Balance(ctx context.Context, ownerID int64) (model.Balance, error)
	FamilyBalance(ctx context.Context) (model.FamilyBalance, error)
	ListEntries(ctx context.Context, ownerID int64) ([]model.LedgerEntry, error)
	MonthlyTotals(ctx context.Context, ownerID int64, months int) ([]model.MonthlyAggregate, error)

	CreateCredit(ctx context.Context, c model.NewCredit) (int64, error)
	GetCredit(ctx context.Context, creditID int64) (model.CreditAccount, error)
	CreditNameTaken(ctx context.Context, ownerID int64, name string) (bool, error)
	RecordCreditPayment(ctx context.Context, p CreditPayment) error
	ListCredits(ctx context.Context, ownerID int64) ([]model.CreditAccount, error)
	DeleteCredit(ctx context.Context, creditID int64) error
	SetNextDueDate(ctx context.Context, creditID int64, due time.Time) error
}

var (
	_ Ledger = (*Storage)(nil)
	_ Ledger = (*Memory)(nil)
)

// CreditPayment increases a credit's paid amount and books the matching
// expense entry under the given labels.
type CreditPayment struct {
	CreditID    int64
	Amount      decimal.Decimal
	Label       string
	Category    string
	Subcategory string
}

func validateEntry(e model.NewEntry) error {
	if !e.Amount.IsPositive() {
		return model.ErrInvalidAmount
	}
	if !e.Kind.Valid() {
		return model.ErrInvalidAmount
	}
	return nil
}

func validateCredit(c model.NewCredit) error {
	if strings.TrimSpace(c.Name) == "" {
		return model.ErrInvalidName
	}
	if !c.Principal.IsPositive() || !c.MonthlyPlan.IsPositive() || c.AnnualRatePercent.IsNegative() {
		return model.ErrInvalidAmount
	}
	if !credit.ValidPayDay(c.PayDayOfMonth) {
		return model.ErrInvalidDay
	}
	return nil
}

func sumFamily(owners []model.OwnerBalance) model.FamilyBalance {
	total := model.Balance{Income: decimal.Zero, Expense: decimal.Zero}
	for _, o := range owners {
		total = total.Add(o.Balance)
	}
	return model.FamilyBalance{Owners: owners, Total: total}
}
