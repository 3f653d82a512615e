package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cupitman9/family-budget-bot/internal/credit"
	"github.com/cupitman9/family-budget-bot/internal/model"
)

// Memory is a process-local Ledger. It backs the "memory" storage driver
// and the tests of the packages that consume a Ledger.
type Memory struct {
	mu sync.Mutex

	// Clock stamps new entries; time.Now when nil.
	Clock func() time.Time

	users   map[int64]model.User
	entries []model.LedgerEntry
	credits map[int64]model.CreditAccount

	nextEntryID  int64
	nextCreditID int64
}

func NewMemory() *Memory {
	return &Memory{
		users:   make(map[int64]model.User),
		credits: make(map[int64]model.CreditAccount),
	}
}

func (m *Memory) now() time.Time {
	if m.Clock != nil {
		return m.Clock()
	}
	return time.Now()
}

func (m *Memory) EnsureUser(_ context.Context, user model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; ok {
		return nil
	}
	user.CreatedAt = m.now()
	m.users[user.ID] = user
	return nil
}

func (m *Memory) ListUsers(_ context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedUsers(), nil
}

func (m *Memory) sortedUsers() []model.User {
	users := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

func (m *Memory) RecordEntry(_ context.Context, e model.NewEntry) (int64, error) {
	if err := validateEntry(e); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendEntry(e), nil
}

func (m *Memory) appendEntry(e model.NewEntry) int64 {
	m.nextEntryID++
	m.entries = append(m.entries, model.LedgerEntry{
		ID:          m.nextEntryID,
		OwnerID:     e.OwnerID,
		Kind:        e.Kind,
		Label:       e.Label,
		Category:    e.Category,
		Subcategory: e.Subcategory,
		Amount:      e.Amount,
		CreditRef:   e.CreditRef,
		CreatedDate: credit.Day(m.now()),
	})
	return m.nextEntryID
}

func (m *Memory) Balance(_ context.Context, ownerID int64) (model.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance(ownerID), nil
}

func (m *Memory) balance(ownerID int64) model.Balance {
	b := model.Balance{Income: decimal.Zero, Expense: decimal.Zero}
	for _, e := range m.entries {
		if e.OwnerID != ownerID {
			continue
		}
		switch e.Kind {
		case model.TransactionTypeIncome:
			b.Income = b.Income.Add(e.Amount)
		case model.TransactionTypeExpense:
			b.Expense = b.Expense.Add(e.Amount)
		}
	}
	return b
}

func (m *Memory) FamilyBalance(_ context.Context) (model.FamilyBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := m.sortedUsers()
	owners := make([]model.OwnerBalance, 0, len(users))
	for _, u := range users {
		owners = append(owners, model.OwnerBalance{Owner: u, Balance: m.balance(u.ID)})
	}
	return sumFamily(owners), nil
}

func (m *Memory) ListEntries(_ context.Context, ownerID int64) ([]model.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.LedgerEntry
	for _, e := range m.entries {
		if ownerID == model.AllOwners || e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) MonthlyTotals(_ context.Context, ownerID int64, months int) ([]model.MonthlyAggregate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byMonth := make(map[string]*model.MonthlyAggregate)
	for _, e := range m.entries {
		if ownerID != model.AllOwners && e.OwnerID != ownerID {
			continue
		}
		key := e.CreatedDate.Format("2006-01")
		agg, ok := byMonth[key]
		if !ok {
			agg = &model.MonthlyAggregate{Month: key, Income: decimal.Zero, Expense: decimal.Zero}
			byMonth[key] = agg
		}
		if e.Kind == model.TransactionTypeIncome {
			agg.Income = agg.Income.Add(e.Amount)
		} else {
			agg.Expense = agg.Expense.Add(e.Amount)
		}
	}

	out := make([]model.MonthlyAggregate, 0, len(byMonth))
	for _, agg := range byMonth {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	if months > 0 && len(out) > months {
		out = out[len(out)-months:]
	}
	return out, nil
}

func (m *Memory) CreateCredit(_ context.Context, c model.NewCredit) (int64, error) {
	if err := validateCredit(c); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.credits {
		if existing.OwnerID == c.OwnerID && existing.Name == c.Name {
			return 0, model.ErrDuplicateCredit
		}
	}

	m.nextCreditID++
	var due *time.Time
	if !c.NextDueDate.IsZero() {
		d := c.NextDueDate
		due = &d
	}
	m.credits[m.nextCreditID] = model.CreditAccount{
		ID:                m.nextCreditID,
		OwnerID:           c.OwnerID,
		Name:              c.Name,
		Principal:         c.Principal,
		AmountPaid:        decimal.Zero,
		AnnualRatePercent: c.AnnualRatePercent,
		PayDayOfMonth:     c.PayDayOfMonth,
		MonthlyPlan:       c.MonthlyPlan,
		NextDueDate:       due,
	}
	return m.nextCreditID, nil
}

func (m *Memory) GetCredit(_ context.Context, creditID int64) (model.CreditAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.credits[creditID]
	if !ok {
		return model.CreditAccount{}, model.ErrCreditNotFound
	}
	return c, nil
}

func (m *Memory) CreditNameTaken(_ context.Context, ownerID int64, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.credits {
		if c.OwnerID == ownerID && c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) RecordCreditPayment(_ context.Context, p CreditPayment) error {
	if !p.Amount.IsPositive() {
		return model.ErrInvalidAmount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.credits[p.CreditID]
	if !ok {
		return model.ErrCreditNotFound
	}
	c.AmountPaid = c.AmountPaid.Add(p.Amount)
	m.credits[p.CreditID] = c

	creditID := p.CreditID
	m.appendEntry(model.NewEntry{
		OwnerID:     c.OwnerID,
		Kind:        model.TransactionTypeExpense,
		Label:       p.Label,
		Category:    p.Category,
		Subcategory: p.Subcategory,
		Amount:      p.Amount,
		CreditRef:   &creditID,
	})
	return nil
}

func (m *Memory) ListCredits(_ context.Context, ownerID int64) ([]model.CreditAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.CreditAccount
	for _, c := range m.credits {
		if ownerID == model.AllOwners || c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) DeleteCredit(_ context.Context, creditID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.credits, creditID)
	return nil
}

func (m *Memory) SetNextDueDate(_ context.Context, creditID int64, due time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.credits[creditID]
	if !ok {
		return nil
	}
	c.NextDueDate = &due
	m.credits[creditID] = c
	return nil
}
