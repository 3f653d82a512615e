package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cupitman9/family-budget-bot/internal/model"
)

const uncategorized = "Прочее"

var hundred = decimal.NewFromInt(100)

type CategoryTotal struct {
	Name   string
	Amount decimal.Decimal
}

// Stats is the digest of a set of entries that is handed to the model.
type Stats struct {
	Income     decimal.Decimal
	Expense    decimal.Decimal
	Categories []CategoryTotal // expenses, largest first
}

func BuildStats(entries []model.LedgerEntry) Stats {
	st := Stats{Income: decimal.Zero, Expense: decimal.Zero}
	byCategory := make(map[string]decimal.Decimal)

	for _, e := range entries {
		switch e.Kind {
		case model.TransactionTypeIncome:
			st.Income = st.Income.Add(e.Amount)
		case model.TransactionTypeExpense:
			st.Expense = st.Expense.Add(e.Amount)
			name := e.Category
			if name == "" {
				name = uncategorized
			}
			byCategory[name] = byCategory[name].Add(e.Amount)
		}
	}

	for name, amount := range byCategory {
		st.Categories = append(st.Categories, CategoryTotal{Name: name, Amount: amount})
	}
	sort.Slice(st.Categories, func(i, j int) bool {
		a, b := st.Categories[i], st.Categories[j]
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		return a.Name < b.Name
	})
	return st
}

// ShareOfIncome is the category's percentage of total income, false when
// there is no income to compare with.
func (s Stats) ShareOfIncome(c CategoryTotal) (decimal.Decimal, bool) {
	if !s.Income.IsPositive() {
		return decimal.Zero, false
	}
	return c.Amount.Mul(hundred).Div(s.Income).Round(1), true
}

func (s Stats) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Доход: %s\nРасход: %s\n\nРасходы по категориям:\n",
		s.Income.StringFixed(2), s.Expense.StringFixed(2)))
	for _, c := range s.Categories {
		share := "–"
		if pct, ok := s.ShareOfIncome(c); ok {
			share = pct.StringFixed(1)
		}
		sb.WriteString(fmt.Sprintf("• %s: %s (%s%% от дохода)\n", c.Name, c.Amount.StringFixed(2), share))
	}
	return sb.String()
}
