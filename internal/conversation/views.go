package conversation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/cupitman9/family-budget-bot/internal/credit"
	"github.com/cupitman9/family-budget-bot/internal/model"
)

func (m *Machine) balance(t *turn) []Reply {
	if !t.primary {
		b, err := m.ledger.Balance(t.ctx, t.ev.UserID)
		if err != nil {
			t.log.WithError(err).Error("failed to load balance")
			return []Reply{text(msgReadError)}
		}
		return []Reply{{Text: ownBalance(b), Markdown: true}}
	}

	family, err := m.ledger.FamilyBalance(t.ctx)
	if err != nil {
		t.log.WithError(err).Error("failed to load family balance")
		return []Reply{text(msgReadError)}
	}
	return []Reply{{Text: familyBalance(family), Markdown: true}}
}

func ownBalance(b model.Balance) string {
	return fmt.Sprintf("📊 *Ваш баланс*\n\nДоход: *%s*\nРасход: *%s*\nИтог: *%s*",
		money(b.Income), money(b.Expense), money(b.Net()))
}

func familyBalance(f model.FamilyBalance) string {
	var sb strings.Builder
	sb.WriteString("📊 *Семейный баланс*\n\n")
	for _, o := range f.Owners {
		name := o.Owner.DisplayName
		if name == "" {
			name = strconv.FormatInt(o.Owner.ID, 10)
		}
		sb.WriteString(fmt.Sprintf("👤 %s: доход %s, расход %s\n",
			escape(name), money(o.Income), money(o.Expense)))
	}
	sb.WriteString(fmt.Sprintf("\n🏡 Семья: доход %s, расход %s, итог %s",
		money(f.Total.Income), money(f.Total.Expense), money(f.Total.Net())))
	return sb.String()
}

func (m *Machine) creditList(t *turn) []Reply {
	credits, err := m.ledger.ListCredits(t.ctx, m.scope(t))
	if err != nil {
		t.log.WithError(err).Error("failed to list credits")
		return []Reply{text(msgReadError)}
	}
	if len(credits) == 0 {
		return []Reply{text(msgNoCredits)}
	}

	var sb strings.Builder
	sb.WriteString("📋 *Кредиты:*\n\n")
	for _, c := range credits {
		sb.WriteString(fmt.Sprintf("*%s*\n", escape(c.Name)))
		sb.WriteString(fmt.Sprintf("• Полная сумма: %s\n", money(c.Principal)))
		sb.WriteString(fmt.Sprintf("• Выплачено: %s\n", money(c.AmountPaid)))
		sb.WriteString(fmt.Sprintf("• Остаток: %s\n", money(credit.Remaining(c))))
		sb.WriteString(fmt.Sprintf("• %% годовых: %s\n", money(c.AnnualRatePercent)))
		sb.WriteString(fmt.Sprintf("• Ежемесячный платёж: %s\n", money(c.MonthlyPlan)))
		sb.WriteString(fmt.Sprintf("• День платежа: %d\n", c.PayDayOfMonth))
		if c.NextDueDate != nil {
			sb.WriteString(fmt.Sprintf("• Следующий платёж: %s\n", c.NextDueDate.Format("02.01.2006")))
		}
		sb.WriteString("\n")
	}
	return []Reply{{Text: sb.String(), Markdown: true}}
}

func (m *Machine) creditChooser(t *turn, action Action) []Reply {
	credits, err := m.ledger.ListCredits(t.ctx, m.scope(t))
	if err != nil {
		t.log.WithError(err).Error("failed to list credits")
		return []Reply{text(msgReadError)}
	}
	if len(credits) == 0 {
		return []Reply{text(msgNoCredits)}
	}

	rows := make([][]Button, 0, len(credits))
	for _, c := range credits {
		rows = append(rows, []Button{{
			Label:  fmt.Sprintf("%s (осталось %s)", c.Name, money(credit.Remaining(c))),
			Action: action,
			Arg:    strconv.FormatInt(c.ID, 10),
		}})
	}
	return []Reply{{Text: msgChooseCredit, Buttons: rows}}
}

func (m *Machine) creditPlan(t *turn) []Reply {
	if !t.primary {
		return []Reply{text(msgPlanPrimaryOnly)}
	}
	credits, err := m.ledger.ListCredits(t.ctx, model.AllOwners)
	if err != nil {
		t.log.WithError(err).Error("failed to list credits")
		return []Reply{text(msgReadError)}
	}
	if len(credits) == 0 {
		return []Reply{text(msgNoCredits)}
	}

	var sb strings.Builder
	sb.WriteString("📅 *План по кредитам*\n\n")
	for _, c := range credits {
		p := credit.BuildPlan(c)
		months := "не вычисляется"
		if p.MonthsKnown {
			months = strconv.FormatInt(p.Months, 10)
		}
		sb.WriteString(fmt.Sprintf("*%s*\n", escape(c.Name)))
		sb.WriteString(fmt.Sprintf("• Остаток: %s\n", money(p.Remaining)))
		sb.WriteString(fmt.Sprintf("• Плановый ежемесячный платёж: %s\n", money(c.MonthlyPlan)))
		sb.WriteString(fmt.Sprintf("• Примерно месяцев до погашения: %s\n", months))
		sb.WriteString(fmt.Sprintf("• Проценты в месяц (оценка): %s\n", money(p.MonthlyInterest)))
		sb.WriteString(fmt.Sprintf("• День платежа: %d\n\n", c.PayDayOfMonth))
	}
	return []Reply{{Text: sb.String(), Markdown: true}}
}

func (m *Machine) analyze(t *turn) []Reply {
	if m.analyst == nil {
		return []Reply{text(msgAIUnavailable)}
	}
	entries, err := m.ledger.ListEntries(t.ctx, m.scope(t))
	if err != nil {
		t.log.WithError(err).Error("failed to list entries")
		return []Reply{text(msgReadError)}
	}
	if len(entries) == 0 {
		return []Reply{text(msgNoEntries)}
	}

	ctx, cancel := context.WithTimeout(t.ctx, m.opts.ExternalTimeout)
	defer cancel()

	summary, err := m.analyst.SummarizeFinances(ctx, entries)
	switch {
	case errors.Is(err, model.ErrInsufficientData):
		return []Reply{text(msgNoEntries)}
	case err != nil:
		t.log.WithError(err).Error("analysis request failed")
		return []Reply{text(msgAIError)}
	}
	return []Reply{text(summary)}
}

func (m *Machine) chart(t *turn) []Reply {
	if m.charts == nil {
		return []Reply{text(msgChartDisabled)}
	}
	aggregates, err := m.ledger.MonthlyTotals(t.ctx, m.scope(t), m.opts.ChartMonths)
	if err != nil {
		t.log.WithError(err).Error("failed to load monthly totals")
		return []Reply{text(msgReadError)}
	}

	img, err := m.charts.RenderIncomeExpenseChart(aggregates)
	switch {
	case errors.Is(err, model.ErrInsufficientData):
		return []Reply{text(msgNoChartData)}
	case err != nil:
		t.log.WithError(err).Error("failed to render chart")
		return []Reply{text(msgNoChartData)}
	}
	return []Reply{{Text: msgChartCaption, Image: img}}
}
