package conversation

import "strings"

const (
	labelIncome     = "➕ Доход"
	labelExpense    = "➖ Расход"
	labelCredits    = "💳 Кредиты"
	labelBalance    = "📊 Баланс"
	labelCreditPlan = "📅 План по кредитам"
	labelAnalyze    = "📈 Анализ расходов (AI)"
	labelChart      = "📉 График доходов/расходов"
	labelAssistant  = "🤖 AI-помощник"
)

var labelActions = map[string]Action{
	labelIncome:     ActionAddIncome,
	labelExpense:    ActionAddExpense,
	labelCredits:    ActionCredits,
	labelBalance:    ActionBalance,
	labelCreditPlan: ActionCreditPlan,
	labelAnalyze:    ActionAnalyze,
	labelChart:      ActionChart,
	labelAssistant:  ActionAssistant,
	"/start":        ActionStart,
	"/cancel":       ActionReset,
}

// MainMenu is the reply keyboard. The primary owner also gets the credit
// plan and the assistant.
func MainMenu(primary bool) [][]string {
	if !primary {
		return [][]string{
			{labelIncome, labelExpense},
			{labelCredits},
			{labelBalance},
			{labelAnalyze},
			{labelChart},
		}
	}
	return [][]string{
		{labelIncome, labelExpense},
		{labelCredits},
		{labelBalance, labelCreditPlan},
		{labelAnalyze},
		{labelChart},
		{labelAssistant},
	}
}

func creditsMenu() [][]Button {
	return [][]Button{
		{{Label: "➕ Добавить кредит", Action: ActionAddCredit}},
		{{Label: "📋 Список кредитов", Action: ActionListCredits}},
		{{Label: "💰 Оплатить кредит", Action: ActionPayCredit}},
		{{Label: "🗑 Удалить кредит", Action: ActionDelete}},
	}
}

// resolve maps typed text onto a menu action. Commands may carry a bot
// suffix such as /start@family_bot.
func resolve(ev Event) Action {
	if ev.Action != ActionNone {
		return ev.Action
	}
	text := strings.TrimSpace(ev.Text)
	if strings.HasPrefix(text, "/") {
		text = strings.Fields(text)[0]
		text, _, _ = strings.Cut(text, "@")
	}
	return labelActions[text]
}
