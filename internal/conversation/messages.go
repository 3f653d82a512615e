package conversation

import "fmt"

const (
	msgNoAccess      = "⛔ Нет доступа."
	msgChooseAction  = "Выберите действие:"
	msgReset         = "Состояние сброшено."
	msgUseButtons    = "Используй кнопки 😊"
	msgUnknownAction = "Команда не распознана. Пожалуйста, используйте кнопки меню."
	msgStaleButton   = "Эта кнопка устарела. Начните заново."
	msgReadError     = "❌ Ошибка при получении данных. Попробуйте позже."
	msgSaveError     = "❌ Ошибка при сохранении. Попробуйте ещё раз."

	msgChooseIncomeCategory     = "Выберите категорию дохода:"
	msgChooseExpenseCategory    = "Выберите категорию расхода:"
	msgChooseIncomeSubcategory  = "Выберите подкатегорию дохода:"
	msgChooseExpenseSubcategory = "Выберите подкатегорию расхода:"
	msgIncomeAmount             = "Введите сумму дохода:"
	msgExpenseAmount            = "Введите сумму расхода:"
	msgBadIncomeAmount          = "Введите корректную сумму дохода."
	msgBadExpenseAmount         = "Введите корректную сумму расхода."
	msgIncomeSaved              = "Доход сохранён ✅"
	msgExpenseSaved             = "Расход сохранён ✅"
	msgIncomeLabel              = "Доход"
	msgExpenseLabel             = "Расход"

	msgCreditName      = "Введите название кредита:"
	msgCreditNameTaken = "Кредит с таким названием уже есть. Введите другое название:"
	msgCreditPrincipal = "Введите полную сумму кредита:"
	msgBadPrincipal    = "Введите корректную полную сумму кредита."
	msgCreditRate      = "Введите процент по кредиту (годовой, просто число):"
	msgBadRate         = "Введите процент числом, например 14.5 или 0."
	msgCreditPlan      = "Введите плановый ежемесячный платёж:"
	msgBadPlan         = "Введите корректный ежемесячный платёж."
	msgCreditPayDay    = "Введите день платежа (1–31):"
	msgBadPayDay       = "Введите число от 1 до 31."
	msgCreditAdded     = "Кредит добавлен! ✔ Напоминания включены."

	msgNoCredits        = "Кредитов нет."
	msgChooseCredit     = "Выберите кредит:"
	msgCreditNotFound   = "Кредит не найден."
	msgCreditDeleted    = "🗑 Кредит удалён."
	msgBadPaymentAmount = "Введите корректную сумму платежа."
	msgPaymentSaved     = "Платёж по кредиту сохранён ✅"
	msgCreditLabel      = "Кредит"
	msgRemaining        = "Остаток: "
	msgPlanPrimaryOnly  = "📅 План по кредитам доступен только главному владельцу."

	msgAskQuestion   = "🧠 Напиши вопрос."
	msgAIUnavailable = "🤖 AI-помощник не настроен."
	msgAIError       = "❌ Ошибка AI."
	msgNoEntries     = "Пока нет данных по расходам, чтобы что-то анализировать 🤷‍♂️"
	msgNoChartData   = "❌ Недостаточно данных."
	msgChartCaption  = "Доходы и расходы по месяцам"
	msgChartDisabled = "📉 Графики отключены."
)

func msgPaymentAmount(name string) string {
	return fmt.Sprintf("Введите сумму платежа по кредиту *%s*:", escape(name))
}
