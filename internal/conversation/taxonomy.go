package conversation

import "github.com/cupitman9/family-budget-bot/internal/model"

type Category struct {
	Name          string
	Subcategories []string
}

// Taxonomy lists the categories offered for each entry kind, in display
// order. Buttons refer to categories by index.
type Taxonomy struct {
	Income  []Category
	Expense []Category

	CreditCategory    string
	CreditSubcategory string
}

func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Income: []Category{
			{Name: "Зарплата", Subcategories: []string{"Оклад", "Премия", "Бонус"}},
			{Name: "Бизнес", Subcategories: []string{"Продажи", "Услуги"}},
			{Name: "Подарки", Subcategories: []string{"Семья", "Друзья"}},
			{Name: "Проценты", Subcategories: []string{"Банк", "Инвестиции"}},
			{Name: "Прочее", Subcategories: []string{"Разное"}},
		},
		Expense: []Category{
			{Name: "Еда", Subcategories: []string{"Продукты", "Кафе"}},
			{Name: "Покупки", Subcategories: []string{"Одежда", "Дом", "Мелочи"}},
			{Name: "Дом", Subcategories: []string{"Коммуналка", "Аренда", "Ремонт"}},
			{Name: "Машина", Subcategories: []string{"Топливо", "Ремонт", "Страховка"}},
			{Name: "Развлечения", Subcategories: []string{"Кино", "Путешествия", "Кафе/Бар"}},
			{Name: "Здоровье", Subcategories: []string{"Аптека", "Лечение"}},
			{Name: "Кредиты", Subcategories: []string{"Платёж по кредиту"}},
			{Name: "Прочее", Subcategories: []string{"Разное"}},
		},
		CreditCategory:    "Кредиты",
		CreditSubcategory: "Платёж по кредиту",
	}
}

func (t Taxonomy) For(kind model.EntryKind) []Category {
	if kind == model.TransactionTypeIncome {
		return t.Income
	}
	return t.Expense
}

func (t Taxonomy) category(kind model.EntryKind, idx int) (Category, bool) {
	cats := t.For(kind)
	if idx < 0 || idx >= len(cats) {
		return Category{}, false
	}
	return cats[idx], true
}
