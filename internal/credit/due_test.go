package credit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cupitman9/family-budget-bot/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDueDateInClampsToMonthEnd(t *testing.T) {
	assert.Equal(t, date(2026, time.April, 30), DueDateIn(2026, time.April, 31, time.UTC))
	assert.Equal(t, date(2026, time.February, 28), DueDateIn(2026, time.February, 31, time.UTC))
	assert.Equal(t, date(2028, time.February, 29), DueDateIn(2028, time.February, 30, time.UTC))
	assert.Equal(t, date(2026, time.May, 31), DueDateIn(2026, time.May, 31, time.UTC))
}

func TestNextDueOnOrAfter(t *testing.T) {
	tests := []struct {
		name   string
		payDay int
		from   time.Time
		want   time.Time
	}{
		{name: "later this month", payDay: 20, from: date(2026, time.October, 19), want: date(2026, time.October, 20)},
		{name: "today counts", payDay: 19, from: date(2026, time.October, 19), want: date(2026, time.October, 19)},
		{name: "passed rolls to next month", payDay: 5, from: date(2026, time.October, 19), want: date(2026, time.November, 5)},
		{name: "year boundary", payDay: 10, from: date(2026, time.December, 20), want: date(2027, time.January, 10)},
		{name: "31 in a 30 day month", payDay: 31, from: date(2026, time.November, 2), want: date(2026, time.November, 30)},
		{name: "31 rolls into february", payDay: 31, from: date(2027, time.January, 31).AddDate(0, 0, 1), want: date(2027, time.February, 28)},
		{name: "time of day is ignored", payDay: 19, from: time.Date(2026, time.October, 19, 23, 59, 0, 0, time.UTC), want: date(2026, time.October, 19)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextDueOnOrAfter(tt.payDay, tt.from))
		})
	}
}

func TestNextDueAfterIsStrict(t *testing.T) {
	today := date(2026, time.October, 15)
	assert.Equal(t, date(2026, time.November, 15), NextDueAfter(15, today))
	assert.Equal(t, date(2026, time.October, 16), NextDueAfter(16, today))
}

func TestDaysUntil(t *testing.T) {
	today := time.Date(2026, time.October, 19, 17, 30, 0, 0, time.UTC)

	assert.Equal(t, 3, DaysUntil(date(2026, time.October, 22), today))
	assert.Equal(t, 0, DaysUntil(date(2026, time.October, 19), today))
	assert.Equal(t, -2, DaysUntil(date(2026, time.October, 17), today))
	assert.Equal(t, 13, DaysUntil(date(2026, time.November, 1), today))
}

func TestIsStale(t *testing.T) {
	today := date(2026, time.October, 19)
	yesterday := date(2026, time.October, 18)
	twoDaysAgo := date(2026, time.October, 17)

	assert.True(t, IsStale(model.CreditAccount{}, today))
	assert.False(t, IsStale(model.CreditAccount{NextDueDate: &yesterday}, today))
	assert.True(t, IsStale(model.CreditAccount{NextDueDate: &twoDaysAgo}, today))
}

func TestValidPayDay(t *testing.T) {
	assert.False(t, ValidPayDay(0))
	assert.True(t, ValidPayDay(1))
	assert.True(t, ValidPayDay(31))
	assert.False(t, ValidPayDay(32))
}
