package credit

import (
	"time"

	"github.com/cupitman9/family-budget-bot/internal/model"
)

const (
	MinPayDay = 1
	MaxPayDay = 31
)

func ValidPayDay(day int) bool {
	return day >= MinPayDay && day <= MaxPayDay
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DueDateIn returns the pay day inside the given month, clamped to the
// month's last day.
func DueDateIn(year int, month time.Month, payDay int, loc *time.Location) time.Time {
	day := payDay
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// NextDueOnOrAfter returns the first occurrence of payDay that is not
// before from's calendar day.
func NextDueOnOrAfter(payDay int, from time.Time) time.Time {
	from = Day(from)
	candidate := DueDateIn(from.Year(), from.Month(), payDay, from.Location())
	if candidate.Before(from) {
		first := time.Date(from.Year(), from.Month()+1, 1, 0, 0, 0, 0, from.Location())
		candidate = DueDateIn(first.Year(), first.Month(), payDay, from.Location())
	}
	return candidate
}

// NextDueAfter returns the first occurrence of payDay strictly after today.
func NextDueAfter(payDay int, today time.Time) time.Time {
	return NextDueOnOrAfter(payDay, Day(today).AddDate(0, 0, 1))
}

// DaysUntil counts whole calendar days from today to due. Negative when due
// is in the past.
func DaysUntil(due, today time.Time) int {
	dy, dm, dd := due.Date()
	ty, tm, td := today.Date()
	a := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(a.Sub(b).Hours() / 24)
}

// IsStale reports whether the credit needs a fresh due date: it has none,
// or the stored one lies more than a day behind today.
func IsStale(c model.CreditAccount, today time.Time) bool {
	if c.NextDueDate == nil {
		return true
	}
	return DaysUntil(*c.NextDueDate, today) < -1
}
