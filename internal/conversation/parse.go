package conversation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cupitman9/family-budget-bot/internal/credit"
)

// maxAmountLen bounds typed numbers to twelve integer digits plus a
// fraction, well below anything a family budget needs.
const maxAmountLen = 16

// Exponents and signs are not accepted: "1e9" must not reach the decimal
// parser.
var amountPattern = regexp.MustCompile(`^[0-9]{1,12}(\.[0-9]{1,3})?$`)

// parseDecimal accepts "1500", "1 500" and "12,50". Values are rounded to
// kopecks.
func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" || len(s) > maxAmountLen || !amountPattern.MatchString(s) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d.Round(2), true
}

func parsePositive(s string) (decimal.Decimal, bool) {
	d, ok := parseDecimal(s)
	return d, ok && d.IsPositive()
}

func parseRate(s string) (decimal.Decimal, bool) {
	d, ok := parseDecimal(s)
	return d, ok && !d.IsNegative()
}

func parsePayDay(s string) (int, bool) {
	day, err := strconv.Atoi(strings.TrimSpace(s))
	return day, err == nil && credit.ValidPayDay(day)
}

func money(d decimal.Decimal) string {
	if d.IsInteger() {
		return d.String()
	}
	return d.StringFixed(2)
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escape(s string) string {
	return markdownEscaper.Replace(s)
}
