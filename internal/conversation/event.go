package conversation

import (
	"strconv"
	"strings"
)

// Action is what an inbound event asks for. Button taps carry one directly,
// typed text is resolved against the menu labels.
type Action string

const (
	ActionNone        Action = ""
	ActionStart       Action = "start"
	ActionReset       Action = "reset"
	ActionAddIncome   Action = "income"
	ActionAddExpense  Action = "expense"
	ActionCredits     Action = "credits"
	ActionAddCredit   Action = "credit_add"
	ActionListCredits Action = "credit_list"
	ActionPayCredit   Action = "credit_pay"
	ActionSelectPay   Action = "pay"
	ActionDelete      Action = "credit_del"
	ActionConfirmDel  Action = "del"
	ActionBalance     Action = "balance"
	ActionCreditPlan  Action = "plan"
	ActionAnalyze     Action = "analyze"
	ActionChart       Action = "chart"
	ActionAssistant   Action = "assistant"
	ActionCategory    Action = "cat"
	ActionSubcategory Action = "sub"
)

// Event is one inbound message or button tap.
type Event struct {
	UserID      int64
	ChatID      int64
	DisplayName string
	Text        string
	Action      Action
	Arg         string
}

// Button is an inline button. Its callback payload is Data().
type Button struct {
	Label  string
	Action Action
	Arg    string
}

func (b Button) Data() string {
	if b.Arg == "" {
		return string(b.Action)
	}
	return string(b.Action) + ":" + b.Arg
}

// ParseData splits a callback payload produced by Button.Data.
func ParseData(data string) (Action, string) {
	data = strings.TrimSpace(strings.ReplaceAll(data, "\f", ""))
	action, arg, _ := strings.Cut(data, ":")
	return Action(action), arg
}

// Reply is one outbound message. Menu, when set, replaces the reply keyboard.
type Reply struct {
	Text     string
	Markdown bool
	Buttons  [][]Button
	Menu     [][]string
	Image    []byte
}

func text(s string) Reply {
	return Reply{Text: s}
}

func withMenu(s string, menu [][]string) Reply {
	return Reply{Text: s, Menu: menu}
}

func argID(arg string) (int64, bool) {
	id, err := strconv.ParseInt(arg, 10, 64)
	return id, err == nil
}

func argIndex(arg string) (int, bool) {
	idx, err := strconv.Atoi(arg)
	return idx, err == nil && idx >= 0
}
