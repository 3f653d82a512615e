// Package conversation turns chat events into ledger mutations. Every flow
// collects its fields across several messages and commits exactly once, at
// the final validated step.
package conversation

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cupitman9/family-budget-bot/internal/credit"
	"github.com/cupitman9/family-budget-bot/internal/logger"
	"github.com/cupitman9/family-budget-bot/internal/model"
	"github.com/cupitman9/family-budget-bot/internal/storage"
)

type Ledger interface {
	EnsureUser(ctx context.Context, user model.User) error
	RecordEntry(ctx context.Context, entry model.NewEntry) (int64, error)
	Balance(ctx context.Context, ownerID int64) (model.Balance, error)
	FamilyBalance(ctx context.Context) (model.FamilyBalance, error)
	ListEntries(ctx context.Context, ownerID int64) ([]model.LedgerEntry, error)
	MonthlyTotals(ctx context.Context, ownerID int64, months int) ([]model.MonthlyAggregate, error)
	CreateCredit(ctx context.Context, c model.NewCredit) (int64, error)
	GetCredit(ctx context.Context, creditID int64) (model.CreditAccount, error)
	CreditNameTaken(ctx context.Context, ownerID int64, name string) (bool, error)
	RecordCreditPayment(ctx context.Context, p storage.CreditPayment) error
	ListCredits(ctx context.Context, ownerID int64) ([]model.CreditAccount, error)
	DeleteCredit(ctx context.Context, creditID int64) error
}

// Analyst produces text about the user's finances.
type Analyst interface {
	SummarizeFinances(ctx context.Context, entries []model.LedgerEntry) (string, error)
	AnswerFreeform(ctx context.Context, prompt string) (string, error)
}

type ChartRenderer interface {
	RenderIncomeExpenseChart(aggregates []model.MonthlyAggregate) ([]byte, error)
}

type Options struct {
	Taxonomy        Taxonomy
	AllowedUsers    []int64
	PrimaryOwner    int64
	Location        *time.Location
	ExternalTimeout time.Duration
	ChartMonths     int
	Clock           func() time.Time
}

type Machine struct {
	ledger   Ledger
	analyst  Analyst
	charts   ChartRenderer
	sessions *Sessions
	opts     Options
	allowed  map[int64]struct{}
	log      *logrus.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewMachine wires the state machine. analyst and charts may be nil, the
// matching menu items then answer that the feature is unavailable.
func NewMachine(ledger Ledger, analyst Analyst, charts ChartRenderer, sessions *Sessions, opts Options, log *logrus.Logger) *Machine {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.ExternalTimeout == 0 {
		opts.ExternalTimeout = 30 * time.Second
	}
	if opts.ChartMonths == 0 {
		opts.ChartMonths = 12
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if len(opts.Taxonomy.Income) == 0 && len(opts.Taxonomy.Expense) == 0 {
		opts.Taxonomy = DefaultTaxonomy()
	}
	allowed := make(map[int64]struct{}, len(opts.AllowedUsers))
	for _, id := range opts.AllowedUsers {
		allowed[id] = struct{}{}
	}
	return &Machine{
		ledger:   ledger,
		analyst:  analyst,
		charts:   charts,
		sessions: sessions,
		opts:     opts,
		allowed:  allowed,
		log:      log,
		locks:    make(map[int64]*sync.Mutex),
	}
}

// turn is the context of handling one event.
type turn struct {
	ctx     context.Context
	ev      Event
	log     *logrus.Entry
	primary bool
}

// Handle processes one event and returns the replies to send. Events of
// one user never interleave.
func (m *Machine) Handle(ctx context.Context, ev Event) []Reply {
	log := logger.ForUpdate(m.log, ev.UserID)
	if !m.Allowed(ev.UserID) {
		log.WithError(model.ErrUnauthorized).Warn("update from user outside the allow list")
		return []Reply{AccessDenied()}
	}

	unlock := m.lock(ev.UserID)
	defer unlock()

	t := &turn{ctx: ctx, ev: ev, log: log, primary: ev.UserID == m.opts.PrimaryOwner}

	if err := m.ledger.EnsureUser(ctx, model.User{ID: ev.UserID, DisplayName: ev.DisplayName}); err != nil {
		log.WithError(err).Error("failed to register user")
		return []Reply{text(msgReadError)}
	}

	session := m.sessions.Get(ev.UserID)
	action := resolve(ev)
	log.WithFields(logrus.Fields{"action": string(action), "state": session.State.String()}).Debug("handling update")

	if action == ActionNone {
		return m.handleText(t, session)
	}
	return m.dispatch(t, action, session)
}

// Allowed reports whether userID is on the allow list.
func (m *Machine) Allowed(userID int64) bool {
	_, ok := m.allowed[userID]
	return ok
}

// AccessDenied is the only answer a user outside the allow list gets.
func AccessDenied() Reply {
	return text(msgNoAccess)
}

func (m *Machine) lock(userID int64) func() {
	m.mu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (m *Machine) menu(t *turn) [][]string {
	return MainMenu(t.primary)
}

// scope is the owner filter for listings: everything for the primary owner,
// own data for everyone else.
func (m *Machine) scope(t *turn) int64 {
	if t.primary {
		return model.AllOwners
	}
	return t.ev.UserID
}

func (m *Machine) visible(t *turn, c model.CreditAccount) bool {
	return t.primary || c.OwnerID == t.ev.UserID
}

func (m *Machine) today() time.Time {
	return credit.Day(m.opts.Clock().In(m.opts.Location))
}

func (m *Machine) dispatch(t *turn, action Action, session model.UserSession) []Reply {
	userID := t.ev.UserID

	switch action {
	case ActionStart:
		m.sessions.Clear(userID)
		return []Reply{withMenu(msgChooseAction, m.menu(t))}
	case ActionReset:
		m.sessions.Clear(userID)
		return []Reply{withMenu(msgReset, m.menu(t))}
	case ActionAddIncome:
		return m.startEntry(t, model.TransactionTypeIncome)
	case ActionAddExpense:
		return m.startEntry(t, model.TransactionTypeExpense)
	case ActionCategory:
		return m.chooseCategory(t, session)
	case ActionSubcategory:
		return m.chooseSubcategory(t, session)
	case ActionCredits:
		return []Reply{{Text: msgChooseAction, Buttons: creditsMenu()}}
	case ActionAddCredit:
		m.sessions.Set(userID, model.UserSession{State: model.StateAwaitCreditName})
		return []Reply{text(msgCreditName)}
	case ActionListCredits:
		return m.creditList(t)
	case ActionPayCredit:
		return m.creditChooser(t, ActionSelectPay)
	case ActionSelectPay:
		return m.selectPayment(t)
	case ActionDelete:
		return m.creditChooser(t, ActionConfirmDel)
	case ActionConfirmDel:
		return m.deleteCredit(t)
	case ActionBalance:
		return m.balance(t)
	case ActionCreditPlan:
		return m.creditPlan(t)
	case ActionAnalyze:
		return m.analyze(t)
	case ActionChart:
		return m.chart(t)
	case ActionAssistant:
		m.sessions.Set(userID, model.UserSession{State: model.StateFreeformQuery})
		return []Reply{text(msgAskQuestion)}
	default:
		t.log.WithField("action", string(action)).Warn("unknown action")
		return []Reply{withMenu(msgUnknownAction, m.menu(t))}
	}
}

func (m *Machine) handleText(t *turn, session model.UserSession) []Reply {
	input := strings.TrimSpace(t.ev.Text)

	switch session.State {
	case model.StateChooseCategory:
		return []Reply{m.categoryPrompt(session.Kind)}
	case model.StateChooseSubcategory:
		return []Reply{m.subcategoryPrompt(session)}
	case model.StateAwaitAmount:
		return m.commitEntry(t, session, input)
	case model.StateAwaitCreditName:
		return m.creditName(t, session, input)
	case model.StateAwaitPrincipal:
		amount, ok := parsePositive(input)
		if !ok {
			return []Reply{text(msgBadPrincipal)}
		}
		session.Principal = amount
		session.State = model.StateAwaitRate
		m.sessions.Set(t.ev.UserID, session)
		return []Reply{text(msgCreditRate)}
	case model.StateAwaitRate:
		rate, ok := parseRate(input)
		if !ok {
			return []Reply{text(msgBadRate)}
		}
		session.Rate = rate
		session.State = model.StateAwaitMonthlyPlan
		m.sessions.Set(t.ev.UserID, session)
		return []Reply{text(msgCreditPlan)}
	case model.StateAwaitMonthlyPlan:
		plan, ok := parsePositive(input)
		if !ok {
			return []Reply{text(msgBadPlan)}
		}
		session.MonthlyPlan = plan
		session.State = model.StateAwaitPayDay
		m.sessions.Set(t.ev.UserID, session)
		return []Reply{text(msgCreditPayDay)}
	case model.StateAwaitPayDay:
		return m.commitCredit(t, session, input)
	case model.StateAwaitPaymentAmount:
		return m.commitPayment(t, session, input)
	case model.StateFreeformQuery:
		return m.freeform(t, input)
	default:
		// The primary owner can ask the assistant without opening it first.
		if session.State == model.StateIdle && t.primary && m.analyst != nil {
			return m.freeform(t, input)
		}
		return []Reply{withMenu(msgUseButtons, m.menu(t))}
	}
}

func (m *Machine) startEntry(t *turn, kind model.EntryKind) []Reply {
	m.sessions.Set(t.ev.UserID, model.UserSession{State: model.StateChooseCategory, Kind: kind})
	return []Reply{m.categoryPrompt(kind)}
}

func (m *Machine) categoryPrompt(kind model.EntryKind) Reply {
	var rows [][]Button
	for i, c := range m.opts.Taxonomy.For(kind) {
		rows = append(rows, []Button{{Label: c.Name, Action: ActionCategory, Arg: strconv.Itoa(i)}})
	}
	prompt := msgChooseExpenseCategory
	if kind == model.TransactionTypeIncome {
		prompt = msgChooseIncomeCategory
	}
	return Reply{Text: prompt, Buttons: rows}
}

func (m *Machine) subcategoryPrompt(session model.UserSession) Reply {
	var rows [][]Button
	for _, c := range m.opts.Taxonomy.For(session.Kind) {
		if c.Name != session.Category {
			continue
		}
		for i, sub := range c.Subcategories {
			rows = append(rows, []Button{{Label: sub, Action: ActionSubcategory, Arg: strconv.Itoa(i)}})
		}
	}
	prompt := msgChooseExpenseSubcategory
	if session.Kind == model.TransactionTypeIncome {
		prompt = msgChooseIncomeSubcategory
	}
	return Reply{Text: prompt, Buttons: rows}
}

func amountPrompt(kind model.EntryKind) string {
	if kind == model.TransactionTypeIncome {
		return msgIncomeAmount
	}
	return msgExpenseAmount
}

func (m *Machine) chooseCategory(t *turn, session model.UserSession) []Reply {
	if session.State != model.StateChooseCategory {
		return []Reply{withMenu(msgStaleButton, m.menu(t))}
	}
	idx, ok := argIndex(t.ev.Arg)
	if !ok {
		return []Reply{m.categoryPrompt(session.Kind)}
	}
	category, ok := m.opts.Taxonomy.category(session.Kind, idx)
	if !ok {
		return []Reply{m.categoryPrompt(session.Kind)}
	}

	session.Category = category.Name
	if len(category.Subcategories) == 0 {
		session.State = model.StateAwaitAmount
		m.sessions.Set(t.ev.UserID, session)
		return []Reply{text(amountPrompt(session.Kind))}
	}
	session.State = model.StateChooseSubcategory
	m.sessions.Set(t.ev.UserID, session)
	return []Reply{m.subcategoryPrompt(session)}
}

func (m *Machine) chooseSubcategory(t *turn, session model.UserSession) []Reply {
	if session.State != model.StateChooseSubcategory {
		return []Reply{withMenu(msgStaleButton, m.menu(t))}
	}
	var subs []string
	for _, c := range m.opts.Taxonomy.For(session.Kind) {
		if c.Name == session.Category {
			subs = c.Subcategories
		}
	}
	idx, ok := argIndex(t.ev.Arg)
	if !ok || idx >= len(subs) {
		return []Reply{m.subcategoryPrompt(session)}
	}

	session.Subcategory = subs[idx]
	session.State = model.StateAwaitAmount
	m.sessions.Set(t.ev.UserID, session)
	return []Reply{text(amountPrompt(session.Kind))}
}

func (m *Machine) commitEntry(t *turn, session model.UserSession, input string) []Reply {
	amount, ok := parsePositive(input)
	if !ok {
		if session.Kind == model.TransactionTypeIncome {
			return []Reply{text(msgBadIncomeAmount)}
		}
		return []Reply{text(msgBadExpenseAmount)}
	}

	label, done := msgExpenseLabel, msgExpenseSaved
	if session.Kind == model.TransactionTypeIncome {
		label, done = msgIncomeLabel, msgIncomeSaved
	}

	id, err := m.ledger.RecordEntry(t.ctx, model.NewEntry{
		OwnerID:     t.ev.UserID,
		Kind:        session.Kind,
		Label:       label,
		Category:    session.Category,
		Subcategory: session.Subcategory,
		Amount:      amount,
	})
	if err != nil {
		t.log.WithError(err).Error("failed to record entry")
		return []Reply{text(msgSaveError)}
	}

	t.log.WithFields(logrus.Fields{
		"entryId":  id,
		"kind":     session.Kind.String(),
		"category": session.Category,
	}).Info("entry recorded")
	m.sessions.Clear(t.ev.UserID)
	return []Reply{withMenu(done, m.menu(t))}
}

func (m *Machine) creditName(t *turn, session model.UserSession, input string) []Reply {
	if input == "" {
		return []Reply{text(msgCreditName)}
	}
	taken, err := m.ledger.CreditNameTaken(t.ctx, t.ev.UserID, input)
	if err != nil {
		t.log.WithError(err).Error("failed to check credit name")
		return []Reply{text(msgReadError)}
	}
	if taken {
		return []Reply{text(msgCreditNameTaken)}
	}

	session.CreditName = input
	session.State = model.StateAwaitPrincipal
	m.sessions.Set(t.ev.UserID, session)
	return []Reply{text(msgCreditPrincipal)}
}

func (m *Machine) commitCredit(t *turn, session model.UserSession, input string) []Reply {
	day, ok := parsePayDay(input)
	if !ok {
		return []Reply{text(msgBadPayDay)}
	}

	id, err := m.ledger.CreateCredit(t.ctx, model.NewCredit{
		OwnerID:           t.ev.UserID,
		Name:              session.CreditName,
		Principal:         session.Principal,
		AnnualRatePercent: session.Rate,
		PayDayOfMonth:     day,
		MonthlyPlan:       session.MonthlyPlan,
		NextDueDate:       credit.NextDueOnOrAfter(day, m.today()),
	})
	switch {
	case errors.Is(err, model.ErrDuplicateCredit):
		session.State = model.StateAwaitCreditName
		session.CreditName = ""
		m.sessions.Set(t.ev.UserID, session)
		return []Reply{text(msgCreditNameTaken)}
	case err != nil:
		t.log.WithError(err).Error("failed to create credit")
		return []Reply{text(msgSaveError)}
	}

	t.log.WithFields(logrus.Fields{"creditId": id, "payDay": day}).Info("credit created")
	m.sessions.Clear(t.ev.UserID)
	return []Reply{withMenu(msgCreditAdded, m.menu(t))}
}

func (m *Machine) selectPayment(t *turn) []Reply {
	c, ok := m.visibleCredit(t)
	if !ok {
		return []Reply{withMenu(msgCreditNotFound, m.menu(t))}
	}
	m.sessions.Set(t.ev.UserID, model.UserSession{
		State:      model.StateAwaitPaymentAmount,
		CreditID:   c.ID,
		CreditName: c.Name,
	})
	return []Reply{{Text: msgPaymentAmount(c.Name), Markdown: true}}
}

func (m *Machine) commitPayment(t *turn, session model.UserSession, input string) []Reply {
	amount, ok := parsePositive(input)
	if !ok {
		return []Reply{text(msgBadPaymentAmount)}
	}

	err := m.ledger.RecordCreditPayment(t.ctx, storage.CreditPayment{
		CreditID:    session.CreditID,
		Amount:      amount,
		Label:       msgCreditLabel,
		Category:    m.opts.Taxonomy.CreditCategory,
		Subcategory: m.opts.Taxonomy.CreditSubcategory,
	})
	switch {
	case errors.Is(err, model.ErrCreditNotFound):
		m.sessions.Clear(t.ev.UserID)
		return []Reply{withMenu(msgCreditNotFound, m.menu(t))}
	case err != nil:
		t.log.WithError(err).WithField("creditId", session.CreditID).Error("failed to record credit payment")
		return []Reply{text(msgSaveError)}
	}

	t.log.WithField("creditId", session.CreditID).Info("credit payment recorded")
	m.sessions.Clear(t.ev.UserID)

	reply := msgPaymentSaved
	if c, err := m.ledger.GetCredit(t.ctx, session.CreditID); err == nil {
		reply += "\n" + msgRemaining + money(credit.Remaining(c))
	}
	return []Reply{withMenu(reply, m.menu(t))}
}

func (m *Machine) deleteCredit(t *turn) []Reply {
	id, ok := argID(t.ev.Arg)
	if !ok {
		return []Reply{withMenu(msgCreditNotFound, m.menu(t))}
	}
	c, err := m.ledger.GetCredit(t.ctx, id)
	switch {
	case errors.Is(err, model.ErrCreditNotFound):
		return []Reply{text(msgCreditDeleted)}
	case err != nil:
		t.log.WithError(err).Error("failed to load credit")
		return []Reply{text(msgReadError)}
	case !m.visible(t, c):
		return []Reply{withMenu(msgCreditNotFound, m.menu(t))}
	}

	if err := m.ledger.DeleteCredit(t.ctx, id); err != nil {
		t.log.WithError(err).WithField("creditId", id).Error("failed to delete credit")
		return []Reply{text(msgSaveError)}
	}
	t.log.WithField("creditId", id).Info("credit deleted")
	return []Reply{text(msgCreditDeleted)}
}

func (m *Machine) visibleCredit(t *turn) (model.CreditAccount, bool) {
	id, ok := argID(t.ev.Arg)
	if !ok {
		return model.CreditAccount{}, false
	}
	c, err := m.ledger.GetCredit(t.ctx, id)
	if err != nil {
		if !errors.Is(err, model.ErrCreditNotFound) {
			t.log.WithError(err).Error("failed to load credit")
		}
		return model.CreditAccount{}, false
	}
	return c, m.visible(t, c)
}

func (m *Machine) freeform(t *turn, input string) []Reply {
	m.sessions.Clear(t.ev.UserID)
	if m.analyst == nil {
		return []Reply{withMenu(msgAIUnavailable, m.menu(t))}
	}
	if input == "" {
		return []Reply{withMenu(msgUseButtons, m.menu(t))}
	}

	ctx, cancel := context.WithTimeout(t.ctx, m.opts.ExternalTimeout)
	defer cancel()

	answer, err := m.analyst.AnswerFreeform(ctx, input)
	if err != nil {
		t.log.WithError(err).Error("assistant request failed")
		return []Reply{withMenu(msgAIError, m.menu(t))}
	}
	return []Reply{withMenu(answer, m.menu(t))}
}
