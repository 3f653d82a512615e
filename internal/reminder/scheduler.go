// Package reminder polls the credit ledger and tells owners about upcoming
// payments. It only ever writes next_due_date.
package reminder

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cupitman9/family-budget-bot/internal/credit"
	"github.com/cupitman9/family-budget-bot/internal/model"
)

type CreditSource interface {
	ListCredits(ctx context.Context, ownerID int64) ([]model.CreditAccount, error)
	SetNextDueDate(ctx context.Context, creditID int64, due time.Time) error
}

// Notifier delivers one Markdown message to a user.
type Notifier interface {
	Notify(ctx context.Context, recipient int64, text string) error
}

const (
	RecipientPrimary = "primary"
	RecipientOwner   = "owner"
)

type Options struct {
	Interval     time.Duration
	Offsets      []int
	Recipient    string
	PrimaryOwner int64
	Location     *time.Location
	Clock        func() time.Time
}

type Scheduler struct {
	credits  CreditSource
	notifier Notifier
	marks    Watermarks
	opts     Options
	log      *logrus.Logger
}

func NewScheduler(credits CreditSource, notifier Notifier, marks Watermarks, opts Options, log *logrus.Logger) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	if len(opts.Offsets) == 0 {
		opts.Offsets = []int{3, 1, 0}
	}
	if opts.Recipient == "" {
		opts.Recipient = RecipientPrimary
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Scheduler{credits: credits, notifier: notifier, marks: marks, opts: opts, log: log}
}

// Run checks immediately and then on every tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.WithFields(logrus.Fields{
		"interval":  s.opts.Interval.String(),
		"offsets":   s.opts.Offsets,
		"recipient": s.opts.Recipient,
	}).Info("credit reminders started")

	s.tick(ctx)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("credit reminders stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if err := s.RunOnce(ctx, s.opts.Clock()); err != nil {
		s.log.WithError(err).Error("reminder cycle finished with errors")
	}
}

// RunOnce performs one maintenance and emission pass as of now. Failures
// for one recipient do not stop delivery to the others; all of them are
// returned together.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) error {
	today := credit.Day(now.In(s.opts.Location))

	credits, err := s.credits.ListCredits(ctx, model.AllOwners)
	if err != nil {
		return errors.Wrap(err, "list credits")
	}

	var result *multierror.Error
	batches := make(map[int64][]string)

	for _, c := range credits {
		if credit.IsStale(c, today) {
			due := credit.NextDueAfter(c.PayDayOfMonth, today)
			if err := s.credits.SetNextDueDate(ctx, c.ID, due); err != nil {
				result = multierror.Append(result, errors.Wrapf(err, "roll over credit %d", c.ID))
				continue
			}
			s.log.WithFields(logrus.Fields{
				"creditId": c.ID,
				"nextDue":  dayKey(due),
			}).Info("credit due date rolled over")
			continue
		}
		if !credit.Remaining(c).IsPositive() {
			continue
		}

		diff := credit.DaysUntil(*c.NextDueDate, today)
		if !s.isOffset(diff) {
			continue
		}
		recipient := s.recipientFor(c)
		batches[recipient] = append(batches[recipient], reminderText(c, diff))
	}

	recipients := make([]int64, 0, len(batches))
	for r := range batches {
		recipients = append(recipients, r)
	}
	sort.Slice(recipients, func(i, j int) bool { return recipients[i] < recipients[j] })

	sent := 0
	for _, r := range recipients {
		if err := s.deliver(ctx, r, today, batches[r]); err != nil {
			s.log.WithField("recipient", r).WithError(err).Error("failed to deliver credit reminder")
			result = multierror.Append(result, err)
			continue
		}
		sent++
	}

	s.log.WithFields(logrus.Fields{
		"day":        dayKey(today),
		"credits":    len(credits),
		"recipients": len(recipients),
		"sent":       sent,
	}).Debug("reminder cycle done")

	return result.ErrorOrNil()
}

// deliver sends one batch unless the recipient already got one today. The
// watermark is only written after a successful send.
func (s *Scheduler) deliver(ctx context.Context, recipient int64, today time.Time, lines []string) error {
	done, err := s.marks.Delivered(ctx, recipient, today)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	if err := s.notifier.Notify(ctx, recipient, strings.Join(lines, "\n")); err != nil {
		return errors.Wrapf(model.ErrDeliveryFailure, "recipient %d: %v", recipient, err)
	}
	return s.marks.MarkDelivered(ctx, recipient, today)
}

func (s *Scheduler) isOffset(diff int) bool {
	for _, o := range s.opts.Offsets {
		if o == diff {
			return true
		}
	}
	return false
}

func (s *Scheduler) recipientFor(c model.CreditAccount) int64 {
	if s.opts.Recipient == RecipientOwner {
		return c.OwnerID
	}
	return s.opts.PrimaryOwner
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func reminderText(c model.CreditAccount, diff int) string {
	name := markdownEscaper.Replace(c.Name)
	payment := c.MonthlyPlan.String()
	switch diff {
	case 0:
		return fmt.Sprintf("🚨 Сегодня платёж по кредиту *%s*! (%s)", name, payment)
	case 1:
		return fmt.Sprintf("🔔 Завтра платёж по кредиту *%s* (%s).", name, payment)
	default:
		return fmt.Sprintf("🔔 Через %d дн. платёж по кредиту *%s* (%s).", diff, name, payment)
	}
}
