package bot

import (
	"bytes"
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"github.com/cupitman9/family-budget-bot/internal/conversation"
	"github.com/cupitman9/family-budget-bot/internal/model"
)

// sender is the part of *telebot.Bot used for outbound messages.
type sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// Sender renders conversation replies as Telegram messages.
type Sender struct {
	api sender
	log *logrus.Logger
}

func NewSender(api sender, log *logrus.Logger) *Sender {
	return &Sender{api: api, log: log}
}

// Deliver sends replies in order and stops at the first failure.
func (s *Sender) Deliver(ctx context.Context, chatID int64, replies []conversation.Reply) error {
	for _, r := range replies {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.send(telebot.ChatID(chatID), r); err != nil {
			return fmt.Errorf("%w: chat %d: %v", model.ErrDeliveryFailure, chatID, err)
		}
	}
	return nil
}

// Notify sends a Markdown reminder.
func (s *Sender) Notify(ctx context.Context, recipient int64, text string) error {
	return s.Deliver(ctx, recipient, []conversation.Reply{{Text: text, Markdown: true}})
}

func (s *Sender) send(to telebot.Recipient, r conversation.Reply) error {
	var what interface{} = r.Text
	if len(r.Image) > 0 {
		what = &telebot.Photo{File: telebot.FromReader(bytes.NewReader(r.Image)), Caption: r.Text}
	}

	opts := &telebot.SendOptions{ReplyMarkup: markupFor(r)}
	if r.Markdown {
		opts.ParseMode = telebot.ModeMarkdown
	}

	_, err := s.api.Send(to, what, opts)
	if err == nil || !r.Markdown {
		return err
	}

	// Names typed by users can still break the Markdown parser.
	s.log.WithError(err).Warn("markdown send failed, retrying as plain text")
	if len(r.Image) > 0 {
		what = &telebot.Photo{File: telebot.FromReader(bytes.NewReader(r.Image)), Caption: r.Text}
	}
	opts.ParseMode = telebot.ModeDefault
	_, err = s.api.Send(to, what, opts)
	return err
}

// markupFor builds inline buttons when present, otherwise the reply
// keyboard. Telegram allows only one of them per message.
func markupFor(r conversation.Reply) *telebot.ReplyMarkup {
	switch {
	case len(r.Buttons) > 0:
		markup := &telebot.ReplyMarkup{}
		rows := make([]telebot.Row, 0, len(r.Buttons))
		for _, line := range r.Buttons {
			btns := make([]telebot.Btn, 0, len(line))
			for _, b := range line {
				btns = append(btns, markup.Data(b.Label, b.Data()))
			}
			rows = append(rows, markup.Row(btns...))
		}
		markup.Inline(rows...)
		return markup
	case len(r.Menu) > 0:
		markup := &telebot.ReplyMarkup{ResizeKeyboard: true}
		rows := make([]telebot.Row, 0, len(r.Menu))
		for _, line := range r.Menu {
			btns := make([]telebot.Btn, 0, len(line))
			for _, label := range line {
				btns = append(btns, markup.Text(label))
			}
			rows = append(rows, markup.Row(btns...))
		}
		markup.Reply(rows...)
		return markup
	default:
		return nil
	}
}

// Machine is the conversation core seen by the transport.
type Machine interface {
	Handle(ctx context.Context, ev conversation.Event) []conversation.Reply
}

// Dispatch runs each event through the machine and sends the replies.
func Dispatch(m Machine, s *Sender, log *logrus.Logger) conversation.Handler {
	return func(ctx context.Context, ev conversation.Event) {
		replies := m.Handle(ctx, ev)
		if err := s.Deliver(ctx, ev.ChatID, replies); err != nil {
			log.WithField("userId", ev.UserID).WithError(err).Error("error sending reply")
		}
	}
}
