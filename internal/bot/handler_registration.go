package bot

import (
	"context"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"github.com/cupitman9/family-budget-bot/internal/conversation"
)

// Publisher queues an inbound event for its user's worker.
type Publisher interface {
	Publish(ctx context.Context, ev conversation.Event) error
}

// Gate tells whether a sender may use the bot at all.
type Gate interface {
	Allowed(userID int64) bool
}

// RegisterHandlers routes commands, text and button taps into pub. Senders
// the gate rejects are answered here and never reach pub. Other replies are
// sent by the worker that handles the event.
func RegisterHandlers(ctx context.Context, b *telebot.Bot, gate Gate, pub Publisher, log *logrus.Logger) {
	msgHandler := newMessageHandler(gate, pub, log)
	cbHandler := newCallbackHandler(gate, pub, log)

	for _, cmd := range []string{"/start", "/cancel"} {
		b.Handle(cmd, func(c telebot.Context) error {
			if err := msgHandler.handleMessage(ctx, c); err != nil {
				log.WithField("userId", c.Sender().ID).WithError(err).Error("error handling command")
			}
			return nil
		})
	}

	b.Handle(telebot.OnText, func(c telebot.Context) error {
		if err := msgHandler.handleMessage(ctx, c); err != nil {
			log.WithField("userId", c.Sender().ID).WithError(err).Error("error handling text")
		}
		return nil
	})

	b.Handle(telebot.OnCallback, func(c telebot.Context) error {
		if err := cbHandler.handleCallback(ctx, c); err != nil {
			log.WithField("userId", c.Sender().ID).WithError(err).Error("error handling callback")
		}
		return nil
	})
}
