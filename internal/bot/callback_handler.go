package bot

import (
	"context"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"github.com/cupitman9/family-budget-bot/internal/conversation"
)

type callbackHandler struct {
	gate Gate
	pub  Publisher
	log  *logrus.Logger
}

func newCallbackHandler(gate Gate, pub Publisher, log *logrus.Logger) *callbackHandler {
	return &callbackHandler{gate: gate, pub: pub, log: log}
}

func (h *callbackHandler) handleCallback(ctx context.Context, c telebot.Context) error {
	cb := c.Callback()
	if cb == nil || c.Sender() == nil {
		return nil
	}

	// Stop the spinner on the tapped button whatever happens next.
	if err := c.Respond(); err != nil {
		h.log.WithField("userId", c.Sender().ID).WithError(err).Warn("error answering callback")
	}

	if !h.gate.Allowed(c.Sender().ID) {
		return deny(c, h.log)
	}

	action, arg := conversation.ParseData(cb.Data)
	if action == conversation.ActionNone {
		h.log.WithField("userId", c.Sender().ID).Warn("empty callback")
		return nil
	}

	h.log.WithFields(logrus.Fields{
		"userId": c.Sender().ID,
		"action": string(action),
	}).Debug("callback received")

	return h.pub.Publish(ctx, conversation.Event{
		UserID:      c.Sender().ID,
		ChatID:      chatID(c),
		DisplayName: displayName(c.Sender()),
		Action:      action,
		Arg:         arg,
	})
}
