package bot

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"github.com/cupitman9/family-budget-bot/internal/conversation"
	"github.com/cupitman9/family-budget-bot/internal/model"
)

type messageHandler struct {
	gate Gate
	pub  Publisher
	log  *logrus.Logger
}

func newMessageHandler(gate Gate, pub Publisher, log *logrus.Logger) *messageHandler {
	return &messageHandler{gate: gate, pub: pub, log: log}
}

func (h *messageHandler) handleMessage(ctx context.Context, c telebot.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	if !h.gate.Allowed(sender.ID) {
		return deny(c, h.log)
	}

	ev := conversation.Event{
		UserID:      sender.ID,
		ChatID:      chatID(c),
		DisplayName: displayName(sender),
		Text:        c.Text(),
	}
	h.log.WithField("userId", ev.UserID).Debug("text received")
	return h.pub.Publish(ctx, ev)
}

// deny answers a sender outside the allow list without creating any
// per-user state.
func deny(c telebot.Context, log *logrus.Logger) error {
	log.WithField("userId", c.Sender().ID).WithError(model.ErrUnauthorized).Warn("update from user outside the allow list")
	return c.Send(conversation.AccessDenied().Text)
}

func chatID(c telebot.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	return c.Sender().ID
}

func displayName(u *telebot.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" && u.Username != "" {
		name = "@" + u.Username
	}
	return name
}
