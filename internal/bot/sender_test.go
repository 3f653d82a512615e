package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"

	"github.com/cupitman9/family-budget-bot/internal/conversation"
	"github.com/cupitman9/family-budget-bot/internal/logger"
	"github.com/cupitman9/family-budget-bot/internal/model"
)

type sentCall struct {
	to   string
	what interface{}
	opts *telebot.SendOptions
}

type fakeAPI struct {
	calls        []sentCall
	failMarkdown bool
	fail         bool
}

func (f *fakeAPI) Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	var so *telebot.SendOptions
	if len(opts) > 0 {
		so, _ = opts[0].(*telebot.SendOptions)
	}
	copied := *so
	f.calls = append(f.calls, sentCall{to: to.Recipient(), what: what, opts: &copied})
	if f.fail {
		return nil, errors.New("bot was blocked by the user")
	}
	if f.failMarkdown && so.ParseMode == telebot.ModeMarkdown {
		return nil, errors.New("can't parse entities")
	}
	return &telebot.Message{}, nil
}

func TestDeliverRendersInlineButtons(t *testing.T) {
	api := &fakeAPI{}
	s := NewSender(api, logger.Discard())

	err := s.Deliver(context.Background(), 42, []conversation.Reply{{
		Text: "choose",
		Buttons: [][]conversation.Button{
			{{Label: "Food", Action: conversation.ActionCategory, Arg: "0"}},
			{{Label: "Misc", Action: conversation.ActionCategory, Arg: "1"}},
		},
	}})
	require.NoError(t, err)
	require.Len(t, api.calls, 1)

	call := api.calls[0]
	assert.Equal(t, "42", call.to)
	assert.Equal(t, "choose", call.what)
	require.NotNil(t, call.opts.ReplyMarkup)
	require.Len(t, call.opts.ReplyMarkup.InlineKeyboard, 2)
	btn := call.opts.ReplyMarkup.InlineKeyboard[1][0]
	assert.Equal(t, "Misc", btn.Text)

	action, arg := conversation.ParseData("\f" + btn.Unique)
	assert.Equal(t, conversation.ActionCategory, action)
	assert.Equal(t, "1", arg)
}

func TestDeliverRendersMenu(t *testing.T) {
	api := &fakeAPI{}
	s := NewSender(api, logger.Discard())

	err := s.Deliver(context.Background(), 42, []conversation.Reply{{
		Text: "menu",
		Menu: [][]string{{"a", "b"}, {"c"}},
	}})
	require.NoError(t, err)

	markup := api.calls[0].opts.ReplyMarkup
	require.NotNil(t, markup)
	assert.True(t, markup.ResizeKeyboard)
	require.Len(t, markup.ReplyKeyboard, 2)
	assert.Equal(t, "b", markup.ReplyKeyboard[0][1].Text)
	assert.Empty(t, markup.InlineKeyboard)
}

func TestDeliverSendsPhoto(t *testing.T) {
	api := &fakeAPI{}
	s := NewSender(api, logger.Discard())

	err := s.Deliver(context.Background(), 42, []conversation.Reply{{Text: "chart", Image: []byte{0x89, 'P', 'N', 'G'}}})
	require.NoError(t, err)

	photo, ok := api.calls[0].what.(*telebot.Photo)
	require.True(t, ok)
	assert.Equal(t, "chart", photo.Caption)
	assert.Nil(t, api.calls[0].opts.ReplyMarkup)
}

func TestMarkdownFallsBackToPlainText(t *testing.T) {
	api := &fakeAPI{failMarkdown: true}
	s := NewSender(api, logger.Discard())

	require.NoError(t, s.Notify(context.Background(), 7, "*Car_loan*"))
	require.Len(t, api.calls, 2)
	assert.Equal(t, telebot.ModeMarkdown, api.calls[0].opts.ParseMode)
	assert.Equal(t, telebot.ModeDefault, api.calls[1].opts.ParseMode)
}

func TestDeliverFailureIsDeliveryError(t *testing.T) {
	api := &fakeAPI{fail: true}
	s := NewSender(api, logger.Discard())

	err := s.Deliver(context.Background(), 42, []conversation.Reply{{Text: "a"}, {Text: "b"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrDeliveryFailure))
	assert.Len(t, api.calls, 1, "delivery stops at the first failure")
}

type echoMachine struct {
	seen []conversation.Event
}

func (m *echoMachine) Handle(_ context.Context, ev conversation.Event) []conversation.Reply {
	m.seen = append(m.seen, ev)
	return []conversation.Reply{{Text: "echo: " + ev.Text}}
}

func TestDispatchSendsRepliesToChat(t *testing.T) {
	api := &fakeAPI{}
	m := &echoMachine{}
	handle := Dispatch(m, NewSender(api, logger.Discard()), logger.Discard())

	handle(context.Background(), conversation.Event{UserID: 1, ChatID: 99, Text: "hi"})

	require.Len(t, m.seen, 1)
	require.Len(t, api.calls, 1)
	assert.Equal(t, "99", api.calls[0].to)
	assert.Equal(t, "echo: hi", api.calls[0].what)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Anna Petrova", displayName(&telebot.User{FirstName: "Anna", LastName: "Petrova"}))
	assert.Equal(t, "Anna", displayName(&telebot.User{FirstName: "Anna"}))
	assert.Equal(t, "@anna", displayName(&telebot.User{Username: "anna"}))
	assert.Equal(t, "", displayName(&telebot.User{}))
}
