package bot

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"

	"github.com/cupitman9/family-budget-bot/internal/conversation"
	"github.com/cupitman9/family-budget-bot/internal/logger"
)

type fakePublisher struct {
	events []conversation.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, ev conversation.Event) error {
	p.events = append(p.events, ev)
	return p.err
}

type allowList map[int64]bool

func (a allowList) Allowed(userID int64) bool { return a[userID] }

var members = allowList{5: true}

// fakeContext implements the few telebot.Context methods the handlers use.
type fakeContext struct {
	telebot.Context
	sender    *telebot.User
	chat      *telebot.Chat
	text      string
	callback  *telebot.Callback
	responded bool
	sent      []interface{}
}

func (c *fakeContext) Sender() *telebot.User       { return c.sender }
func (c *fakeContext) Chat() *telebot.Chat         { return c.chat }
func (c *fakeContext) Text() string                { return c.text }
func (c *fakeContext) Callback() *telebot.Callback { return c.callback }
func (c *fakeContext) Send(what interface{}, _ ...interface{}) error {
	c.sent = append(c.sent, what)
	return nil
}

func (c *fakeContext) Respond(...*telebot.CallbackResponse) error {
	c.responded = true
	return nil
}

func TestHandleMessagePublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	h := newMessageHandler(members, pub, logger.Discard())

	c := &fakeContext{
		sender: &telebot.User{ID: 5, FirstName: "Ivan"},
		chat:   &telebot.Chat{ID: 500},
		text:   "1500",
	}
	require.NoError(t, h.handleMessage(context.Background(), c))

	require.Len(t, pub.events, 1)
	assert.Equal(t, conversation.Event{UserID: 5, ChatID: 500, DisplayName: "Ivan", Text: "1500"}, pub.events[0])
}

func TestHandleMessageReturnsPublishError(t *testing.T) {
	pub := &fakePublisher{err: conversation.ErrMailboxClosed}
	h := newMessageHandler(members, pub, logger.Discard())

	err := h.handleMessage(context.Background(), &fakeContext{sender: &telebot.User{ID: 5}, text: "hi"})
	assert.ErrorIs(t, err, conversation.ErrMailboxClosed)
}

func TestHandleCallbackParsesData(t *testing.T) {
	pub := &fakePublisher{}
	h := newCallbackHandler(members, pub, logger.Discard())

	c := &fakeContext{
		sender:   &telebot.User{ID: 5, Username: "ivan"},
		chat:     &telebot.Chat{ID: 500},
		callback: &telebot.Callback{Data: "\fpay:17"},
	}
	require.NoError(t, h.handleCallback(context.Background(), c))

	assert.True(t, c.responded)
	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, conversation.ActionSelectPay, ev.Action)
	assert.Equal(t, "17", ev.Arg)
	assert.Equal(t, int64(500), ev.ChatID)
	assert.Equal(t, "@ivan", ev.DisplayName)
}

func TestHandleCallbackIgnoresEmptyData(t *testing.T) {
	pub := &fakePublisher{}
	h := newCallbackHandler(members, pub, logger.Discard())

	c := &fakeContext{sender: &telebot.User{ID: 5}, callback: &telebot.Callback{Data: "\f"}}
	require.NoError(t, h.handleCallback(context.Background(), c))
	assert.True(t, c.responded)
	assert.Empty(t, pub.events)
}

func TestUnknownSenderIsAnsweredWithoutPublishing(t *testing.T) {
	pub := &fakePublisher{}
	msgHandler := newMessageHandler(members, pub, logger.Discard())
	cbHandler := newCallbackHandler(members, pub, logger.Discard())

	for id := int64(1000); id < 1100; id++ {
		c := &fakeContext{sender: &telebot.User{ID: id}, chat: &telebot.Chat{ID: id}, text: "/start"}
		require.NoError(t, msgHandler.handleMessage(context.Background(), c))
		require.Equal(t, []interface{}{conversation.AccessDenied().Text}, c.sent)
	}

	c := &fakeContext{sender: &telebot.User{ID: 77}, callback: &telebot.Callback{Data: "\fpay:1"}}
	require.NoError(t, cbHandler.handleCallback(context.Background(), c))
	assert.True(t, c.responded)
	assert.Equal(t, []interface{}{conversation.AccessDenied().Text}, c.sent)

	assert.Empty(t, pub.events)
}

func TestUnknownSenderStartsNoMailboxWorker(t *testing.T) {
	handled := make(chan conversation.Event, 1)
	box := conversation.NewMailbox(context.Background(), 1, func(_ context.Context, ev conversation.Event) {
		handled <- ev
	})
	t.Cleanup(func() { _ = box.Stop(context.Background()) })

	h := newMessageHandler(members, box, logger.Discard())
	before := runtime.NumGoroutine()
	for id := int64(1000); id < 2000; id++ {
		require.NoError(t, h.handleMessage(context.Background(), &fakeContext{sender: &telebot.User{ID: id}, text: "hi"}))
	}
	assert.LessOrEqual(t, runtime.NumGoroutine(), before+2)

	require.NoError(t, h.handleMessage(context.Background(), &fakeContext{sender: &telebot.User{ID: 5}, text: "hi"}))
	select {
	case ev := <-handled:
		assert.Equal(t, int64(5), ev.UserID)
	case <-time.After(time.Second):
		t.Fatal("allowed user was not handled")
	}
}
