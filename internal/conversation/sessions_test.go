package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cupitman9/family-budget-bot/internal/model"
)

func TestSessionsGetSetClear(t *testing.T) {
	s := NewSessions(0)

	assert.Equal(t, model.StateIdle, s.Get(1).State)

	s.Set(1, model.UserSession{State: model.StateAwaitAmount, Category: "Food"})
	got := s.Get(1)
	assert.Equal(t, model.StateAwaitAmount, got.State)
	assert.Equal(t, "Food", got.Category)
	assert.Equal(t, model.StateIdle, s.Get(2).State)

	s.Set(1, model.UserSession{State: model.StateAwaitCreditName})
	assert.Equal(t, model.StateAwaitCreditName, s.Get(1).State, "a new flow overwrites the old one")
	assert.Empty(t, s.Get(1).Category)

	s.Clear(1)
	assert.Equal(t, model.StateIdle, s.Get(1).State)
}

func TestSessionsExpireAfterTTL(t *testing.T) {
	now := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	s := NewSessions(15 * time.Minute)
	s.now = func() time.Time { return now }

	s.Set(1, model.UserSession{State: model.StateAwaitAmount})

	now = now.Add(10 * time.Minute)
	assert.Equal(t, model.StateAwaitAmount, s.Get(1).State)

	now = now.Add(10 * time.Minute)
	assert.Equal(t, model.StateIdle, s.Get(1).State)
}

func TestSessionsWithoutTTLNeverExpire(t *testing.T) {
	now := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	s := NewSessions(0)
	s.now = func() time.Time { return now }

	s.Set(1, model.UserSession{State: model.StateAwaitPayDay})
	now = now.Add(30 * 24 * time.Hour)
	assert.Equal(t, model.StateAwaitPayDay, s.Get(1).State)
}
