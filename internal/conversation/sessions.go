package conversation

import (
	"sync"
	"time"

	"github.com/cupitman9/family-budget-bot/internal/model"
)

// Sessions keeps the in-progress flow of every user in memory. A session
// older than ttl reads as absent; ttl 0 disables expiry.
type Sessions struct {
	mu       sync.Mutex
	sessions map[int64]model.UserSession
	ttl      time.Duration
	now      func() time.Time
}

func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		sessions: make(map[int64]model.UserSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the user's session, or an idle one.
func (s *Sessions) Get(userID int64) model.UserSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[userID]
	if !ok {
		return model.UserSession{State: model.StateIdle}
	}
	if s.ttl > 0 && s.now().Sub(session.UpdatedAt) > s.ttl {
		delete(s.sessions, userID)
		return model.UserSession{State: model.StateIdle}
	}
	return session
}

// Set stores the session, overwriting any flow already in progress.
func (s *Sessions) Set(userID int64, session model.UserSession) {
	if session.State == model.StateIdle {
		s.Clear(userID)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session.UpdatedAt = s.now()
	s.sessions[userID] = session
}

func (s *Sessions) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}
