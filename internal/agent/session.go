package agent

import (
	"sync"
	"time"

	"finassist/internal/llm"

	"github.com/google/uuid"
)

// Session is the explicit per-conversation state: identity plus chat
// history. It is passed by handle, never held as ambient package state.
type Session struct {
	ID       string
	UserID   uint
	History  []llm.Message
	lastSeen time.Time

	mu sync.Mutex // Serializes turns within one session
}

// DefaultSessionTTL is how long an idle session survives.
const DefaultSessionTTL = 30 * time.Minute

// SessionStore owns session lifecycle. Idle sessions expire lazily after
// the TTL on the next access; there is no background sweeper.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session
	now      func() time.Time
}

// NewSessionStore builds a store with the given idle TTL.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		ttl:      ttl,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// GetOrCreate returns the live session with the given id for the user, or a
// fresh one when the id is empty, unknown, expired, or owned by someone else.
func (s *SessionStore) GetOrCreate(id string, userID uint) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			if s.now().Sub(sess.lastSeen) > s.ttl || sess.UserID != userID {
				delete(s.sessions, id)
			} else {
				sess.lastSeen = s.now()
				return sess
			}
		}
	}
	sess := &Session{
		ID:       uuid.NewString(),
		UserID:   userID,
		lastSeen: s.now(),
	}
	s.sessions[sess.ID] = sess
	return sess
}
