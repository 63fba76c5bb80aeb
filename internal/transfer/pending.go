package transfer

import (
	"sync"
	"time"

	"finassist/internal/fraud"
)

// Pending is a staged, not-yet-committed transfer awaiting confirmation.
// It lives only for the lifetime of a conversation session.
type Pending struct {
	Token         string           // Generated transfer token
	SenderID      uint             // Sender user id
	RecipientID   uint             // Recipient user id
	Amount        float64          // Positive transfer amount
	Description   string           // Free-text memo
	SenderName    string           // Denormalized at staging time
	RecipientName string           // Denormalized at staging time
	SenderBalance float64          // Sender balance snapshot at staging time
	Assessment    *fraud.Assessment // Fraud result captured at staging time
	StagedAt      time.Time        // When the transfer was staged
}

// pendingStore holds at most one pending transfer per session, in memory.
// Staged transfers expire lazily after the TTL; there is no sweeper.
type pendingStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]*Pending
	locks   map[string]*sync.Mutex
	now     func() time.Time
}

func newPendingStore(ttl time.Duration) *pendingStore {
	return &pendingStore{
		ttl:     ttl,
		entries: make(map[string]*Pending),
		locks:   make(map[string]*sync.Mutex),
		now:     time.Now,
	}
}

// sessionLock returns the mutex serializing stage/confirm for one session.
// Concurrent confirms for the same session race on the same slot and must
// not double-commit.
func (s *pendingStore) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

// put stages a transfer, implicitly discarding any prior unconfirmed one.
func (s *pendingStore) put(sessionID string, p *Pending) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionID] = p
}

// take removes and returns the pending transfer for a session. Expired
// entries are treated as absent.
func (s *pendingStore) take(sessionID string) *Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.entries[sessionID]
	if !ok {
		return nil
	}
	delete(s.entries, sessionID)
	if s.ttl > 0 && s.now().Sub(p.StagedAt) > s.ttl {
		return nil // Stale stage, already discarded above
	}
	return p
}
