// Package ledgertest provides an in-memory Store for unit tests, with
// hooks to inject failures into the commit path.
package ledgertest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"finassist/internal/domain"
	"finassist/internal/ledger"
)

// ErrInjected is returned by injected failures.
var ErrInjected = errors.New("injected store failure")

// Store is an in-memory ledger.Store.
type Store struct {
	mu           sync.Mutex
	users        map[uint]domain.User
	wallets      map[uint]domain.Wallet // keyed by user id
	transactions []domain.Transaction
	nextTxID     uint

	// FailUpdateFor makes TransferFunds fail when the given user id is on
	// either side of the transfer.
	FailUpdateFor uint
	// FailInsertAfter makes the row inserts of TransferFunds fail once n
	// inserts succeeded. Negative means never fail.
	FailInsertAfter int
	inserts         int
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:           make(map[uint]domain.User),
		wallets:         make(map[uint]domain.Wallet),
		nextTxID:        1,
		FailInsertAfter: -1,
	}
}

// AddUser seeds a user with a wallet holding the given balance.
func (s *Store) AddUser(id uint, username string, balance float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = domain.User{ID: id, Username: username}
	s.wallets[id] = domain.Wallet{ID: id, UserID: id, DebitBalance: balance}
}

// AddTransaction seeds a history row.
func (s *Store) AddTransaction(t domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		t.ID = s.nextTxID
		s.nextTxID++
	}
	s.transactions = append(s.transactions, t)
}

// Balance returns the current debit balance for a user.
func (s *Store) Balance(userID uint) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallets[userID].DebitBalance
}

// SetBalance overwrites a user's debit balance, e.g. to simulate drift
// between staging and confirmation.
func (s *Store) SetBalance(userID uint, balance float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.wallets[userID]
	w.DebitBalance = balance
	s.wallets[userID] = w
}

// Transactions returns a copy of all rows.
func (s *Store) Transactions() []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

func (s *Store) GetWallet(_ context.Context, userID uint) (*domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[userID]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

// TransferFunds mirrors the real store's all-or-nothing commit: every
// check and injected failure runs before any mutation, under one lock.
func (s *Store) TransferFunds(_ context.Context, senderID, recipientID uint, amount float64, outgoing, incoming *domain.Transaction) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdateFor != 0 && (s.FailUpdateFor == senderID || s.FailUpdateFor == recipientID) {
		return 0, ErrInjected
	}
	sender, ok := s.wallets[senderID]
	if !ok {
		return 0, errors.New("sender wallet not found")
	}
	if sender.DebitBalance < amount {
		return 0, ledger.ErrInsufficientFunds
	}
	recipient, ok := s.wallets[recipientID]
	if !ok {
		return 0, errors.New("recipient wallet not found")
	}
	// Two rows are about to insert; fail the whole commit if either would.
	if s.FailInsertAfter >= 0 && s.inserts+1 >= s.FailInsertAfter {
		return 0, ErrInjected
	}
	sender.DebitBalance -= amount
	recipient.DebitBalance += amount
	s.wallets[senderID] = sender
	s.wallets[recipientID] = recipient
	for _, t := range []*domain.Transaction{outgoing, incoming} {
		s.inserts++
		t.ID = s.nextTxID
		s.nextTxID++
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now()
		}
		s.transactions = append(s.transactions, *t)
	}
	return sender.DebitBalance, nil
}

func (s *Store) GetTransaction(_ context.Context, id uint) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.transactions {
		if t.ID == id {
			tt := t
			return &tt, nil
		}
	}
	return nil, nil
}

func (s *Store) QueryTransactions(_ context.Context, f ledger.Filter) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Transaction
	// Newest first.
	for i := len(s.transactions) - 1; i >= 0; i-- {
		t := s.transactions[i]
		if f.UserID != 0 && t.UserID != f.UserID {
			continue
		}
		if f.Recipient != "" && t.Recipient != f.Recipient {
			continue
		}
		if !f.Since.IsZero() && t.CreatedAt.Before(f.Since) {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if f.Outgoing && t.Amount >= 0 {
			continue
		}
		out = append(out, t)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) GetUser(_ context.Context, userID uint) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) FindUsersByName(_ context.Context, fragment string) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.User
	needle := strings.ToLower(fragment)
	for _, u := range s.users {
		if strings.Contains(strings.ToLower(u.Username), needle) {
			out = append(out, u)
		}
	}
	return out, nil
}
