package ledger

import (
	"context"
	"errors"
	"time"

	"finassist/internal/domain" // Importing domain models
)

// ErrInsufficientFunds is returned by TransferFunds when the sender's
// balance is below the amount at commit time.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Filter narrows a transaction query.
type Filter struct {
	UserID    uint      // Owner of the rows (required)
	Recipient string    // Exact counterpart match, empty = any
	Since     time.Time // Rows created at or after this instant, zero = any
	Category  string    // Exact category match, empty = any
	Outgoing  bool      // Only rows with a negative amount
	Limit     int       // Max rows returned, 0 = no limit
}

// Store is the durable record of wallets and the append-only transaction log.
// The orchestrator and the fraud heuristic only ever see this interface.
type Store interface {
	// GetWallet returns the wallet for a user, or nil when none exists.
	GetWallet(ctx context.Context, userID uint) (*domain.Wallet, error)
	// TransferFunds moves amount from sender to recipient and appends both
	// ledger rows in one atomic transaction, filling the row IDs. The debit
	// is guarded by the sender's live balance: concurrent commits against
	// the same wallet cannot overdraw it or lose an update. Returns the
	// sender's post-commit balance; on any error nothing is applied.
	TransferFunds(ctx context.Context, senderID, recipientID uint, amount float64, outgoing, incoming *domain.Transaction) (float64, error)
	// GetTransaction returns a single row by id, or nil when none exists.
	GetTransaction(ctx context.Context, id uint) (*domain.Transaction, error)
	// QueryTransactions returns rows matching the filter, newest first.
	QueryTransactions(ctx context.Context, f Filter) ([]domain.Transaction, error)
	// GetUser returns a user by id, or nil when none exists.
	GetUser(ctx context.Context, userID uint) (*domain.User, error)
	// FindUsersByName returns users whose username contains the fragment.
	FindUsersByName(ctx context.Context, fragment string) ([]domain.User, error)
}
