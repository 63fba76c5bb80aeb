package ledger

import (
	"context"
	"errors"
	"strings"

	"finassist/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

// GormStore implements Store on top of GORM/MySQL.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps a GORM handle in a Store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// GetWallet returns the wallet for a user, or nil when none exists.
func (s *GormStore) GetWallet(ctx context.Context, userID uint) (*domain.Wallet, error) {
	var wallet domain.Wallet
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Missing wallet is not an error
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// TransferFunds commits both balance updates and both ledger rows in one
// database transaction. The updates are relative, so the live row values
// decide the outcome regardless of what the caller read earlier; the debit
// is guarded so a drifted balance fails the whole transaction.
func (s *GormStore) TransferFunds(ctx context.Context, senderID, recipientID uint, amount float64, outgoing, incoming *domain.Transaction) (float64, error) {
	var newBalance float64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Wallet{}).
			Where("user_id = ? AND debit_balance >= ?", senderID, amount).
			Update("debit_balance", gorm.Expr("debit_balance - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientFunds // Missing wallet or not enough funds
		}
		res = tx.Model(&domain.Wallet{}).
			Where("user_id = ?", recipientID).
			Update("debit_balance", gorm.Expr("debit_balance + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound // No recipient wallet to credit
		}
		if err := tx.Create(outgoing).Error; err != nil {
			return err
		}
		if err := tx.Create(incoming).Error; err != nil {
			return err
		}
		// Read the post-debit balance inside the same transaction.
		var wallet domain.Wallet
		if err := tx.Where("user_id = ?", senderID).First(&wallet).Error; err != nil {
			return err
		}
		newBalance = wallet.DebitBalance
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// GetTransaction returns a single row by id, or nil when none exists.
func (s *GormStore) GetTransaction(ctx context.Context, id uint) (*domain.Transaction, error) {
	var t domain.Transaction
	err := s.db.WithContext(ctx).First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// QueryTransactions returns rows matching the filter, newest first.
func (s *GormStore) QueryTransactions(ctx context.Context, f Filter) ([]domain.Transaction, error) {
	query := s.db.WithContext(ctx).Model(&domain.Transaction{}) // Start building the query
	if f.UserID != 0 {
		query = query.Where("user_id = ?", f.UserID) // Filter by owner
	}
	if f.Recipient != "" {
		query = query.Where("recipient = ?", f.Recipient) // Filter by counterpart
	}
	if !f.Since.IsZero() {
		query = query.Where("created_at >= ?", f.Since) // Filter by start date
	}
	if f.Category != "" {
		query = query.Where("category = ?", f.Category) // Filter by category
	}
	if f.Outgoing {
		query = query.Where("amount < 0") // Outgoing rows only
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}
	var txs []domain.Transaction
	if err := query.Order("created_at desc").Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

// GetUser returns a user by id, or nil when none exists.
func (s *GormStore) GetUser(ctx context.Context, userID uint) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUsersByName returns users whose username contains the fragment.
func (s *GormStore) FindUsersByName(ctx context.Context, fragment string) ([]domain.User, error) {
	var users []domain.User
	pattern := "%" + strings.ToLower(fragment) + "%"
	if err := s.db.WithContext(ctx).Where("username LIKE ?", pattern).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
