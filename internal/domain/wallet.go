package domain

// Wallet Model. One wallet per user, created alongside the user record.
// DebitBalance stays >= 0 after every committed operation.
type Wallet struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	UserID        uint    `gorm:"uniqueIndex" json:"user_id"`                // Foreign key to User
	DebitBalance  float64 `gorm:"not null;default:0" json:"debit_balance"`   // Spendable balance
	CreditBalance float64 `gorm:"not null;default:0" json:"credit_balance"`  // Outstanding credit
	SavingBalance float64 `gorm:"not null;default:0" json:"saving_balance"`  // Savings balance
}
