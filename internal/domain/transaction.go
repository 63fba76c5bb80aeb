package domain

import "time"

// Transaction Model. Rows are append-only: never updated or deleted.
// Amount is signed, negative means outgoing.
type Transaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"` // Owner of the row
	Amount    float64   `gorm:"not null" json:"amount"`        // Signed amount, negative = outgoing
	Recipient string    `gorm:"index" json:"recipient"`        // Counterpart username or free text
	Category  string    `json:"category"`                      // Spending category
	Note      string    `json:"note"`                          // Free-text memo
	IsFraud   bool      `gorm:"default:false" json:"is_fraud"` // Advisory flag only
	CreatedAt time.Time `gorm:"index" json:"created_at"`       // Timestamp of creation
}

// Direction tags a transaction as income or expense from the owner's view.
func (t Transaction) Direction() string {
	if t.Amount >= 0 {
		return "income"
	}
	return "expense"
}
