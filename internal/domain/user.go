package domain

// User Model
type User struct {
	ID            uint   `gorm:"primaryKey" json:"id"`            // Primary key
	Username      string `gorm:"unique;not null" json:"username"` // Unique username, used as recipient display name
	Password      string `gorm:"not null" json:"-"`               // Hashed password
	Role          string `gorm:"default:user" json:"role"`        // Role: user or admin
	GuardianEmail string `json:"guardian_email,omitempty"`        // Optional guardian contact for fraud alerts
	Wallet        Wallet `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"wallet"`
}
