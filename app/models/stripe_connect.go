package models

import "time"

// StripeConnect is a user's payout (Express) account.
type StripeConnect struct {
	AccountID        string    `gorm:"primaryKey;type:varchar(191)" json:"account_id"`
	UserID           string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"user_id"`
	ChargesEnabled   bool      `gorm:"default:false" json:"charges_enabled"`
	PayoutsEnabled   bool      `gorm:"default:false" json:"payouts_enabled"`
	DetailsSubmitted bool      `gorm:"default:false" json:"details_submitted"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (StripeConnect) TableName() string {
	return "stripe_connects"
}
