package models

import "time"

// StripePrice caches a provider price so plan listings do not hit the API.
type StripePrice struct {
	ID          string    `gorm:"primaryKey;type:varchar(191)" json:"id"`
	ProductID   string    `gorm:"type:varchar(191);not null;index" json:"productId"`
	Active      bool      `gorm:"not null;index" json:"active"`
	Currency    string    `gorm:"type:varchar(8);not null" json:"currency"`
	Type        string    `gorm:"type:varchar(20);not null;default:'recurring'" json:"type"`
	UnitAmount  int64     `gorm:"not null;default:0" json:"unitAmount"`
	Interval    *string   `gorm:"column:billing_interval;type:varchar(16)" json:"interval"`
	Name        string    `gorm:"type:varchar(255);not null;default:''" json:"name"`
	Description *string   `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (StripePrice) TableName() string {
	return "stripe_prices"
}

func (p StripePrice) IntervalName() string {
	if p.Interval == nil {
		return ""
	}
	return *p.Interval
}
