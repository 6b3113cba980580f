package models

import "time"

// StripeEvent stores each verified webhook delivery exactly once, keyed by
// the provider event id.
type StripeEvent struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	StripeEventID  string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"stripe_event_id"`
	Type           string     `gorm:"type:varchar(100);not null;index" json:"type"`
	ObjectJSON     string     `gorm:"type:longtext;not null" json:"object_json"`
	EventCreatedAt time.Time  `gorm:"type:timestamp;not null" json:"event_created_at"`
	ProcessedAt    *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingNote string     `gorm:"type:text" json:"processing_note"`
	CreatedAt      time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

func (StripeEvent) TableName() string {
	return "stripe_events"
}
