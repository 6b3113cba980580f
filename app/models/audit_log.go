package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AuditActionRoleChanged          = "user.role_changed"
	AuditActionSubscriptionCreated  = "subscription.created"
	AuditActionSubscriptionCanceled = "subscription.canceled"
	AuditActionSubscriptionResumed  = "subscription.reactivated"
	AuditActionPaymentMethodAdded   = "payment_method.attached"
	AuditActionPaymentMethodRemoved = "payment_method.detached"
	AuditActionConnectOnboarding    = "connect.onboarding_started"
	AuditActionDiscordConnected     = "integration.discord_connected"
)

// AuditLog records privileged or billing-relevant actions.
type AuditLog struct {
	ID        string    `gorm:"primaryKey;type:char(36)" json:"id"`
	Action    string    `gorm:"type:varchar(100);not null;index" json:"action"`
	ActorID   string    `gorm:"type:varchar(191);not null;index" json:"actor_id"`
	TargetID  string    `gorm:"type:varchar(191);index" json:"target_id"`
	Details   string    `gorm:"type:text" json:"details"`
	IPAddress string    `gorm:"type:varchar(64)" json:"ip_address"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}
