package models

import (
	"strings"
	"time"
)

const (
	RoleAdmin   = "admin"
	RolePremium = "premium"
	RoleMember  = "member"
)

// User is the local billing record for an identity-provider user. The ID is
// the provider's user id; profile data stays with the identity provider.
type User struct {
	ID                   string     `gorm:"primaryKey;type:varchar(191)" json:"id"`
	StripeCustomerID     *string    `gorm:"type:varchar(191);uniqueIndex" json:"stripe_customer_id,omitempty"`
	SubscriptionID       *string    `gorm:"type:varchar(191);index" json:"subscription_id,omitempty"`
	SubscriptionStatus   string     `gorm:"type:varchar(32);not null;default:''" json:"subscription_status"`
	PriceID              *string    `gorm:"type:varchar(191)" json:"price_id,omitempty"`
	CancelAtPeriodEnd    bool       `gorm:"default:false" json:"cancel_at_period_end"`
	CurrentPeriodEnd     *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	SubscriptionEventAt  *time.Time `gorm:"precision:6;default:null" json:"-"`
	SubscriptionSyncedAt *time.Time `gorm:"precision:6;default:null" json:"-"`
	StripeConnectID      *string    `gorm:"type:varchar(191);uniqueIndex" json:"stripe_connect_id,omitempty"`
	Role                 string     `gorm:"type:varchar(20);not null;default:'member';index" json:"role"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// HasCustomer reports whether a payment-provider customer is linked.
func (u *User) HasCustomer() bool {
	return u != nil && u.StripeCustomerID != nil && *u.StripeCustomerID != ""
}

// HasSubscription reports whether a provider subscription id is stored.
func (u *User) HasSubscription() bool {
	return u != nil && u.SubscriptionID != nil && *u.SubscriptionID != ""
}

func (u *User) CustomerID() string {
	if !u.HasCustomer() {
		return ""
	}
	return *u.StripeCustomerID
}

func (u *User) SubscriptionRef() string {
	if !u.HasSubscription() {
		return ""
	}
	return *u.SubscriptionID
}

func (u *User) PriceRef() string {
	if u == nil || u.PriceID == nil {
		return ""
	}
	return *u.PriceID
}

// IsValidRole reports whether role is one of the assignable roles.
func IsValidRole(role string) bool {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleAdmin, RolePremium, RoleMember:
		return true
	default:
		return false
	}
}

// NormalizeRole maps empty or unknown roles to member.
func NormalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if IsValidRole(r) {
		return r
	}
	return RoleMember
}
