package models

import "strings"

const (
	SubscriptionStatusActive            = "active"
	SubscriptionStatusTrialing          = "trialing"
	SubscriptionStatusPastDue           = "past_due"
	SubscriptionStatusCanceled          = "canceled"
	SubscriptionStatusIncomplete        = "incomplete"
	SubscriptionStatusIncompleteExpired = "incomplete_expired"
	SubscriptionStatusUnpaid            = "unpaid"
	SubscriptionStatusPaused            = "paused"

	// SubscriptionStatusInactive is reported when no subscription is linked.
	SubscriptionStatusInactive = "inactive"
)

// IsTerminalSubscriptionStatus reports statuses a subscription never leaves.
func IsTerminalSubscriptionStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case SubscriptionStatusCanceled, SubscriptionStatusIncompleteExpired:
		return true
	default:
		return false
	}
}

// IsEntitlingSubscriptionStatus reports statuses that grant paid access.
func IsEntitlingSubscriptionStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case SubscriptionStatusActive, SubscriptionStatusTrialing, SubscriptionStatusPastDue:
		return true
	default:
		return false
	}
}
