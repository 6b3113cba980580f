package billing

import (
	"strings"
	"time"

	"github.com/commune-app/commune/app/models"
	"github.com/stripe/stripe-go/v82"
)

func normalizeStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "" {
		return models.SubscriptionStatusIncomplete
	}
	return s
}

// formatInterval renders a recurring interval for display.
func formatInterval(interval string) string {
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case "day":
		return "daily"
	case "week":
		return "weekly"
	case "month":
		return "monthly"
	case "year":
		return "yearly"
	default:
		return "one-time"
	}
}

func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

func firstItem(sub *stripe.Subscription) *stripe.SubscriptionItem {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil
	}
	return sub.Items.Data[0]
}

// snapshotFromSubscription extracts the mirrored columns. Period bounds
// live on subscription items.
func snapshotFromSubscription(sub *stripe.Subscription) SubscriptionSnapshot {
	snap := SubscriptionSnapshot{
		ID:                sub.ID,
		Status:            normalizeStatus(string(sub.Status)),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if item := firstItem(sub); item != nil {
		if item.Price != nil {
			snap.PriceID = item.Price.ID
		}
		snap.CurrentPeriodEnd = unixTime(item.CurrentPeriodEnd)
	}
	return snap
}

func resultFromSubscription(sub *stripe.Subscription, updated bool) *SubscriptionResult {
	snap := snapshotFromSubscription(sub)
	res := &SubscriptionResult{
		SubscriptionID:    snap.ID,
		Status:            snap.Status,
		PriceID:           snap.PriceID,
		CancelAtPeriodEnd: snap.CancelAtPeriodEnd,
		CurrentPeriodEnd:  snap.CurrentPeriodEnd,
		Updated:           updated,
	}
	if inv := sub.LatestInvoice; inv != nil && inv.ConfirmationSecret != nil {
		res.ClientSecret = inv.ConfirmationSecret.ClientSecret
	}
	return res
}

func cardSummary(pm *stripe.PaymentMethod) *CardSummary {
	if pm == nil {
		return nil
	}
	out := &CardSummary{ID: pm.ID}
	if pm.Card != nil {
		out.Brand = string(pm.Card.Brand)
		out.Last4 = pm.Card.Last4
		out.ExpMonth = pm.Card.ExpMonth
		out.ExpYear = pm.Card.ExpYear
	}
	return out
}
