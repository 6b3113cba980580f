package billing

import "time"

// Identity is what billing needs to know about the caller.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// SubscriptionSnapshot is the subset of provider subscription state that
// is mirrored onto the user row.
type SubscriptionSnapshot struct {
	ID                string
	Status            string
	PriceID           string
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  *time.Time
}

// SubscriptionResult is returned by create and plan-change calls.
type SubscriptionResult struct {
	SubscriptionID    string     `json:"subscriptionId"`
	Status            string     `json:"status"`
	PriceID           string     `json:"priceId"`
	CancelAtPeriodEnd bool       `json:"cancelAtPeriodEnd"`
	CurrentPeriodEnd  *time.Time `json:"currentPeriodEnd"`
	ClientSecret      string     `json:"clientSecret,omitempty"`
	Updated           bool       `json:"updated"`
}

// SubscriptionStatus is the locally mirrored view of a user's subscription.
type SubscriptionStatus struct {
	Status            string     `json:"status"`
	PriceID           *string    `json:"priceId"`
	SubscriptionID    *string    `json:"subscriptionId,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancelAtPeriodEnd"`
	CurrentPeriodEnd  *time.Time `json:"currentPeriodEnd,omitempty"`
}

type PriceSummary struct {
	ID                string `json:"id"`
	ProductID         string `json:"productId"`
	Name              string `json:"name"`
	UnitAmount        int64  `json:"unitAmount"`
	Currency          string `json:"currency"`
	Interval          string `json:"interval"`
	FormattedAmount   string `json:"formattedAmount"`
	FormattedInterval string `json:"formattedInterval"`
}

type CardSummary struct {
	ID       string `json:"id"`
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int64  `json:"expMonth"`
	ExpYear  int64  `json:"expYear"`
}

// SubscriptionDetails is the provider-side view with price and card.
type SubscriptionDetails struct {
	ID                string        `json:"id"`
	Status            string        `json:"status"`
	CancelAtPeriodEnd bool          `json:"cancelAtPeriodEnd"`
	CurrentPeriodEnd  *time.Time    `json:"currentPeriodEnd"`
	Price             *PriceSummary `json:"price"`
	PaymentMethod     *CardSummary  `json:"paymentMethod"`
}

type Invoice struct {
	ID       string  `json:"id"`
	Number   string  `json:"number"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Status   string  `json:"status"`
	Date     string  `json:"date"`
	PDF      string  `json:"pdf,omitempty"`
	URL      string  `json:"url,omitempty"`
}

// ConnectFlags are the onboarding capabilities mirrored from the provider.
type ConnectFlags struct {
	ChargesEnabled   bool `json:"chargesEnabled"`
	PayoutsEnabled   bool `json:"payoutsEnabled"`
	DetailsSubmitted bool `json:"detailsSubmitted"`
}

type ConnectStatus struct {
	AccountID string `json:"accountId"`
	ConnectFlags
}
