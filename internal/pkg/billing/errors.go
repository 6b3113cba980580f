package billing

import (
	"errors"

	"github.com/stripe/stripe-go/v82"
)

var (
	ErrNotConfigured         = errors.New("payment provider is not configured")
	ErrUserRequired          = errors.New("user id is required")
	ErrNoCustomer            = errors.New("no billing customer on file")
	ErrNoSubscription        = errors.New("no subscription on file")
	ErrPriceRequired         = errors.New("price id is required")
	ErrPaymentMethodRequired = errors.New("payment method id is required")
	ErrPaymentMethodNotOwned = errors.New("payment method does not belong to this customer")
	ErrNoConnectAccount      = errors.New("no connect account on file")
	ErrSubscriptionBusy      = errors.New("another subscription change is in progress")
	ErrWebhookNotConfigured  = errors.New("webhook secret is not configured")
	ErrMissingSignature      = errors.New("missing webhook signature")
	ErrInvalidSignature      = errors.New("invalid webhook signature")
	ErrInvalidEvent          = errors.New("invalid webhook event")
	ErrCatalogNotConfigured  = errors.New("price catalog product is not configured")
)

// ProviderError returns the payment provider error wrapped in err, if any.
func ProviderError(err error) (*stripe.Error, bool) {
	var se *stripe.Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsInvalidRequest reports provider rejections caused by the request itself
// (unknown ids, already canceled subscriptions, declined cards).
func IsInvalidRequest(err error) bool {
	se, ok := ProviderError(err)
	if !ok {
		return false
	}
	return se.Type == stripe.ErrorTypeInvalidRequest || se.Type == stripe.ErrorTypeCard
}

func isResourceMissing(err error) bool {
	se, ok := ProviderError(err)
	return ok && se.Code == stripe.ErrorCodeResourceMissing
}
