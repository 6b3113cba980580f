package billing

import (
	"context"

	"github.com/stripe/stripe-go/v82"
)

// Gateway is the payment-provider surface the service depends on.
type Gateway interface {
	CreateCustomer(ctx context.Context, who Identity) (*stripe.Customer, error)
	GetSubscription(ctx context.Context, subscriptionID string, expand ...string) (*stripe.Subscription, error)
	CreateSubscription(ctx context.Context, customerID, priceID string) (*stripe.Subscription, error)
	ChangeSubscriptionPrice(ctx context.Context, subscriptionID, itemID, priceID string) (*stripe.Subscription, error)
	SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*stripe.Subscription, error)

	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	DetachPaymentMethod(ctx context.Context, paymentMethodID string) error
	GetPaymentMethod(ctx context.Context, paymentMethodID string) (*stripe.PaymentMethod, error)
	ListPaymentMethods(ctx context.Context, customerID string) ([]*stripe.PaymentMethod, error)
	CreateSetupIntent(ctx context.Context, customerID string) (*stripe.SetupIntent, error)

	ListPrices(ctx context.Context, productID, currency string) ([]*stripe.Price, error)
	ListInvoices(ctx context.Context, customerID string, limit int) ([]*stripe.Invoice, error)

	CreateConnectAccount(ctx context.Context, email, country string) (*stripe.Account, error)
	CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (*stripe.AccountLink, error)
	GetAccount(ctx context.Context, accountID string) (*stripe.Account, error)
}
