package billing

import (
	"context"
	"strings"

	"github.com/commune-app/commune/internal/pkg/env"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// StripeGateway implements Gateway on top of the Stripe API client.
type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	return &StripeGateway{api: client.New(secretKey, nil)}
}

// NewStripeGatewayFromEnv returns nil when STRIPE_SECRET_KEY is unset so
// callers surface ErrNotConfigured instead of calling the API unauthenticated.
func NewStripeGatewayFromEnv() Gateway {
	key := strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", ""))
	if key == "" {
		return nil
	}
	return NewStripeGateway(key)
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, who Identity) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if who.Email != "" {
		params.Email = stripe.String(who.Email)
	}
	if who.Name != "" {
		params.Name = stripe.String(who.Name)
	}
	params.AddMetadata("userId", who.UserID)
	// Retries of a lost response reuse the customer instead of creating another.
	params.SetIdempotencyKey("commune-customer-" + who.UserID)
	return g.api.Customers.New(params)
}

func (g *StripeGateway) GetSubscription(ctx context.Context, subscriptionID string, expand ...string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	for _, e := range expand {
		params.AddExpand(e)
	}
	return g.api.Subscriptions.Get(subscriptionID, params)
}

func (g *StripeGateway) CreateSubscription(ctx context.Context, customerID, priceID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
		PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
			PaymentMethodTypes:       stripe.StringSlice([]string{"card"}),
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
	}
	params.Context = ctx
	params.AddExpand("latest_invoice.confirmation_secret")
	return g.api.Subscriptions.New(params)
}

func (g *StripeGateway) ChangeSubscriptionPrice(ctx context.Context, subscriptionID, itemID, priceID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{ID: stripe.String(itemID), Price: stripe.String(priceID)},
		},
		PaymentBehavior:   stripe.String("pending_if_incomplete"),
		ProrationBehavior: stripe.String("create_prorations"),
	}
	params.Context = ctx
	params.AddExpand("latest_invoice.confirmation_secret")
	return g.api.Subscriptions.Update(subscriptionID, params)
}

func (g *StripeGateway) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(cancel),
	}
	if !cancel {
		params.ProrationBehavior = stripe.String("create_prorations")
	}
	params.Context = ctx
	return g.api.Subscriptions.Update(subscriptionID, params)
}

// AttachPaymentMethod attaches the method and makes it the invoice default.
func (g *StripeGateway) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	attach := &stripe.PaymentMethodAttachParams{Customer: stripe.String(customerID)}
	attach.Context = ctx
	if _, err := g.api.PaymentMethods.Attach(paymentMethodID, attach); err != nil {
		return err
	}

	update := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	update.Context = ctx
	_, err := g.api.Customers.Update(customerID, update)
	return err
}

func (g *StripeGateway) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	params := &stripe.PaymentMethodDetachParams{}
	params.Context = ctx
	_, err := g.api.PaymentMethods.Detach(paymentMethodID, params)
	return err
}

func (g *StripeGateway) GetPaymentMethod(ctx context.Context, paymentMethodID string) (*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodParams{}
	params.Context = ctx
	return g.api.PaymentMethods.Get(paymentMethodID, params)
}

func (g *StripeGateway) ListPaymentMethods(ctx context.Context, customerID string) ([]*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
	}
	params.Context = ctx

	var out []*stripe.PaymentMethod
	it := g.api.PaymentMethods.List(params)
	for it.Next() {
		out = append(out, it.PaymentMethod())
	}
	return out, it.Err()
}

func (g *StripeGateway) CreateSetupIntent(ctx context.Context, customerID string) (*stripe.SetupIntent, error) {
	params := &stripe.SetupIntentParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Usage:              stripe.String(string(stripe.SetupIntentUsageOffSession)),
	}
	params.Context = ctx
	return g.api.SetupIntents.New(params)
}

// ListPrices returns every price of the product in the currency, active or
// not, so deactivated prices can be mirrored locally.
func (g *StripeGateway) ListPrices(ctx context.Context, productID, currency string) ([]*stripe.Price, error) {
	params := &stripe.PriceListParams{
		Product:  stripe.String(productID),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	params.AddExpand("data.product")

	var out []*stripe.Price
	it := g.api.Prices.List(params)
	for it.Next() {
		out = append(out, it.Price())
	}
	return out, it.Err()
}

func (g *StripeGateway) ListInvoices(ctx context.Context, customerID string, limit int) ([]*stripe.Invoice, error) {
	params := &stripe.InvoiceListParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(int64(limit))

	out := make([]*stripe.Invoice, 0, limit)
	it := g.api.Invoices.List(params)
	for it.Next() {
		out = append(out, it.Invoice())
		if len(out) >= limit {
			break
		}
	}
	return out, it.Err()
}

func (g *StripeGateway) CreateConnectAccount(ctx context.Context, email, country string) (*stripe.Account, error) {
	params := &stripe.AccountParams{
		Type:    stripe.String(string(stripe.AccountTypeExpress)),
		Country: stripe.String(country),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.Context = ctx
	return g.api.Accounts.New(params)
}

func (g *StripeGateway) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (*stripe.AccountLink, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String(string(stripe.AccountLinkTypeAccountOnboarding)),
	}
	params.Context = ctx
	return g.api.AccountLinks.New(params)
}

func (g *StripeGateway) GetAccount(ctx context.Context, accountID string) (*stripe.Account, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx
	return g.api.Accounts.GetByID(accountID, params)
}
