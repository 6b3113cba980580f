package controllers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/commune-app/commune/app/models"
	"github.com/commune-app/commune/app/repository"
	"github.com/commune-app/commune/internal/pkg/billing"
	"github.com/commune-app/commune/internal/pkg/identity"
	"github.com/commune-app/commune/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"
)

func newBillingApp(t *testing.T, svc BillingService, users UserLookup, uc usercontext.UserContext) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	bc := NewBillingController(svc, users, repository.NewAuditRepository(db))

	app := fiber.New()
	api := app.Group("/api", asUser(uc))
	api.Get("/subscription", bc.HandleGetSubscription)
	api.Post("/subscription", bc.HandleSubscriptionAction)
	api.Post("/billing/subscription", bc.HandleCreateBillingSubscription)
	api.Delete("/billing/subscription", bc.HandleCancelBillingSubscription)
	api.Delete("/billing/payment-methods", bc.HandleDetachPaymentMethod)
	api.Get("/billing/prices", bc.HandleListPrices)
	api.Post("/billing/setup-intent", bc.HandleCreateSetupIntent)
	api.Get("/stripe/connect", bc.HandleConnectOnboarding)
	api.Post("/stripe/connect", bc.HandleConnectRefresh)
	return app, db
}

func TestSubscriptionActionValidation(t *testing.T) {
	svc := new(MockBillingService)
	app, _ := newBillingApp(t, svc, nil, ada())

	resp, body := doRequest(t, app, fiber.MethodPost, "/api/subscription", fiber.Map{"action": "upgrade"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid action", body["error"])

	resp, body = doRequest(t, app, fiber.MethodPost, "/api/subscription", fiber.Map{"action": "create"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Price ID is required", body["error"])

	svc.AssertExpectations(t)
}

func TestGetSubscriptionStatus(t *testing.T) {
	svc := new(MockBillingService)
	svc.On("SubscriptionStatus", mock.Anything, "user_1").
		Return(&billing.SubscriptionStatus{Status: models.SubscriptionStatusInactive}, nil)
	app, _ := newBillingApp(t, svc, nil, ada())

	resp, body := doRequest(t, app, fiber.MethodGet, "/api/subscription", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "inactive", body["status"])
	assert.Nil(t, body["priceId"])
	svc.AssertExpectations(t)
}

func TestCreateSubscriptionRecordsAudit(t *testing.T) {
	svc := new(MockBillingService)
	who := billing.Identity{UserID: "user_1", Email: "ada@example.com", Name: "Ada"}
	svc.On("CreateSubscription", mock.Anything, who, "price_1").Return(&billing.SubscriptionResult{
		SubscriptionID: "sub_1",
		Status:         "incomplete",
		PriceID:        "price_1",
		ClientSecret:   "pi_1_secret",
	}, nil)
	app, db := newBillingApp(t, svc, nil, ada())

	resp, body := doRequest(t, app, fiber.MethodPost, "/api/billing/subscription", fiber.Map{"priceId": " price_1 "})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "pi_1_secret", body["clientSecret"])
	sub, ok := body["subscription"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sub_1", sub["subscriptionId"])

	assert.Equal(t, []string{models.AuditActionSubscriptionCreated}, auditActions(t, db))
	svc.AssertExpectations(t)
}

func TestLegacyCancelAction(t *testing.T) {
	svc := new(MockBillingService)
	svc.On("CancelSubscription", mock.Anything, "user_1").Return(&billing.SubscriptionResult{
		SubscriptionID:    "sub_1",
		Status:            "active",
		CancelAtPeriodEnd: true,
	}, nil)
	app, db := newBillingApp(t, svc, nil, ada())

	resp, body := doRequest(t, app, fiber.MethodPost, "/api/subscription", fiber.Map{"action": "cancel"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "active", body["status"])
	assert.Contains(t, body["message"], "end of the billing period")
	assert.Equal(t, []string{models.AuditActionSubscriptionCanceled}, auditActions(t, db))
}

func TestCancelWithoutSubscription(t *testing.T) {
	svc := new(MockBillingService)
	svc.On("CancelSubscription", mock.Anything, "user_1").
		Return(nil, fmt.Errorf("cancel: %w", billing.ErrNoSubscription))
	app, db := newBillingApp(t, svc, nil, ada())

	resp, body := doRequest(t, app, fiber.MethodDelete, "/api/billing/subscription", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No active subscription found", body["error"])
	assert.Empty(t, auditActions(t, db))
}

func TestReactivateWithoutCustomer(t *testing.T) {
	svc := new(MockBillingService)
	svc.On("ReactivateSubscription", mock.Anything, "user_1").Return(nil, billing.ErrNoCustomer)
	app, db := newBillingApp(t, svc, nil, ada())

	resp, body := doRequest(t, app, fiber.MethodPost, "/api/subscription", fiber.Map{"action": "reactivate"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No billing customer found", body["error"])
	assert.Empty(t, auditActions(t, db))
}

func TestSubscriptionBusy(t *testing.T) {
	svc := new(MockBillingService)
	svc.On("CreateSubscription", mock.Anything, mock.Anything, "price_1").Return(nil, billing.ErrSubscriptionBusy)
	app, _ := newBillingApp(t, svc, nil, ada())

	resp, _ := doRequest(t, app, fiber.MethodPost, "/api/subscription", fiber.Map{"action": "create", "priceId": "price_1"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestDetachPaymentMethod(t *testing.T) {
	svc := new(MockBillingService)
	svc.On("DetachPaymentMethod", mock.Anything, "user_1", "pm_1").Return(nil)
	svc.On("DetachPaymentMethod", mock.Anything, "user_1", "pm_other").Return(billing.ErrPaymentMethodNotOwned)
	app, db := newBillingApp(t, svc, nil, ada())

	resp, body := doRequest(t, app, fiber.MethodDelete, "/api/billing/payment-methods?paymentMethodId=pm_1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	resp, _ = doRequest(t, app, fiber.MethodDelete, "/api/billing/payment-methods", fiber.Map{"paymentMethodId": "pm_other"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, body = doRequest(t, app, fiber.MethodDelete, "/api/billing/payment-methods", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Payment method ID is required", body["error"])

	assert.Equal(t, []string{models.AuditActionPaymentMethodRemoved}, auditActions(t, db))
	svc.AssertExpectations(t)
}

func TestIdentityFilledFromProvider(t *testing.T) {
	users := stubLookup{
		"user_2": {
			ID:                    "user_2",
			FirstName:             ptr("Bo"),
			LastName:              ptr("Diddley"),
			PrimaryEmailAddressID: ptr("em_2"),
			EmailAddresses: []identity.EmailAddress{
				{ID: "em_1", EmailAddress: "old@example.com"},
				{ID: "em_2", EmailAddress: "bo@example.com"},
			},
		},
	}
	svc := new(MockBillingService)
	svc.On("CreateSetupIntent", mock.Anything, billing.Identity{
		UserID: "user_2",
		Email:  "bo@example.com",
		Name:   "Bo Diddley",
	}).Return("seti_secret", nil)
	app, _ := newBillingApp(t, svc, users, usercontext.UserContext{UserID: "user_2"})

	resp, body := doRequest(t, app, fiber.MethodPost, "/api/billing/setup-intent", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "seti_secret", body["clientSecret"])
	svc.AssertExpectations(t)
}

func TestConnectEndpoints(t *testing.T) {
	svc := new(MockBillingService)
	svc.On("StartConnectOnboarding", mock.Anything, mock.Anything).Return("https://connect.example/onboard", nil)
	svc.On("RefreshConnectLink", mock.Anything, "user_1").Return("", billing.ErrNoConnectAccount)
	app, db := newBillingApp(t, svc, nil, ada())

	resp, body := doRequest(t, app, fiber.MethodGet, "/api/stripe/connect", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://connect.example/onboard", body["url"])

	resp, body = doRequest(t, app, fiber.MethodPost, "/api/stripe/connect", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "No Stripe Connect account found", body["error"])

	assert.Equal(t, []string{models.AuditActionConnectOnboarding}, auditActions(t, db))
}

func TestPricesNotConfigured(t *testing.T) {
	svc := new(MockBillingService)
	svc.On("SyncPrices", mock.Anything).Return(nil, billing.ErrCatalogNotConfigured)
	app, _ := newBillingApp(t, svc, nil, ada())

	resp, body := doRequest(t, app, fiber.MethodGet, "/api/billing/prices", nil)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Payment service configuration error", body["error"])
	assert.NotEmpty(t, body["details"])
}

func TestBillingErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"not configured", billing.ErrNotConfigured, fiber.StatusInternalServerError, "Payment service configuration error"},
		{"no user", billing.ErrUserRequired, fiber.StatusUnauthorized, "Unauthorized"},
		{"no customer", billing.ErrNoCustomer, fiber.StatusBadRequest, "No billing customer found"},
		{"wrapped no subscription", fmt.Errorf("reactivate: %w", billing.ErrNoSubscription), fiber.StatusBadRequest, "No active subscription found"},
		{"busy", billing.ErrSubscriptionBusy, fiber.StatusConflict, "A subscription change is already in progress"},
		{
			"card declined",
			fmt.Errorf("create: %w", &stripe.Error{Type: stripe.ErrorTypeCard, Msg: "Your card was declined."}),
			fiber.StatusPaymentRequired,
			"Your card was declined.",
		},
		{
			"invalid request",
			&stripe.Error{Type: stripe.ErrorTypeInvalidRequest, Msg: "No such price: 'price_x'"},
			fiber.StatusBadRequest,
			"No such price: 'price_x'",
		},
		{
			"provider outage",
			&stripe.Error{Type: stripe.ErrorTypeAPI, Msg: "Something went wrong"},
			fiber.StatusInternalServerError,
			"Something went wrong",
		},
		{"unknown", errors.New("boom"), fiber.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := billingErrorStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.msg, body["error"])
		})
	}
}
