package billing

import (
	"context"
	"testing"

	"github.com/commune-app/commune/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

func TestPaymentMethodsWithoutCustomer(t *testing.T) {
	svc, gw, _ := newTestService(t)

	methods, err := svc.PaymentMethods(context.Background(), alice.UserID)
	require.NoError(t, err)
	assert.Empty(t, methods)
	gw.AssertNotCalled(t, "ListPaymentMethods", mock.Anything, mock.Anything)
}

func TestAttachPaymentMethod(t *testing.T) {
	svc, gw, db := newTestService(t)
	seedUser(t, db, models.User{ID: alice.UserID, StripeCustomerID: strPtr("cus_1")})

	assert.ErrorIs(t, svc.AttachPaymentMethod(context.Background(), alice, ""), ErrPaymentMethodRequired)

	gw.On("AttachPaymentMethod", mock.Anything, "cus_1", "pm_1").Return(nil).Once()
	require.NoError(t, svc.AttachPaymentMethod(context.Background(), alice, "pm_1"))
	gw.AssertExpectations(t)
}

func TestDetachPaymentMethodChecksOwnership(t *testing.T) {
	svc, gw, db := newTestService(t)
	ctx := context.Background()
	seedUser(t, db, models.User{ID: alice.UserID, StripeCustomerID: strPtr("cus_1")})

	gw.On("GetPaymentMethod", mock.Anything, "pm_foreign").
		Return(&stripe.PaymentMethod{ID: "pm_foreign", Customer: &stripe.Customer{ID: "cus_other"}}, nil).Once()
	err := svc.DetachPaymentMethod(ctx, alice.UserID, "pm_foreign")
	assert.ErrorIs(t, err, ErrPaymentMethodNotOwned)

	gw.On("GetPaymentMethod", mock.Anything, "pm_own").
		Return(&stripe.PaymentMethod{ID: "pm_own", Customer: &stripe.Customer{ID: "cus_1"}}, nil).Once()
	gw.On("DetachPaymentMethod", mock.Anything, "pm_own").Return(nil).Once()
	require.NoError(t, svc.DetachPaymentMethod(ctx, alice.UserID, "pm_own"))

	gw.AssertNotCalled(t, "DetachPaymentMethod", mock.Anything, "pm_foreign")
}

func TestCreateSetupIntent(t *testing.T) {
	svc, gw, db := newTestService(t)
	seedUser(t, db, models.User{ID: alice.UserID, StripeCustomerID: strPtr("cus_1")})

	gw.On("CreateSetupIntent", mock.Anything, "cus_1").Return(&stripe.SetupIntent{ClientSecret: "seti_secret"}, nil).Once()

	secret, err := svc.CreateSetupIntent(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, "seti_secret", secret)
}

func TestInvoiceHistory(t *testing.T) {
	svc, gw, db := newTestService(t)
	seedUser(t, db, models.User{ID: alice.UserID, StripeCustomerID: strPtr("cus_1")})

	gw.On("ListInvoices", mock.Anything, "cus_1", invoiceHistoryLimit).Return([]*stripe.Invoice{{
		ID:         "in_1",
		AmountPaid: 1999,
		Currency:   "gbp",
		Status:     stripe.InvoiceStatusPaid,
		Created:    1735689600,
		InvoicePDF: "https://files.example/in_1.pdf",
	}}, nil).Once()

	invoices, err := svc.InvoiceHistory(context.Background(), alice.UserID)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.InDelta(t, 19.99, invoices[0].Amount, 0.0001)
	assert.Equal(t, "paid", invoices[0].Status)
	assert.Equal(t, "2025-01-01T00:00:00Z", invoices[0].Date)
}
