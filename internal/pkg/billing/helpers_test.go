package billing

import (
	"context"
	"fmt"
	"testing"

	"github.com/commune-app/commune/app/models"
	"github.com/commune-app/commune/internal/pkg/database"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func seedUser(t *testing.T, db *gorm.DB, u models.User) {
	t.Helper()
	if u.Role == "" {
		u.Role = models.RoleMember
	}
	require.NoError(t, db.Create(&u).Error)
}

func loadUser(t *testing.T, db *gorm.DB, id string) *models.User {
	t.Helper()
	var u models.User
	require.NoError(t, db.Where("id = ?", id).First(&u).Error)
	return &u
}

func testSubscription(id, customerID, status, priceID string, cancel bool) *stripe.Subscription {
	return &stripe.Subscription{
		ID:                id,
		Customer:          &stripe.Customer{ID: customerID},
		Status:            stripe.SubscriptionStatus(status),
		CancelAtPeriodEnd: cancel,
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{{
				ID:               "si_" + id,
				Price:            &stripe.Price{ID: priceID},
				CurrentPeriodEnd: 1767225600,
			}},
		},
	}
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateCustomer(ctx context.Context, who Identity) (*stripe.Customer, error) {
	args := m.Called(ctx, who)
	c, _ := args.Get(0).(*stripe.Customer)
	return c, args.Error(1)
}

func (m *mockGateway) GetSubscription(ctx context.Context, subscriptionID string, expand ...string) (*stripe.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	s, _ := args.Get(0).(*stripe.Subscription)
	return s, args.Error(1)
}

func (m *mockGateway) CreateSubscription(ctx context.Context, customerID, priceID string) (*stripe.Subscription, error) {
	args := m.Called(ctx, customerID, priceID)
	s, _ := args.Get(0).(*stripe.Subscription)
	return s, args.Error(1)
}

func (m *mockGateway) ChangeSubscriptionPrice(ctx context.Context, subscriptionID, itemID, priceID string) (*stripe.Subscription, error) {
	args := m.Called(ctx, subscriptionID, itemID, priceID)
	s, _ := args.Get(0).(*stripe.Subscription)
	return s, args.Error(1)
}

func (m *mockGateway) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*stripe.Subscription, error) {
	args := m.Called(ctx, subscriptionID, cancel)
	s, _ := args.Get(0).(*stripe.Subscription)
	return s, args.Error(1)
}

func (m *mockGateway) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	return m.Called(ctx, customerID, paymentMethodID).Error(0)
}

func (m *mockGateway) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	return m.Called(ctx, paymentMethodID).Error(0)
}

func (m *mockGateway) GetPaymentMethod(ctx context.Context, paymentMethodID string) (*stripe.PaymentMethod, error) {
	args := m.Called(ctx, paymentMethodID)
	pm, _ := args.Get(0).(*stripe.PaymentMethod)
	return pm, args.Error(1)
}

func (m *mockGateway) ListPaymentMethods(ctx context.Context, customerID string) ([]*stripe.PaymentMethod, error) {
	args := m.Called(ctx, customerID)
	pms, _ := args.Get(0).([]*stripe.PaymentMethod)
	return pms, args.Error(1)
}

func (m *mockGateway) CreateSetupIntent(ctx context.Context, customerID string) (*stripe.SetupIntent, error) {
	args := m.Called(ctx, customerID)
	si, _ := args.Get(0).(*stripe.SetupIntent)
	return si, args.Error(1)
}

func (m *mockGateway) ListPrices(ctx context.Context, productID, currency string) ([]*stripe.Price, error) {
	args := m.Called(ctx, productID, currency)
	p, _ := args.Get(0).([]*stripe.Price)
	return p, args.Error(1)
}

func (m *mockGateway) ListInvoices(ctx context.Context, customerID string, limit int) ([]*stripe.Invoice, error) {
	args := m.Called(ctx, customerID, limit)
	inv, _ := args.Get(0).([]*stripe.Invoice)
	return inv, args.Error(1)
}

func (m *mockGateway) CreateConnectAccount(ctx context.Context, email, country string) (*stripe.Account, error) {
	args := m.Called(ctx, email, country)
	a, _ := args.Get(0).(*stripe.Account)
	return a, args.Error(1)
}

func (m *mockGateway) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (*stripe.AccountLink, error) {
	args := m.Called(ctx, accountID, refreshURL, returnURL)
	l, _ := args.Get(0).(*stripe.AccountLink)
	return l, args.Error(1)
}

func (m *mockGateway) GetAccount(ctx context.Context, accountID string) (*stripe.Account, error) {
	args := m.Called(ctx, accountID)
	a, _ := args.Get(0).(*stripe.Account)
	return a, args.Error(1)
}

func newTestService(t *testing.T) (*Service, *mockGateway, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	gw := &mockGateway{}
	svc := NewServiceFromDB(db, gw, NewLocalLocker(), Config{
		ProductID: "prod_test",
		Currency:  "gbp",
		PublicURL: "https://commune.example",
	})
	return svc, gw, db
}
