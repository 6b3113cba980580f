package controllers

import (
	"context"

	"github.com/commune-app/commune/internal/pkg/billing"
	"github.com/commune-app/commune/internal/pkg/statistics"
	"github.com/stretchr/testify/mock"
)

// MockBillingService is a mock implementation of BillingService.
type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) SubscriptionStatus(ctx context.Context, userID string) (*billing.SubscriptionStatus, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.SubscriptionStatus), args.Error(1)
}

func (m *MockBillingService) SubscriptionDetails(ctx context.Context, userID string) (*billing.SubscriptionDetails, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.SubscriptionDetails), args.Error(1)
}

func (m *MockBillingService) CreateSubscription(ctx context.Context, who billing.Identity, priceID string) (*billing.SubscriptionResult, error) {
	args := m.Called(ctx, who, priceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.SubscriptionResult), args.Error(1)
}

func (m *MockBillingService) CancelSubscription(ctx context.Context, userID string) (*billing.SubscriptionResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.SubscriptionResult), args.Error(1)
}

func (m *MockBillingService) ReactivateSubscription(ctx context.Context, userID string) (*billing.SubscriptionResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.SubscriptionResult), args.Error(1)
}

func (m *MockBillingService) PaymentMethods(ctx context.Context, userID string) ([]billing.CardSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.CardSummary), args.Error(1)
}

func (m *MockBillingService) AttachPaymentMethod(ctx context.Context, who billing.Identity, paymentMethodID string) error {
	args := m.Called(ctx, who, paymentMethodID)
	return args.Error(0)
}

func (m *MockBillingService) DetachPaymentMethod(ctx context.Context, userID, paymentMethodID string) error {
	args := m.Called(ctx, userID, paymentMethodID)
	return args.Error(0)
}

func (m *MockBillingService) CreateSetupIntent(ctx context.Context, who billing.Identity) (string, error) {
	args := m.Called(ctx, who)
	return args.String(0), args.Error(1)
}

func (m *MockBillingService) InvoiceHistory(ctx context.Context, userID string) ([]billing.Invoice, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Invoice), args.Error(1)
}

func (m *MockBillingService) SyncPrices(ctx context.Context) ([]billing.CatalogPrice, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.CatalogPrice), args.Error(1)
}

func (m *MockBillingService) StartConnectOnboarding(ctx context.Context, who billing.Identity) (string, error) {
	args := m.Called(ctx, who)
	return args.String(0), args.Error(1)
}

func (m *MockBillingService) RefreshConnectLink(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockBillingService) ConnectStatus(ctx context.Context, userID string) (*billing.ConnectStatus, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ConnectStatus), args.Error(1)
}

// MockStatsService is a mock implementation of StatsService.
type MockStatsService struct {
	mock.Mock
}

func (m *MockStatsService) Overview(ctx context.Context) (*statistics.Overview, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*statistics.Overview), args.Error(1)
}

func (m *MockStatsService) Analytics(ctx context.Context) (*statistics.Analytics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*statistics.Analytics), args.Error(1)
}
