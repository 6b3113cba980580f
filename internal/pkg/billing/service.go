package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/commune-app/commune/app/models"
	"github.com/commune-app/commune/internal/pkg/cache"
	"github.com/commune-app/commune/internal/pkg/env"
	"gorm.io/gorm"
)

const (
	subscriptionLockTTL = 30 * time.Second
	invoiceHistoryLimit = 24
)

// Config carries the catalog and onboarding settings.
type Config struct {
	ProductID      string
	Currency       string
	ConnectCountry string
	PublicURL      string
}

func ConfigFromEnv() Config {
	return Config{
		ProductID:      strings.TrimSpace(env.GetEnv("STRIPE_PRICE_PRODUCT_ID", "")),
		Currency:       strings.ToLower(strings.TrimSpace(env.GetEnv("STRIPE_PRICE_CURRENCY", "gbp"))),
		ConnectCountry: strings.ToUpper(strings.TrimSpace(env.GetEnv("STRIPE_CONNECT_COUNTRY", "GB"))),
		PublicURL:      env.PublicURL(),
	}
}

// Service keeps the local user rows in step with the payment provider.
type Service struct {
	repo    Repository
	gateway Gateway
	locker  Locker
	cfg     Config
	now     func() time.Time
}

// NewService wires the service. A nil gateway makes every provider-backed
// operation fail with ErrNotConfigured.
func NewService(repo Repository, gateway Gateway, locker Locker, cfg Config) *Service {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if cfg.Currency == "" {
		cfg.Currency = "gbp"
	}
	if cfg.ConnectCountry == "" {
		cfg.ConnectCountry = "GB"
	}
	return &Service{
		repo:    repo,
		gateway: gateway,
		locker:  locker,
		cfg:     cfg,
		now:     time.Now,
	}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, gateway Gateway, locker Locker, cfg Config) *Service {
	return NewService(NewRepository(db), gateway, locker, cfg)
}

func (s *Service) Configured() bool {
	return s.gateway != nil
}

func (s *Service) requireGateway() error {
	if s.gateway == nil {
		return ErrNotConfigured
	}
	return nil
}

func (s *Service) lockUser(ctx context.Context, userID string) (func(), error) {
	release, err := s.locker.Acquire(ctx, "subscription:"+userID, subscriptionLockTTL)
	if err != nil {
		if errors.Is(err, cache.ErrLockHeld) {
			return nil, ErrSubscriptionBusy
		}
		return nil, fmt.Errorf("acquire subscription lock: %w", err)
	}
	return release, nil
}

// EnsureCustomer returns the caller's row, creating the row and the
// provider customer on first use. The customer id is written once.
func (s *Service) EnsureCustomer(ctx context.Context, who Identity) (*models.User, error) {
	if strings.TrimSpace(who.UserID) == "" {
		return nil, ErrUserRequired
	}
	if err := s.requireGateway(); err != nil {
		return nil, err
	}

	user, err := s.repo.GetOrCreateUser(ctx, who.UserID)
	if err != nil {
		return nil, err
	}
	if user.HasCustomer() {
		return user, nil
	}

	customer, err := s.gateway.CreateCustomer(ctx, who)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	if _, err := s.repo.SetCustomerIDIfEmpty(ctx, who.UserID, customer.ID); err != nil {
		return nil, err
	}
	return s.repo.GetUser(ctx, who.UserID)
}

// SubscriptionStatus reports the mirrored state; users without a
// subscription are inactive.
func (s *Service) SubscriptionStatus(ctx context.Context, userID string) (*SubscriptionStatus, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return &SubscriptionStatus{Status: models.SubscriptionStatusInactive}, nil
		}
		return nil, err
	}
	if !user.HasSubscription() {
		return &SubscriptionStatus{Status: models.SubscriptionStatusInactive}, nil
	}
	return &SubscriptionStatus{
		Status:            normalizeStatus(user.SubscriptionStatus),
		PriceID:           user.PriceID,
		SubscriptionID:    user.SubscriptionID,
		CancelAtPeriodEnd: user.CancelAtPeriodEnd,
		CurrentPeriodEnd:  user.CurrentPeriodEnd,
	}, nil
}

// SubscriptionDetails loads the provider subscription with price and
// default card. It returns nil when nothing is on file.
func (s *Service) SubscriptionDetails(ctx context.Context, userID string) (*SubscriptionDetails, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if !user.HasCustomer() || !user.HasSubscription() {
		return nil, nil
	}
	if err := s.requireGateway(); err != nil {
		return nil, err
	}

	sub, err := s.gateway.GetSubscription(ctx, user.SubscriptionRef(), "default_payment_method", "items.data.price.product")
	if err != nil {
		return nil, err
	}

	snap := snapshotFromSubscription(sub)
	details := &SubscriptionDetails{
		ID:                snap.ID,
		Status:            snap.Status,
		CancelAtPeriodEnd: snap.CancelAtPeriodEnd,
		CurrentPeriodEnd:  snap.CurrentPeriodEnd,
		PaymentMethod:     cardSummary(sub.DefaultPaymentMethod),
	}
	if item := firstItem(sub); item != nil && item.Price != nil {
		summary := priceSummary(priceModel(item.Price))
		details.Price = &summary
	}
	return details, nil
}
