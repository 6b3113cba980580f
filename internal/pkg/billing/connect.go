package billing

import (
	"context"
	"fmt"

	"github.com/commune-app/commune/app/models"
	"github.com/stripe/stripe-go/v82"
)

func (s *Service) onboardingURL() string {
	return s.cfg.PublicURL + "/dashboard/settings?tab=billing"
}

// StartConnectOnboarding creates the caller's express account on first use
// and returns an onboarding link for it.
func (s *Service) StartConnectOnboarding(ctx context.Context, who Identity) (string, error) {
	if err := s.requireGateway(); err != nil {
		return "", err
	}
	if _, err := s.repo.GetOrCreateUser(ctx, who.UserID); err != nil {
		return "", err
	}

	existing, err := s.repo.GetConnectByUser(ctx, who.UserID)
	if err != nil && !isNotFound(err) {
		return "", err
	}
	accountID := ""
	if existing != nil {
		accountID = existing.AccountID
	} else {
		account, err := s.gateway.CreateConnectAccount(ctx, who.Email, s.cfg.ConnectCountry)
		if err != nil {
			return "", fmt.Errorf("create connect account: %w", err)
		}
		row := &models.StripeConnect{
			AccountID:        account.ID,
			UserID:           who.UserID,
			ChargesEnabled:   account.ChargesEnabled,
			PayoutsEnabled:   account.PayoutsEnabled,
			DetailsSubmitted: account.DetailsSubmitted,
		}
		if err := s.repo.CreateConnect(ctx, row); err != nil {
			return "", err
		}
		accountID = account.ID
	}

	return s.accountLink(ctx, accountID)
}

// RefreshConnectLink issues a new onboarding link for the stored account.
func (s *Service) RefreshConnectLink(ctx context.Context, userID string) (string, error) {
	row, err := s.repo.GetConnectByUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return "", ErrNoConnectAccount
		}
		return "", err
	}
	if err := s.requireGateway(); err != nil {
		return "", err
	}
	return s.accountLink(ctx, row.AccountID)
}

// ConnectStatus refreshes and returns the onboarding flags.
func (s *Service) ConnectStatus(ctx context.Context, userID string) (*ConnectStatus, error) {
	row, err := s.repo.GetConnectByUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNoConnectAccount
		}
		return nil, err
	}
	status := &ConnectStatus{
		AccountID: row.AccountID,
		ConnectFlags: ConnectFlags{
			ChargesEnabled:   row.ChargesEnabled,
			PayoutsEnabled:   row.PayoutsEnabled,
			DetailsSubmitted: row.DetailsSubmitted,
		},
	}
	if s.gateway == nil {
		return status, nil
	}

	account, err := s.gateway.GetAccount(ctx, row.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load connect account: %w", err)
	}
	status.ConnectFlags = accountFlags(account)
	if _, err := s.repo.UpdateConnectFlags(ctx, row.AccountID, status.ConnectFlags); err != nil {
		return nil, err
	}
	return status, nil
}

func (s *Service) accountLink(ctx context.Context, accountID string) (string, error) {
	link, err := s.gateway.CreateAccountLink(ctx, accountID, s.onboardingURL(), s.onboardingURL())
	if err != nil {
		return "", fmt.Errorf("create account link: %w", err)
	}
	return link.URL, nil
}

func accountFlags(a *stripe.Account) ConnectFlags {
	return ConnectFlags{
		ChargesEnabled:   a.ChargesEnabled,
		PayoutsEnabled:   a.PayoutsEnabled,
		DetailsSubmitted: a.DetailsSubmitted,
	}
}
