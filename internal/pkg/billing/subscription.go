package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/commune-app/commune/app/models"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// CreateSubscription subscribes the caller to priceID. With a live
// subscription on file the plan is changed in place; otherwise a new
// incomplete subscription is created and its confirmation secret returned.
func (s *Service) CreateSubscription(ctx context.Context, who Identity, priceID string) (*SubscriptionResult, error) {
	priceID = strings.TrimSpace(priceID)
	if priceID == "" {
		return nil, ErrPriceRequired
	}
	if strings.TrimSpace(who.UserID) == "" {
		return nil, ErrUserRequired
	}
	if err := s.requireGateway(); err != nil {
		return nil, err
	}

	release, err := s.lockUser(ctx, who.UserID)
	if err != nil {
		return nil, err
	}
	defer release()

	user, err := s.EnsureCustomer(ctx, who)
	if err != nil {
		return nil, err
	}

	previousID := user.SubscriptionRef()
	if previousID != "" {
		res, handled, err := s.changePlan(ctx, user, priceID)
		if err != nil || handled {
			return res, err
		}
	}

	sub, err := s.gateway.CreateSubscription(ctx, user.CustomerID(), priceID)
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	snap := snapshotFromSubscription(sub)
	if snap.PriceID == "" {
		snap.PriceID = priceID
	}
	linked, err := s.repo.LinkSubscription(ctx, user.ID, previousID, snap)
	if err != nil {
		return nil, err
	}
	if !linked {
		fiberlog.Warnf("[Billing] subscription %s for user %s was linked concurrently, keeping stored state", sub.ID, user.ID)
	}
	return resultFromSubscription(sub, false), nil
}

// changePlan swaps the price on the subscription on file. handled is false
// when that subscription is gone or terminal and a new one must be created.
func (s *Service) changePlan(ctx context.Context, user *models.User, priceID string) (*SubscriptionResult, bool, error) {
	existing, err := s.gateway.GetSubscription(ctx, user.SubscriptionRef())
	if err != nil {
		if isResourceMissing(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load subscription: %w", err)
	}
	item := firstItem(existing)
	if models.IsTerminalSubscriptionStatus(string(existing.Status)) || item == nil {
		return nil, false, nil
	}

	startedAt := s.now()
	updated, err := s.gateway.ChangeSubscriptionPrice(ctx, existing.ID, item.ID, priceID)
	if err != nil {
		return nil, true, fmt.Errorf("change subscription price: %w", err)
	}
	// A change waiting on payment comes back with the old item price and the
	// new one parked in pending_update; the requested price is stored now.
	snap := snapshotFromSubscription(updated)
	snap.PriceID = priceID
	if _, err := s.repo.UpdateLinkedSubscription(ctx, user.ID, snap, startedAt); err != nil {
		return nil, true, err
	}
	res := resultFromSubscription(updated, true)
	res.PriceID = priceID
	return res, true, nil
}

// CancelSubscription schedules cancellation at period end. Access continues
// until the provider deletes the subscription.
func (s *Service) CancelSubscription(ctx context.Context, userID string) (*SubscriptionResult, error) {
	return s.setCancelAtPeriodEnd(ctx, userID, true)
}

// ReactivateSubscription withdraws a scheduled cancellation.
func (s *Service) ReactivateSubscription(ctx context.Context, userID string) (*SubscriptionResult, error) {
	return s.setCancelAtPeriodEnd(ctx, userID, false)
}

func (s *Service) setCancelAtPeriodEnd(ctx context.Context, userID string, cancel bool) (*SubscriptionResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserRequired
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNoCustomer
		}
		return nil, err
	}
	if !user.HasCustomer() {
		return nil, ErrNoCustomer
	}
	if !user.HasSubscription() {
		return nil, ErrNoSubscription
	}
	if err := s.requireGateway(); err != nil {
		return nil, err
	}

	release, err := s.lockUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	startedAt := s.now()
	sub, err := s.gateway.SetCancelAtPeriodEnd(ctx, user.SubscriptionRef(), cancel)
	if err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}
	if _, err := s.repo.UpdateLinkedSubscription(ctx, userID, snapshotFromSubscription(sub), startedAt); err != nil {
		return nil, err
	}
	return resultFromSubscription(sub, true), nil
}
