package billing

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// PaymentMethods lists the caller's saved cards; none without a customer.
func (s *Service) PaymentMethods(ctx context.Context, userID string) ([]CardSummary, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return []CardSummary{}, nil
		}
		return nil, err
	}
	if !user.HasCustomer() {
		return []CardSummary{}, nil
	}
	if err := s.requireGateway(); err != nil {
		return nil, err
	}

	methods, err := s.gateway.ListPaymentMethods(ctx, user.CustomerID())
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	out := make([]CardSummary, 0, len(methods))
	for _, pm := range methods {
		out = append(out, *cardSummary(pm))
	}
	return out, nil
}

// AttachPaymentMethod saves a card and makes it the invoice default.
func (s *Service) AttachPaymentMethod(ctx context.Context, who Identity, paymentMethodID string) error {
	paymentMethodID = strings.TrimSpace(paymentMethodID)
	if paymentMethodID == "" {
		return ErrPaymentMethodRequired
	}
	user, err := s.EnsureCustomer(ctx, who)
	if err != nil {
		return err
	}
	if err := s.gateway.AttachPaymentMethod(ctx, user.CustomerID(), paymentMethodID); err != nil {
		return fmt.Errorf("attach payment method: %w", err)
	}
	return nil
}

// DetachPaymentMethod removes a card, refusing cards of other customers.
func (s *Service) DetachPaymentMethod(ctx context.Context, userID, paymentMethodID string) error {
	paymentMethodID = strings.TrimSpace(paymentMethodID)
	if paymentMethodID == "" {
		return ErrPaymentMethodRequired
	}
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return ErrNoCustomer
		}
		return err
	}
	if !user.HasCustomer() {
		return ErrNoCustomer
	}
	if err := s.requireGateway(); err != nil {
		return err
	}

	pm, err := s.gateway.GetPaymentMethod(ctx, paymentMethodID)
	if err != nil {
		return fmt.Errorf("load payment method: %w", err)
	}
	if pm.Customer == nil || pm.Customer.ID != user.CustomerID() {
		return ErrPaymentMethodNotOwned
	}
	if err := s.gateway.DetachPaymentMethod(ctx, paymentMethodID); err != nil {
		return fmt.Errorf("detach payment method: %w", err)
	}
	return nil
}

// CreateSetupIntent starts an off-session card setup and returns its
// client secret.
func (s *Service) CreateSetupIntent(ctx context.Context, who Identity) (string, error) {
	user, err := s.EnsureCustomer(ctx, who)
	if err != nil {
		return "", err
	}
	intent, err := s.gateway.CreateSetupIntent(ctx, user.CustomerID())
	if err != nil {
		return "", fmt.Errorf("create setup intent: %w", err)
	}
	return intent.ClientSecret, nil
}

// InvoiceHistory returns the most recent invoices in major units.
func (s *Service) InvoiceHistory(ctx context.Context, userID string) ([]Invoice, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return []Invoice{}, nil
		}
		return nil, err
	}
	if !user.HasCustomer() {
		return []Invoice{}, nil
	}
	if err := s.requireGateway(); err != nil {
		return nil, err
	}

	invoices, err := s.gateway.ListInvoices(ctx, user.CustomerID(), invoiceHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	out := make([]Invoice, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, Invoice{
			ID:       inv.ID,
			Number:   inv.Number,
			Amount:   MajorUnits(inv.AmountPaid, string(inv.Currency)),
			Currency: string(inv.Currency),
			Status:   string(inv.Status),
			Date:     time.Unix(inv.Created, 0).UTC().Format(time.RFC3339),
			PDF:      inv.InvoicePDF,
			URL:      inv.HostedInvoiceURL,
		})
	}
	return out, nil
}
