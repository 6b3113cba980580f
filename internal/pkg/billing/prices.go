package billing

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/commune-app/commune/app/models"
	"github.com/stripe/stripe-go/v82"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var currencySymbols = map[string]string{
	"gbp": "£",
	"usd": "$",
	"eur": "€",
}

var displayPrinter = message.NewPrinter(language.BritishEnglish)

// FormatAmount renders minor units in British English notation, e.g.
// 999 gbp -> "£9.99". The number of decimals follows the ISO currency.
func FormatAmount(minor int64, code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	scale := 2
	prefix := strings.ToUpper(code) + " "
	if unit, err := currency.ParseISO(strings.ToUpper(code)); err == nil {
		scale, _ = currency.Standard.Rounding(unit)
		prefix = unit.String() + " "
	}
	if sym, ok := currencySymbols[code]; ok {
		prefix = sym
	}

	major := float64(minor) / math.Pow10(scale)
	return prefix + displayPrinter.Sprintf(fmt.Sprintf("%%.%df", scale), major)
}

// MajorUnits converts minor units to a decimal amount for JSON responses.
func MajorUnits(minor int64, code string) float64 {
	scale := 2
	if unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code))); err == nil {
		scale, _ = currency.Standard.Rounding(unit)
	}
	return float64(minor) / math.Pow10(scale)
}

func priceModel(p *stripe.Price) models.StripePrice {
	m := models.StripePrice{
		ID:         p.ID,
		Active:     p.Active,
		Currency:   strings.ToLower(string(p.Currency)),
		Type:       string(p.Type),
		UnitAmount: p.UnitAmount,
	}
	if m.Type == "" {
		m.Type = string(stripe.PriceTypeRecurring)
	}
	if p.Recurring != nil && p.Recurring.Interval != "" {
		interval := string(p.Recurring.Interval)
		m.Interval = &interval
	}
	if p.Product != nil {
		m.ProductID = p.Product.ID
		m.Name = p.Product.Name
		if p.Product.Description != "" {
			desc := p.Product.Description
			m.Description = &desc
		}
	}
	return m
}

func priceSummary(p models.StripePrice) PriceSummary {
	return PriceSummary{
		ID:                p.ID,
		ProductID:         p.ProductID,
		Name:              p.Name,
		UnitAmount:        p.UnitAmount,
		Currency:          p.Currency,
		Interval:          p.IntervalName(),
		FormattedAmount:   FormatAmount(p.UnitAmount, p.Currency),
		FormattedInterval: formatInterval(p.IntervalName()),
	}
}

// CatalogPrice is a cached price plus its display strings.
type CatalogPrice struct {
	models.StripePrice
	FormattedAmount   string `json:"formattedAmount"`
	FormattedInterval string `json:"formattedInterval"`
}

// SyncPrices mirrors every price of the configured product and currency,
// active or not, then returns the active ones cheapest first.
func (s *Service) SyncPrices(ctx context.Context) ([]CatalogPrice, error) {
	if s.cfg.ProductID == "" {
		return nil, ErrCatalogNotConfigured
	}
	if err := s.requireGateway(); err != nil {
		return nil, err
	}

	remote, err := s.gateway.ListPrices(ctx, s.cfg.ProductID, s.cfg.Currency)
	if err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	for _, p := range remote {
		m := priceModel(p)
		if m.ProductID == "" {
			m.ProductID = s.cfg.ProductID
		}
		if err := s.repo.UpsertPrice(ctx, &m); err != nil {
			return nil, err
		}
	}
	return s.ActivePrices(ctx)
}

// ActivePrices reads the cached catalog without contacting the provider.
func (s *Service) ActivePrices(ctx context.Context) ([]CatalogPrice, error) {
	prices, err := s.repo.ListActivePrices(ctx, s.cfg.ProductID, s.cfg.Currency)
	if err != nil {
		return nil, err
	}
	out := make([]CatalogPrice, 0, len(prices))
	for _, p := range prices {
		out = append(out, CatalogPrice{
			StripePrice:       p,
			FormattedAmount:   FormatAmount(p.UnitAmount, p.Currency),
			FormattedInterval: formatInterval(p.IntervalName()),
		})
	}
	return out, nil
}
