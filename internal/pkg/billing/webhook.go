package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/commune-app/commune/app/models"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// VerifyFunc checks a signature header and decodes the event.
type VerifyFunc func(payload []byte, header, secret string) (stripe.Event, error)

func verifyStripeSignature(payload []byte, header, secret string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// WebhookResult describes what happened to a delivery.
type WebhookResult struct {
	EventID   string
	Type      string
	Duplicate bool
	Note      string
}

// WebhookProcessor verifies, records and applies provider events.
type WebhookProcessor struct {
	repo   Repository
	secret string
	verify VerifyFunc
}

func NewWebhookProcessor(repo Repository, secret string) *WebhookProcessor {
	return &WebhookProcessor{
		repo:   repo,
		secret: strings.TrimSpace(secret),
		verify: verifyStripeSignature,
	}
}

// Process handles one delivery. Rejected deliveries write nothing. An
// accepted event is recorded, applied and marked processed in a single
// transaction, so a failure leaves no trace and the provider's retry
// starts over.
func (p *WebhookProcessor) Process(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if p.secret == "" {
		return nil, ErrWebhookNotConfigured
	}
	if strings.TrimSpace(signature) == "" {
		return nil, ErrMissingSignature
	}

	raw, err := p.verify(payload, signature, p.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, err.Error())
	}
	evt, err := ParseEvent(raw)
	if err != nil {
		return nil, err
	}

	meta := evt.Meta()
	result := &WebhookResult{EventID: meta.ID, Type: meta.Type}
	err = p.repo.Transaction(ctx, func(tx Repository) error {
		created, stored, err := tx.CreateEventIfNotExists(ctx, &models.StripeEvent{
			StripeEventID:  meta.ID,
			Type:           meta.Type,
			ObjectJSON:     string(raw.Data.Raw),
			EventCreatedAt: meta.Created,
		})
		if err != nil {
			return err
		}
		if !created && stored.ProcessedAt != nil {
			result.Duplicate = true
			return nil
		}

		note, err := p.apply(ctx, tx, evt)
		if err != nil {
			return err
		}
		result.Note = note
		return tx.MarkEventProcessed(ctx, stored.ID, note)
	})
	if err != nil {
		return nil, fmt.Errorf("process event %s: %w", meta.ID, err)
	}

	if result.Note != "" {
		fiberlog.Infof("[Webhook] %s (%s): %s", meta.ID, meta.Type, result.Note)
	}
	return result, nil
}

func (p *WebhookProcessor) apply(ctx context.Context, tx Repository, evt Event) (string, error) {
	switch e := evt.(type) {
	case *SubscriptionEvent:
		return applySubscriptionEvent(ctx, tx, e)

	case *AccountEvent:
		found, err := tx.UpdateConnectFlags(ctx, e.AccountID, e.Flags)
		if err != nil {
			return "", err
		}
		if !found {
			return "no local connect account " + e.AccountID, nil
		}
		return "", nil

	case *DeauthorizationEvent:
		found, err := tx.DeleteConnect(ctx, e.AccountID)
		if err != nil {
			return "", err
		}
		if !found {
			return "no local connect account " + e.AccountID, nil
		}
		return "", nil

	default:
		return "unhandled event type", nil
	}
}

func applySubscriptionEvent(ctx context.Context, tx Repository, e *SubscriptionEvent) (string, error) {
	user, err := tx.GetUserByCustomerID(ctx, e.CustomerID)
	if err != nil {
		if isNotFound(err) {
			return "no local user for customer " + e.CustomerID, nil
		}
		return "", err
	}
	if user.SubscriptionEventAt != nil && e.Created.Before(*user.SubscriptionEventAt) {
		return "stale event skipped", nil
	}

	stored := user.SubscriptionRef()
	// Event timestamps have second resolution. A created event never
	// overrides a later lifecycle event for the same subscription.
	if e.Type == EventSubscriptionCreated && stored == e.Subscription.ID &&
		user.SubscriptionEventAt != nil && !e.Created.After(*user.SubscriptionEventAt) {
		return "created event after update skipped", nil
	}
	if e.Deleted {
		if stored != "" && stored != e.Subscription.ID {
			return "deleted subscription is not the linked one", nil
		}
		return "", tx.ClearSubscription(ctx, user.ID, e.Created)
	}
	if stored != "" && stored != e.Subscription.ID && models.IsTerminalSubscriptionStatus(e.Subscription.Status) {
		return "terminal event for superseded subscription ignored", nil
	}
	return "", tx.ApplySubscriptionEvent(ctx, user.ID, e.Subscription, e.Created)
}
