package billing

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
)

const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventAccountUpdated      = "account.updated"
	EventAccountDeauthorized = "account.application.deauthorized"
)

// EventMeta is shared by every parsed event.
type EventMeta struct {
	ID      string
	Type    string
	Created time.Time
}

func (m EventMeta) Meta() EventMeta { return m }

// Event is one of *SubscriptionEvent, *AccountEvent,
// *DeauthorizationEvent or *UnhandledEvent.
type Event interface {
	Meta() EventMeta
}

type SubscriptionEvent struct {
	EventMeta
	CustomerID   string
	Deleted      bool
	Subscription SubscriptionSnapshot
}

type AccountEvent struct {
	EventMeta
	AccountID string
	Flags     ConnectFlags
}

type DeauthorizationEvent struct {
	EventMeta
	AccountID string
}

type UnhandledEvent struct {
	EventMeta
}

// ParseEvent validates a verified provider event and narrows it to the
// variant its type names.
func ParseEvent(evt stripe.Event) (Event, error) {
	meta := EventMeta{
		ID:      strings.TrimSpace(evt.ID),
		Type:    string(evt.Type),
		Created: time.Unix(evt.Created, 0).UTC(),
	}
	if meta.ID == "" || meta.Type == "" {
		return nil, fmt.Errorf("%w: missing id or type", ErrInvalidEvent)
	}
	if evt.Data == nil || len(evt.Data.Raw) == 0 {
		return nil, fmt.Errorf("%w: missing data object", ErrInvalidEvent)
	}

	switch meta.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		if sub.ID == "" || sub.Customer == nil || sub.Customer.ID == "" {
			return nil, fmt.Errorf("%w: subscription without id or customer", ErrInvalidEvent)
		}
		deleted := meta.Type == EventSubscriptionDeleted
		if !deleted && sub.Status == "" {
			return nil, fmt.Errorf("%w: subscription without status", ErrInvalidEvent)
		}
		return &SubscriptionEvent{
			EventMeta:    meta,
			CustomerID:   sub.Customer.ID,
			Deleted:      deleted,
			Subscription: snapshotFromSubscription(&sub),
		}, nil

	case EventAccountUpdated:
		var account stripe.Account
		if err := json.Unmarshal(evt.Data.Raw, &account); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		if account.ID == "" {
			return nil, fmt.Errorf("%w: account without id", ErrInvalidEvent)
		}
		return &AccountEvent{EventMeta: meta, AccountID: account.ID, Flags: accountFlags(&account)}, nil

	case EventAccountDeauthorized:
		// The object is the application; the connected account is on the event.
		accountID := strings.TrimSpace(evt.Account)
		if accountID == "" {
			return nil, fmt.Errorf("%w: deauthorization without account", ErrInvalidEvent)
		}
		return &DeauthorizationEvent{EventMeta: meta, AccountID: accountID}, nil

	default:
		return &UnhandledEvent{EventMeta: meta}, nil
	}
}
