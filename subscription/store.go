package subscription

import (
	"context"

	"github.com/formhive/hookline/event"
	"github.com/formhive/hookline/id"
)

// Store defines the persistence contract for webhook subscriptions.
type Store interface {
	// CreateSubscription persists a new subscription.
	CreateSubscription(ctx context.Context, sub *Subscription) error

	// GetSubscription returns a subscription by ID.
	GetSubscription(ctx context.Context, whID id.ID) (*Subscription, error)

	// UpdateSubscription modifies an existing subscription.
	UpdateSubscription(ctx context.Context, sub *Subscription) error

	// DeleteSubscription removes a subscription. Delivery attempt rows are
	// retained independently for reporting.
	DeleteSubscription(ctx context.Context, whID id.ID) error

	// ListSubscriptions returns subscriptions for a survey, optionally filtered.
	ListSubscriptions(ctx context.Context, surveyID string, opts ListOpts) ([]*Subscription, error)

	// Matching finds all active subscriptions for a survey whose event set
	// contains eventType. This is the hot path — called on every dispatch.
	Matching(ctx context.Context, surveyID string, eventType event.Type) ([]*Subscription, error)

	// SetRetryCount updates the advisory retry counter. Backends may make
	// this atomic, but callers must not rely on it for correctness.
	SetRetryCount(ctx context.Context, whID id.ID, count int) error
}
