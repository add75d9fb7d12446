// Package memory provides an in-memory Store implementation for unit
// testing and single-process embedding.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/formhive/hookline"
	"github.com/formhive/hookline/catalog"
	"github.com/formhive/hookline/delivery"
	"github.com/formhive/hookline/event"
	"github.com/formhive/hookline/id"
	"github.com/formhive/hookline/subscription"
	hookstore "github.com/formhive/hookline/store"
)

// compile-time interface check.
var _ hookstore.Store = (*Store)(nil)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	eventTypes    map[event.Type]*catalog.EventType
	subscriptions map[string]*subscription.Subscription // keyed by ID string
	attempts      map[string]*delivery.Attempt          // keyed by ID string
	order         []string                              // attempt IDs in append order

	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		eventTypes:    make(map[event.Type]*catalog.EventType),
		subscriptions: make(map[string]*subscription.Subscription),
		attempts:      make(map[string]*delivery.Attempt),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return hookline.ErrStoreClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// catalog.Store
// ──────────────────────────────────────────────────

// RegisterType creates or updates an event type definition (upsert by name).
func (s *Store) RegisterType(_ context.Context, et *catalog.EventType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.eventTypes[et.Definition.Name]; ok {
		existing.Definition = et.Definition
		existing.Builtin = et.Builtin
		existing.UpdatedAt = time.Now().UTC()
		return nil
	}

	s.eventTypes[et.Definition.Name] = et
	return nil
}

// GetType returns an event type by name.
func (s *Store) GetType(_ context.Context, name event.Type) (*catalog.EventType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	et, ok := s.eventTypes[name]
	if !ok {
		return nil, hookline.ErrEventTypeNotFound
	}
	return et, nil
}

// ListTypes returns all registered event types sorted by name.
func (s *Store) ListTypes(_ context.Context) ([]*catalog.EventType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*catalog.EventType, 0, len(s.eventTypes))
	for _, et := range s.eventTypes {
		result = append(result, et)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Definition.Name < result[j].Definition.Name
	})
	return result, nil
}

// DeleteType removes an event type definition.
func (s *Store) DeleteType(_ context.Context, name event.Type) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.eventTypes[name]; !ok {
		return hookline.ErrEventTypeNotFound
	}
	delete(s.eventTypes, name)
	return nil
}

// ──────────────────────────────────────────────────
// subscription.Store
// ──────────────────────────────────────────────────

// CreateSubscription persists a new subscription. The store keeps its own
// copy so later caller mutations cannot reach stored state.
func (s *Store) CreateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sub
	s.subscriptions[sub.ID.String()] = &cp
	return nil
}

// GetSubscription returns a subscription by ID. Callers get a copy, so
// mutating the result has no effect until UpdateSubscription commits it.
func (s *Store) GetSubscription(_ context.Context, whID id.ID) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[whID.String()]
	if !ok {
		return nil, hookline.ErrWebhookNotFound
	}
	cp := *sub
	return &cp, nil
}

// UpdateSubscription modifies an existing subscription.
func (s *Store) UpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[sub.ID.String()]; !ok {
		return hookline.ErrWebhookNotFound
	}
	sub.UpdatedAt = time.Now().UTC()
	cp := *sub
	s.subscriptions[sub.ID.String()] = &cp
	return nil
}

// DeleteSubscription removes a subscription. Attempt rows are retained.
func (s *Store) DeleteSubscription(_ context.Context, whID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[whID.String()]; !ok {
		return hookline.ErrWebhookNotFound
	}
	delete(s.subscriptions, whID.String())
	return nil
}

// ListSubscriptions returns subscriptions for a survey, oldest first.
func (s *Store) ListSubscriptions(_ context.Context, surveyID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*subscription.Subscription, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		if sub.SurveyID != surveyID {
			continue
		}
		if opts.IsActive != nil && sub.IsActive != *opts.IsActive {
			continue
		}
		result = append(result, sub)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	result = applyPagination(result, opts.Offset, opts.Limit)
	return result, nil
}

// Matching finds active subscriptions for a survey subscribed to eventType.
func (s *Store) Matching(_ context.Context, surveyID string, eventType event.Type) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*subscription.Subscription
	for _, sub := range s.subscriptions {
		if sub.SurveyID != surveyID || !sub.IsActive {
			continue
		}
		if sub.Subscribed(eventType) {
			result = append(result, sub)
		}
	}
	return result, nil
}

// SetRetryCount updates the advisory retry counter.
func (s *Store) SetRetryCount(_ context.Context, whID id.ID, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscriptions[whID.String()]
	if !ok {
		return hookline.ErrWebhookNotFound
	}
	sub.RetryCount = count
	return nil
}

// ──────────────────────────────────────────────────
// delivery.Store
// ──────────────────────────────────────────────────

// AppendAttempt writes one immutable attempt row.
func (s *Store) AppendAttempt(_ context.Context, a *delivery.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts[a.ID.String()] = a
	s.order = append(s.order, a.ID.String())
	return nil
}

// GetAttempt returns an attempt row by ID.
func (s *Store) GetAttempt(_ context.Context, attID id.ID) (*delivery.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.attempts[attID.String()]
	if !ok {
		return nil, hookline.ErrAttemptNotFound
	}
	return a, nil
}

// ListAttempts returns attempt rows, newest first.
func (s *Store) ListAttempts(_ context.Context, opts delivery.ListOpts) ([]*delivery.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*delivery.Attempt, 0, len(s.attempts))
	for i := len(s.order) - 1; i >= 0; i-- {
		a := s.attempts[s.order[i]]
		if opts.WebhookID != nil && a.WebhookID.String() != opts.WebhookID.String() {
			continue
		}
		if opts.SurveyID != "" && a.SurveyID != opts.SurveyID {
			continue
		}
		if opts.Success != nil && a.Success != *opts.Success {
			continue
		}
		result = append(result, a)
	}

	result = applyPagination(result, opts.Offset, opts.Limit)
	return result, nil
}

// ListByWebhook returns every attempt row for a subscription, newest first.
func (s *Store) ListByWebhook(_ context.Context, whID id.ID) ([]*delivery.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*delivery.Attempt
	for i := len(s.order) - 1; i >= 0; i-- {
		a := s.attempts[s.order[i]]
		if a.WebhookID.String() == whID.String() {
			result = append(result, a)
		}
	}
	return result, nil
}

// ClaimDue claims up to limit due retry rows under the lease discipline.
func (s *Store) ClaimDue(_ context.Context, now time.Time, lease time.Duration, limit int) ([]*delivery.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*delivery.Attempt
	for _, key := range s.order {
		if limit > 0 && len(result) >= limit {
			break
		}
		a := s.attempts[key]
		if !a.CanRetry || a.Success || a.RetriedAt != nil {
			continue
		}
		if a.NextRetryAt == nil || a.NextRetryAt.After(now) {
			continue
		}
		if a.ClaimedAt != nil && a.ClaimedAt.Add(lease).After(now) {
			continue
		}
		claimed := now
		a.ClaimedAt = &claimed
		result = append(result, a)
	}
	return result, nil
}

// MarkRetried permanently removes a row from the due set.
func (s *Store) MarkRetried(_ context.Context, attID id.ID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attempts[attID.String()]
	if !ok {
		return hookline.ErrAttemptNotFound
	}
	a.RetriedAt = &at
	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func applyPagination[T any](items []*T, offset, limit int) []*T {
	if offset > 0 && offset < len(items) {
		items = items[offset:]
	} else if offset >= len(items) && offset > 0 {
		return nil
	}

	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	return items
}
