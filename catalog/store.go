package catalog

import (
	"context"

	"github.com/formhive/hookline/event"
)

// Store defines the persistence contract for the event type catalog.
type Store interface {
	// RegisterType creates or updates an event type definition.
	RegisterType(ctx context.Context, et *EventType) error

	// GetType returns an event type by name (e.g. "response.submitted").
	GetType(ctx context.Context, name event.Type) (*EventType, error)

	// ListTypes returns all registered event types.
	ListTypes(ctx context.Context) ([]*EventType, error)

	// DeleteType removes an event type definition.
	DeleteType(ctx context.Context, name event.Type) error
}
