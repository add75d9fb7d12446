// Package catalog manages the registry of known webhook event types.
//
// The catalog backs the "unrecognized event name" validation performed when
// a webhook subscription is created, and supplies the example payloads used
// by test deliveries.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/formhive/hookline/event"
	"github.com/formhive/hookline/internal/entity"
)

// ErrBuiltinType is returned when deleting a built-in event type.
var ErrBuiltinType = errors.New("catalog: built-in event types cannot be deleted")

// Catalog is the cached service for managing webhook event types.
type Catalog struct {
	store     Store
	validator *Validator
	cache     map[event.Type]*EventType
	mu        sync.RWMutex
	logger    *slog.Logger
}

// NewCatalog creates a new Catalog backed by the given store.
func NewCatalog(store Store, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		store:     store,
		validator: NewValidator(),
		cache:     make(map[event.Type]*EventType),
		logger:    logger,
	}
}

// RegisterType registers or updates an event type definition. When the
// definition carries both a Schema and an Example, the example is validated
// against the schema before the type is persisted.
func (c *Catalog) RegisterType(ctx context.Context, def Definition) (*EventType, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("catalog: event type name is required")
	}

	if len(def.Schema) > 0 {
		if err := c.validator.ValidateExample(def.Schema, def.Example); err != nil {
			return nil, fmt.Errorf("catalog: definition %q: %w", def.Name, err)
		}
	}

	et := &EventType{
		Entity:     entity.New(),
		Definition: def,
	}

	if err := c.store.RegisterType(ctx, et); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[def.Name] = et
	c.mu.Unlock()

	return et, nil
}

// GetType returns an event type by name, using the cache when available.
func (c *Catalog) GetType(ctx context.Context, name event.Type) (*EventType, error) {
	c.mu.RLock()
	if et, ok := c.cache[name]; ok {
		c.mu.RUnlock()
		return et, nil
	}
	c.mu.RUnlock()

	et, err := c.store.GetType(ctx, name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[name] = et
	c.mu.Unlock()

	return et, nil
}

// Known reports whether the named event type is registered.
func (c *Catalog) Known(ctx context.Context, name event.Type) bool {
	_, err := c.GetType(ctx, name)
	return err == nil
}

// ListTypes returns all registered event types.
func (c *Catalog) ListTypes(ctx context.Context) ([]*EventType, error) {
	return c.store.ListTypes(ctx)
}

// DeleteType removes a host-registered event type and evicts it from cache.
// Built-in survey lifecycle types cannot be deleted.
func (c *Catalog) DeleteType(ctx context.Context, name event.Type) error {
	et, err := c.GetType(ctx, name)
	if err != nil {
		return err
	}
	if et.Builtin {
		return ErrBuiltinType
	}

	if err := c.store.DeleteType(ctx, name); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.cache, name)
	c.mu.Unlock()

	return nil
}

// RegisterBuiltins registers the survey lifecycle event types. Hosts call
// this once at startup; safe to call repeatedly (upsert semantics).
func (c *Catalog) RegisterBuiltins(ctx context.Context) error {
	for _, def := range BuiltinDefinitions() {
		et := &EventType{
			Entity:     entity.New(),
			Definition: def,
			Builtin:    true,
		}
		if err := c.store.RegisterType(ctx, et); err != nil {
			return fmt.Errorf("catalog: register builtin %q: %w", def.Name, err)
		}

		c.mu.Lock()
		c.cache[def.Name] = et
		c.mu.Unlock()
	}
	return nil
}

// InvalidateCache clears the in-memory cache, forcing fresh reads from the store.
func (c *Catalog) InvalidateCache() {
	c.mu.Lock()
	c.cache = make(map[event.Type]*EventType)
	c.mu.Unlock()
}
