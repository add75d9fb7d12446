// Package store defines the composite Store interface for all hookline
// persistence.
//
// Each subsystem defines its own store interface and the aggregate Store
// composes them, so backends implement one flat surface while services
// depend only on the slice they use.
package store

import (
	"context"

	"github.com/formhive/hookline/catalog"
	"github.com/formhive/hookline/delivery"
	"github.com/formhive/hookline/subscription"
)

// Store is the aggregate persistence interface.
type Store interface {
	catalog.Store
	subscription.Store
	delivery.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
