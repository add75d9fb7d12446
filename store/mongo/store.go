// Package mongo implements store.Store on MongoDB using the official
// driver. Documents keep the entity ID as _id and the due-retry sweep uses
// FindOneAndUpdate for atomic claims.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/formhive/hookline"
	hookstore "github.com/formhive/hookline/store"
)

// Collection name constants.
const (
	colEventTypes    = "hookline_event_types"
	colSubscriptions = "hookline_subscriptions"
	colAttempts      = "hookline_attempts"
)

// compile-time interface check
var _ hookstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB.
type Store struct {
	client *mongod.Client
	db     *mongod.Database
}

// New creates a MongoDB store on an existing client.
func New(client *mongod.Client, database string) *Store {
	return &Store{
		client: client,
		db:     client.Database(database),
	}
}

// Open connects to MongoDB at the given URI.
func Open(uri, database string) (*Store, error) {
	client, err := mongod.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("hookline/mongo: connect: %w", err)
	}
	return New(client, database), nil
}

// DB returns the underlying database handle for direct access.
func (s *Store) DB() *mongod.Database { return s.db }

// Migrate creates indexes for all hookline collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Join(hookline.ErrMigrationFailed,
				fmt.Errorf("hookline/mongo: migrate %s indexes: %w", col, err))
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks for the driver's not-found error.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all hookline collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colEventTypes: {
			{Keys: bson.D{{Key: "group_name", Value: 1}}},
		},
		colSubscriptions: {
			{Keys: bson.D{{Key: "survey_id", Value: 1}, {Key: "is_active", Value: 1}}},
			{Keys: bson.D{{Key: "survey_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colAttempts: {
			{Keys: bson.D{{Key: "webhook_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "survey_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "delivery_id", Value: 1}}},
			// Due sweep: partial index over rows still eligible for retry.
			{
				Keys: bson.D{{Key: "next_retry_at", Value: 1}},
				Options: options.Index().SetPartialFilterExpression(bson.M{
					"can_retry":  true,
					"success":    false,
					"retried_at": nil,
				}),
			},
		},
	}
}
