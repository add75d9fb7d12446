package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/formhive/hookline"
	"github.com/formhive/hookline/catalog"
	"github.com/formhive/hookline/event"
)

// RegisterType creates or updates an event type definition by name.
func (s *Store) RegisterType(ctx context.Context, et *catalog.EventType) error {
	m := toEventTypeModel(et)

	_, err := s.db.Collection(colEventTypes).ReplaceOne(ctx,
		bson.M{"_id": m.Name}, m, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("hookline/mongo: register type: %w", err)
	}
	return nil
}

// GetType returns an event type by name.
func (s *Store) GetType(ctx context.Context, name event.Type) (*catalog.EventType, error) {
	var m eventTypeModel

	err := s.db.Collection(colEventTypes).
		FindOne(ctx, bson.M{"_id": string(name)}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, hookline.ErrEventTypeNotFound
		}
		return nil, fmt.Errorf("hookline/mongo: get type: %w", err)
	}
	return fromEventTypeModel(&m), nil
}

// ListTypes returns all registered event types sorted by name.
func (s *Store) ListTypes(ctx context.Context) ([]*catalog.EventType, error) {
	cur, err := s.db.Collection(colEventTypes).
		Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("hookline/mongo: list types: %w", err)
	}

	var models []eventTypeModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("hookline/mongo: list types: %w", err)
	}

	result := make([]*catalog.EventType, 0, len(models))
	for i := range models {
		result = append(result, fromEventTypeModel(&models[i]))
	}
	return result, nil
}

// DeleteType removes an event type definition.
func (s *Store) DeleteType(ctx context.Context, name event.Type) error {
	res, err := s.db.Collection(colEventTypes).
		DeleteOne(ctx, bson.M{"_id": string(name)})
	if err != nil {
		return fmt.Errorf("hookline/mongo: delete type: %w", err)
	}
	if res.DeletedCount == 0 {
		return hookline.ErrEventTypeNotFound
	}
	return nil
}
