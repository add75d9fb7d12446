package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/formhive/hookline"
	"github.com/formhive/hookline/catalog"
	"github.com/formhive/hookline/event"
	"github.com/formhive/hookline/internal/entity"
)

// eventTypeModel is the JSON representation stored in Redis.
type eventTypeModel struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Group       string          `json:"group"`
	Schema      json.RawMessage `json:"schema,omitempty"`
	Example     json.RawMessage `json:"example,omitempty"`
	Builtin     bool            `json:"builtin"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func toEventTypeModel(et *catalog.EventType) *eventTypeModel {
	return &eventTypeModel{
		Name:        string(et.Definition.Name),
		Description: et.Definition.Description,
		Group:       et.Definition.Group,
		Schema:      et.Definition.Schema,
		Example:     et.Definition.Example,
		Builtin:     et.Builtin,
		CreatedAt:   et.CreatedAt,
		UpdatedAt:   et.UpdatedAt,
	}
}

func fromEventTypeModel(m *eventTypeModel) *catalog.EventType {
	return &catalog.EventType{
		Entity: entity.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Definition: catalog.Definition{
			Name:        event.Type(m.Name),
			Description: m.Description,
			Group:       m.Group,
			Schema:      m.Schema,
			Example:     m.Example,
		},
		Builtin: m.Builtin,
	}
}

func (s *Store) RegisterType(ctx context.Context, et *catalog.EventType) error {
	m := toEventTypeModel(et)
	key := entityKey(prefixEventType, m.Name)

	if err := s.setEntity(ctx, key, m); err != nil {
		return fmt.Errorf("hookline/redis: register type: %w", err)
	}
	if err := s.rdb.ZAdd(ctx, zEventTypeAll, goredis.Z{Score: 0, Member: m.Name}).Err(); err != nil {
		return fmt.Errorf("hookline/redis: register type index: %w", err)
	}
	return nil
}

func (s *Store) GetType(ctx context.Context, name event.Type) (*catalog.EventType, error) {
	var m eventTypeModel
	if err := s.getEntity(ctx, entityKey(prefixEventType, string(name)), &m); err != nil {
		if isRedisNil(err) {
			return nil, hookline.ErrEventTypeNotFound
		}
		return nil, fmt.Errorf("hookline/redis: get type: %w", err)
	}
	return fromEventTypeModel(&m), nil
}

func (s *Store) ListTypes(ctx context.Context) ([]*catalog.EventType, error) {
	// Score 0 for all members, so ZRANGE yields lexical name order.
	names, err := s.rdb.ZRange(ctx, zEventTypeAll, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("hookline/redis: list types: %w", err)
	}

	result := make([]*catalog.EventType, 0, len(names))
	for _, name := range names {
		var m eventTypeModel
		if err := s.getEntity(ctx, entityKey(prefixEventType, name), &m); err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, err
		}
		result = append(result, fromEventTypeModel(&m))
	}
	return result, nil
}

func (s *Store) DeleteType(ctx context.Context, name event.Type) error {
	deleted, err := s.rdb.Del(ctx, entityKey(prefixEventType, string(name))).Result()
	if err != nil {
		return fmt.Errorf("hookline/redis: delete type: %w", err)
	}
	if deleted == 0 {
		return hookline.ErrEventTypeNotFound
	}
	return s.rdb.ZRem(ctx, zEventTypeAll, string(name)).Err()
}
