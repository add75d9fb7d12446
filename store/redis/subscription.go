package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/formhive/hookline"
	"github.com/formhive/hookline/event"
	"github.com/formhive/hookline/id"
	"github.com/formhive/hookline/internal/entity"
	"github.com/formhive/hookline/subscription"
)

// subscriptionModel is the JSON representation stored in Redis. The secret
// is part of the model on purpose: the domain struct hides it from payload
// serialization, but the store must persist it.
type subscriptionModel struct {
	ID                  string            `json:"id"`
	SurveyID            string            `json:"survey_id"`
	URL                 string            `json:"url"`
	Name                string            `json:"name"`
	Description         string            `json:"description,omitempty"`
	IsActive            bool              `json:"is_active"`
	Events              []string          `json:"events"`
	Headers             map[string]string `json:"headers,omitempty"`
	IncludeMetadata     bool              `json:"include_metadata"`
	UseQuestionMappings bool              `json:"use_question_mappings"`
	Secret              string            `json:"secret"`
	MaxRetries          int               `json:"max_retries"`
	RetryCount          int               `json:"retry_count"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

func toSubscriptionModel(sub *subscription.Subscription) *subscriptionModel {
	events := make([]string, len(sub.Events))
	for i, e := range sub.Events {
		events[i] = string(e)
	}
	return &subscriptionModel{
		ID:                  sub.ID.String(),
		SurveyID:            sub.SurveyID,
		URL:                 sub.URL,
		Name:                sub.Name,
		Description:         sub.Description,
		IsActive:            sub.IsActive,
		Events:              events,
		Headers:             sub.Headers,
		IncludeMetadata:     sub.IncludeMetadata,
		UseQuestionMappings: sub.UseQuestionMappings,
		Secret:              sub.Secret,
		MaxRetries:          sub.MaxRetries,
		RetryCount:          sub.RetryCount,
		CreatedAt:           sub.CreatedAt,
		UpdatedAt:           sub.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	whID, err := id.ParseWebhookID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse webhook ID %q: %w", m.ID, err)
	}
	events := make([]event.Type, len(m.Events))
	for i, e := range m.Events {
		events[i] = event.Type(e)
	}
	return &subscription.Subscription{
		Entity:              entity.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:                  whID,
		SurveyID:            m.SurveyID,
		URL:                 m.URL,
		Name:                m.Name,
		Description:         m.Description,
		IsActive:            m.IsActive,
		Events:              events,
		Headers:             m.Headers,
		IncludeMetadata:     m.IncludeMetadata,
		UseQuestionMappings: m.UseQuestionMappings,
		Secret:              m.Secret,
		MaxRetries:          m.MaxRetries,
		RetryCount:          m.RetryCount,
	}, nil
}

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	if err := s.setEntity(ctx, entityKey(prefixSubscription, m.ID), m); err != nil {
		return fmt.Errorf("hookline/redis: create subscription: %w", err)
	}
	return s.rdb.ZAdd(ctx, zSubSurvey+m.SurveyID,
		goredis.Z{Score: scoreFromTime(m.CreatedAt), Member: m.ID}).Err()
}

func (s *Store) GetSubscription(ctx context.Context, whID id.ID) (*subscription.Subscription, error) {
	var m subscriptionModel
	if err := s.getEntity(ctx, entityKey(prefixSubscription, whID.String()), &m); err != nil {
		if isRedisNil(err) {
			return nil, hookline.ErrWebhookNotFound
		}
		return nil, fmt.Errorf("hookline/redis: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m)
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	key := entityKey(prefixSubscription, sub.ID.String())
	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("hookline/redis: update subscription: %w", err)
	}
	if exists == 0 {
		return hookline.ErrWebhookNotFound
	}

	m := toSubscriptionModel(sub)
	m.UpdatedAt = now()
	return s.setEntity(ctx, key, m)
}

func (s *Store) DeleteSubscription(ctx context.Context, whID id.ID) error {
	sub, err := s.GetSubscription(ctx, whID)
	if err != nil {
		return err
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, entityKey(prefixSubscription, whID.String()))
	pipe.ZRem(ctx, zSubSurvey+sub.SurveyID, whID.String())
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) ListSubscriptions(ctx context.Context, surveyID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	ids, err := s.rdb.ZRange(ctx, zSubSurvey+surveyID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("hookline/redis: list subscriptions: %w", err)
	}

	result := make([]*subscription.Subscription, 0, len(ids))
	for _, whID := range ids {
		var m subscriptionModel
		if err := s.getEntity(ctx, entityKey(prefixSubscription, whID), &m); err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, err
		}
		if opts.IsActive != nil && m.IsActive != *opts.IsActive {
			continue
		}
		sub, err := fromSubscriptionModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, sub)
	}
	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) Matching(ctx context.Context, surveyID string, eventType event.Type) ([]*subscription.Subscription, error) {
	subs, err := s.ListSubscriptions(ctx, surveyID, subscription.ListOpts{})
	if err != nil {
		return nil, err
	}

	var result []*subscription.Subscription
	for _, sub := range subs {
		if sub.IsActive && sub.Subscribed(eventType) {
			result = append(result, sub)
		}
	}
	return result, nil
}

func (s *Store) SetRetryCount(ctx context.Context, whID id.ID, count int) error {
	sub, err := s.GetSubscription(ctx, whID)
	if err != nil {
		return err
	}
	m := toSubscriptionModel(sub)
	m.RetryCount = count
	return s.setEntity(ctx, entityKey(prefixSubscription, m.ID), m)
}
