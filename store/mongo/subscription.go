package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/formhive/hookline"
	"github.com/formhive/hookline/event"
	"github.com/formhive/hookline/id"
	"github.com/formhive/hookline/subscription"
)

// CreateSubscription persists a new subscription.
func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)

	if _, err := s.db.Collection(colSubscriptions).InsertOne(ctx, m); err != nil {
		return fmt.Errorf("hookline/mongo: create subscription: %w", err)
	}
	return nil
}

// GetSubscription returns a subscription by ID.
func (s *Store) GetSubscription(ctx context.Context, whID id.ID) (*subscription.Subscription, error) {
	var m subscriptionModel

	err := s.db.Collection(colSubscriptions).
		FindOne(ctx, bson.M{"_id": whID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, hookline.ErrWebhookNotFound
		}
		return nil, fmt.Errorf("hookline/mongo: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m)
}

// UpdateSubscription modifies an existing subscription.
func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	m.UpdatedAt = now()

	res, err := s.db.Collection(colSubscriptions).
		ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("hookline/mongo: update subscription: %w", err)
	}
	if res.MatchedCount == 0 {
		return hookline.ErrWebhookNotFound
	}
	return nil
}

// DeleteSubscription removes a subscription. Attempt rows are retained.
func (s *Store) DeleteSubscription(ctx context.Context, whID id.ID) error {
	res, err := s.db.Collection(colSubscriptions).
		DeleteOne(ctx, bson.M{"_id": whID.String()})
	if err != nil {
		return fmt.Errorf("hookline/mongo: delete subscription: %w", err)
	}
	if res.DeletedCount == 0 {
		return hookline.ErrWebhookNotFound
	}
	return nil
}

// ListSubscriptions returns subscriptions for a survey, optionally filtered.
func (s *Store) ListSubscriptions(ctx context.Context, surveyID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	filter := bson.M{"survey_id": surveyID}
	if opts.IsActive != nil {
		filter["is_active"] = *opts.IsActive
	}

	q := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if opts.Limit > 0 {
		q = q.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.SetSkip(int64(opts.Offset))
	}

	cur, err := s.db.Collection(colSubscriptions).Find(ctx, filter, q)
	if err != nil {
		return nil, fmt.Errorf("hookline/mongo: list subscriptions: %w", err)
	}

	var models []subscriptionModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("hookline/mongo: list subscriptions: %w", err)
	}

	result := make([]*subscription.Subscription, 0, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, sub)
	}
	return result, nil
}

// Matching finds active subscriptions for a survey whose event set contains
// eventType. The array membership check runs server-side.
func (s *Store) Matching(ctx context.Context, surveyID string, eventType event.Type) ([]*subscription.Subscription, error) {
	cur, err := s.db.Collection(colSubscriptions).Find(ctx, bson.M{
		"survey_id": surveyID,
		"is_active": true,
		"events":    string(eventType),
	})
	if err != nil {
		return nil, fmt.Errorf("hookline/mongo: matching: %w", err)
	}

	var models []subscriptionModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("hookline/mongo: matching: %w", err)
	}

	result := make([]*subscription.Subscription, 0, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, sub)
	}
	return result, nil
}

// SetRetryCount updates the advisory retry counter.
func (s *Store) SetRetryCount(ctx context.Context, whID id.ID, count int) error {
	res, err := s.db.Collection(colSubscriptions).UpdateOne(ctx,
		bson.M{"_id": whID.String()},
		bson.M{"$set": bson.M{"retry_count": count, "updated_at": now()}})
	if err != nil {
		return fmt.Errorf("hookline/mongo: set retry count: %w", err)
	}
	if res.MatchedCount == 0 {
		return hookline.ErrWebhookNotFound
	}
	return nil
}
