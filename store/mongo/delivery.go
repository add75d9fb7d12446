package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/formhive/hookline"
	"github.com/formhive/hookline/delivery"
	"github.com/formhive/hookline/id"
)

// AppendAttempt persists a new delivery attempt row.
func (s *Store) AppendAttempt(ctx context.Context, a *delivery.Attempt) error {
	m := toAttemptModel(a)

	if _, err := s.db.Collection(colAttempts).InsertOne(ctx, m); err != nil {
		return fmt.Errorf("hookline/mongo: append attempt: %w", err)
	}
	return nil
}

// GetAttempt returns an attempt by ID.
func (s *Store) GetAttempt(ctx context.Context, attID id.ID) (*delivery.Attempt, error) {
	var m attemptModel

	err := s.db.Collection(colAttempts).
		FindOne(ctx, bson.M{"_id": attID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, hookline.ErrAttemptNotFound
		}
		return nil, fmt.Errorf("hookline/mongo: get attempt: %w", err)
	}
	return fromAttemptModel(&m)
}

// ListAttempts returns attempts newest-first, optionally filtered.
func (s *Store) ListAttempts(ctx context.Context, opts delivery.ListOpts) ([]*delivery.Attempt, error) {
	filter := bson.M{}
	if opts.WebhookID != nil {
		filter["webhook_id"] = opts.WebhookID.String()
	}
	if opts.SurveyID != "" {
		filter["survey_id"] = opts.SurveyID
	}
	if opts.Success != nil {
		filter["success"] = *opts.Success
	}

	q := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if opts.Limit > 0 {
		q = q.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.SetSkip(int64(opts.Offset))
	}

	cur, err := s.db.Collection(colAttempts).Find(ctx, filter, q)
	if err != nil {
		return nil, fmt.Errorf("hookline/mongo: list attempts: %w", err)
	}

	var models []attemptModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("hookline/mongo: list attempts: %w", err)
	}

	result := make([]*delivery.Attempt, 0, len(models))
	for i := range models {
		a, err := fromAttemptModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

// ListByWebhook returns the full attempt history for a webhook, newest-first.
func (s *Store) ListByWebhook(ctx context.Context, whID id.ID) ([]*delivery.Attempt, error) {
	cur, err := s.db.Collection(colAttempts).Find(ctx,
		bson.M{"webhook_id": whID.String()},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("hookline/mongo: list by webhook: %w", err)
	}

	var models []attemptModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("hookline/mongo: list by webhook: %w", err)
	}

	result := make([]*delivery.Attempt, 0, len(models))
	for i := range models {
		a, err := fromAttemptModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

// ClaimDue atomically claims attempts whose retry is due. Each claim uses
// FindOneAndUpdate so concurrent sweeps never hand out the same row; a
// claimed row becomes claimable again once its lease expires.
func (s *Store) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*delivery.Attempt, error) {
	result := make([]*delivery.Attempt, 0, limit)
	cutoff := now.Add(-lease)
	col := s.db.Collection(colAttempts)

	for range limit {
		filter := bson.M{
			"can_retry":     true,
			"success":       false,
			"retried_at":    nil,
			"next_retry_at": bson.M{"$lte": now},
			"$or": []bson.M{
				{"claimed_at": nil},
				{"claimed_at": bson.M{"$lte": cutoff}},
			},
		}

		update := bson.M{
			"$set": bson.M{
				"claimed_at": now,
				"updated_at": now,
			},
		}

		opts := options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetSort(bson.D{{Key: "next_retry_at", Value: 1}})

		var m attemptModel

		err := col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&m)
		if err != nil {
			if isNoDocuments(err) {
				break
			}
			return nil, fmt.Errorf("hookline/mongo: claim due: %w", err)
		}

		a, err := fromAttemptModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}

	return result, nil
}

// MarkRetried permanently records that a successor attempt row exists, so
// the sweep never hands this row out again.
func (s *Store) MarkRetried(ctx context.Context, attID id.ID, at time.Time) error {
	res, err := s.db.Collection(colAttempts).UpdateOne(ctx,
		bson.M{"_id": attID.String()},
		bson.M{"$set": bson.M{"retried_at": at, "updated_at": now()}})
	if err != nil {
		return fmt.Errorf("hookline/mongo: mark retried: %w", err)
	}
	if res.MatchedCount == 0 {
		return hookline.ErrAttemptNotFound
	}
	return nil
}
