// Package bunstore implements store.Store on relational databases via the
// Bun ORM. It works against PostgreSQL and SQLite through the dialect the
// *bun.DB was opened with.
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/formhive/hookline"
	"github.com/formhive/hookline/catalog"
	"github.com/formhive/hookline/delivery"
	"github.com/formhive/hookline/event"
	"github.com/formhive/hookline/id"
	hookstore "github.com/formhive/hookline/store"
	"github.com/formhive/hookline/subscription"
)

// compile-time interface check
var _ hookstore.Store = (*Store)(nil)

// Store implements store.Store using the Bun ORM.
type Store struct {
	db *bun.DB
}

// New creates a new Bun-backed store.
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying Bun database for direct access.
func (s *Store) DB() *bun.DB { return s.db }

// Migrate creates the required tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	models := []any{
		(*eventTypeModel)(nil),
		(*subscriptionModel)(nil),
		(*attemptModel)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return errors.Join(hookline.ErrMigrationFailed, err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_hookline_subscriptions_survey ON hookline_subscriptions (survey_id)",
		"CREATE INDEX IF NOT EXISTS idx_hookline_attempts_webhook ON hookline_attempts (webhook_id)",
		"CREATE INDEX IF NOT EXISTS idx_hookline_attempts_survey ON hookline_attempts (survey_id)",
		"CREATE INDEX IF NOT EXISTS idx_hookline_attempts_due ON hookline_attempts (next_retry_at) WHERE can_retry AND NOT success AND retried_at IS NULL",
	}
	for _, ddl := range indexes {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return errors.Join(hookline.ErrMigrationFailed, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Catalog Store ====================

func (s *Store) RegisterType(ctx context.Context, et *catalog.EventType) error {
	m := toEventTypeModel(et)
	_, err := s.db.NewInsert().
		Model(m).
		On("CONFLICT (name) DO UPDATE").
		Set("description = EXCLUDED.description").
		Set("group_name = EXCLUDED.group_name").
		Set("schema = EXCLUDED.schema").
		Set("example = EXCLUDED.example").
		Set("builtin = EXCLUDED.builtin").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetType(ctx context.Context, name event.Type) (*catalog.EventType, error) {
	m := new(eventTypeModel)
	err := s.db.NewSelect().
		Model(m).
		Where("name = ?", string(name)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, hookline.ErrEventTypeNotFound
		}
		return nil, err
	}
	return fromEventTypeModel(m), nil
}

func (s *Store) ListTypes(ctx context.Context) ([]*catalog.EventType, error) {
	var models []eventTypeModel
	if err := s.db.NewSelect().
		Model(&models).
		Order("name ASC").
		Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*catalog.EventType, len(models))
	for i := range models {
		result[i] = fromEventTypeModel(&models[i])
	}
	return result, nil
}

func (s *Store) DeleteType(ctx context.Context, name event.Type) error {
	res, err := s.db.NewDelete().
		Model((*eventTypeModel)(nil)).
		Where("name = ?", string(name)).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return hookline.ErrEventTypeNotFound
	}
	return nil
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	_, err := s.db.NewInsert().Model(m).Exec(ctx)
	return err
}

func (s *Store) GetSubscription(ctx context.Context, whID id.ID) (*subscription.Subscription, error) {
	m := new(subscriptionModel)
	err := s.db.NewSelect().
		Model(m).
		Where("id = ?", whID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, hookline.ErrWebhookNotFound
		}
		return nil, err
	}
	return fromSubscriptionModel(m)
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	m.UpdatedAt = time.Now().UTC()
	res, err := s.db.NewUpdate().
		Model(m).
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return hookline.ErrWebhookNotFound
	}
	return nil
}

func (s *Store) DeleteSubscription(ctx context.Context, whID id.ID) error {
	res, err := s.db.NewDelete().
		Model((*subscriptionModel)(nil)).
		Where("id = ?", whID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return hookline.ErrWebhookNotFound
	}
	return nil
}

func (s *Store) ListSubscriptions(ctx context.Context, surveyID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	q := s.db.NewSelect().Model(&models).Where("survey_id = ?", surveyID)

	if opts.IsActive != nil {
		q = q.Where("is_active = ?", *opts.IsActive)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.Order("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

// Matching loads the survey's active subscriptions and filters the event set
// in Go: events is a JSON array and membership tests on it are not portable
// across the supported dialects.
func (s *Store) Matching(ctx context.Context, surveyID string, eventType event.Type) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	if err := s.db.NewSelect().
		Model(&models).
		Where("survey_id = ?", surveyID).
		Where("is_active = ?", true).
		Scan(ctx); err != nil {
		return nil, err
	}

	var result []*subscription.Subscription
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		if sub.Subscribed(eventType) {
			result = append(result, sub)
		}
	}
	return result, nil
}

func (s *Store) SetRetryCount(ctx context.Context, whID id.ID, count int) error {
	res, err := s.db.NewUpdate().
		Model((*subscriptionModel)(nil)).
		Set("retry_count = ?", count).
		Where("id = ?", whID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return hookline.ErrWebhookNotFound
	}
	return nil
}

// ==================== Delivery Store ====================

func (s *Store) AppendAttempt(ctx context.Context, a *delivery.Attempt) error {
	m := toAttemptModel(a)
	_, err := s.db.NewInsert().Model(m).Exec(ctx)
	return err
}

func (s *Store) GetAttempt(ctx context.Context, attID id.ID) (*delivery.Attempt, error) {
	m := new(attemptModel)
	err := s.db.NewSelect().
		Model(m).
		Where("id = ?", attID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, hookline.ErrAttemptNotFound
		}
		return nil, err
	}
	return fromAttemptModel(m)
}

func (s *Store) ListAttempts(ctx context.Context, opts delivery.ListOpts) ([]*delivery.Attempt, error) {
	var models []attemptModel
	q := s.db.NewSelect().Model(&models)

	if opts.WebhookID != nil {
		q = q.Where("webhook_id = ?", opts.WebhookID.String())
	}
	if opts.SurveyID != "" {
		q = q.Where("survey_id = ?", opts.SurveyID)
	}
	if opts.Success != nil {
		q = q.Where("success = ?", *opts.Success)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.Order("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromAttemptModels(models)
}

func (s *Store) ListByWebhook(ctx context.Context, whID id.ID) ([]*delivery.Attempt, error) {
	var models []attemptModel
	if err := s.db.NewSelect().
		Model(&models).
		Where("webhook_id = ?", whID.String()).
		Order("created_at DESC").
		Scan(ctx); err != nil {
		return nil, err
	}
	return fromAttemptModels(models)
}

// ClaimDue selects due candidates then claims each with a conditional
// update, so concurrent claimers racing on the same row cannot both win.
// Row-at-a-time keeps the claim portable across PostgreSQL and SQLite.
func (s *Store) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*delivery.Attempt, error) {
	cutoff := now.Add(-lease)

	var models []attemptModel
	q := s.db.NewSelect().
		Model(&models).
		Where("can_retry = ?", true).
		Where("success = ?", false).
		Where("retried_at IS NULL").
		Where("next_retry_at <= ?", now).
		Where("claimed_at IS NULL OR claimed_at <= ?", cutoff).
		Order("next_retry_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	var result []*delivery.Attempt
	for i := range models {
		res, err := s.db.NewUpdate().
			Model((*attemptModel)(nil)).
			Set("claimed_at = ?", now).
			Where("id = ?", models[i].ID).
			Where("retried_at IS NULL").
			Where("claimed_at IS NULL OR claimed_at <= ?", cutoff).
			Exec(ctx)
		if err != nil {
			return result, err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return result, err
		}
		if rows == 0 {
			continue // lost the race to another claimer
		}
		claimed := now
		models[i].ClaimedAt = &claimed
		a, err := fromAttemptModel(&models[i])
		if err != nil {
			return result, err
		}
		result = append(result, a)
	}
	return result, nil
}

func (s *Store) MarkRetried(ctx context.Context, attID id.ID, at time.Time) error {
	res, err := s.db.NewUpdate().
		Model((*attemptModel)(nil)).
		Set("retried_at = ?", at).
		Where("id = ?", attID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return hookline.ErrAttemptNotFound
	}
	return nil
}

func fromAttemptModels(models []attemptModel) ([]*delivery.Attempt, error) {
	result := make([]*delivery.Attempt, len(models))
	for i := range models {
		a, err := fromAttemptModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = a
	}
	return result, nil
}
