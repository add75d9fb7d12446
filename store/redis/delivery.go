package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/formhive/hookline"
	"github.com/formhive/hookline/delivery"
	"github.com/formhive/hookline/event"
	"github.com/formhive/hookline/id"
	"github.com/formhive/hookline/internal/entity"
)

// attemptModel is the JSON representation stored in Redis. Claim and retry
// bookkeeping is carried explicitly since the domain struct never
// serializes it.
type attemptModel struct {
	ID              string            `json:"id"`
	WebhookID       string            `json:"webhook_id"`
	SurveyID        string            `json:"survey_id"`
	ResponseID      string            `json:"response_id,omitempty"`
	Event           string            `json:"event"`
	DeliveryID      string            `json:"delivery_id"`
	URL             string            `json:"url"`
	Method          string            `json:"method"`
	RequestHeaders  map[string]string `json:"request_headers,omitempty"`
	RequestBody     string            `json:"request_body"`
	StatusCode      int               `json:"status_code,omitempty"`
	ResponseBody    string            `json:"response_body,omitempty"`
	ResponseHeaders map[string]string `json:"response_headers,omitempty"`
	Success         bool              `json:"success"`
	Error           string            `json:"error,omitempty"`
	DurationMs      int               `json:"duration_ms"`
	Attempt         int               `json:"attempt"`
	CanRetry        bool              `json:"can_retry"`
	NextRetryAt     *time.Time        `json:"next_retry_at,omitempty"`
	ClaimedAt       *time.Time        `json:"claimed_at,omitempty"`
	RetriedAt       *time.Time        `json:"retried_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func toAttemptModel(a *delivery.Attempt) *attemptModel {
	return &attemptModel{
		ID:              a.ID.String(),
		WebhookID:       a.WebhookID.String(),
		SurveyID:        a.SurveyID,
		ResponseID:      a.ResponseID,
		Event:           string(a.Event),
		DeliveryID:      a.DeliveryID,
		URL:             a.URL,
		Method:          a.Method,
		RequestHeaders:  a.RequestHeaders,
		RequestBody:     a.RequestBody,
		StatusCode:      a.StatusCode,
		ResponseBody:    a.ResponseBody,
		ResponseHeaders: a.ResponseHeaders,
		Success:         a.Success,
		Error:           a.Error,
		DurationMs:      a.DurationMs,
		Attempt:         a.Attempt,
		CanRetry:        a.CanRetry,
		NextRetryAt:     a.NextRetryAt,
		ClaimedAt:       a.ClaimedAt,
		RetriedAt:       a.RetriedAt,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func fromAttemptModel(m *attemptModel) (*delivery.Attempt, error) {
	attID, err := id.ParseAttemptID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse attempt ID %q: %w", m.ID, err)
	}
	whID, err := id.ParseWebhookID(m.WebhookID)
	if err != nil {
		return nil, fmt.Errorf("parse webhook ID %q: %w", m.WebhookID, err)
	}
	return &delivery.Attempt{
		Entity:          entity.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:              attID,
		WebhookID:       whID,
		SurveyID:        m.SurveyID,
		ResponseID:      m.ResponseID,
		Event:           event.Type(m.Event),
		DeliveryID:      m.DeliveryID,
		URL:             m.URL,
		Method:          m.Method,
		RequestHeaders:  m.RequestHeaders,
		RequestBody:     m.RequestBody,
		StatusCode:      m.StatusCode,
		ResponseBody:    m.ResponseBody,
		ResponseHeaders: m.ResponseHeaders,
		Success:         m.Success,
		Error:           m.Error,
		DurationMs:      m.DurationMs,
		Attempt:         m.Attempt,
		CanRetry:        m.CanRetry,
		NextRetryAt:     m.NextRetryAt,
		ClaimedAt:       m.ClaimedAt,
		RetriedAt:       m.RetriedAt,
	}, nil
}

// claimScript atomically claims due attempt IDs: members with a score at or
// below now are re-scored to now+lease, so a concurrent sweep cannot see
// them until the lease expires.
// KEYS[1] = hookline:z:wa:due
// ARGV[1] = now (score threshold)
// ARGV[2] = limit
// ARGV[3] = now + lease (new score for claimed members)
var claimScript = goredis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
if #ids == 0 then return {} end
for i, id in ipairs(ids) do
    redis.call('ZADD', KEYS[1], ARGV[3], id)
end
return ids
`)

func (s *Store) AppendAttempt(ctx context.Context, a *delivery.Attempt) error {
	m := toAttemptModel(a)
	if err := s.setEntity(ctx, entityKey(prefixAttempt, m.ID), m); err != nil {
		return fmt.Errorf("hookline/redis: append attempt: %w", err)
	}

	pipe := s.rdb.Pipeline()
	created := scoreFromTime(m.CreatedAt)
	pipe.ZAdd(ctx, zAttemptAll, goredis.Z{Score: created, Member: m.ID})
	pipe.ZAdd(ctx, zAttemptHook+m.WebhookID, goredis.Z{Score: created, Member: m.ID})
	if m.CanRetry && m.NextRetryAt != nil {
		pipe.ZAdd(ctx, zAttemptDue, goredis.Z{Score: scoreFromTime(*m.NextRetryAt), Member: m.ID})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("hookline/redis: append attempt indexes: %w", err)
	}
	return nil
}

func (s *Store) GetAttempt(ctx context.Context, attID id.ID) (*delivery.Attempt, error) {
	var m attemptModel
	if err := s.getEntity(ctx, entityKey(prefixAttempt, attID.String()), &m); err != nil {
		if isRedisNil(err) {
			return nil, hookline.ErrAttemptNotFound
		}
		return nil, fmt.Errorf("hookline/redis: get attempt: %w", err)
	}
	return fromAttemptModel(&m)
}

func (s *Store) ListAttempts(ctx context.Context, opts delivery.ListOpts) ([]*delivery.Attempt, error) {
	key := zAttemptAll
	if opts.WebhookID != nil {
		key = zAttemptHook + opts.WebhookID.String()
	}
	ids, err := s.rdb.ZRevRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("hookline/redis: list attempts: %w", err)
	}

	result := make([]*delivery.Attempt, 0, len(ids))
	for _, attID := range ids {
		var m attemptModel
		if err := s.getEntity(ctx, entityKey(prefixAttempt, attID), &m); err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, err
		}
		if opts.SurveyID != "" && m.SurveyID != opts.SurveyID {
			continue
		}
		if opts.Success != nil && m.Success != *opts.Success {
			continue
		}
		a, err := fromAttemptModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) ListByWebhook(ctx context.Context, whID id.ID) ([]*delivery.Attempt, error) {
	ids, err := s.rdb.ZRevRange(ctx, zAttemptHook+whID.String(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("hookline/redis: list by webhook: %w", err)
	}

	result := make([]*delivery.Attempt, 0, len(ids))
	for _, attID := range ids {
		var m attemptModel
		if err := s.getEntity(ctx, entityKey(prefixAttempt, attID), &m); err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, err
		}
		a, err := fromAttemptModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

func (s *Store) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*delivery.Attempt, error) {
	nowScore := fmt.Sprintf("%f", scoreFromTime(now))
	leaseScore := fmt.Sprintf("%f", scoreFromTime(now.Add(lease)))

	ids, err := claimScript.Run(ctx, s.rdb, []string{zAttemptDue}, nowScore, limit, leaseScore).StringSlice()
	if err != nil {
		if isRedisNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("hookline/redis: claim script: %w", err)
	}

	result := make([]*delivery.Attempt, 0, len(ids))
	for _, attID := range ids {
		key := entityKey(prefixAttempt, attID)
		var m attemptModel
		if err := s.getEntity(ctx, key, &m); err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, fmt.Errorf("hookline/redis: claim get: %w", err)
		}

		claimed := now
		m.ClaimedAt = &claimed
		m.UpdatedAt = claimed
		if err := s.setEntity(ctx, key, &m); err != nil {
			return nil, fmt.Errorf("hookline/redis: claim update: %w", err)
		}

		a, err := fromAttemptModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

func (s *Store) MarkRetried(ctx context.Context, attID id.ID, at time.Time) error {
	key := entityKey(prefixAttempt, attID.String())
	var m attemptModel
	if err := s.getEntity(ctx, key, &m); err != nil {
		if isRedisNil(err) {
			return hookline.ErrAttemptNotFound
		}
		return fmt.Errorf("hookline/redis: mark retried: %w", err)
	}

	m.RetriedAt = &at
	m.UpdatedAt = now()
	if err := s.setEntity(ctx, key, &m); err != nil {
		return err
	}
	return s.rdb.ZRem(ctx, zAttemptDue, attID.String()).Err()
}
