package bunstore

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"

	"github.com/formhive/hookline/catalog"
	"github.com/formhive/hookline/delivery"
	"github.com/formhive/hookline/event"
	"github.com/formhive/hookline/id"
	"github.com/formhive/hookline/internal/entity"
	"github.com/formhive/hookline/subscription"
)

type eventTypeModel struct {
	bun.BaseModel `bun:"table:hookline_event_types,alias:et"`

	Name        string          `bun:"name,pk"`
	Description string          `bun:"description"`
	GroupName   string          `bun:"group_name"`
	Schema      json.RawMessage `bun:"schema,type:jsonb"`
	Example     json.RawMessage `bun:"example,type:jsonb"`
	Builtin     bool            `bun:"builtin,notnull"`
	CreatedAt   time.Time       `bun:"created_at,notnull"`
	UpdatedAt   time.Time       `bun:"updated_at,notnull"`
}

func toEventTypeModel(et *catalog.EventType) *eventTypeModel {
	return &eventTypeModel{
		Name:        string(et.Definition.Name),
		Description: et.Definition.Description,
		GroupName:   et.Definition.Group,
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
			Group:       m.GroupName,
			Schema:      m.Schema,
			Example:     m.Example,
		},
		Builtin: m.Builtin,
	}
}

type subscriptionModel struct {
	bun.BaseModel `bun:"table:hookline_subscriptions,alias:ws"`

	ID                  string            `bun:"id,pk"`
	SurveyID            string            `bun:"survey_id,notnull"`
	URL                 string            `bun:"url,notnull"`
	Name                string            `bun:"name,notnull"`
	Description         string            `bun:"description"`
	IsActive            bool              `bun:"is_active,notnull"`
	Events              []string          `bun:"events,type:jsonb,notnull"`
	Headers             map[string]string `bun:"headers,type:jsonb"`
	IncludeMetadata     bool              `bun:"include_metadata,notnull"`
	UseQuestionMappings bool              `bun:"use_question_mappings,notnull"`
	Secret              string            `bun:"secret,notnull"`
	MaxRetries          int               `bun:"max_retries,notnull"`
	RetryCount          int               `bun:"retry_count,notnull"`
	CreatedAt           time.Time         `bun:"created_at,notnull"`
	UpdatedAt           time.Time         `bun:"updated_at,notnull"`
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
		return nil, err
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

type attemptModel struct {
	bun.BaseModel `bun:"table:hookline_attempts,alias:wa"`

	ID              string            `bun:"id,pk"`
	WebhookID       string            `bun:"webhook_id,notnull"`
	SurveyID        string            `bun:"survey_id,notnull"`
	ResponseID      string            `bun:"response_id"`
	Event           string            `bun:"event,notnull"`
	DeliveryID      string            `bun:"delivery_id,notnull"`
	URL             string            `bun:"url,notnull"`
	Method          string            `bun:"method,notnull"`
	RequestHeaders  map[string]string `bun:"request_headers,type:jsonb"`
	RequestBody     string            `bun:"request_body,notnull"`
	StatusCode      int               `bun:"status_code"`
	ResponseBody    string            `bun:"response_body"`
	ResponseHeaders map[string]string `bun:"response_headers,type:jsonb"`
	Success         bool              `bun:"success,notnull"`
	Error           string            `bun:"error"`
	DurationMs      int               `bun:"duration_ms,notnull"`
	Attempt         int               `bun:"attempt,notnull"`
	CanRetry        bool              `bun:"can_retry,notnull"`
	NextRetryAt     *time.Time        `bun:"next_retry_at,nullzero"`
	ClaimedAt       *time.Time        `bun:"claimed_at,nullzero"`
	RetriedAt       *time.Time        `bun:"retried_at,nullzero"`
	CreatedAt       time.Time         `bun:"created_at,notnull"`
	UpdatedAt       time.Time         `bun:"updated_at,notnull"`
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
		return nil, err
	}
	whID, err := id.ParseWebhookID(m.WebhookID)
	if err != nil {
		return nil, err
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
