package mongo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/formhive/hookline/catalog"
	"github.com/formhive/hookline/delivery"
	"github.com/formhive/hookline/event"
	"github.com/formhive/hookline/id"
	"github.com/formhive/hookline/internal/entity"
	"github.com/formhive/hookline/subscription"
)

// --- Event type models ---

type eventTypeModel struct {
	Name        string    `bson:"_id"`
	Description string    `bson:"description"`
	GroupName   string    `bson:"group_name"`
	Schema      []byte    `bson:"schema,omitempty"`
	Example     []byte    `bson:"example,omitempty"`
	Builtin     bool      `bson:"builtin"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
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
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Definition: catalog.Definition{
			Name:        event.Type(m.Name),
			Description: m.Description,
			Group:       m.GroupName,
			Schema:      json.RawMessage(m.Schema),
			Example:     json.RawMessage(m.Example),
		},
		Builtin: m.Builtin,
	}
}

// --- Subscription models ---

type subscriptionModel struct {
	ID                  string            `bson:"_id"`
	SurveyID            string            `bson:"survey_id"`
	URL                 string            `bson:"url"`
	Name                string            `bson:"name"`
	Description         string            `bson:"description,omitempty"`
	IsActive            bool              `bson:"is_active"`
	Events              []string          `bson:"events"`
	Headers             map[string]string `bson:"headers,omitempty"`
	IncludeMetadata     bool              `bson:"include_metadata"`
	UseQuestionMappings bool              `bson:"use_question_mappings"`
	Secret              string            `bson:"secret"`
	MaxRetries          int               `bson:"max_retries"`
	RetryCount          int               `bson:"retry_count"`
	CreatedAt           time.Time         `bson:"created_at"`
	UpdatedAt           time.Time         `bson:"updated_at"`
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
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
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

// --- Attempt models ---

type attemptModel struct {
	ID              string            `bson:"_id"`
	WebhookID       string            `bson:"webhook_id"`
	SurveyID        string            `bson:"survey_id"`
	ResponseID      string            `bson:"response_id,omitempty"`
	Event           string            `bson:"event"`
	DeliveryID      string            `bson:"delivery_id"`
	URL             string            `bson:"url"`
	Method          string            `bson:"method"`
	RequestHeaders  map[string]string `bson:"request_headers,omitempty"`
	RequestBody     string            `bson:"request_body"`
	StatusCode      int               `bson:"status_code,omitempty"`
	ResponseBody    string            `bson:"response_body,omitempty"`
	ResponseHeaders map[string]string `bson:"response_headers,omitempty"`
	Success         bool              `bson:"success"`
	Error           string            `bson:"error,omitempty"`
	DurationMs      int               `bson:"duration_ms"`
	Attempt         int               `bson:"attempt"`
	CanRetry        bool              `bson:"can_retry"`
	NextRetryAt     *time.Time        `bson:"next_retry_at,omitempty"`
	ClaimedAt       *time.Time        `bson:"claimed_at,omitempty"`
	RetriedAt       *time.Time        `bson:"retried_at,omitempty"`
	CreatedAt       time.Time         `bson:"created_at"`
	UpdatedAt       time.Time         `bson:"updated_at"`
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
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
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
