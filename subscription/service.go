// Package subscription implements the webhook registry: CRUD over the
// endpoints a survey owner registers to receive lifecycle events.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/formhive/hookline/event"
	"github.com/formhive/hookline/id"
	"github.com/formhive/hookline/internal/entity"
	"github.com/formhive/hookline/signature"
)

// TypeChecker reports whether an event type name is registered.
// Satisfied by *catalog.Catalog.
type TypeChecker interface {
	Known(ctx context.Context, name event.Type) bool
}

// Service provides webhook subscription management operations.
type Service struct {
	store      Store
	surveys    event.SurveySource
	types      TypeChecker
	maxRetries int
	logger     *slog.Logger
}

// NewService creates a new subscription service. maxRetries is the retry
// ceiling stamped on every new subscription.
func NewService(store Store, surveys event.SurveySource, types TypeChecker, maxRetries int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		surveys:    surveys,
		types:      types,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Create registers a new webhook subscription for a survey. The survey must
// exist and the event set must be non-empty and recognized. A fresh signing
// secret is generated; it is returned only on this call and on explicit
// rotation.
func (svc *Service) Create(ctx context.Context, surveyID string, in Input) (*Subscription, error) {
	if _, err := svc.surveys.Survey(ctx, surveyID); err != nil {
		return nil, err
	}

	if err := svc.validate(ctx, in, true); err != nil {
		return nil, err
	}

	sub := &Subscription{
		Entity:              entity.New(),
		ID:                  id.NewWebhookID(),
		SurveyID:            surveyID,
		URL:                 in.URL,
		Name:                in.Name,
		Description:         in.Description,
		IsActive:            true,
		Events:              in.Events,
		Headers:             in.Headers,
		IncludeMetadata:     true,
		UseQuestionMappings: false,
		Secret:              signature.GenerateSecret(),
		MaxRetries:          svc.maxRetries,
	}
	if in.IsActive != nil {
		sub.IsActive = *in.IsActive
	}
	if in.IncludeMetadata != nil {
		sub.IncludeMetadata = *in.IncludeMetadata
	}
	if in.UseQuestionMappings != nil {
		sub.UseQuestionMappings = *in.UseQuestionMappings
	}

	if err := svc.store.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	svc.logger.InfoContext(ctx, "webhook created",
		"webhook_id", sub.ID, "survey_id", surveyID, "url", sub.URL)

	return sub, nil
}

// Get returns a subscription by ID.
func (svc *Service) Get(ctx context.Context, whID id.ID) (*Subscription, error) {
	return svc.store.GetSubscription(ctx, whID)
}

// Update modifies an existing subscription. Zero-valued Input fields are
// left unchanged; the secret is never touched here.
func (svc *Service) Update(ctx context.Context, whID id.ID, in Input) (*Subscription, error) {
	sub, err := svc.store.GetSubscription(ctx, whID)
	if err != nil {
		return nil, err
	}

	if err := svc.validate(ctx, in, false); err != nil {
		return nil, err
	}

	if in.URL != "" {
		sub.URL = in.URL
	}
	if in.Name != "" {
		sub.Name = in.Name
	}
	if in.Description != "" {
		sub.Description = in.Description
	}
	if len(in.Events) > 0 {
		sub.Events = in.Events
	}
	if in.Headers != nil {
		sub.Headers = in.Headers
	}
	if in.IsActive != nil {
		sub.IsActive = *in.IsActive
	}
	if in.IncludeMetadata != nil {
		sub.IncludeMetadata = *in.IncludeMetadata
	}
	if in.UseQuestionMappings != nil {
		sub.UseQuestionMappings = *in.UseQuestionMappings
	}

	if err := svc.store.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	return sub, nil
}

// Delete removes a subscription. Its delivery attempt rows are retained.
func (svc *Service) Delete(ctx context.Context, whID id.ID) error {
	return svc.store.DeleteSubscription(ctx, whID)
}

// List returns subscriptions for a survey.
func (svc *Service) List(ctx context.Context, surveyID string, opts ListOpts) ([]*Subscription, error) {
	return svc.store.ListSubscriptions(ctx, surveyID, opts)
}

// RotateSecret generates and persists a new signing secret. Rotation takes
// effect immediately: payloads signed with the old secret stop verifying as
// soon as the subscriber picks up the new value. There is no dual-secret
// grace window.
func (svc *Service) RotateSecret(ctx context.Context, whID id.ID) (string, error) {
	sub, err := svc.store.GetSubscription(ctx, whID)
	if err != nil {
		return "", err
	}

	sub.Secret = signature.GenerateSecret()
	if err := svc.store.UpdateSubscription(ctx, sub); err != nil {
		return "", err
	}

	svc.logger.InfoContext(ctx, "webhook secret rotated", "webhook_id", whID)

	return sub.Secret, nil
}

// validate checks an Input. On create, URL and a non-empty event set are
// required; on update they are optional but must be well-formed if present.
func (svc *Service) validate(ctx context.Context, in Input, create bool) error {
	if create || in.URL != "" {
		if in.URL == "" {
			return &ValidationError{Field: "url", Message: "required"}
		}
		u, err := url.ParseRequestURI(in.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return &ValidationError{Field: "url", Message: "must be a valid http(s) URL"}
		}
	}

	if create && len(in.Events) == 0 {
		return &ValidationError{Field: "events", Message: "at least one event type required"}
	}
	for _, et := range in.Events {
		if !svc.types.Known(ctx, et) {
			return &ValidationError{Field: "events", Message: fmt.Sprintf("unknown event type %q", et)}
		}
	}

	return nil
}

// ValidationError indicates an invalid subscription input. It is rejected
// synchronously at registration time and never reaches delivery.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "subscription validation: " + e.Field + ": " + e.Message
}
