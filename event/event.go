// Package event defines the survey lifecycle event vocabulary and the
// transient snapshot types that external collaborators hand to hookline.
//
// Surveys and responses are owned by the host application's persistence
// layer. Hookline never stores them; it only consumes the snapshots
// provided at dispatch time.
package event

import (
	"context"
	"time"
)

// Type is the dot-separated survey lifecycle event name.
type Type string

// Built-in survey lifecycle event types.
const (
	ResponseSubmitted Type = "response.submitted"
	ResponseUpdated   Type = "response.updated"
	ResponseDeleted   Type = "response.deleted"
	SurveyPublished   Type = "survey.published"
	SurveyUnpublished Type = "survey.unpublished"
	SurveyClosed      Type = "survey.closed"
)

// IsResponseEvent reports whether t carries a response snapshot in its payload.
func (t Type) IsResponseEvent() bool {
	switch t {
	case ResponseSubmitted, ResponseUpdated, ResponseDeleted:
		return true
	default:
		return false
	}
}

// Survey is the snapshot of a survey at dispatch time.
type Survey struct {
	// ID is the survey identifier assigned by the host application.
	ID string `json:"id"`

	// Name is the survey's display name.
	Name string `json:"name"`

	// Status is the survey lifecycle status (e.g. "draft", "published", "closed").
	Status string `json:"status"`

	// QuestionMappings maps question IDs to external field names.
	// Used for answer key remapping when a subscription opts in.
	QuestionMappings map[string]string `json:"question_mappings,omitempty"`
}

// Response is the snapshot of a survey response at dispatch time.
type Response struct {
	// ID is the response identifier assigned by the host application.
	ID string `json:"id"`

	// SubmittedAt is when the response was submitted.
	SubmittedAt time.Time `json:"submitted_at"`

	// CompletedAt is when the respondent finished, if they did.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// IsComplete indicates whether all required questions were answered.
	IsComplete bool `json:"is_complete"`

	// Answers maps question IDs to submitted answer values.
	Answers map[string]any `json:"answers"`

	// Metadata holds respondent context (user agent, referrer, etc.).
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SurveySource resolves survey snapshots from the host application.
// The survey persistence service implements this; hookline calls it on
// every dispatch and on subscription creation.
type SurveySource interface {
	// Survey returns the snapshot for the given survey ID, or
	// hookline.ErrSurveyNotFound if the survey does not exist.
	Survey(ctx context.Context, surveyID string) (*Survey, error)
}

// SurveySourceFunc adapts a function to the SurveySource interface.
type SurveySourceFunc func(ctx context.Context, surveyID string) (*Survey, error)

// Survey implements SurveySource.
func (f SurveySourceFunc) Survey(ctx context.Context, surveyID string) (*Survey, error) {
	return f(ctx, surveyID)
}
