package subscription

import (
	"slices"

	"github.com/formhive/hookline/event"
	"github.com/formhive/hookline/id"
	"github.com/formhive/hookline/internal/entity"
)

// Subscription represents one external endpoint registered to receive
// survey lifecycle events.
type Subscription struct {
	entity.Entity

	// ID is the unique TypeID for this subscription.
	ID id.ID `json:"id"`

	// SurveyID is the owning survey, assigned by the host application.
	SurveyID string `json:"survey_id"`

	// URL is the webhook delivery URL.
	URL string `json:"url"`

	// Name is a human-readable label for this subscription.
	Name string `json:"name"`

	// Description is an optional longer description.
	Description string `json:"description,omitempty"`

	// IsActive indicates whether the subscription receives deliveries.
	IsActive bool `json:"is_active"`

	// Events is the non-empty set of subscribed event types.
	Events []event.Type `json:"events"`

	// Headers are custom HTTP headers merged last into each delivery,
	// overriding built-in headers on name collision.
	Headers map[string]string `json:"headers,omitempty"`

	// IncludeMetadata controls whether response metadata is included in payloads.
	IncludeMetadata bool `json:"include_metadata"`

	// UseQuestionMappings controls whether answer keys are rewritten to
	// external field names from the survey's mapping table.
	UseQuestionMappings bool `json:"use_question_mappings"`

	// Secret is the HMAC signing secret. Never serialized.
	Secret string `json:"-"`

	// MaxRetries is the maximum attempt count per delivery chain.
	MaxRetries int `json:"max_retries"`

	// RetryCount is the attempt count of the most recent delivery chain.
	// Advisory only: it is updated outside the log write and may be stale
	// under concurrency. The attempt log is authoritative.
	RetryCount int `json:"retry_count"`
}

// Subscribed reports whether the subscription's event set contains t.
func (s *Subscription) Subscribed(t event.Type) bool {
	return slices.Contains(s.Events, t)
}
