package subscription

import "github.com/formhive/hookline/event"

// Input is the creation/update payload for webhook subscriptions.
type Input struct {
	// URL is the webhook delivery URL.
	URL string `json:"url"`

	// Name is a human-readable label.
	Name string `json:"name"`

	// Description is an optional longer description.
	Description string `json:"description,omitempty"`

	// Events is the set of subscribed event types. Required on create.
	Events []event.Type `json:"events"`

	// Headers are custom HTTP headers sent with each delivery.
	Headers map[string]string `json:"headers,omitempty"`

	// IsActive toggles delivery. Defaults to true on create.
	IsActive *bool `json:"is_active,omitempty"`

	// IncludeMetadata controls response metadata inclusion. Defaults to true
	// on create.
	IncludeMetadata *bool `json:"include_metadata,omitempty"`

	// UseQuestionMappings controls answer key remapping. Defaults to false
	// on create.
	UseQuestionMappings *bool `json:"use_question_mappings,omitempty"`
}

// ListOpts configures filtering and pagination for subscription listing.
type ListOpts struct {
	Offset   int
	Limit    int
	IsActive *bool
}
