// Package payload constructs the canonical webhook payload for each event
// variant.
//
// The payload is serialized exactly once: the bytes in Envelope.Body are
// what gets signed and what gets sent. Re-serializing on either side of the
// signature could legally reorder keys and break verification.
package payload

import (
	"time"

	"github.com/formhive/hookline/event"
)

// Document is the canonical webhook payload shape.
type Document struct {
	// DeliveryID correlates the payload with its delivery attempt chain.
	// It is a fresh UUID per chain, reused across retries of that chain.
	DeliveryID string `json:"deliveryId"`

	// Event is the event type name.
	Event event.Type `json:"event"`

	// Timestamp is when the payload was built, RFC 3339 UTC.
	Timestamp time.Time `json:"timestamp"`

	// Survey is the survey snapshot.
	Survey SurveyBody `json:"survey"`

	// Response is present only on response.* events.
	Response *ResponseBody `json:"response,omitempty"`

	// QuestionMappings echoes the applied mapping table when answer keys
	// were rewritten.
	QuestionMappings map[string]string `json:"questionMappings,omitempty"`
}

// SurveyBody is the survey portion of the payload.
type SurveyBody struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// ResponseBody is the response portion of the payload.
type ResponseBody struct {
	ID          string         `json:"id"`
	SubmittedAt time.Time      `json:"submittedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	IsComplete  bool           `json:"isComplete"`
	Answers     map[string]any `json:"answers"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Envelope is a built payload: the serialized bytes plus the identifiers a
// delivery attempt needs. Body holds the exact bytes that are signed and
// sent as the request body.
type Envelope struct {
	DeliveryID string
	Event      event.Type
	Body       []byte
}
