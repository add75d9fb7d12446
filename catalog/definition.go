package catalog

import (
	"encoding/json"

	"github.com/formhive/hookline/event"
)

// Definition is the canonical description of a survey webhook event type.
// The built-in survey lifecycle events are registered at engine start; host
// applications may register additional types for custom integrations.
type Definition struct {
	// Name is the dot-separated event type name.
	// Convention: "<resource>.<action>" — e.g. "response.submitted".
	Name event.Type `json:"name"`

	// Description is a human-readable explanation of when this event fires.
	Description string `json:"description"`

	// Group is an optional category for organizing event types in docs/UI.
	Group string `json:"group,omitempty"`

	// Schema is an optional JSON Schema (draft-07) describing the payload shape.
	// When set, RegisterType validates the Example against it.
	Schema json.RawMessage `json:"schema,omitempty"`

	// Example is an example payload used for documentation and test deliveries.
	Example json.RawMessage `json:"example,omitempty"`
}
