package catalog

import (
	"github.com/formhive/hookline/internal/entity"
)

// EventType is the stored entity for a registered webhook event type.
type EventType struct {
	entity.Entity

	// Definition contains the event type descriptor.
	Definition Definition `json:"definition"`

	// Builtin marks the survey lifecycle events hookline registers itself.
	// Builtin types cannot be deleted.
	Builtin bool `json:"builtin"`
}
