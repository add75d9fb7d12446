package catalog

import (
	"encoding/json"

	"github.com/formhive/hookline/event"
)

// responseEventSchema describes the payload shape of response.* events.
var responseEventSchema = json.RawMessage(`{
	"type": "object",
	"required": ["deliveryId", "event", "timestamp", "survey", "response"],
	"properties": {
		"deliveryId": {"type": "string"},
		"event": {"type": "string"},
		"timestamp": {"type": "string"},
		"survey": {
			"type": "object",
			"required": ["id", "name", "status"],
			"properties": {
				"id": {"type": "string"},
				"name": {"type": "string"},
				"status": {"type": "string"}
			}
		},
		"response": {
			"type": "object",
			"required": ["id", "submittedAt", "isComplete", "answers"],
			"properties": {
				"id": {"type": "string"},
				"submittedAt": {"type": "string"},
				"completedAt": {"type": "string"},
				"isComplete": {"type": "boolean"},
				"answers": {"type": "object"},
				"metadata": {"type": "object"}
			}
		},
		"questionMappings": {"type": "object"}
	}
}`)

// surveyEventSchema describes the payload shape of survey.* events.
var surveyEventSchema = json.RawMessage(`{
	"type": "object",
	"required": ["deliveryId", "event", "timestamp", "survey"],
	"properties": {
		"deliveryId": {"type": "string"},
		"event": {"type": "string"},
		"timestamp": {"type": "string"},
		"survey": {
			"type": "object",
			"required": ["id", "name", "status"],
			"properties": {
				"id": {"type": "string"},
				"name": {"type": "string"},
				"status": {"type": "string"}
			}
		}
	}
}`)

var responseExample = json.RawMessage(`{
	"deliveryId": "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
	"event": "response.submitted",
	"timestamp": "2025-06-01T12:00:00Z",
	"survey": {"id": "svy_42", "name": "Customer Feedback", "status": "published"},
	"response": {
		"id": "rsp_1001",
		"submittedAt": "2025-06-01T11:59:58Z",
		"completedAt": "2025-06-01T11:59:58Z",
		"isComplete": true,
		"answers": {"q_nps": 9, "q_comment": "Great product"},
		"metadata": {"userAgent": "Mozilla/5.0"}
	}
}`)

var surveyExample = json.RawMessage(`{
	"deliveryId": "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
	"event": "survey.published",
	"timestamp": "2025-06-01T12:00:00Z",
	"survey": {"id": "svy_42", "name": "Customer Feedback", "status": "published"}
}`)

// BuiltinDefinitions returns the survey lifecycle event type definitions
// registered by the engine at start.
func BuiltinDefinitions() []Definition {
	return []Definition{
		{
			Name:        event.ResponseSubmitted,
			Description: "A respondent submitted a new response.",
			Group:       "response",
			Schema:      responseEventSchema,
			Example:     responseExample,
		},
		{
			Name:        event.ResponseUpdated,
			Description: "An existing response was modified.",
			Group:       "response",
			Schema:      responseEventSchema,
		},
		{
			Name:        event.ResponseDeleted,
			Description: "A response was deleted.",
			Group:       "response",
			Schema:      responseEventSchema,
		},
		{
			Name:        event.SurveyPublished,
			Description: "A survey went live and started accepting responses.",
			Group:       "survey",
			Schema:      surveyEventSchema,
			Example:     surveyExample,
		},
		{
			Name:        event.SurveyUnpublished,
			Description: "A survey was taken offline.",
			Group:       "survey",
			Schema:      surveyEventSchema,
		},
		{
			Name:        event.SurveyClosed,
			Description: "A survey stopped accepting responses.",
			Group:       "survey",
			Schema:      surveyEventSchema,
		},
	}
}
