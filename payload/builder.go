package payload

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/formhive/hookline/event"
)

// Options carries the subscription flags that shape a payload.
type Options struct {
	// IncludeMetadata includes response metadata when set. When unset the
	// metadata field is absent, not null.
	IncludeMetadata bool

	// UseQuestionMappings rewrites answer keys to external field names
	// using the survey snapshot's mapping table.
	UseQuestionMappings bool
}

// variantFunc populates the event-specific portion of a Document.
// One function per payload variant, keyed by event type.
type variantFunc func(doc *Document, survey *event.Survey, resp *event.Response, opts Options) error

var variants = map[event.Type]variantFunc{
	event.ResponseSubmitted: buildResponseVariant,
	event.ResponseUpdated:   buildResponseVariant,
	event.ResponseDeleted:   buildResponseVariant,
	event.SurveyPublished:   buildSurveyVariant,
	event.SurveyUnpublished: buildSurveyVariant,
	event.SurveyClosed:      buildSurveyVariant,
}

// Builder constructs canonical payload envelopes.
type Builder struct {
	now func() time.Time
}

// NewBuilder returns a payload builder.
func NewBuilder() *Builder {
	return &Builder{now: func() time.Time { return time.Now().UTC() }}
}

// Build constructs and serializes the payload for one new delivery chain.
// A fresh deliveryId is generated; retries of the chain reuse the returned
// envelope's bytes rather than rebuilding.
func (b *Builder) Build(evt event.Type, survey *event.Survey, resp *event.Response, opts Options) (*Envelope, error) {
	doc := &Document{
		DeliveryID: uuid.NewString(),
		Event:      evt,
		Timestamp:  b.now(),
		Survey: SurveyBody{
			ID:     survey.ID,
			Name:   survey.Name,
			Status: survey.Status,
		},
	}

	variant, ok := variants[evt]
	if !ok {
		// Host-registered custom types get the survey-only shape.
		variant = buildSurveyVariant
	}
	if err := variant(doc, survey, resp, opts); err != nil {
		return nil, err
	}

	// Serialize exactly once. These bytes are signed and sent as-is.
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("payload: marshal: %w", err)
	}

	return &Envelope{
		DeliveryID: doc.DeliveryID,
		Event:      evt,
		Body:       body,
	}, nil
}

// buildResponseVariant populates the response portion for response.* events.
func buildResponseVariant(doc *Document, survey *event.Survey, resp *event.Response, opts Options) error {
	if resp == nil {
		return fmt.Errorf("payload: event %q requires a response snapshot", doc.Event)
	}

	body := &ResponseBody{
		ID:          resp.ID,
		SubmittedAt: resp.SubmittedAt,
		CompletedAt: resp.CompletedAt,
		IsComplete:  resp.IsComplete,
		Answers:     resp.Answers,
	}

	if opts.IncludeMetadata && len(resp.Metadata) > 0 {
		body.Metadata = resp.Metadata
	}

	if opts.UseQuestionMappings && len(survey.QuestionMappings) > 0 {
		body.Answers = remapAnswers(resp.Answers, survey.QuestionMappings)
		doc.QuestionMappings = survey.QuestionMappings
	}

	doc.Response = body
	return nil
}

// buildSurveyVariant is the payload shape for survey.* events: survey
// snapshot only, no response.
func buildSurveyVariant(_ *Document, _ *event.Survey, _ *event.Response, _ Options) error {
	return nil
}

// remapAnswers rewrites answer keys to external field names. Unmapped keys
// pass through unchanged with their original question ID as key.
func remapAnswers(answers map[string]any, mappings map[string]string) map[string]any {
	if answers == nil {
		return nil
	}
	out := make(map[string]any, len(answers))
	for qid, val := range answers {
		key := qid
		if ext, ok := mappings[qid]; ok && ext != "" {
			key = ext
		}
		out[key] = val
	}
	return out
}
