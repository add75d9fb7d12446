package delivery

import (
	"context"
	"time"

	"github.com/formhive/hookline/event"
	"github.com/formhive/hookline/payload"
	"github.com/formhive/hookline/subscription"
)

// TestResult is the outcome of a test delivery, reported back to the caller
// instead of being logged.
type TestResult struct {
	DeliveryID   string `json:"delivery_id"`
	StatusCode   int    `json:"status_code,omitempty"`
	Success      bool   `json:"success"`
	DurationMs   int    `json:"duration_ms"`
	Error        string `json:"error,omitempty"`
	ResponseBody string `json:"response_body,omitempty"`
}

// Tester sends a synthetic, fully signed test payload to a subscription.
// Test deliveries exercise the real send path but write no attempt row and
// are never retried.
type Tester struct {
	sender  *Sender
	builder *payload.Builder
}

// NewTester creates a test delivery sender.
func NewTester(sender *Sender) *Tester {
	return &Tester{
		sender:  sender,
		builder: payload.NewBuilder(),
	}
}

// Send builds a sample payload for the given event type and delivers it to
// the subscription. The payload uses placeholder survey and response
// snapshots so subscribers can verify their endpoint and signature handling
// without real data.
func (t *Tester) Send(ctx context.Context, sub *subscription.Subscription, evt event.Type) (*TestResult, error) {
	survey := &event.Survey{
		ID:     sub.SurveyID,
		Name:   "Test Survey",
		Status: "published",
	}

	var resp *event.Response
	if evt.IsResponseEvent() {
		now := time.Now().UTC()
		resp = &event.Response{
			ID:          "resp_test",
			SubmittedAt: now,
			CompletedAt: &now,
			IsComplete:  true,
			Answers: map[string]any{
				"q_1": "This is a test delivery.",
			},
			Metadata: map[string]any{
				"test": true,
			},
		}
	}

	env, err := t.builder.Build(evt, survey, resp, payload.Options{
		IncludeMetadata:     sub.IncludeMetadata,
		UseQuestionMappings: sub.UseQuestionMappings,
	})
	if err != nil {
		return nil, err
	}

	result := t.sender.Send(ctx, sub, env.Body, env.DeliveryID, string(evt))
	return &TestResult{
		DeliveryID:   env.DeliveryID,
		StatusCode:   result.StatusCode,
		Success:      result.Success(),
		DurationMs:   result.DurationMs,
		Error:        result.Error,
		ResponseBody: result.ResponseBody,
	}, nil
}
