// Package delivery implements webhook delivery execution: sending signed
// payloads, recording immutable attempt rows, and resubmitting failures on
// the fixed backoff schedule.
package delivery

import (
	"time"

	"github.com/formhive/hookline/event"
	"github.com/formhive/hookline/id"
	"github.com/formhive/hookline/internal/entity"
)

// Attempt is one HTTP send try for one event to one subscriber, recorded as
// an immutable log row. Rows are never updated after creation: a retry
// produces a new row with Attempt+1, forming a chain correlated by
// DeliveryID.
type Attempt struct {
	entity.Entity

	// ID is the unique TypeID for this attempt row.
	ID id.ID `json:"id"`

	// WebhookID references the target subscription.
	WebhookID id.ID `json:"webhook_id"`

	// SurveyID is the survey the triggering event belongs to.
	SurveyID string `json:"survey_id"`

	// ResponseID is set for response.* events.
	ResponseID string `json:"response_id,omitempty"`

	// Event is the delivered event type.
	Event event.Type `json:"event"`

	// DeliveryID is the correlation UUID shared with the payload. All
	// attempts of one chain carry the same value.
	DeliveryID string `json:"delivery_id"`

	// URL, Method, RequestHeaders and RequestBody snapshot the request as
	// sent. RequestBody holds the exact bytes that were signed.
	URL            string            `json:"url"`
	Method         string            `json:"method"`
	RequestHeaders map[string]string `json:"request_headers,omitempty"`
	RequestBody    string            `json:"request_body"`

	// StatusCode is the HTTP status, 0 on transport failure.
	StatusCode int `json:"status_code,omitempty"`

	// ResponseBody is the subscriber's response body, truncated.
	ResponseBody string `json:"response_body,omitempty"`

	// ResponseHeaders are the subscriber's response headers.
	ResponseHeaders map[string]string `json:"response_headers,omitempty"`

	// Success is true iff the subscriber returned a 2xx status.
	Success bool `json:"success"`

	// Error is the transport or classification error message on failure.
	Error string `json:"error,omitempty"`

	// DurationMs is the wall time of the HTTP exchange in milliseconds.
	DurationMs int `json:"duration_ms"`

	// Attempt is the 1-based position of this row in its chain.
	Attempt int `json:"attempt"`

	// CanRetry is true iff the attempt failed with retries remaining:
	// !Success && Attempt < maxRetries at write time.
	CanRetry bool `json:"can_retry"`

	// NextRetryAt is when the poller should resubmit. Set iff CanRetry.
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`

	// ClaimedAt is the poller's claim lease. A claimed row is invisible to
	// concurrent sweeps until the lease expires, so overlapping poller
	// runs cannot double-send it.
	//
	// ClaimedAt and RetriedAt are retry bookkeeping, not part of the
	// delivery outcome: they are the only fields a store may touch after
	// the row is written, and they are never serialized.
	ClaimedAt *time.Time `json:"-"`

	// RetriedAt is set permanently once a successor row (Attempt+1) has
	// been appended for this row, taking it out of the due set for good.
	RetriedAt *time.Time `json:"-"`
}

// ListOpts configures filtering and pagination for attempt listing.
type ListOpts struct {
	Offset    int
	Limit     int
	WebhookID *id.ID
	SurveyID  string
	Success   *bool
}
