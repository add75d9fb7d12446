// Package status provides read-only delivery rollups for dashboards.
package status

import (
	"context"
	"time"

	"github.com/formhive/hookline/delivery"
	"github.com/formhive/hookline/id"
)

// Summary is the per-subscription delivery rollup.
//
// Counts are per attempt row, not per chain: a chain that failed twice and
// then succeeded contributes one successful row and two rows that still
// carry their original retry-eligible classification.
type Summary struct {
	WebhookID string `json:"webhook_id"`

	Total          int `json:"total"`
	Successful     int `json:"successful"`
	FailedTerminal int `json:"failed_terminal"`
	PendingRetries int `json:"pending_retries"`

	LastDelivery *time.Time `json:"last_delivery,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`

	// SuccessRate is successful/total as a percentage, 0 when no rows exist.
	SuccessRate float64 `json:"success_rate"`
}

// Aggregator computes delivery summaries from the attempt log.
type Aggregator struct {
	log delivery.Store
}

// NewAggregator creates a status aggregator over the given attempt log.
func NewAggregator(log delivery.Store) *Aggregator {
	return &Aggregator{log: log}
}

// Summarize computes the rollup for one subscription. Pure read, no mutation.
func (g *Aggregator) Summarize(ctx context.Context, whID id.ID) (*Summary, error) {
	rows, err := g.log.ListByWebhook(ctx, whID)
	if err != nil {
		return nil, err
	}

	s := &Summary{WebhookID: whID.String()}
	for _, a := range rows {
		s.Total++

		at := a.CreatedAt
		if s.LastDelivery == nil || at.After(*s.LastDelivery) {
			t := at
			s.LastDelivery = &t
		}

		switch {
		case a.Success:
			s.Successful++
			if s.LastSuccess == nil || at.After(*s.LastSuccess) {
				t := at
				s.LastSuccess = &t
			}
		case a.CanRetry:
			s.PendingRetries++
			if s.LastFailure == nil || at.After(*s.LastFailure) {
				t := at
				s.LastFailure = &t
			}
		default:
			s.FailedTerminal++
			if s.LastFailure == nil || at.After(*s.LastFailure) {
				t := at
				s.LastFailure = &t
			}
		}
	}

	if s.Total > 0 {
		s.SuccessRate = float64(s.Successful) / float64(s.Total) * 100
	}
	return s, nil
}
