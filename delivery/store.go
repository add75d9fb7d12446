package delivery

import (
	"context"
	"time"

	"github.com/formhive/hookline/id"
)

// Store defines the persistence contract for the delivery attempt log.
type Store interface {
	// AppendAttempt writes one immutable attempt row. Rows are never
	// updated after creation (the poller's claim lease excepted).
	AppendAttempt(ctx context.Context, a *Attempt) error

	// GetAttempt returns an attempt row by ID.
	GetAttempt(ctx context.Context, attID id.ID) (*Attempt, error)

	// ListAttempts returns attempt rows, newest first, optionally filtered
	// by subscription or survey.
	ListAttempts(ctx context.Context, opts ListOpts) ([]*Attempt, error)

	// ListByWebhook returns every attempt row for a subscription, for
	// status rollups.
	ListByWebhook(ctx context.Context, whID id.ID) ([]*Attempt, error)

	// ClaimDue atomically claims up to limit rows that are due for retry
	// (CanRetry, not successful, not yet retried, NextRetryAt <= now) and
	// whose previous claim lease, if any, has expired. Claimed rows are
	// invisible to concurrent sweeps until the lease elapses, which makes
	// overlapping poller runs safe; a crash between claim and resubmit
	// only delays the retry by one lease.
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*Attempt, error)

	// MarkRetried permanently records that a successor row was appended
	// for the given row, removing it from the due set.
	MarkRetried(ctx context.Context, attID id.ID, at time.Time) error
}
