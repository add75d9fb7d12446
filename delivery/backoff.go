package delivery

import "time"

// Backoff is the fixed escalating wait schedule before retrying a failed
// attempt. A failure of attempt N waits schedule[N-1] before attempt N+1;
// attempts beyond the schedule reuse the last entry.
type Backoff struct {
	schedule []time.Duration
}

// defaultSchedule is used when no schedule is supplied, so a misconfigured
// host gets the standard waits instead of a panic on the first failure.
var defaultSchedule = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
}

// NewBackoff creates a backoff with the given schedule. An empty schedule
// falls back to the default 1m/5m/15m waits.
func NewBackoff(schedule []time.Duration) *Backoff {
	if len(schedule) == 0 {
		schedule = defaultSchedule
	}
	return &Backoff{schedule: schedule}
}

// Delay returns the wait after a failure of the given 1-based attempt.
func (b *Backoff) Delay(attempt int) time.Duration {
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(b.schedule) {
		idx = len(b.schedule) - 1
	}
	return b.schedule[idx]
}

// NextRetryAt returns when a failure of the given attempt becomes due,
// measured from the failed row's creation time.
func (b *Backoff) NextRetryAt(createdAt time.Time, attempt int) time.Time {
	return createdAt.Add(b.Delay(attempt))
}
