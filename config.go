package hookline

import "time"

// Config holds the configuration for an Engine instance.
type Config struct {
	// RequestTimeout is the hard HTTP timeout per delivery attempt.
	RequestTimeout time.Duration

	// MaxRetries is the default maximum attempt count per delivery chain.
	MaxRetries int

	// Backoff defines the fixed wait schedule before retrying a failed
	// attempt, indexed by the attempt number that failed.
	Backoff []time.Duration

	// PollInterval is how often the retry poller sweeps for due retries
	// when its internal loop is used.
	PollInterval time.Duration

	// PollBatchSize is the maximum number of due retries claimed per sweep.
	PollBatchSize int

	// Concurrency bounds how many deliveries the retry poller resubmits
	// in parallel.
	Concurrency int

	// ClaimLease is how long a claimed retry row is protected from a
	// concurrent sweep before the claim expires.
	ClaimLease time.Duration

	// UserAgent is the fixed User-Agent header sent on every delivery.
	UserAgent string

	// MaxResponseBody caps how many response body bytes are retained on a
	// delivery attempt row.
	MaxResponseBody int
}

// DefaultBackoff is the fixed escalating retry schedule: a failure of
// attempt N waits DefaultBackoff[N-1] before attempt N+1.
var DefaultBackoff = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RequestTimeout:  30 * time.Second,
		MaxRetries:      3,
		Backoff:         DefaultBackoff,
		PollInterval:    30 * time.Second,
		PollBatchSize:   100,
		Concurrency:     8,
		ClaimLease:      1 * time.Minute,
		UserAgent:       "FormHive-Hookline/1.0",
		MaxResponseBody: 1024,
	}
}
