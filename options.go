package hookline

import (
	"log/slog"
	"sync"
	"time"

	"github.com/formhive/hookline/catalog"
	"github.com/formhive/hookline/delivery"
	"github.com/formhive/hookline/event"
	"github.com/formhive/hookline/observability"
	"github.com/formhive/hookline/payload"
	"github.com/formhive/hookline/status"
	"github.com/formhive/hookline/store"
	"github.com/formhive/hookline/subscription"
)

// Engine is the root webhook delivery engine.
type Engine struct {
	config  Config
	store   store.Store
	surveys event.SurveySource

	catalog  *catalog.Catalog
	subs     *subscription.Service
	builder  *payload.Builder
	executor *delivery.Executor
	poller   *delivery.Poller
	tester   *delivery.Tester
	status   *status.Aggregator

	metrics *observability.Metrics
	tracer  *observability.Tracer
	logger  *slog.Logger

	// dispatches tracks in-flight fire-and-forget deliveries so Stop can
	// wait them out.
	dispatches sync.WaitGroup
}

// Option configures an Engine instance.
type Option func(*Engine) error

// New creates a new Engine with the given options. A store and a survey
// source are required.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if e.store == nil {
		return nil, ErrNoStore
	}
	if e.surveys == nil {
		return nil, ErrNoSurveySource
	}
	e.wireServices()
	return e, nil
}

// WithStore sets the persistence backend for the Engine instance.
func WithStore(s store.Store) Option {
	return func(e *Engine) error {
		e.store = s
		return nil
	}
}

// WithSurveySource sets the host-side survey snapshot resolver.
func WithSurveySource(src event.SurveySource) Option {
	return func(e *Engine) error {
		e.surveys = src
		return nil
	}
}

// WithLogger sets the structured logger for the Engine instance.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithMetrics sets the Prometheus metrics collector.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) error {
		e.metrics = m
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer for delivery attempt spans.
func WithTracer(t *observability.Tracer) Option {
	return func(e *Engine) error {
		e.tracer = t
		return nil
	}
}

// WithRequestTimeout sets the HTTP timeout per delivery attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(e *Engine) error {
		e.config.RequestTimeout = d
		return nil
	}
}

// WithMaxRetries sets the default maximum attempt count per delivery chain.
func WithMaxRetries(n int) Option {
	return func(e *Engine) error {
		e.config.MaxRetries = n
		return nil
	}
}

// WithBackoff sets the fixed wait schedule between retry attempts.
func WithBackoff(schedule []time.Duration) Option {
	return func(e *Engine) error {
		e.config.Backoff = schedule
		return nil
	}
}

// WithPollInterval sets how often the retry poller sweeps for due retries.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) error {
		e.config.PollInterval = d
		return nil
	}
}

// WithPollBatchSize sets the maximum number of due retries claimed per sweep.
func WithPollBatchSize(n int) Option {
	return func(e *Engine) error {
		e.config.PollBatchSize = n
		return nil
	}
}

// WithConcurrency bounds how many deliveries the retry poller resubmits in
// parallel.
func WithConcurrency(n int) Option {
	return func(e *Engine) error {
		e.config.Concurrency = n
		return nil
	}
}

// WithClaimLease sets how long a claimed retry row is protected from a
// concurrent sweep.
func WithClaimLease(d time.Duration) Option {
	return func(e *Engine) error {
		e.config.ClaimLease = d
		return nil
	}
}

// WithUserAgent sets the User-Agent header sent on every delivery.
func WithUserAgent(ua string) Option {
	return func(e *Engine) error {
		e.config.UserAgent = ua
		return nil
	}
}

// WithMaxResponseBody caps how many response body bytes are retained per
// attempt row.
func WithMaxResponseBody(n int) Option {
	return func(e *Engine) error {
		e.config.MaxResponseBody = n
		return nil
	}
}
