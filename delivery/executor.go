package delivery

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/formhive/hookline/event"
	"github.com/formhive/hookline/id"
	"github.com/formhive/hookline/internal/entity"
	"github.com/formhive/hookline/observability"
	"github.com/formhive/hookline/subscription"
)

// SubscriptionStore is the slice of subscription persistence the executor
// needs: loading the target and bumping its advisory retry counter.
type SubscriptionStore interface {
	GetSubscription(ctx context.Context, whID id.ID) (*subscription.Subscription, error)
	SetRetryCount(ctx context.Context, whID id.ID, count int) error
}

// Request describes one delivery attempt to perform. Body holds the exact
// payload bytes, serialized once when the chain began; DeliveryID correlates
// every attempt of the chain.
type Request struct {
	Sub        *subscription.Subscription
	Body       []byte
	DeliveryID string
	Event      event.Type
	SurveyID   string
	ResponseID string

	// Attempt is the 1-based attempt number for the row this request
	// will produce.
	Attempt int
}

// Executor performs one delivery attempt end to end: send the request,
// classify the outcome, and append exactly one immutable attempt row.
type Executor struct {
	log     Store
	subs    SubscriptionStore
	sender  *Sender
	backoff *Backoff

	maxRetries int
	metrics    *observability.Metrics
	tracer     *observability.Tracer
	logger     *slog.Logger
}

// ExecutorConfig holds executor construction parameters.
type ExecutorConfig struct {
	Sender     *Sender
	Backoff    *Backoff
	MaxRetries int
	Metrics    *observability.Metrics
	Tracer     *observability.Tracer
	Logger     *slog.Logger
}

// NewExecutor creates a delivery executor.
func NewExecutor(log Store, subs SubscriptionStore, cfg ExecutorConfig) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		log:        log,
		subs:       subs,
		sender:     cfg.Sender,
		backoff:    cfg.Backoff,
		maxRetries: cfg.MaxRetries,
		metrics:    cfg.Metrics,
		tracer:     cfg.Tracer,
		logger:     logger,
	}
}

// Execute performs one attempt and appends its row. Every completed HTTP
// exchange produces a row, success or failure; only an append error leaves
// no trace, and then the error reports it.
func (x *Executor) Execute(ctx context.Context, req Request) (*Attempt, error) {
	var span trace.Span
	if x.tracer != nil {
		ctx, span = x.tracer.StartAttemptSpan(ctx, req.Sub.ID.String(), req.DeliveryID, req.Attempt)
	}

	maxRetries := x.maxRetries
	if req.Sub.MaxRetries > 0 {
		maxRetries = req.Sub.MaxRetries
	}

	result := x.sender.Send(ctx, req.Sub, req.Body, req.DeliveryID, string(req.Event))

	a := &Attempt{
		Entity:          entity.New(),
		ID:              id.NewAttemptID(),
		WebhookID:       req.Sub.ID,
		SurveyID:        req.SurveyID,
		ResponseID:      req.ResponseID,
		Event:           req.Event,
		DeliveryID:      req.DeliveryID,
		URL:             req.Sub.URL,
		Method:          http.MethodPost,
		RequestHeaders:  result.SentHeaders,
		RequestBody:     string(req.Body),
		StatusCode:      result.StatusCode,
		ResponseBody:    result.ResponseBody,
		ResponseHeaders: result.ResponseHeaders,
		Success:         result.Success(),
		Error:           result.Error,
		DurationMs:      result.DurationMs,
		Attempt:         req.Attempt,
	}

	// A failed attempt is retryable iff the chain has attempts left.
	// NextRetryAt is set exactly when CanRetry is.
	if !a.Success && a.Attempt < maxRetries {
		a.CanRetry = true
		due := x.backoff.NextRetryAt(a.CreatedAt, a.Attempt)
		a.NextRetryAt = &due
	}

	if span != nil {
		x.tracer.EndAttemptSpan(span, a.StatusCode, a.DurationMs, a.Error)
	}

	if err := x.log.AppendAttempt(ctx, a); err != nil {
		x.logger.ErrorContext(ctx, "append attempt failed",
			"webhook_id", req.Sub.ID, "delivery_id", req.DeliveryID, "error", err)
		return nil, err
	}

	x.record(ctx, a)
	return a, nil
}

// Resubmit re-sends a previously failed attempt as the next row of its
// chain: same stored body and delivery ID, fresh signature, attempt number
// incremented. The source row is marked retried only after the successor
// row exists, so a crash in between re-delivers rather than drops.
func (x *Executor) Resubmit(ctx context.Context, prev *Attempt) (*Attempt, error) {
	sub, err := x.subs.GetSubscription(ctx, prev.WebhookID)
	if err != nil {
		return nil, err
	}

	next, err := x.Execute(ctx, Request{
		Sub:        sub,
		Body:       []byte(prev.RequestBody),
		DeliveryID: prev.DeliveryID,
		Event:      prev.Event,
		SurveyID:   prev.SurveyID,
		ResponseID: prev.ResponseID,
		Attempt:    prev.Attempt + 1,
	})
	if err != nil {
		return nil, err
	}

	if err := x.log.MarkRetried(ctx, prev.ID, time.Now().UTC()); err != nil {
		x.logger.WarnContext(ctx, "mark retried failed",
			"attempt_id", prev.ID, "error", err)
	}

	// The scheduled retry represented by prev has now been consumed; its
	// successor, if retryable, already incremented the gauge in record.
	if x.metrics != nil {
		x.metrics.PendingRetries.Dec()
	}
	return next, nil
}

// record emits metrics, the advisory retry counter, and the outcome log line.
func (x *Executor) record(ctx context.Context, a *Attempt) {
	latencySeconds := float64(a.DurationMs) / 1000.0

	// Advisory only: the counter mirrors the latest chain's attempt number
	// and resets on success. It is best-effort, not updated transactionally
	// with the log row.
	count := a.Attempt
	if a.Success {
		count = 0
	}
	if err := x.subs.SetRetryCount(ctx, a.WebhookID, count); err != nil {
		x.logger.WarnContext(ctx, "set retry count failed",
			"webhook_id", a.WebhookID, "error", err)
	}

	switch {
	case a.Success:
		if x.metrics != nil {
			x.metrics.RecordDelivery("delivered", latencySeconds)
		}
		x.logger.DebugContext(ctx, "delivered",
			"webhook_id", a.WebhookID, "delivery_id", a.DeliveryID,
			"attempt", a.Attempt, "status", a.StatusCode, "duration_ms", a.DurationMs)

	case a.CanRetry:
		if x.metrics != nil {
			x.metrics.RecordDelivery("retry_scheduled", latencySeconds)
			x.metrics.PendingRetries.Inc()
		}
		x.logger.DebugContext(ctx, "retry scheduled",
			"webhook_id", a.WebhookID, "delivery_id", a.DeliveryID,
			"attempt", a.Attempt, "next_retry_at", a.NextRetryAt)

	default:
		if x.metrics != nil {
			x.metrics.RecordDelivery("failed_terminal", latencySeconds)
		}
		x.logger.WarnContext(ctx, "delivery failed permanently",
			"webhook_id", a.WebhookID, "delivery_id", a.DeliveryID,
			"attempt", a.Attempt, "status", a.StatusCode, "error", a.Error)
	}
}
