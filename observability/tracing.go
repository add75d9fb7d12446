package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/formhive/hookline"

// Tracer provides OpenTelemetry tracing for hookline deliveries.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new hookline tracer.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(tracerName),
	}
}

// StartAttemptSpan starts a new span for a delivery attempt.
func (t *Tracer) StartAttemptSpan(ctx context.Context, webhookID, deliveryID string, attempt int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "hookline.delivery",
		trace.WithAttributes(
			attribute.String("hookline.webhook_id", webhookID),
			attribute.String("hookline.delivery_id", deliveryID),
			attribute.Int("hookline.attempt", attempt),
		),
	)
}

// EndAttemptSpan ends a delivery attempt span with result attributes.
func (t *Tracer) EndAttemptSpan(span trace.Span, statusCode int, durationMs int, errMsg string) {
	span.SetAttributes(
		attribute.Int("http.status_code", statusCode),
		attribute.Int("hookline.duration_ms", durationMs),
	)
	if errMsg != "" {
		span.SetAttributes(attribute.String("hookline.error", errMsg))
	}
	span.End()
}
