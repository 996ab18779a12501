package authsecure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	apperrors "authsecure/internal/errors"
)

// Outcome labels recorded on metrics and spans
const (
	outcomeSuccess     = "success"
	outcomeRejected    = "rejected"
	outcomeInitFailed  = "initialization_failed"
	outcomeTransport   = "transport_error"
	outcomeInvalid     = "invalid_request"
	outcomeUnclassified = "error"
)

type clientMetrics struct {
	requests metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
}

func newClientMetrics(meter metric.Meter) (*clientMetrics, error) {
	m := &clientMetrics{}
	var err error

	m.requests, err = meter.Int64Counter(
		"authsecure_requests_total",
		metric.WithDescription("Total number of authentication requests sent"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create requests counter: %w", err)
	}

	m.failures, err = meter.Int64Counter(
		"authsecure_request_failures_total",
		metric.WithDescription("Total number of failed authentication requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create failures counter: %w", err)
	}

	m.duration, err = meter.Float64Histogram(
		"authsecure_request_duration_seconds",
		metric.WithDescription("Authentication request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	return m, nil
}

func (m *clientMetrics) record(ctx context.Context, op, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	)
	m.requests.Add(ctx, 1, attrs)
	if outcome != outcomeSuccess {
		m.failures.Add(ctx, 1, attrs)
	}
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}

func classify(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, apperrors.ErrTransport):
		return outcomeTransport
	case errors.Is(err, apperrors.ErrInvalidRequest):
		return outcomeInvalid
	case errors.Is(err, apperrors.ErrInitializationFailed):
		return outcomeInitFailed
	case errors.Is(err, apperrors.ErrOperationRejected):
		return outcomeRejected
	}
	return outcomeUnclassified
}

// endSpan marks the span with the operation outcome. Rejections are normal
// protocol answers and leave the span status unset.
func endSpan(span trace.Span, outcome string, err error) {
	span.SetAttributes(attribute.String("authsecure.outcome", outcome))
	switch outcome {
	case outcomeSuccess:
		span.SetStatus(codes.Ok, "")
	case outcomeRejected:
		if msg, ok := apperrors.ServerMessage(err); ok {
			span.AddEvent("authsecure.rejected", trace.WithAttributes(attribute.String("message", msg)))
		}
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
