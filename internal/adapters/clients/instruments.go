package clients

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const scope = "github.com/jsamuelsen/platform-service/internal/adapters/clients"

// Outcome labels.
const (
	outcomeRejected = "circuit_open"
	outcomeFailed   = "error"
)

type instruments struct {
	duration metric.Float64Histogram
	calls    metric.Int64Counter
}

func newInstruments() (instruments, error) {
	meter := otel.Meter(scope)

	duration, err := meter.Float64Histogram("http.client.request.duration",
		metric.WithDescription("Downstream call latency including retries"),
		metric.WithUnit("s"))
	if err != nil {
		return instruments{}, fmt.Errorf("duration histogram: %w", err)
	}

	calls, err := meter.Int64Counter("http.client.request.total",
		metric.WithDescription("Downstream calls by outcome"))
	if err != nil {
		return instruments{}, fmt.Errorf("call counter: %w", err)
	}

	return instruments{duration: duration, calls: calls}, nil
}

// observe records one logical call. status is 0 when no response arrived.
func (in instruments) observe(ctx context.Context, peer, method string, status int, outcome string, took time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("peer.service", peer),
		attribute.String("http.method", method),
		attribute.String("result", outcome),
	}

	if status > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", status))
	}

	set := metric.WithAttributes(attrs...)
	in.duration.Record(ctx, took.Seconds(), set)
	in.calls.Add(ctx, 1, set)
}

// statusClass renders 201 as "2xx".
func statusClass(status int) string {
	return fmt.Sprintf("%dxx", status/100)
}
