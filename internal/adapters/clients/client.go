package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/platform-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/platform-service/internal/platform/config"
	"github.com/jsamuelsen/platform-service/internal/platform/logging"
)

// fallbackTimeout bounds an attempt when Config.Timeout is unset.
const fallbackTimeout = 30 * time.Second

// Config describes one downstream service.
type Config struct {
	BaseURL     string
	ServiceName string

	// Timeout bounds a single attempt, not the whole call.
	Timeout time.Duration

	// Retry.MaxAttempts below 2 means one attempt and no backoff.
	Retry     config.RetryConfig
	Circuit   config.CircuitBreakerConfig
	Transport config.TransportConfig

	Logger *slog.Logger
}

// Client calls a single downstream service through a circuit breaker. It
// traces and meters each call and forwards the request and correlation IDs
// found in the context.
type Client struct {
	http     *http.Client
	base     string
	peer     string
	attempts int
	backoff  backoff
	breaker  *CircuitBreaker
	tracer   trace.Tracer
	inst     instruments
}

// New builds a client for cfg.ServiceName.
func New(cfg *Config) (*Client, error) {
	switch {
	case cfg == nil:
		return nil, errors.New("clients: nil config")
	case cfg.ServiceName == "":
		return nil, errors.New("clients: service name is empty")
	}

	inst, err := newInstruments()
	if err != nil {
		return nil, fmt.Errorf("clients: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = fallbackTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("component", "clients.Client"), slog.String("downstream", cfg.ServiceName))

	breaker := NewCircuitBreaker(cfg.Circuit)
	breaker.OnStateChange(func(from, to State) {
		logger.Warn("circuit state changed", slog.String("from", from.String()), slog.String("to", to.String()))
	})

	return &Client{
		http:     &http.Client{Timeout: timeout, Transport: newTransport(cfg.Transport)},
		base:     strings.TrimRight(cfg.BaseURL, "/"),
		peer:     cfg.ServiceName,
		attempts: max(cfg.Retry.MaxAttempts, 1),
		backoff:  newBackoff(cfg.Retry),
		breaker:  breaker,
		tracer:   otel.Tracer(scope),
		inst:     inst,
	}, nil
}

func newTransport(cfg config.TransportConfig) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // always *http.Transport

	if cfg.MaxIdleConns > 0 {
		t.MaxIdleConns = cfg.MaxIdleConns
	}

	if cfg.MaxIdleConnsPerHost > 0 {
		t.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	}

	if cfg.IdleConnTimeout > 0 {
		t.IdleConnTimeout = cfg.IdleConnTimeout
	}

	return t
}

func (c *Client) Name() string { return c.peer }

func (c *Client) CircuitState() State { return c.breaker.State() }

// CircuitOpenFor is how long the breaker keeps refusing calls; zero unless open.
func (c *Client) CircuitOpenFor() time.Duration { return c.breaker.OpenFor() }

// PostJSON sends payload as a JSON body to path.
func (c *Client) PostJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.Do(ctx, req)
}

// Do sends req. Transport errors and 5xx responses are failures that count
// against the breaker and may be retried; any other response is returned to
// the caller as is.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	began := time.Now()
	log := logging.FromContext(ctx).With(
		slog.String("downstream", c.peer),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	)

	if !c.breaker.Allow() {
		c.inst.observe(ctx, c.peer, req.Method, 0, outcomeRejected, time.Since(began))
		log.WarnContext(ctx, "call refused by open circuit")

		return nil, ErrCircuitOpen
	}

	ctx, span := c.tracer.Start(ctx, "HTTP "+req.Method+" "+c.peer,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
			attribute.String("peer.service", c.peer),
		))
	defer span.End()

	forwardIDs(ctx, req.Header)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, tries, err := c.send(ctx, req, log)
	took := time.Since(began)

	if err != nil {
		c.breaker.RecordFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.inst.observe(ctx, c.peer, req.Method, 0, outcomeFailed, took)
		log.WarnContext(ctx, "downstream call failed",
			slog.Int("attempts", tries), slog.Duration("duration", took), slog.Any("error", err))

		return nil, fmt.Errorf("%w (%d of %d): %w", ErrAttemptsExhausted, tries, c.attempts, err)
	}

	c.breaker.RecordSuccess()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, resp.Status)
	}

	c.inst.observe(ctx, c.peer, req.Method, resp.StatusCode, statusClass(resp.StatusCode), took)
	log.DebugContext(ctx, "downstream call completed", slog.Int("status", resp.StatusCode), slog.Duration("duration", took))

	return resp, nil
}

// send makes up to c.attempts tries and reports how many it made.
func (c *Client) send(ctx context.Context, req *http.Request, log *slog.Logger) (*http.Response, int, error) {
	var last error

	for n := 1; n <= c.attempts; n++ {
		if n > 1 {
			if err := c.rewind(ctx, req, n-1); err != nil {
				return nil, n - 1, err
			}
		}

		resp, err := c.http.Do(req.WithContext(ctx))
		switch {
		case err != nil && !transient(err):
			return nil, n, err
		case err != nil:
			last = err
		case resp.StatusCode >= http.StatusInternalServerError:
			_ = resp.Body.Close()
			last = fmt.Errorf("server responded %d", resp.StatusCode)
		default:
			return resp, n, nil
		}

		log.DebugContext(ctx, "attempt failed", slog.Int("attempt", n), slog.Any("error", last))
	}

	return nil, c.attempts, last
}

// rewind waits out the backoff before retry n and resets the request body.
func (c *Client) rewind(ctx context.Context, req *http.Request, n int) error {
	if err := pause(ctx, c.backoff.delay(n)); err != nil {
		return err
	}

	if req.GetBody == nil {
		return nil
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("rewinding request body: %w", err)
	}

	req.Body = body

	return nil
}

func forwardIDs(ctx context.Context, h http.Header) {
	if id := middleware.RequestIDFromContext(ctx); id != "" {
		h.Set(middleware.HeaderRequestID, id)
	}

	if id := middleware.CorrelationIDFromContext(ctx); id != "" {
		h.Set(middleware.HeaderCorrelationID, id)
	}
}

func (c *Client) url(path string) string {
	return c.base + "/" + strings.TrimLeft(path, "/")
}
