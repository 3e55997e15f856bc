package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jsamuelsen/platform-service/internal/domain"
	"github.com/jsamuelsen/platform-service/internal/platform/logging"
	"github.com/jsamuelsen/platform-service/internal/platform/metrics"
	"github.com/jsamuelsen/platform-service/internal/platform/telemetry"
)

// Creation state machine: Received → Persisted → SyncAttempted → AsyncAttempted → Completed
//
// Each state is entered exactly once per request and never revisited.
//   1. RECEIVED        - the request is a valid domain.Platform
//   2. PERSISTED       - the store committed it and assigned an ID
//   3. SYNC_ATTEMPTED  - the Command service was called (or skipped)
//   4. ASYNC_ATTEMPTED - the event was handed to the channel (or skipped)
//   5. COMPLETED       - the view is returned to the caller
//
// Only steps 1 and 2 can fail the request. Steps 3 and 4 report an Outcome.

// CreationState is one step of the creation state machine.
type CreationState string

const (
	StateReceived       CreationState = "received"
	StatePersisted      CreationState = "persisted"
	StateSyncAttempted  CreationState = "sync_attempted"
	StateAsyncAttempted CreationState = "async_attempted"
	StateCompleted      CreationState = "completed"
)

// CreationError records which state a failed request could not reach.
type CreationError struct {
	State CreationState
	Cause error
}

// Error implements the error interface.
func (e *CreationError) Error() string {
	return fmt.Sprintf("create platform: %s: %v", e.State, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CreationError) Unwrap() error {
	return e.Cause
}

// GetCreationState extracts the failed state from a Create error.
func GetCreationState(err error) (CreationState, bool) {
	var ce *CreationError
	if errors.As(err, &ce) {
		return ce.State, true
	}

	return "", false
}

// Outcome is the result of one best-effort notification.
type Outcome struct {
	Channel string
	Skipped bool
	Err     error
}

// OK reports whether the notification was delivered.
func (o Outcome) OK() bool {
	return !o.Skipped && o.Err == nil
}

func (o Outcome) metricLabel() string {
	switch {
	case o.Skipped:
		return metrics.OutcomeSkipped
	case o.Err != nil:
		return metrics.OutcomeFailure
	default:
		return metrics.OutcomeSuccess
	}
}

// CreateResult is what a successful Create returns.
type CreateResult struct {
	Platform domain.PlatformView
	Sync     Outcome
	Async    Outcome

	// States lists the states entered, in order.
	States []CreationState
}

// creation carries the state of one Create call.
type creation struct {
	svc    *PlatformService
	logger *slog.Logger
	states []CreationState
}

func (c *creation) enter(ctx context.Context, state CreationState) {
	c.states = append(c.states, state)
	c.logger.Log(ctx, logging.LevelTrace, "creation state", slog.String("state", string(state)))
}

// runReceive validates the input.
func (c *creation) runReceive(ctx context.Context, in CreatePlatformInput) (*domain.Platform, error) {
	p, err := domain.NewPlatform(in.Name, in.Publisher, in.Cost)
	if err != nil {
		c.logger.InfoContext(ctx, "rejected platform", slog.Any("error", err))

		return nil, &CreationError{State: StateReceived, Cause: err}
	}

	c.enter(ctx, StateReceived)

	return p, nil
}

// runPersist stages and commits p in its own unit of work.
func (c *creation) runPersist(ctx context.Context, p *domain.Platform) error {
	fail := func(op string, cause error) error {
		c.logger.ErrorContext(ctx, "persisting platform failed",
			slog.String("operation", op),
			slog.Any("error", cause),
		)

		return &CreationError{State: StatePersisted, Cause: domain.NewPersistenceError(op, cause)}
	}

	uow, err := c.svc.store.Begin(ctx)
	if err != nil {
		return fail("begin", err)
	}

	if err := uow.Create(ctx, p); err != nil {
		return fail("create", err)
	}

	rows, err := uow.Commit(ctx)
	if err != nil {
		return fail("commit", err)
	}

	// The store may already hold the record; log what it reported so the
	// row can be reconciled.
	if rows < 1 || p.ID == 0 {
		c.logger.ErrorContext(ctx, "store reported an incomplete commit",
			slog.Int("rows", rows),
			slog.Int("platform_id", p.ID),
		)

		return fail("commit", fmt.Errorf("commit wrote %d rows", rows))
	}

	c.svc.metrics.PlatformCreated()
	c.enter(ctx, StatePersisted)
	c.logger.InfoContext(ctx, "platform created", slog.Int("platform_id", p.ID))

	return nil
}

// runDispatch performs both notifications and enters their states in order.
// Notification contexts survive caller cancellation but keep their own
// deadlines.
func (c *creation) runDispatch(ctx context.Context, view domain.PlatformView) (Outcome, Outcome) {
	detached := context.WithoutCancel(ctx)

	var syncOut, asyncOut Outcome

	if c.svc.concurrent {
		results := ParallelPartial(detached,
			func(ctx context.Context) (Outcome, error) { return c.notify(ctx, view), nil },
			func(ctx context.Context) (Outcome, error) { return c.publish(ctx, view), nil },
		)
		syncOut, asyncOut = results[0].Value, results[1].Value
	} else {
		syncOut = c.notify(detached, view)
		asyncOut = c.publish(detached, view)
	}

	c.enter(ctx, StateSyncAttempted)
	c.enter(ctx, StateAsyncAttempted)

	return syncOut, asyncOut
}

// notify makes the synchronous call to the Command service.
func (c *creation) notify(ctx context.Context, view domain.PlatformView) Outcome {
	if c.svc.notifier == nil {
		return c.finish(ctx, Outcome{Channel: domain.ChannelSync, Skipped: true}, view)
	}

	return c.finish(ctx, c.attempt(ctx, domain.ChannelSync, c.svc.syncTimeout, func(ctx context.Context) error {
		return c.svc.notifier.Send(ctx, view)
	}), view)
}

// publish hands the creation event to the message channel.
func (c *creation) publish(ctx context.Context, view domain.PlatformView) Outcome {
	if c.svc.publisher == nil {
		return c.finish(ctx, Outcome{Channel: domain.ChannelAsync, Skipped: true}, view)
	}

	event := domain.NewPlatformEvent(view)

	return c.finish(ctx, c.attempt(ctx, domain.ChannelAsync, c.svc.publishTimeout, func(ctx context.Context) error {
		return c.svc.publisher.Publish(ctx, event)
	}), view)
}

// attempt runs fn once under timeout. Errors and panics become a
// DownstreamError in the returned Outcome.
func (c *creation) attempt(ctx context.Context, channel string, timeout time.Duration, fn func(context.Context) error) (out Outcome) {
	out.Channel = channel

	ctx, span := telemetry.StartSpan(ctx, "platforms.dispatch", attribute.String("platform.channel", channel))
	ctx, cancel := context.WithTimeout(ctx, timeout)

	defer cancel()
	defer func() { telemetry.EndSpan(span, out.Err) }()

	defer func() {
		if r := recover(); r != nil {
			out.Err = domain.NewDownstreamError(channel, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := fn(ctx); err != nil {
		out.Err = domain.NewDownstreamError(channel, err)
	}

	return out
}

// finish logs and counts an outcome.
func (c *creation) finish(ctx context.Context, out Outcome, view domain.PlatformView) Outcome {
	c.svc.metrics.Dispatch(out.Channel, out.metricLabel())

	switch {
	case out.Skipped:
		c.logger.DebugContext(ctx, "downstream notification skipped",
			slog.String("channel", out.Channel),
			slog.Int("platform_id", view.ID),
		)
	case out.Err != nil:
		c.logger.WarnContext(ctx, "downstream notification failed",
			slog.String("channel", out.Channel),
			slog.Int("platform_id", view.ID),
			slog.Any("error", out.Err),
		)
	default:
		c.logger.InfoContext(ctx, "downstream notification sent",
			slog.String("channel", out.Channel),
			slog.Int("platform_id", view.ID),
		)
	}

	return out
}
