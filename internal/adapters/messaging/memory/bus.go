// Package memory is an in-process event publisher backed by a buffered
// channel. It is the default when no broker is configured.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jsamuelsen/platform-service/internal/adapters/messaging"
	"github.com/jsamuelsen/platform-service/internal/domain"
)

const name = "memory-bus"

// Bus implements ports.EventPublisher.
type Bus struct {
	events chan []byte
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

// NewBus creates a bus holding up to buffer undelivered events.
func NewBus(buffer int, logger *slog.Logger) *Bus {
	if buffer < 1 {
		buffer = 1
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Bus{
		events: make(chan []byte, buffer),
		done:   make(chan struct{}),
		logger: logger.With(slog.String("component", "memory.Bus")),
	}
}

// Publish encodes event and hands it to the buffer. A full buffer makes the
// call wait until ctx is done, after which domain.ErrUnavailable is returned.
func (b *Bus) Publish(ctx context.Context, event domain.PlatformEvent) error {
	data, err := messaging.Encode(event)
	if err != nil {
		return err
	}

	select {
	case <-b.done:
		return domain.NewUnavailableError(name, "bus closed")
	default:
	}

	select {
	case b.events <- data:
		return nil
	default:
	}

	select {
	case b.events <- data:
		return nil
	case <-b.done:
		return domain.NewUnavailableError(name, "bus closed")
	case <-ctx.Done():
		return domain.NewUnavailableError(name, "buffer full: "+ctx.Err().Error())
	}
}

// Events exposes the raw payloads for in-process consumers.
func (b *Bus) Events() <-chan []byte {
	return b.events
}

// Consume calls fn for each event until ctx is cancelled or the bus closes.
// Undecodable payloads are logged and skipped.
func (b *Bus) Consume(ctx context.Context, fn func(context.Context, domain.PlatformEvent)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case data := <-b.events:
			event, err := messaging.Decode(data)
			if err != nil {
				b.logger.WarnContext(ctx, "dropping malformed event", slog.Any("error", err))
				continue
			}

			fn(ctx, event)
		}
	}
}

// Name implements ports.HealthChecker.
func (b *Bus) Name() string {
	return name
}

// Check fails once the bus is closed.
func (b *Bus) Check(_ context.Context) error {
	select {
	case <-b.done:
		return domain.NewUnavailableError(name, "bus closed")
	default:
		return nil
	}
}

// Close stops consumers and rejects further publishes. Safe to call twice.
func (b *Bus) Close() error {
	b.once.Do(func() { close(b.done) })

	return nil
}
