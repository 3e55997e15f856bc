// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrNotFound, ErrUnavailable, etc.)
//   - Keep interfaces small and focused
package ports

import (
	"context"

	"github.com/jsamuelsen/platform-service/internal/domain"
)

// PlatformStore persists and retrieves platform records.
// Reads only ever observe committed records.
type PlatformStore interface {
	// GetAll returns every committed platform. Order is unspecified.
	GetAll(ctx context.Context) ([]domain.Platform, error)

	// GetByID returns the committed platform with the given identifier.
	// Returns domain.ErrNotFound if no record matches.
	GetByID(ctx context.Context, id int) (*domain.Platform, error)

	// Begin opens a unit of work scoped to a single request.
	Begin(ctx context.Context) (PlatformUnitOfWork, error)
}

// PlatformUnitOfWork stages writes until Commit flushes them.
//
// Example usage:
//
//	uow, err := store.Begin(ctx)
//	if err != nil { ... }
//	if err := uow.Create(ctx, platform); err != nil { ... }
//	rows, err := uow.Commit(ctx)
type PlatformUnitOfWork interface {
	// Create stages a record for insertion.
	// Returns domain.ErrInvalidArgument if platform is nil.
	Create(ctx context.Context, platform *domain.Platform) error

	// Commit flushes staged records and assigns their identifiers in place.
	// It reports the number of rows written; zero with a nil error means
	// nothing was staged. A nil error with staged records must report every
	// row and set every ID: callers treat anything less as a failed write
	// even though the rows may have been committed.
	Commit(ctx context.Context) (int, error)
}

// CommandNotifier synchronously tells the command service about a new platform.
type CommandNotifier interface {
	// Send makes exactly one blocking call carrying the view.
	// Implementations must not retry and must honour the context deadline.
	Send(ctx context.Context, view domain.PlatformView) error
}

// EventPublisher hands platform events to the message channel.
type EventPublisher interface {
	// Publish serializes and hands off the event.
	// Returns domain.ErrUnavailable if the channel cannot accept it before
	// the context deadline.
	Publish(ctx context.Context, event domain.PlatformEvent) error
}
