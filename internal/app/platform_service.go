// Package app contains application services that orchestrate use cases.
// It coordinates domain logic and infrastructure through ports and knows
// nothing about HTTP, gRPC or storage engines.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jsamuelsen/platform-service/internal/domain"
	"github.com/jsamuelsen/platform-service/internal/platform/config"
	"github.com/jsamuelsen/platform-service/internal/platform/logging"
	"github.com/jsamuelsen/platform-service/internal/platform/metrics"
	"github.com/jsamuelsen/platform-service/internal/platform/telemetry"
	"github.com/jsamuelsen/platform-service/internal/ports"
)

// PlatformServiceConfig contains the dependencies of PlatformService.
type PlatformServiceConfig struct {
	// Store is required.
	Store ports.PlatformStore

	// Notifier and Publisher are optional; a nil one is reported as skipped.
	Notifier  ports.CommandNotifier
	Publisher ports.EventPublisher

	// SyncTimeout and PublishTimeout bound each notification.
	// Zero selects the configured defaults.
	SyncTimeout    time.Duration
	PublishTimeout time.Duration

	// ConcurrentDispatch runs the two notifications side by side.
	ConcurrentDispatch bool

	Metrics *metrics.Recorder
	Logger  *slog.Logger
}

// PlatformService implements the platform use cases.
//
// Example usage:
//
//	svc := app.NewPlatformService(app.PlatformServiceConfig{
//	    Store:     store,
//	    Notifier:  commandClient,
//	    Publisher: bus,
//	})
//	res, err := svc.Create(ctx, app.CreatePlatformInput{Name: "PS5", Publisher: "Sony", Cost: 499.99})
type PlatformService struct {
	store          ports.PlatformStore
	notifier       ports.CommandNotifier
	publisher      ports.EventPublisher
	syncTimeout    time.Duration
	publishTimeout time.Duration
	concurrent     bool
	metrics        *metrics.Recorder
	logger         *slog.Logger
}

// NewPlatformService creates the service.
// Panics if Store is nil. Defaults logger to slog.Default() if nil.
func NewPlatformService(cfg PlatformServiceConfig) *PlatformService {
	if cfg.Store == nil {
		panic("PlatformService: Store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	syncTimeout := cfg.SyncTimeout
	if syncTimeout <= 0 {
		syncTimeout = config.DefaultCommandTimeout
	}

	publishTimeout := cfg.PublishTimeout
	if publishTimeout <= 0 {
		publishTimeout = config.DefaultPublishTimeout
	}

	return &PlatformService{
		store:          cfg.Store,
		notifier:       cfg.Notifier,
		publisher:      cfg.Publisher,
		syncTimeout:    syncTimeout,
		publishTimeout: publishTimeout,
		concurrent:     cfg.ConcurrentDispatch,
		metrics:        cfg.Metrics,
		logger:         logger.With(slog.String("component", "app.PlatformService")),
	}
}

// CreatePlatformInput is an unvalidated creation request.
type CreatePlatformInput struct {
	Name      string
	Publisher string
	Cost      float64
}

// GetAll returns every committed platform.
func (s *PlatformService) GetAll(ctx context.Context) ([]domain.PlatformView, error) {
	logging.FromContextOr(ctx, s.logger).DebugContext(ctx, "listing platforms")

	platforms, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing platforms: %w", err)
	}

	views := make([]domain.PlatformView, len(platforms))
	for i := range platforms {
		views[i] = platforms[i].ToView()
	}

	return views, nil
}

// GetByID returns one committed platform or a domain.NotFoundError.
func (s *PlatformService) GetByID(ctx context.Context, id int) (*domain.PlatformView, error) {
	logging.FromContextOr(ctx, s.logger).DebugContext(ctx, "fetching platform", slog.Int("platform_id", id))

	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting platform %d: %w", id, err)
	}

	view := p.ToView()

	return &view, nil
}

// Create validates and persists a platform, then notifies the Command
// service and publishes a creation event. Notification failures are logged,
// counted and reported in the result; only validation and persistence
// errors are returned.
func (s *PlatformService) Create(ctx context.Context, in CreatePlatformInput) (_ *CreateResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "PlatformService.Create")
	defer func() { telemetry.EndSpan(span, err) }()

	start := time.Now()
	c := &creation{
		svc:    s,
		logger: logging.FromContextOr(ctx, s.logger).With(slog.String("operation", "CreatePlatform")),
	}

	p, err := c.runReceive(ctx, in)
	if err != nil {
		return nil, err
	}

	if err := c.runPersist(ctx, p); err != nil {
		return nil, err
	}

	view := p.ToView()
	span.SetAttributes(attribute.Int("platform.id", view.ID))

	syncOut, asyncOut := c.runDispatch(ctx, view)

	c.enter(ctx, StateCompleted)
	c.logger.DebugContext(ctx, "operation completed",
		slog.Int("platform_id", view.ID),
		slog.Bool("sync_ok", syncOut.OK()),
		slog.Bool("async_ok", asyncOut.OK()),
		slog.Duration("duration", time.Since(start)),
	)

	return &CreateResult{
		Platform: view,
		Sync:     syncOut,
		Async:    asyncOut,
		States:   c.states,
	}, nil
}
