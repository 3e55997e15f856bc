package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/platform-service/internal/adapters/clients"
	"github.com/jsamuelsen/platform-service/internal/adapters/clients/acl"
	grpcadapter "github.com/jsamuelsen/platform-service/internal/adapters/grpc"
	"github.com/jsamuelsen/platform-service/internal/adapters/http"
	"github.com/jsamuelsen/platform-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/platform-service/internal/adapters/messaging/memory"
	"github.com/jsamuelsen/platform-service/internal/adapters/messaging/redis"
	"github.com/jsamuelsen/platform-service/internal/adapters/storage"
	"github.com/jsamuelsen/platform-service/internal/adapters/storage/seed"
	"github.com/jsamuelsen/platform-service/internal/app"
	"github.com/jsamuelsen/platform-service/internal/domain"
	"github.com/jsamuelsen/platform-service/internal/platform/config"
	"github.com/jsamuelsen/platform-service/internal/platform/metrics"
	"github.com/jsamuelsen/platform-service/internal/platform/telemetry"
	"github.com/jsamuelsen/platform-service/internal/ports"
)

const telemetryShutdownTimeout = 5 * time.Second

// publisher is an event publisher that also reports health and owns a
// connection or buffer.
type publisher interface {
	ports.EventPublisher
	ports.HealthChecker
	io.Closer
}

func runServe(ctx context.Context, profile string) error {
	cfg, logger, err := loadConfig(profile)
	if err != nil {
		return err
	}

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	// Telemetry is a noop when disabled.
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryShutdownTimeout)
		defer cancel()

		if shutdownErr := telProvider.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeQuietly(logger, store)

	healthRegistry := ports.NewHealthRegistry()
	if err := healthRegistry.Register(store); err != nil {
		return fmt.Errorf("registering store health check: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	svcCfg := app.PlatformServiceConfig{
		Store:              store,
		SyncTimeout:        cfg.Services.Command.Timeout,
		PublishTimeout:     cfg.Messaging.PublishTimeout,
		ConcurrentDispatch: cfg.App.ConcurrentDispatch,
		Metrics:            metrics.NewRecorder(prometheus.DefaultRegisterer),
		Logger:             logger,
	}

	if cfg.Services.Command.Enabled {
		notifier, err := newCommandNotifier(&cfg.Services.Command, logger)
		if err != nil {
			return err
		}

		if err := healthRegistry.RegisterNonCritical(notifier); err != nil {
			return fmt.Errorf("registering command client health check: %w", err)
		}

		svcCfg.Notifier = notifier
	}

	pub, err := newPublisher(gctx, g, cfg, logger)
	if err != nil {
		return err
	}
	defer closeQuietly(logger, pub)

	if err := healthRegistry.RegisterNonCritical(pub); err != nil {
		return fmt.Errorf("registering publisher health check: %w", err)
	}

	svcCfg.Publisher = pub
	platformService := app.NewPlatformService(svcCfg)

	server := http.New(&cfg.Server, logger)
	http.SetupRouter(server.Engine(), http.RouterConfig{
		Logger:          logger,
		ServiceName:     cfg.App.Name,
		HealthHandler:   handlers.NewHealthHandler(healthRegistry, handlers.NewBuildInfo(Version, Commit, BuildTime)),
		PlatformHandler: handlers.NewPlatformHandler(platformService),
		Timeout:         cfg.Server.RequestTimeout,
		AllowedOrigins:  cfg.Server.CORSAllowedOrigins,
	})

	httpLis, err := server.Listen()
	if err != nil {
		return err
	}

	g.Go(func() error {
		return server.Run(gctx, httpLis)
	})

	if cfg.GRPC.Enabled {
		grpcServer := grpcadapter.NewServer(grpcadapter.ServerConfig{
			Host:    cfg.Server.Host,
			Port:    cfg.GRPC.Port,
			Reader:  grpcadapter.NewReader(platformService, logger),
			Options: telemetry.GRPCServerOptions(),
			Logger:  logger,
		})

		grpcLis, err := grpcServer.Listen()
		if err != nil {
			return err
		}

		g.Go(func() error {
			return grpcServer.Run(gctx, grpcLis)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("shutdown complete")

	return nil
}

// openStore opens the configured store and seeds it when enabled.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	if !cfg.Storage.Seed {
		return store, nil
	}

	if _, err := seedStore(ctx, store, cfg.Storage.SeedFile, logger); err != nil {
		closeQuietly(logger, store)
		return nil, err
	}

	return store, nil
}

func seedStore(ctx context.Context, store ports.PlatformStore, path string, logger *slog.Logger) (int, error) {
	records := seed.Defaults()

	if path != "" {
		loaded, err := seed.LoadFile(path)
		if err != nil {
			return 0, fmt.Errorf("loading seed file: %w", err)
		}

		records = loaded
	}

	n, err := seed.Apply(ctx, store, records, logger)
	if err != nil {
		return 0, fmt.Errorf("seeding store: %w", err)
	}

	return n, nil
}

// newCommandNotifier builds the Command service adapter.
func newCommandNotifier(cfg *config.CommandServiceConfig, logger *slog.Logger) (*acl.CommandClient, error) {
	httpClient, err := clients.New(&clients.Config{
		BaseURL:     cfg.BaseURL,
		ServiceName: cfg.Name,
		Timeout:     cfg.Timeout,
		Retry:       cfg.Retry,
		Circuit:     cfg.CircuitBreaker,
		Transport:   cfg.Transport,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating command service client: %w", err)
	}

	return acl.NewCommandClient(acl.CommandClientConfig{
		Client: httpClient,
		Logger: logger,
	}), nil
}

// newPublisher builds the configured event publisher. The in-process bus is
// drained by a consumer in g that logs each event.
func newPublisher(ctx context.Context, g *errgroup.Group, cfg *config.Config, logger *slog.Logger) (publisher, error) {
	switch cfg.Messaging.Provider {
	case config.MessagingRedis:
		p, err := redis.NewPublisher(ctx, redis.Config{
			Addr:        cfg.Messaging.Redis.Addr,
			Channel:     cfg.Messaging.Redis.Channel,
			DialTimeout: cfg.Messaging.Redis.DialTimeout,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating redis publisher: %w", err)
		}

		return p, nil
	default:
		bus := memory.NewBus(cfg.Messaging.Memory.Buffer, logger)

		g.Go(func() error {
			bus.Consume(ctx, func(ctx context.Context, event domain.PlatformEvent) {
				logger.InfoContext(ctx, "platform event",
					slog.String("event", event.Event),
					slog.Int("platform_id", event.ID),
					slog.String("name", event.Name),
				)
			})

			return nil
		})

		return bus, nil
	}
}

func closeQuietly(logger *slog.Logger, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Warn("close failed", slog.Any("error", err))
	}
}
