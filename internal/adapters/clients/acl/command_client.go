package acl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/jsamuelsen/platform-service/internal/adapters/clients"
	"github.com/jsamuelsen/platform-service/internal/domain"
	"github.com/jsamuelsen/platform-service/internal/platform/logging"
)

// commandPlatformsPath is the Command service's inbound platform endpoint.
const commandPlatformsPath = "/api/c/platforms"

// CommandClientConfig contains configuration for the command client.
type CommandClientConfig struct {
	// Client is the HTTP client to use. It should be built with
	// Retry.MaxAttempts = 1; Send never retries on its own.
	Client *clients.Client

	// Logger is the structured logger.
	Logger *slog.Logger
}

// CommandClient implements ports.CommandNotifier against the Command service.
type CommandClient struct {
	BaseAdapter

	logger *slog.Logger
}

// NewCommandClient creates a command service adapter.
// Panics if Client is nil. Defaults logger to slog.Default() if nil.
func NewCommandClient(cfg CommandClientConfig) *CommandClient {
	if cfg.Client == nil {
		panic("CommandClient: Client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &CommandClient{
		BaseAdapter: NewBaseAdapter(cfg.Client, cfg.Client.Name()),
		logger:      logger.With(slog.String("component", "acl.CommandClient")),
	}
}

// commandPlatform is the body the Command service accepts.
type commandPlatform struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Publisher string  `json:"publisher"`
	Cost      float64 `json:"cost"`
}

// toCommandPlatform translates a view into the Command service's shape.
func toCommandPlatform(view domain.PlatformView) (commandPlatform, error) {
	if err := ValidatePositive(view.ID, "id"); err != nil {
		return commandPlatform{}, err
	}

	if err := ValidateRequired(view.Name, "name"); err != nil {
		return commandPlatform{}, err
	}

	return commandPlatform{
		ID:        view.ID,
		Name:      view.Name,
		Publisher: view.Publisher,
		Cost:      view.Cost,
	}, nil
}

// Send makes exactly one POST carrying view. Any non-2xx status or
// transport failure is returned as a domain error.
// Implements ports.CommandNotifier.
func (c *CommandClient) Send(ctx context.Context, view domain.PlatformView) error {
	payload, err := toCommandPlatform(view)
	if err != nil {
		return err
	}

	id := strconv.Itoa(view.ID)
	c.logger.Log(ctx, logging.LevelTrace, "starting request",
		slog.String("path", commandPlatformsPath),
		slog.String("platform_id", id))

	body, err := c.PostJSON(ctx, commandPlatformsPath, payload, "send platform", id)
	if err != nil {
		return err
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxErrorBody))
	_ = body.Close()

	c.logger.DebugContext(ctx, "sync notification accepted", slog.String("platform_id", id))

	return nil
}

// Name returns the health check name for this client.
// Implements ports.HealthChecker.
func (c *CommandClient) Name() string {
	return c.ServiceName()
}

// Check reports the circuit breaker's view of the Command service without
// touching the network.
// Implements ports.HealthChecker.
func (c *CommandClient) Check(_ context.Context) error {
	if c.Client().CircuitState() != clients.StateOpen {
		return nil
	}

	return domain.NewUnavailableError(c.ServiceName(),
		fmt.Sprintf("circuit open, retrying in %s", c.Client().CircuitOpenFor().Round(time.Second)))
}
