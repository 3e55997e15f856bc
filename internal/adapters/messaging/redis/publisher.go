// Package redis publishes platform events to a Redis pub/sub channel.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jsamuelsen/platform-service/internal/adapters/messaging"
	"github.com/jsamuelsen/platform-service/internal/domain"
	"github.com/jsamuelsen/platform-service/internal/platform/logging"
)

const (
	name               = "redis"
	defaultDialTimeout = 2 * time.Second
)

// Config configures the publisher.
type Config struct {
	Addr        string
	Channel     string
	DialTimeout time.Duration
	Logger      *slog.Logger
}

// Publisher implements ports.EventPublisher over PUBLISH.
// The go-redis client owns the connection pool and reconnects on demand.
type Publisher struct {
	rdb     *goredis.Client
	channel string
	logger  *slog.Logger
}

// NewPublisher creates a publisher. An unreachable broker is logged, not
// fatal; the pool dials again on each use.
func NewPublisher(ctx context.Context, cfg Config) (*Publisher, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		return nil, errors.New("redis channel is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}

	p := &Publisher{
		rdb: goredis.NewClient(&goredis.Options{
			Addr:        addr,
			DialTimeout: cfg.DialTimeout,
			MaxRetries:  -1,
		}),
		channel: channel,
		logger: logger.With(
			slog.String("component", "redis.Publisher"),
			slog.String("channel", channel),
		),
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	if err := p.rdb.Ping(pingCtx).Err(); err != nil {
		p.logger.WarnContext(ctx, "could not connect to message broker",
			slog.String("addr", addr),
			slog.Any("error", err),
		)
	}

	return p, nil
}

// Publish encodes event and sends it with a single PUBLISH.
// Broker errors come back as domain.ErrUnavailable.
func (p *Publisher) Publish(ctx context.Context, event domain.PlatformEvent) error {
	data, err := messaging.Encode(event)
	if err != nil {
		return err
	}

	logging.FromContext(ctx).Log(ctx, logging.LevelTrace, "publishing event",
		slog.String("channel", p.channel),
		slog.String("payload", string(data)))

	receivers, err := p.rdb.Publish(ctx, p.channel, data).Result()
	if err != nil {
		return domain.NewUnavailableError(name, fmt.Sprintf("publish to %s: %v", p.channel, err))
	}

	p.logger.DebugContext(ctx, "event published",
		slog.Int("platform_id", event.ID),
		slog.Int64("receivers", receivers),
	)

	return nil
}

// Name implements ports.HealthChecker.
func (p *Publisher) Name() string {
	return name
}

// Check pings the broker.
func (p *Publisher) Check(ctx context.Context) error {
	if err := p.rdb.Ping(ctx).Err(); err != nil {
		return domain.NewUnavailableError(name, err.Error())
	}

	return nil
}

// Close releases the connection pool.
func (p *Publisher) Close() error {
	return p.rdb.Close()
}
