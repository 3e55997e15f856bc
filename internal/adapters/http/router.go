package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/platform-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/platform-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/platform-service/internal/platform/telemetry"
)

// DefaultRequestTimeout is the default deadline for API requests.
const DefaultRequestTimeout = 30 * time.Second

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	Logger *slog.Logger

	// ServiceName names the server spans.
	ServiceName string

	HealthHandler   *handlers.HealthHandler
	PlatformHandler *handlers.PlatformHandler

	// Timeout is the deadline on API request contexts. Zero disables it.
	Timeout time.Duration

	// AllowedOrigins feeds the CORS middleware.
	AllowedOrigins []string
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware is applied in the following order (first to last):
//  1. Recovery - catch panics first
//  2. Request ID - generate/extract request ID
//  3. Correlation ID - handle distributed tracing correlation
//  4. CORS - answer browser preflights
//  5. OpenTelemetry - spans (otelgin) then server metrics
//  6. Logging - request logging (skips /-/ probes)
//
// Route groups:
//   - /-/: probes, build info and metrics
//   - /api/platforms: the platform record API, with a request deadline
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
		middleware.CORS(cfg.AllowedOrigins),
		telemetry.TracingMiddleware(cfg.ServiceName),
		telemetry.Middleware(cfg.ServiceName),
		middleware.Logging(cfg.Logger),
	)

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.Mount(engine.Group(handlers.ProbePrefix))
	}

	if cfg.PlatformHandler == nil {
		return
	}

	api := engine.Group("")
	if cfg.Timeout > 0 {
		api.Use(middleware.Timeout(cfg.Timeout))
	}

	cfg.PlatformHandler.RegisterPlatformRoutes(api)
}
