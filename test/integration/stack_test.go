//go:build integration

package integration

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/platform-service/internal/adapters/clients"
	"github.com/jsamuelsen/platform-service/internal/adapters/clients/acl"
	httpadapter "github.com/jsamuelsen/platform-service/internal/adapters/http"
	"github.com/jsamuelsen/platform-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/platform-service/internal/adapters/messaging/memory"
	storemem "github.com/jsamuelsen/platform-service/internal/adapters/storage/memory"
	"github.com/jsamuelsen/platform-service/internal/app"
	"github.com/jsamuelsen/platform-service/internal/platform/config"
	"github.com/jsamuelsen/platform-service/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// commandStub records every platform POSTed to it.
type commandStub struct {
	server *httptest.Server

	mu       sync.Mutex
	received []map[string]any
	status   int
}

func newCommandStub() *commandStub {
	stub := &commandStub{status: http.StatusOK}

	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		stub.mu.Lock()
		stub.received = append(stub.received, body)
		status := stub.status
		stub.mu.Unlock()

		w.WriteHeader(status)
	}))

	return stub
}

func (s *commandStub) URL() string {
	return s.server.URL
}

func (s *commandStub) Received() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]map[string]any(nil), s.received...)
}

func (s *commandStub) Close() {
	s.server.Close()
}

// unreachableURL returns the address of a server that has already stopped.
func unreachableURL() string {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	return url
}

func commandClientConfig(baseURL string) *clients.Config {
	return &clients.Config{
		ServiceName: "command-service",
		BaseURL:     baseURL,
		Timeout:     2 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     1,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     50 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   3,
			Timeout:       100 * time.Millisecond,
			HalfOpenLimit: 1,
		},
	}
}

// platformStack is a complete in-process platform service: memory store,
// Command service client and memory bus behind the real router.
type platformStack struct {
	server *httptest.Server
	store  *storemem.Store
	bus    *memory.Bus
}

func newPlatformStack(commandURL string, concurrent bool) (*platformStack, error) {
	gin.SetMode(gin.TestMode)

	logger := discardLogger()
	store := storemem.NewStore()
	bus := memory.NewBus(config.DefaultMemoryBusBuffer, logger)

	httpClient, err := clients.New(commandClientConfig(commandURL))
	if err != nil {
		return nil, err
	}

	notifier := acl.NewCommandClient(acl.CommandClientConfig{Client: httpClient, Logger: logger})

	registry := ports.NewHealthRegistry()
	if err := registry.Register(store); err != nil {
		return nil, err
	}

	if err := registry.RegisterNonCritical(notifier); err != nil {
		return nil, err
	}

	service := app.NewPlatformService(app.PlatformServiceConfig{
		Store:              store,
		Notifier:           notifier,
		Publisher:          bus,
		ConcurrentDispatch: concurrent,
		Logger:             logger,
	})

	engine := gin.New()
	httpadapter.SetupRouter(engine, httpadapter.RouterConfig{
		Logger:          logger,
		ServiceName:     "platform-service-it",
		HealthHandler:   handlers.NewHealthHandler(registry, handlers.NewBuildInfo("it", "it", "it")),
		PlatformHandler: handlers.NewPlatformHandler(service),
		Timeout:         httpadapter.DefaultRequestTimeout,
		AllowedOrigins:  []string{"*"},
	})

	return &platformStack{
		server: httptest.NewServer(engine),
		store:  store,
		bus:    bus,
	}, nil
}

func (s *platformStack) URL() string {
	return s.server.URL
}

func (s *platformStack) Close() {
	s.server.Close()
	_ = s.bus.Close()
}
