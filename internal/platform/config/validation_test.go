package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig mirrors the shipped defaults.
func validConfig() *Config {
	return &Config{
		App: AppConfig{Name: "platform-service", Version: "1.0.0", Environment: "local"},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     2 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
			MaxRequestSize:  DefaultMaxRequestSize,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Services: ServicesConfig{
			Command: CommandServiceConfig{
				Enabled: true,
				Name:    "command-service",
				BaseURL: "http://command-service:80",
				Timeout: DefaultCommandTimeout,
				Retry: RetryConfig{
					MaxAttempts:     1,
					InitialInterval: 100 * time.Millisecond,
					MaxInterval:     2 * time.Second,
					Multiplier:      2,
					JitterFactor:    0.25,
				},
				CircuitBreaker: CircuitBreakerConfig{MaxFailures: 5, Timeout: 30 * time.Second, HalfOpenLimit: 1},
				Transport:      TransportConfig{MaxIdleConns: 50, MaxIdleConnsPerHost: 10, IdleConnTimeout: 90 * time.Second},
			},
		},
		Storage: StorageConfig{Provider: StorageMemory},
		Messaging: MessagingConfig{
			Provider:       MessagingMemory,
			PublishTimeout: DefaultPublishTimeout,
			Redis:          RedisConfig{Addr: "localhost:6379", Channel: "platforms", DialTimeout: 2 * time.Second},
			Memory:         MemoryBusConfig{Buffer: 16},
		},
	}
}

func TestConfig_Validate_Valid(t *testing.T) {
	tests := map[string]func(*Config){
		"defaults":                 func(*Config) {},
		"prod environment":         func(c *Config) { c.App.Environment = "prod" },
		"trace level":              func(c *Config) { c.Log.Level = "trace" },
		"pretty format":            func(c *Config) { c.Log.Format = "pretty" },
		"command disabled no url":  func(c *Config) { c.Services.Command.Enabled = false; c.Services.Command.BaseURL = "" },
		"grpc disabled no port":    func(c *Config) { c.GRPC = GRPCConfig{} },
		"grpc enabled":             func(c *Config) { c.GRPC = GRPCConfig{Enabled: true, Port: 9090} },
		"telemetry disabled":       func(c *Config) { c.Telemetry = TelemetryConfig{} },
		"sqlite with path":         func(c *Config) { c.Storage.Provider = StorageSQLite; c.Storage.SQLite.Path = "platforms.db" },
		"postgres with dsn":        func(c *Config) { c.Storage.Provider = StoragePostgres; c.Storage.Postgres.DSN = "host=db" },
		"redis with addr":          func(c *Config) { c.Messaging.Provider = MessagingRedis },
		"file logging with path":   func(c *Config) { c.Log.File = LogFileConfig{Enabled: true, Path: "x.log", MaxSizeMB: 10} },
		"zero jitter":              func(c *Config) { c.Services.Command.Retry.JitterFactor = 0 },
		"ten attempts":             func(c *Config) { c.Services.Command.Retry.MaxAttempts = 10 },
		"no request timeout":       func(c *Config) { c.Server.RequestTimeout = 0 },
		"sampling rate upper edge": func(c *Config) { c.Telemetry.SamplingRate = 1 },
		"telemetry enabled": func(c *Config) {
			c.Telemetry = TelemetryConfig{Enabled: true, Endpoint: "otel-collector:4317", ServiceName: "platform-service"}
		},
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)

			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestConfig_Validate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing name", func(c *Config) { c.App.Name = "" }, "app.name is required"},
		{"unknown environment", func(c *Config) { c.App.Environment = "staging" }, "app.environment must be one of"},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port is required"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port must be at most 65535"},
		{"missing host", func(c *Config) { c.Server.Host = "" }, "server.host is required"},
		{"short read timeout", func(c *Config) { c.Server.ReadTimeout = time.Millisecond }, "server.read_timeout must be at least 1s"},
		{"short request timeout", func(c *Config) { c.Server.RequestTimeout = time.Millisecond }, "server.request_timeout"},
		{"uppercase level", func(c *Config) { c.Log.Level = "INFO" }, "log.level must be one of"},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"file logging without path", func(c *Config) { c.Log.File = LogFileConfig{Enabled: true} }, "log.file.path is required when"},
		{"huge log file", func(c *Config) { c.Log.File.MaxSizeMB = 2048 }, "log.file.max_size"},
		{"telemetry without endpoint", func(c *Config) {
			c.Telemetry = TelemetryConfig{Enabled: true, ServiceName: "platform-service"}
		}, "telemetry.endpoint"},
		{"telemetry without name", func(c *Config) {
			c.Telemetry = TelemetryConfig{Enabled: true, Endpoint: "otel:4317"}
		}, "telemetry.service_name"},
		{"sampling above one", func(c *Config) { c.Telemetry.SamplingRate = 1.5 }, "telemetry.sampling_rate"},
		{"negative sampling", func(c *Config) { c.Telemetry.SamplingRate = -0.1 }, "telemetry.sampling_rate"},
		{"grpc without port", func(c *Config) { c.GRPC = GRPCConfig{Enabled: true} }, "grpc.port"},
		{"grpc port too high", func(c *Config) { c.GRPC = GRPCConfig{Enabled: true, Port: 70000} }, "grpc.port"},
		{"command without url", func(c *Config) { c.Services.Command.BaseURL = "" }, "services.command.base_url is required when"},
		{"command bad url", func(c *Config) { c.Services.Command.BaseURL = "not a url" }, "services.command.base_url must be a valid URL"},
		{"command timeout", func(c *Config) { c.Services.Command.Timeout = time.Millisecond }, "services.command.timeout"},
		{"zero attempts", func(c *Config) { c.Services.Command.Retry.MaxAttempts = 0 }, "services.command.retry.max_attempts"},
		{"eleven attempts", func(c *Config) { c.Services.Command.Retry.MaxAttempts = 11 }, "services.command.retry.max_attempts"},
		{"fast retry", func(c *Config) { c.Services.Command.Retry.InitialInterval = time.Millisecond }, "services.command.retry.initial_interval"},
		{"short max interval", func(c *Config) { c.Services.Command.Retry.MaxInterval = 50 * time.Millisecond }, "services.command.retry.max_interval"},
		{"flat multiplier", func(c *Config) { c.Services.Command.Retry.Multiplier = 1 }, "services.command.retry.multiplier"},
		{"no breaker failures", func(c *Config) { c.Services.Command.CircuitBreaker.MaxFailures = 0 }, "services.command.circuit_breaker.max_failures"},
		{"short breaker timeout", func(c *Config) {
			c.Services.Command.CircuitBreaker.Timeout = 500 * time.Millisecond
		}, "services.command.circuit_breaker.timeout"},
		{"no half open probes", func(c *Config) { c.Services.Command.CircuitBreaker.HalfOpenLimit = 0 }, "services.command.circuit_breaker.half_open_limit"},
		{"no idle conns", func(c *Config) { c.Services.Command.Transport.MaxIdleConns = 0 }, "services.command.transport.max_idle_conns"},
		{"unknown store", func(c *Config) { c.Storage.Provider = "mongo" }, "storage.provider must be one of"},
		{"sqlite without path", func(c *Config) { c.Storage.Provider = StorageSQLite }, "storage.sqlite.path is required"},
		{"postgres without dsn", func(c *Config) { c.Storage.Provider = StoragePostgres }, "storage.postgres.dsn is required"},
		{"unknown bus", func(c *Config) { c.Messaging.Provider = "kafka" }, "messaging.provider"},
		{"redis without addr", func(c *Config) {
			c.Messaging.Provider = MessagingRedis
			c.Messaging.Redis.Addr = " "
		}, "messaging.redis.addr is required"},
		{"short publish timeout", func(c *Config) { c.Messaging.PublishTimeout = time.Millisecond }, "messaging.publish_timeout"},
		{"empty memory buffer", func(c *Config) { c.Messaging.Memory.Buffer = 0 }, "messaging.memory.buffer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_Validate_ReportsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.App.Name = ""
	cfg.Server.Port = -1
	cfg.Storage.Provider = StorageSQLite

	err := cfg.Validate()
	require.Error(t, err)

	for _, want := range []string{"app.name", "server.port", "storage.sqlite.path"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestSettingKey(t *testing.T) {
	assert.Equal(t, "services.command.base_url", settingKey("Config.services.command.base_url"))
	assert.Equal(t, "port", settingKey("port"))
}
