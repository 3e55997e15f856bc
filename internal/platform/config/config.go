// Package config loads the platform service configuration with koanf.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	DefaultServerPort     = 8080
	DefaultGRPCPort       = 9090
	DefaultMaxRequestSize = 1 << 20

	// DefaultCommandTimeout bounds one call to the Command service.
	DefaultCommandTimeout = 5 * time.Second

	// DefaultPublishTimeout bounds one event publish.
	DefaultPublishTimeout = 2 * time.Second

	// DefaultMemoryBusBuffer is the in-process event channel capacity.
	DefaultMemoryBusBuffer = 256
)

// Storage and messaging providers.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"

	MessagingMemory = "memory"
	MessagingRedis  = "redis"
)

// envPrefix marks environment variables that override file settings.
const envPrefix = "APP_"

// Config is the root configuration structure.
type Config struct {
	App       AppConfig       `koanf:"app"       validate:"required"`
	Server    ServerConfig    `koanf:"server"    validate:"required"`
	GRPC      GRPCConfig      `koanf:"grpc"`
	Log       LogConfig       `koanf:"log"       validate:"required"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Services  ServicesConfig  `koanf:"services"  validate:"required"`
	Storage   StorageConfig   `koanf:"storage"   validate:"required"`
	Messaging MessagingConfig `koanf:"messaging" validate:"required"`
}

type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`

	// ConcurrentDispatch runs the Command call and the event publish side by
	// side instead of one after the other.
	ConcurrentDispatch bool `koanf:"concurrent_dispatch"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"             validate:"required"`
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	RequestTimeout  time.Duration `koanf:"request_timeout"  validate:"omitempty,min=100ms"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`

	// CORSAllowedOrigins lists browser origins; "*" allows any.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// GRPCConfig configures the read-only gRPC listener. It shares Server.Host.
type GRPCConfig struct {
	Enabled bool `koanf:"enabled"`
	Port    int  `koanf:"port"    validate:"required_if=Enabled true,omitempty,min=1,max=65535"`
}

type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig adds a rotating JSON copy of the log stream.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"        validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"    validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,max=100"`
	MaxAgeDays int    `koanf:"max_age"     validate:"omitempty,max=365"`
	Compress   bool   `koanf:"compress"`
}

type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
}

// ServicesConfig lists downstream services.
type ServicesConfig struct {
	Command CommandServiceConfig `koanf:"command" validate:"required"`
}

// CommandServiceConfig configures the synchronous notifier and its HTTP
// client.
type CommandServiceConfig struct {
	Enabled        bool                 `koanf:"enabled"`
	Name           string               `koanf:"name"            validate:"required"`
	BaseURL        string               `koanf:"base_url"        validate:"required_if=Enabled true,omitempty,url"`
	Timeout        time.Duration        `koanf:"timeout"         validate:"required,min=10ms"`
	Retry          RetryConfig          `koanf:"retry"           validate:"required"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker" validate:"required"`
	Transport      TransportConfig      `koanf:"transport"       validate:"required"`
}

// RetryConfig shapes the exponential backoff between attempts.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts"     validate:"required,min=1,max=10"`
	InitialInterval time.Duration `koanf:"initial_interval" validate:"required,min=10ms"`
	MaxInterval     time.Duration `koanf:"max_interval"     validate:"required,min=100ms"`
	Multiplier      float64       `koanf:"multiplier"       validate:"required,min=1.1,max=10"`
	JitterFactor    float64       `koanf:"jitter_factor"    validate:"min=0,max=1"`
}

// CircuitBreakerConfig sets when calls start failing fast and how the
// circuit recovers.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"    validate:"required,min=1"`
	Timeout       time.Duration `koanf:"timeout"         validate:"required,min=1s"`
	HalfOpenLimit int           `koanf:"half_open_limit" validate:"required,min=1"`
}

type TransportConfig struct {
	MaxIdleConns        int           `koanf:"max_idle_conns"          validate:"required,min=1"`
	MaxIdleConnsPerHost int           `koanf:"max_idle_conns_per_host" validate:"required,min=1"`
	IdleConnTimeout     time.Duration `koanf:"idle_conn_timeout"       validate:"required,min=1s"`
}

// StorageConfig selects the platform record store.
type StorageConfig struct {
	Provider string         `koanf:"provider" validate:"required,oneof=memory sqlite postgres"`
	SQLite   SQLiteConfig   `koanf:"sqlite"`
	Postgres PostgresConfig `koanf:"postgres"`

	// Seed loads SeedFile, or the built-in catalogue, into an empty store.
	Seed     bool   `koanf:"seed"`
	SeedFile string `koanf:"seed_file"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// PostgresConfig holds the gorm postgres DSN. Logged values are masked.
type PostgresConfig struct {
	DSN string `koanf:"dsn"`
}

// MessagingConfig selects the platform event publisher.
type MessagingConfig struct {
	Provider       string          `koanf:"provider"        validate:"required,oneof=memory redis"`
	PublishTimeout time.Duration   `koanf:"publish_timeout" validate:"required,min=10ms"`
	Redis          RedisConfig     `koanf:"redis"`
	Memory         MemoryBusConfig `koanf:"memory"`
}

// MemoryBusConfig sizes the in-process event channel.
type MemoryBusConfig struct {
	Buffer int `koanf:"buffer" validate:"required,min=1"`
}

type RedisConfig struct {
	Addr        string        `koanf:"addr"`
	Channel     string        `koanf:"channel"      validate:"required"`
	DialTimeout time.Duration `koanf:"dial_timeout" validate:"required,min=10ms"`
}

// defaults is the lowest-precedence layer. Durations are strings so they
// decode the same way as YAML and env values.
func defaults() map[string]any {
	return map[string]any{
		"app": map[string]any{
			"name":                "platform-service",
			"version":             "dev",
			"environment":         "local",
			"concurrent_dispatch": false,
		},
		"server": map[string]any{
			"host":                 "0.0.0.0",
			"port":                 DefaultServerPort,
			"read_timeout":         "30s",
			"write_timeout":        "30s",
			"idle_timeout":         "2m",
			"shutdown_timeout":     "10s",
			"request_timeout":      "30s",
			"max_request_size":     DefaultMaxRequestSize,
			"cors_allowed_origins": []string{"*"},
		},
		"grpc": map[string]any{
			"enabled": false,
			"port":    DefaultGRPCPort,
		},
		"log": map[string]any{
			"level":  "info",
			"format": "json",
			"file": map[string]any{
				"enabled":     false,
				"path":        "./logs/platform-service.log",
				"max_size":    100,
				"max_backups": 3,
				"max_age":     28,
				"compress":    true,
			},
		},
		"telemetry": map[string]any{
			"enabled":       false,
			"service_name":  "platform-service",
			"sampling_rate": 1.0,
		},
		"services": map[string]any{
			"command": map[string]any{
				"enabled":  true,
				"name":     "command-service",
				"base_url": "http://localhost:6000",
				"timeout":  DefaultCommandTimeout.String(),
				"retry": map[string]any{
					"max_attempts":     1,
					"initial_interval": "100ms",
					"max_interval":     "2s",
					"multiplier":       2.0,
					"jitter_factor":    0.25,
				},
				"circuit_breaker": map[string]any{
					"max_failures":    5,
					"timeout":         "30s",
					"half_open_limit": 1,
				},
				"transport": map[string]any{
					"max_idle_conns":          50,
					"max_idle_conns_per_host": 10,
					"idle_conn_timeout":       "90s",
				},
			},
		},
		"storage": map[string]any{
			"provider":  StorageMemory,
			"sqlite":    map[string]any{"path": "./data/platforms.db"},
			"postgres":  map[string]any{"dsn": ""},
			"seed":      true,
			"seed_file": "",
		},
		"messaging": map[string]any{
			"provider":        MessagingMemory,
			"publish_timeout": DefaultPublishTimeout.String(),
			"redis": map[string]any{
				"addr":         "localhost:6379",
				"channel":      "platforms",
				"dial_timeout": "2s",
			},
			"memory": map[string]any{"buffer": DefaultMemoryBusBuffer},
		},
	}
}

// Load layers, lowest first: defaults, configs/base.yaml,
// configs/<profile>.yaml, then APP_* environment variables. Missing files
// are skipped.
func Load(profile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	files := []string{filepath.Join("configs", "base.yaml")}
	if profile != "" {
		files = append(files, filepath.Join("configs", profile+".yaml"))
	}

	for _, path := range files {
		if err := loadOptionalFile(k, path); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper(k.Keys())), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// envKeyMapper maps APP_SERVICES_COMMAND_BASE_URL to services.command.base_url.
// Known keys win so segments that contain underscores survive; anything else
// falls back to replacing every underscore with a dot.
func envKeyMapper(known []string) func(string) string {
	byFlat := make(map[string]string, len(known))
	for _, key := range known {
		byFlat[strings.ReplaceAll(key, ".", "_")] = key
	}

	return func(s string) string {
		flat := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		if key, ok := byFlat[flat]; ok {
			return key
		}

		return strings.ReplaceAll(flat, "_", ".")
	}
}

func loadOptionalFile(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}
