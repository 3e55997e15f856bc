// Package main is the entry point for the platform service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/platform-service/internal/platform/config"
	"github.com/jsamuelsen/platform-service/internal/platform/logging"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the service.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := newRootCommand().ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand builds the CLI. Running the binary without a subcommand
// serves.
func newRootCommand() *cobra.Command {
	var profile string

	root := &cobra.Command{
		Use:           "platform-service",
		Short:         "Platform record service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), profile)
		},
	}

	root.PersistentFlags().StringVarP(&profile, "profile", "p", defaultProfile(),
		"config profile loaded from configs/<profile>.yaml")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the HTTP and gRPC APIs",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context(), profile)
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Seed the configured store and exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runSeed(cmd.Context(), profile)
			},
		},
	)

	return root
}

func defaultProfile() string {
	if p := os.Getenv("APP_ENVIRONMENT"); p != "" {
		return p
	}

	return "local"
}

// loadConfig loads and validates configuration, then installs the
// process-wide logger.
func loadConfig(profile string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(profile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	logging.SetDefault(logger)

	return cfg, logger, nil
}
