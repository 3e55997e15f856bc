package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen/platform-service/internal/adapters/storage"
)

// runSeed writes the seed records into an empty store and exits.
func runSeed(ctx context.Context, profile string) error {
	cfg, logger, err := loadConfig(profile)
	if err != nil {
		return err
	}

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeQuietly(logger, store)

	n, err := seedStore(ctx, store, cfg.Storage.SeedFile, logger)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	logger.Info("seed complete",
		slog.String("provider", cfg.Storage.Provider),
		slog.Int("written", n),
	)

	return nil
}
