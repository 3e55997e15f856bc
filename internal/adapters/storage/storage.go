// Package storage selects the platform store named by configuration.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/jsamuelsen/platform-service/internal/adapters/storage/memory"
	"github.com/jsamuelsen/platform-service/internal/adapters/storage/postgres"
	"github.com/jsamuelsen/platform-service/internal/adapters/storage/sqlite"
	"github.com/jsamuelsen/platform-service/internal/platform/config"
	"github.com/jsamuelsen/platform-service/internal/ports"
)

// Store is a platform store that reports its health and owns resources.
type Store interface {
	ports.PlatformStore
	ports.HealthChecker
	io.Closer
}

var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*sqlite.Store)(nil)
	_ Store = (*postgres.Store)(nil)
)

// Open builds the store for cfg.Provider.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Provider {
	case config.StorageMemory, "":
		return memory.NewStore(), nil
	case config.StorageSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}

		return s, nil
	case config.StoragePostgres:
		s, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}

		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}
