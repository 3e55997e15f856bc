// Package seed fills an empty platform store with starter records.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jsamuelsen/platform-service/internal/domain"
	"github.com/jsamuelsen/platform-service/internal/ports"
)

// Record is one entry of a seed file.
type Record struct {
	Name      string  `yaml:"name"`
	Publisher string  `yaml:"publisher"`
	Cost      float64 `yaml:"cost"`
}

type file struct {
	Platforms []Record `yaml:"platforms"`
}

// Defaults returns the built-in seed set.
func Defaults() []Record {
	return []Record{
		{Name: "Dot Net", Publisher: "Microsoft", Cost: 0},
		{Name: "SQL Server Express", Publisher: "Microsoft", Cost: 0},
		{Name: "Kubernetes", Publisher: "Cloud Native Computing Foundation", Cost: 0},
	}
}

// LoadFile reads records from a YAML file of the form
//
//	platforms:
//	  - name: Dot Net
//	    publisher: Microsoft
//	    cost: 0
func LoadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing seed file %s: %w", path, err)
	}

	if len(f.Platforms) == 0 {
		return nil, fmt.Errorf("seed file %s has no platforms", path)
	}

	return f.Platforms, nil
}

// Apply writes records in a single unit of work when the store is empty.
// It returns the number of records written; a populated store is left alone.
func Apply(ctx context.Context, store ports.PlatformStore, records []Record, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	existing, err := store.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("checking for existing platforms: %w", err)
	}

	if len(existing) > 0 {
		logger.InfoContext(ctx, "store already has data, skipping seed", slog.Int("count", len(existing)))
		return 0, nil
	}

	platforms := make([]*domain.Platform, 0, len(records))

	for i, r := range records {
		p, err := domain.NewPlatform(r.Name, r.Publisher, r.Cost)
		if err != nil {
			return 0, fmt.Errorf("seed record %d: %w", i, err)
		}

		platforms = append(platforms, p)
	}

	uow, err := store.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning seed: %w", err)
	}

	for _, p := range platforms {
		if err := uow.Create(ctx, p); err != nil {
			return 0, fmt.Errorf("staging seed record %q: %w", p.Name, err)
		}
	}

	rows, err := uow.Commit(ctx)
	if err != nil {
		return 0, fmt.Errorf("committing seed: %w", err)
	}

	logger.InfoContext(ctx, "seeded platforms", slog.Int("count", rows))

	return rows, nil
}
