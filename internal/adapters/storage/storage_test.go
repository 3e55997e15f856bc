package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/platform-service/internal/adapters/storage/memory"
	"github.com/jsamuelsen/platform-service/internal/adapters/storage/sqlite"
	"github.com/jsamuelsen/platform-service/internal/platform/config"
)

func TestOpen_Memory(t *testing.T) {
	s, err := Open(context.Background(), config.StorageConfig{Provider: config.StorageMemory})

	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s)
	assert.NoError(t, s.Close())
}

func TestOpen_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "platforms.db")

	s, err := Open(context.Background(), config.StorageConfig{
		Provider: config.StorageSQLite,
		SQLite:   config.SQLiteConfig{Path: path},
	})

	require.NoError(t, err)
	assert.IsType(t, &sqlite.Store{}, s)
	assert.NoError(t, s.Check(context.Background()))
	assert.NoError(t, s.Close())
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.StorageConfig
		want string
	}{
		{"unknown provider", config.StorageConfig{Provider: "mongo"}, "unknown storage provider"},
		{"sqlite without path", config.StorageConfig{Provider: config.StorageSQLite}, "sqlite"},
		{"postgres without dsn", config.StorageConfig{Provider: config.StoragePostgres}, "postgres"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), tt.cfg)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
