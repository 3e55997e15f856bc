// Package sqlite provides a SQLite-backed platform store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	// Registers the pure-Go "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/jsamuelsen/platform-service/internal/adapters/storage/sqlite/migrations"
	"github.com/jsamuelsen/platform-service/internal/domain"
	"github.com/jsamuelsen/platform-service/internal/ports"
)

// Store persists platforms in a SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens the database at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// A single writer keeps AUTOINCREMENT assignment serialized.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return "store"
}

// Check implements ports.HealthChecker.
func (s *Store) Check(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetAll returns every committed platform ordered by ID.
func (s *Store) GetAll(ctx context.Context) ([]domain.Platform, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, publisher, cost FROM platforms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Platform, 0)

	for rows.Next() {
		var p domain.Platform
		if err := rows.Scan(&p.ID, &p.Name, &p.Publisher, &p.Cost); err != nil {
			return nil, fmt.Errorf("scan platform: %w", err)
		}

		out = append(out, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}

	return out, nil
}

// GetByID returns one platform by ID.
func (s *Store) GetByID(ctx context.Context, id int) (*domain.Platform, error) {
	var p domain.Platform

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, publisher, cost FROM platforms WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Publisher, &p.Cost)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("platform", strconv.Itoa(id))
	}

	if err != nil {
		return nil, fmt.Errorf("get platform: %w", err)
	}

	return &p, nil
}

// Begin opens a unit of work. The database transaction is only held
// for the duration of Commit.
func (s *Store) Begin(ctx context.Context) (ports.PlatformUnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &unitOfWork{db: s.db}, nil
}

type unitOfWork struct {
	db     *sql.DB
	staged []*domain.Platform
}

func (u *unitOfWork) Create(_ context.Context, platform *domain.Platform) error {
	if platform == nil {
		return domain.ErrInvalidArgument
	}

	u.staged = append(u.staged, platform)

	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) (int, error) {
	if len(u.staged) == 0 {
		return 0, nil
	}

	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}

	ids := make([]int, len(u.staged))

	for i, p := range u.staged {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO platforms (name, publisher, cost) VALUES (?, ?, ?)`,
			p.Name, p.Publisher, p.Cost)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert platform: %w", err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("read platform id: %w", err)
		}

		ids[i] = int(id)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	// IDs become visible on the records only once the write is durable.
	for i, p := range u.staged {
		p.ID = ids[i]
	}

	n := len(u.staged)
	u.staged = nil

	return n, nil
}
