// Package postgres provides a PostgreSQL-backed platform store built on gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jsamuelsen/platform-service/internal/domain"
	"github.com/jsamuelsen/platform-service/internal/ports"
)

// platformRow is the gorm model for the platforms table.
type platformRow struct {
	ID        int     `gorm:"primaryKey;autoIncrement"`
	Name      string  `gorm:"not null"`
	Publisher string  `gorm:"not null"`
	Cost      float64 `gorm:"not null;check:cost >= 0"`
}

func (platformRow) TableName() string {
	return "platforms"
}

func (r platformRow) toDomain() domain.Platform {
	return domain.Platform{ID: r.ID, Name: r.Name, Publisher: r.Publisher, Cost: r.Cost}
}

// Store persists platforms in PostgreSQL.
type Store struct {
	db *gorm.DB
}

// Open connects to the database at dsn and migrates the platforms table.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return New(ctx, db)
}

// New wraps an existing gorm handle and migrates the platforms table.
func New(ctx context.Context, db *gorm.DB) (*Store, error) {
	if err := db.WithContext(ctx).AutoMigrate(&platformRow{}); err != nil {
		return nil, fmt.Errorf("migrate platforms table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return "store"
}

// Check implements ports.HealthChecker.
func (s *Store) Check(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}

// GetAll returns every committed platform ordered by ID.
func (s *Store) GetAll(ctx context.Context) ([]domain.Platform, error) {
	var rows []platformRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}

	out := make([]domain.Platform, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}

	return out, nil
}

// GetByID returns one platform by ID.
func (s *Store) GetByID(ctx context.Context, id int) (*domain.Platform, error) {
	var row platformRow

	err := s.db.WithContext(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NewNotFoundError("platform", strconv.Itoa(id))
	}

	if err != nil {
		return nil, fmt.Errorf("get platform: %w", err)
	}

	p := row.toDomain()

	return &p, nil
}

// Begin opens a unit of work flushed in one transaction on Commit.
func (s *Store) Begin(ctx context.Context) (ports.PlatformUnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &unitOfWork{db: s.db}, nil
}

type unitOfWork struct {
	db     *gorm.DB
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

	rows := make([]platformRow, len(u.staged))
	for i, p := range u.staged {
		rows[i] = platformRow{Name: p.Name, Publisher: p.Publisher, Cost: p.Cost}
	}

	var affected int64

	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Create(&rows)
		affected = res.RowsAffected

		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("insert platforms: %w", err)
	}

	for i, p := range u.staged {
		p.ID = rows[i].ID
	}

	u.staged = nil

	return int(affected), nil
}
