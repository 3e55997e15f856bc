// Package memory provides an in-process platform store.
// Records live only for the lifetime of the process.
package memory

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/jsamuelsen/platform-service/internal/domain"
	"github.com/jsamuelsen/platform-service/internal/ports"
)

// Store keeps committed platforms in a map guarded by a mutex.
type Store struct {
	mu     sync.RWMutex
	rows   map[int]domain.Platform
	nextID int
}

// NewStore creates an empty store. The first committed record gets ID 1.
func NewStore() *Store {
	return &Store{
		rows:   make(map[int]domain.Platform),
		nextID: 1,
	}
}

// GetAll returns a snapshot of every committed platform ordered by ID.
func (s *Store) GetAll(ctx context.Context) ([]domain.Platform, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Platform, 0, len(s.rows))
	for _, p := range s.rows {
		out = append(out, p)
	}

	slices.SortFunc(out, func(a, b domain.Platform) int { return a.ID - b.ID })

	return out, nil
}

// GetByID returns the committed platform with the given ID.
func (s *Store) GetByID(ctx context.Context, id int) (*domain.Platform, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	p, ok := s.rows[id]
	s.mu.RUnlock()

	if !ok {
		return nil, domain.NewNotFoundError("platform", strconv.Itoa(id))
	}

	return &p, nil
}

// Begin opens a unit of work. Nothing it stages is visible until Commit.
func (s *Store) Begin(ctx context.Context) (ports.PlatformUnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &unitOfWork{store: s}, nil
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return "store"
}

// Check implements ports.HealthChecker. The memory store is always available.
func (s *Store) Check(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op kept for parity with the SQL stores.
func (s *Store) Close() error {
	return nil
}

type unitOfWork struct {
	store  *Store
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
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if len(u.staged) == 0 {
		return 0, nil
	}

	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	for _, p := range u.staged {
		p.ID = u.store.nextID
		u.store.nextID++
		u.store.rows[p.ID] = *p
	}

	n := len(u.staged)
	u.staged = nil

	return n, nil
}
