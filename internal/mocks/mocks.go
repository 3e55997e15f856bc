// Package mocks provides testify mocks for the ports interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jsamuelsen/platform-service/internal/domain"
	"github.com/jsamuelsen/platform-service/internal/ports"
)

// T is the subset of *testing.T the constructors need.
type T interface {
	mock.TestingT
	Cleanup(func())
}

func register(t T, m *mock.Mock) {
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
}

// MockPlatformStore mocks ports.PlatformStore.
type MockPlatformStore struct {
	mock.Mock
}

// NewMockPlatformStore creates a store mock that asserts its expectations on cleanup.
func NewMockPlatformStore(t T) *MockPlatformStore {
	m := &MockPlatformStore{}
	register(t, &m.Mock)

	return m
}

func (m *MockPlatformStore) GetAll(ctx context.Context) ([]domain.Platform, error) {
	args := m.Called(ctx)
	platforms, _ := args.Get(0).([]domain.Platform)

	return platforms, args.Error(1)
}

func (m *MockPlatformStore) GetByID(ctx context.Context, id int) (*domain.Platform, error) {
	args := m.Called(ctx, id)
	platform, _ := args.Get(0).(*domain.Platform)

	return platform, args.Error(1)
}

func (m *MockPlatformStore) Begin(ctx context.Context) (ports.PlatformUnitOfWork, error) {
	args := m.Called(ctx)
	uow, _ := args.Get(0).(ports.PlatformUnitOfWork)

	return uow, args.Error(1)
}

// MockPlatformUnitOfWork mocks ports.PlatformUnitOfWork.
type MockPlatformUnitOfWork struct {
	mock.Mock
}

// NewMockPlatformUnitOfWork creates a unit-of-work mock.
func NewMockPlatformUnitOfWork(t T) *MockPlatformUnitOfWork {
	m := &MockPlatformUnitOfWork{}
	register(t, &m.Mock)

	return m
}

func (m *MockPlatformUnitOfWork) Create(ctx context.Context, platform *domain.Platform) error {
	return m.Called(ctx, platform).Error(0)
}

func (m *MockPlatformUnitOfWork) Commit(ctx context.Context) (int, error) {
	args := m.Called(ctx)

	return args.Int(0), args.Error(1)
}

// MockCommandNotifier mocks ports.CommandNotifier.
type MockCommandNotifier struct {
	mock.Mock
}

// NewMockCommandNotifier creates a notifier mock.
func NewMockCommandNotifier(t T) *MockCommandNotifier {
	m := &MockCommandNotifier{}
	register(t, &m.Mock)

	return m
}

func (m *MockCommandNotifier) Send(ctx context.Context, view domain.PlatformView) error {
	return m.Called(ctx, view).Error(0)
}

// MockEventPublisher mocks ports.EventPublisher.
type MockEventPublisher struct {
	mock.Mock
}

// NewMockEventPublisher creates a publisher mock.
func NewMockEventPublisher(t T) *MockEventPublisher {
	m := &MockEventPublisher{}
	register(t, &m.Mock)

	return m
}

func (m *MockEventPublisher) Publish(ctx context.Context, event domain.PlatformEvent) error {
	return m.Called(ctx, event).Error(0)
}

// MockHealthChecker mocks ports.HealthChecker.
type MockHealthChecker struct {
	mock.Mock
}

// NewMockHealthChecker creates a health checker mock.
func NewMockHealthChecker(t T) *MockHealthChecker {
	m := &MockHealthChecker{}
	register(t, &m.Mock)

	return m
}

func (m *MockHealthChecker) Name() string {
	return m.Called().String(0)
}

func (m *MockHealthChecker) Check(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockHealthRegistry mocks ports.HealthRegistry.
type MockHealthRegistry struct {
	mock.Mock
}

// NewMockHealthRegistry creates a health registry mock.
func NewMockHealthRegistry(t T) *MockHealthRegistry {
	m := &MockHealthRegistry{}
	register(t, &m.Mock)

	return m
}

func (m *MockHealthRegistry) Register(checker ports.HealthChecker) error {
	return m.Called(checker).Error(0)
}

func (m *MockHealthRegistry) RegisterNonCritical(checker ports.HealthChecker) error {
	return m.Called(checker).Error(0)
}

func (m *MockHealthRegistry) CheckAll(ctx context.Context) *ports.HealthResult {
	result, _ := m.Called(ctx).Get(0).(*ports.HealthResult)

	return result
}

var (
	_ ports.PlatformStore      = (*MockPlatformStore)(nil)
	_ ports.PlatformUnitOfWork = (*MockPlatformUnitOfWork)(nil)
	_ ports.CommandNotifier    = (*MockCommandNotifier)(nil)
	_ ports.EventPublisher     = (*MockEventPublisher)(nil)
	_ ports.HealthChecker      = (*MockHealthChecker)(nil)
	_ ports.HealthRegistry     = (*MockHealthRegistry)(nil)
)
