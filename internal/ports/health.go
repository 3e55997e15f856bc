package ports

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrDuplicateChecker rejects a second checker under an existing name.
var ErrDuplicateChecker = errors.New("duplicate health checker")

// HealthChecker is a dependency that can say whether it is usable right now.
// Check must honour ctx and return nil when healthy.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthRegistry runs every registered check for the readiness probe.
// A failing critical checker makes the service unready; a failing
// non-critical one only degrades it.
type HealthRegistry interface {
	Register(checker HealthChecker) error
	RegisterNonCritical(checker HealthChecker) error
	CheckAll(ctx context.Context) *HealthResult
}

type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// Ready reports whether the service should stay in rotation.
func (s HealthStatus) Ready() bool {
	return s != HealthStatusUnhealthy
}

// HealthResult is the readiness report.
type HealthResult struct {
	Status    HealthStatus            `json:"status"`
	Checks    map[string]*CheckResult `json:"checks"`
	Timestamp time.Time               `json:"timestamp"`
}

// CheckResult is one checker's outcome. Message carries the error text.
type CheckResult struct {
	Status   HealthStatus  `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
	Critical bool          `json:"critical"`
}

type probe struct {
	HealthChecker

	critical bool
}

// CheckRegistry is the HealthRegistry used by the service. Checks run
// concurrently on every CheckAll.
type CheckRegistry struct {
	mu     sync.RWMutex
	probes []probe
}

func NewHealthRegistry() *CheckRegistry {
	return &CheckRegistry{}
}

// Register adds a checker the service cannot run without.
func (r *CheckRegistry) Register(checker HealthChecker) error {
	return r.add(probe{HealthChecker: checker, critical: true})
}

// RegisterNonCritical adds a best-effort dependency.
func (r *CheckRegistry) RegisterNonCritical(checker HealthChecker) error {
	return r.add(probe{HealthChecker: checker})
}

func (r *CheckRegistry) add(p probe) error {
	if p.HealthChecker == nil {
		return errors.New("nil health checker")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.probes {
		if existing.Name() == p.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicateChecker, p.Name())
		}
	}

	r.probes = append(r.probes, p)

	return nil
}

// CheckAll runs every checker and folds the outcomes into one status.
func (r *CheckRegistry) CheckAll(ctx context.Context) *HealthResult {
	r.mu.RLock()
	probes := append([]probe(nil), r.probes...)
	r.mu.RUnlock()

	results := make([]*CheckResult, len(probes))

	var wg sync.WaitGroup
	for i, p := range probes {
		wg.Add(1)

		go func() {
			defer wg.Done()

			results[i] = run(ctx, p)
		}()
	}

	wg.Wait()

	report := &HealthResult{
		Status:    HealthStatusHealthy,
		Checks:    make(map[string]*CheckResult, len(probes)),
		Timestamp: time.Now(),
	}

	for i, p := range probes {
		res := results[i]
		report.Checks[p.Name()] = res
		report.Status = worse(report.Status, res)
	}

	return report
}

func run(ctx context.Context, p probe) *CheckResult {
	start := time.Now()
	err := p.Check(ctx)

	res := &CheckResult{Status: HealthStatusHealthy, Duration: time.Since(start), Critical: p.critical}
	if err != nil {
		res.Status = HealthStatusUnhealthy
		res.Message = err.Error()
	}

	return res
}

// worse folds one check into the overall status.
func worse(overall HealthStatus, res *CheckResult) HealthStatus {
	switch {
	case res.Status == HealthStatusHealthy, overall == HealthStatusUnhealthy:
		return overall
	case res.Critical:
		return HealthStatusUnhealthy
	default:
		return HealthStatusDegraded
	}
}
