package health

import (
	"context"
	"sync"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure; scans still run.
	Degraded Status = "degraded"
	// Unhealthy indicates a critical component is down and every scan degrades.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component is a named dependency. A failing critical component makes the report Unhealthy.
type Component struct {
	Name     string
	Checker  Checker
	Critical bool
}

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db         DBPinger
	components []Component
}

// New creates a Service. db can be nil; components with a nil Checker are skipped.
func New(db DBPinger, components ...Component) *Service {
	return &Service{db: db, components: components}
}

// Check runs all health checks concurrently.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	var mu sync.Mutex
	record := func(name string, err error, critical bool) {
		mu.Lock()
		defer mu.Unlock()
		if err == nil {
			checks[name] = CheckOK
			return
		}
		checks[name] = CheckError
		switch {
		case critical:
			status = Unhealthy
		case status == Healthy:
			status = Degraded
		}
	}

	var wg sync.WaitGroup
	if s.db != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record("database", s.db.Ping(ctx), false)
		}()
	}
	for _, c := range s.components {
		if c.Checker == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			record(c.Name, c.Checker.HealthCheck(ctx), c.Critical)
		}()
	}
	wg.Wait()

	return Report{Status: status, Checks: checks}
}
