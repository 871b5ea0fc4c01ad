// Package health aggregates readiness checks over the database and the
// external capability providers.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure; searches may still work.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results by component name.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db        Pinger
	providers map[string]ProviderChecker
}

// New creates a Service over the database.
func New(db Pinger) *Service {
	return &Service{db: db, providers: make(map[string]ProviderChecker)}
}

// WithProvider registers a named capability checker. Nil checkers are
// ignored so sandbox wiring can skip providers it never constructed.
func (s *Service) WithProvider(name string, checker ProviderChecker) *Service {
	if checker != nil {
		s.providers[name] = checker
	}
	return s
}

// Check runs all health checks and aggregates the outcome.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.providers)+1)

	checks["database"] = CheckOK
	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
	}

	for name, checker := range s.providers {
		checks[name] = CheckOK
		if err := checker.HealthCheck(ctx); err != nil {
			checks[name] = CheckError
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
