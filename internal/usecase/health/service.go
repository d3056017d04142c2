package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates the norm store cannot serve queries.
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

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Components lists what Check probes. Nil members are skipped.
type Components struct {
	Store     Checker
	DB        DBPinger
	Embedding Checker
	LLM       Checker
}

// Service coordinates health checks.
type Service struct {
	c Components
}

// New creates a Service.
func New(c Components) *Service {
	return &Service{c: c}
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.c.Store != nil {
		checks["store"] = result(s.c.Store.HealthCheck(ctx))
	}
	if s.c.DB != nil {
		checks["database"] = result(s.c.DB.Ping(ctx))
	}
	if s.c.Embedding != nil {
		checks["embedding"] = result(s.c.Embedding.HealthCheck(ctx))
	}
	if s.c.LLM != nil {
		checks["llm"] = result(s.c.LLM.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks["store"] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
