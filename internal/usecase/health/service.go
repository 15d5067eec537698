package health

import (
	"context"

	"github.com/kailas-cloud/indexer/internal/coord"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates the search engine is unreachable.
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

// Component names in a report.
const (
	ComponentEngine       = "solr"
	ComponentCoordination = "coordination"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	engine EnginePinger
	coord  CoordinationOpener
}

// New creates a Service. opener can be nil when no coordination service is configured.
func New(engine EnginePinger, opener CoordinationOpener) *Service {
	return &Service{engine: engine, coord: opener}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	engineOK := s.engine.Ping(ctx) == nil
	checks[ComponentEngine] = result(engineOK)

	if s.coord != nil {
		err := coord.Do(ctx, s.coord, func(sess coord.Session) error {
			_, err := sess.PathExists(ctx, coord.Namespace)
			return err
		})
		checks[ComponentCoordination] = result(err == nil)
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if !engineOK {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func result(ok bool) CheckResult {
	if ok {
		return CheckOK
	}
	return CheckError
}
