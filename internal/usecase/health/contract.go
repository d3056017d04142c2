package health

import "context"

// DBPinger checks cache database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Checker checks one provider or component.
type Checker interface {
	HealthCheck(ctx context.Context) error
}
