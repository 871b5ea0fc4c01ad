package health

import "context"

// Pinger checks database availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks an external capability (embedding, places, llm).
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
