package stores

import (
	"context"
	"time"

	"github.com/kailas-cloud/dealscout/internal/domain"
)

// Provider discovers nearby stores through an external places API.
type Provider interface {
	Nearby(ctx context.Context, loc domain.Location, radiusKm float64, keyword string) ([]domain.Store, error)
	Details(ctx context.Context, store domain.Store) domain.Store
}

// Cache persists discovery results between searches.
type Cache interface {
	GetJSON(ctx context.Context, key string, out any) bool
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration)
}
