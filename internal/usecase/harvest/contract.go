package harvest

import (
	"context"
	"time"

	"github.com/kailas-cloud/dealscout/internal/domain"
)

// Scraper fetches listings from one store's website.
type Scraper interface {
	Harvest(ctx context.Context, store domain.Store, query string) ([]domain.RawListing, error)
}

// Cache persists per-store listings between searches.
type Cache interface {
	GetJSON(ctx context.Context, key string, out any) bool
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration)
}
