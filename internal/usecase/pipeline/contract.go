package pipeline

import (
	"context"
	"time"

	"github.com/kailas-cloud/dealscout/internal/domain"
	"github.com/kailas-cloud/dealscout/internal/usecase/harvest"
)

// StoreFinder discovers nearby stores for a category.
type StoreFinder interface {
	Find(ctx context.Context, loc domain.Location, category string) ([]domain.Store, error)
}

// Harvester scrapes listings from the discovered stores.
type Harvester interface {
	Collect(ctx context.Context, stores []domain.Store, query string) (harvest.Result, error)
}

// Matcher ranks listings by semantic similarity to the query.
type Matcher interface {
	Rank(ctx context.Context, searchID string, query domain.StructuredQuery, listings []domain.RawListing, stores []domain.Store) ([]domain.MatchedListing, error)
}

// Analyzer synthesizes recommendations over the matched listings.
type Analyzer interface {
	Analyze(ctx context.Context, query string, matches []domain.MatchedListing) (*domain.RecommendationBundle, error)
}

// Cache persists finished search results and usage counters.
type Cache interface {
	GetJSON(ctx context.Context, key string, out any) bool
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration)
	RecordSearch(ctx context.Context, date string)
}
