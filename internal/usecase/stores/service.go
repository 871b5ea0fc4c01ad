// Package stores implements the discovery stage: find retail stores around
// the shopper that are worth harvesting.
package stores

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/dealscout/internal/cache"
	"github.com/kailas-cloud/dealscout/internal/domain"
	"github.com/kailas-cloud/dealscout/internal/geo"
	"github.com/kailas-cloud/dealscout/internal/logger"
	"github.com/kailas-cloud/dealscout/internal/metrics"
	"github.com/kailas-cloud/dealscout/internal/queryparse"
)

// Config holds discovery thresholds.
type Config struct {
	RadiusKm  float64
	MaxStores int
	MinRating float64
	CacheTTL  time.Duration
	Bounds    geo.Bounds
}

// Service finds, filters and ranks nearby stores.
type Service struct {
	provider Provider
	cache    Cache
	cfg      Config
}

// New creates a Service.
func New(provider Provider, c Cache, cfg Config) *Service {
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = 10
	}
	if cfg.MaxStores <= 0 {
		cfg.MaxStores = 10
	}
	if cfg.MinRating <= 0 {
		cfg.MinRating = 3.5
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if cfg.Bounds == (geo.Bounds{}) {
		cfg.Bounds = geo.LebanonBounds
	}
	return &Service{provider: provider, cache: c, cfg: cfg}
}

// Find returns up to MaxStores stores around loc matching the category,
// sorted by distance. Results are cached per location+category.
func (s *Service) Find(ctx context.Context, loc domain.Location, category string) ([]domain.Store, error) {
	if !s.cfg.Bounds.Contains(loc) {
		return nil, fmt.Errorf("location %v,%v: %w", loc.Lat, loc.Lng, domain.ErrLocationOutOfBounds)
	}

	key := cache.StoresKey(loc.Lat, loc.Lng, category)

	var cached []domain.Store
	if s.cache.GetJSON(ctx, key, &cached) {
		metrics.CacheTotal.WithLabelValues("stores", "hit").Inc()
		return cached, nil
	}
	metrics.CacheTotal.WithLabelValues("stores", "miss").Inc()

	keyword := queryparse.CategorySearchKeyword(category)
	found, err := s.provider.Nearby(ctx, loc, s.cfg.RadiusKm, keyword)
	if err != nil {
		return nil, fmt.Errorf("discover stores: %w", err)
	}

	stores := s.rank(loc, found)

	// website and phone come from a second, per-store API call; only the
	// stores that survived ranking are worth the extra requests
	for i := range stores {
		if stores[i].Website == "" {
			stores[i] = s.provider.Details(ctx, stores[i])
		}
	}

	logger.FromContext(ctx).Info("stores discovered",
		zap.Int("found", len(found)),
		zap.Int("kept", len(stores)),
		zap.String("category", category))

	s.cache.SetJSON(ctx, key, stores, s.cfg.CacheTTL)
	return stores, nil
}

// rank filters by rating and radius, fills distances, sorts by proximity
// and caps the result.
func (s *Service) rank(center domain.Location, found []domain.Store) []domain.Store {
	kept := make([]domain.Store, 0, len(found))
	for _, st := range found {
		if st.Rating < s.cfg.MinRating {
			continue
		}
		st.DistanceKm = geo.Distance(center, st.Location())
		if st.DistanceKm > s.cfg.RadiusKm {
			continue
		}
		kept = append(kept, st)
	}

	geo.SortByDistance(kept)

	if len(kept) > s.cfg.MaxStores {
		kept = kept[:s.cfg.MaxStores]
	}
	return kept
}
