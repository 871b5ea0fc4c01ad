// Package harvest implements the listing-collection stage: scrape every
// discovered store concurrently and merge the results.
package harvest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/dealscout/internal/cache"
	"github.com/kailas-cloud/dealscout/internal/domain"
	"github.com/kailas-cloud/dealscout/internal/logger"
	"github.com/kailas-cloud/dealscout/internal/metrics"
)

// Config holds harvesting limits.
type Config struct {
	MaxConcurrent int
	CacheTTL      time.Duration
}

// Result carries what one harvest pass produced. StoreErrors holds
// per-store failure messages; a failed store never fails the pass.
type Result struct {
	Listings    []domain.RawListing
	StoreErrors []string
}

// Service scrapes listings from a set of stores.
type Service struct {
	scraper Scraper
	cache   Cache
	cfg     Config
}

// New creates a Service.
func New(scraper Scraper, c Cache, cfg Config) *Service {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 6 * time.Hour
	}
	return &Service{scraper: scraper, cache: c, cfg: cfg}
}

// Collect scrapes all stores for the query with bounded concurrency. Stores
// fail independently; the pass returns every listing it could get plus one
// error string per store that produced nothing. Collect itself only fails
// when the context is cancelled.
func (s *Service) Collect(ctx context.Context, stores []domain.Store, query string) (Result, error) {
	var (
		mu     sync.Mutex
		result Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrent)

	for _, store := range stores {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			listings, err := s.collectStore(gctx, store, query)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.StoreErrors = append(result.StoreErrors,
					fmt.Sprintf("store %s (%s): %v", store.Name, store.ID, err))
				return nil
			}
			result.Listings = append(result.Listings, listings...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("harvest listings: %w", err)
	}

	logger.FromContext(ctx).Info("listings harvested",
		zap.Int("stores", len(stores)),
		zap.Int("listings", len(result.Listings)),
		zap.Int("failed_stores", len(result.StoreErrors)))

	return result, nil
}

func (s *Service) collectStore(ctx context.Context, store domain.Store, query string) ([]domain.RawListing, error) {
	key := cache.ProductsKey(store.ID, query)

	var cached []domain.RawListing
	if s.cache.GetJSON(ctx, key, &cached) {
		metrics.CacheTotal.WithLabelValues("products", "hit").Inc()
		return cached, nil
	}
	metrics.CacheTotal.WithLabelValues("products", "miss").Inc()

	listings, err := s.scraper.Harvest(ctx, store, query)
	if err != nil {
		return nil, err
	}

	// empty results are cached too, so a store with no stock is not
	// re-scraped on every search within the TTL
	s.cache.SetJSON(ctx, key, listings, s.cfg.CacheTTL)
	return listings, nil
}
