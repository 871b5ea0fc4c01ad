package scrape

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kailas-cloud/dealscout/internal/domain"
	"github.com/kailas-cloud/dealscout/internal/metrics"
)

// StaticStrategy fetches server-rendered pages with a plain HTTP client.
type StaticStrategy struct {
	client    *http.Client
	limiter   *DomainLimiter
	userAgent string
}

// NewStaticStrategy creates a strategy for sites that render product cards
// without JavaScript.
func NewStaticStrategy(limiter *DomainLimiter, userAgent string, timeout time.Duration) *StaticStrategy {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &StaticStrategy{
		client:    &http.Client{Timeout: timeout},
		limiter:   limiter,
		userAgent: userAgent,
	}
}

// Name implements Strategy.
func (s *StaticStrategy) Name() string { return "static" }

// Fetch implements Strategy.
func (s *StaticStrategy) Fetch(ctx context.Context, pageURL, storeID string) ([]domain.RawListing, error) {
	if err := s.limiter.Wait(ctx, pageURL); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept-Language", "en")

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.ScrapeRequestsTotal.WithLabelValues(s.Name(), "error").Inc()
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		metrics.ScrapeRequestsTotal.WithLabelValues(s.Name(), "error").Inc()
		return nil, fmt.Errorf("fetch %s: %w", pageURL, domain.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.ScrapeRequestsTotal.WithLabelValues(s.Name(), "error").Inc()
		return nil, fmt.Errorf("fetch %s: status %d: %w", pageURL, resp.StatusCode, domain.ErrScrapeParse)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		metrics.ScrapeRequestsTotal.WithLabelValues(s.Name(), "error").Inc()
		return nil, fmt.Errorf("parse %s: %w: %w", pageURL, err, domain.ErrScrapeParse)
	}

	listings := ExtractListings(doc, storeID, pageURL)
	metrics.ScrapeRequestsTotal.WithLabelValues(s.Name(), "success").Inc()
	metrics.ScrapeListingsTotal.WithLabelValues(s.Name()).Add(float64(len(listings)))
	return listings, nil
}
