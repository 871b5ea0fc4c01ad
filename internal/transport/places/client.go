// Package places discovers nearby retail stores through the Google Places
// Nearby Search API.
package places

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"googlemaps.github.io/maps"

	"github.com/kailas-cloud/dealscout/internal/domain"
	"github.com/kailas-cloud/dealscout/internal/logger"
	"github.com/kailas-cloud/dealscout/internal/metrics"
)

const providerLabel = "places"

// Client wraps the Places API with rate limiting and pagination.
type Client struct {
	api        *maps.Client
	limiter    *rate.Limiter
	pageDelay  time.Duration
	timeout    time.Duration
	maxResults int
}

// Config holds Places API settings.
type Config struct {
	APIKey         string
	RequestsPerSec float64
	PageDelay      time.Duration
	Timeout        time.Duration
	MaxResults     int
	BaseURL        string // test override
}

// NewClient creates a Places client.
func NewClient(cfg *Config) (*Client, error) {
	opts := []maps.ClientOption{maps.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, maps.WithBaseURL(cfg.BaseURL))
	}

	api, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create places client: %w", err)
	}

	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 5
	}
	pageDelay := cfg.PageDelay
	if pageDelay <= 0 {
		pageDelay = 2 * time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}

	return &Client{
		api:        api,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		pageDelay:  pageDelay,
		timeout:    timeout,
		maxResults: maxResults,
	}, nil
}

// Nearby returns stores around the location matching the keyword. It fetches
// at most one extra result page, and only when the first one came back with
// fewer stores than MaxResults. Distance and rating filtering happen upstream.
func (c *Client) Nearby(ctx context.Context, loc domain.Location, radiusKm float64, keyword string) ([]domain.Store, error) {
	first, err := c.searchPage(ctx, &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: loc.Lat, Lng: loc.Lng},
		Radius:   uint(radiusKm * 1000),
		Keyword:  keyword,
	})
	if err != nil {
		return nil, fmt.Errorf("nearby search: %w: %w", err, domain.ErrProvider)
	}

	stores := make([]domain.Store, 0, len(first.Results))
	for i := range first.Results {
		stores = append(stores, toStore(&first.Results[i]))
	}

	if first.NextPageToken == "" || len(stores) >= c.maxResults {
		return stores, nil
	}

	// the next_page_token takes a moment to become valid server-side
	select {
	case <-ctx.Done():
		return stores, ctx.Err()
	case <-time.After(c.pageDelay):
	}

	second, err := c.searchPage(ctx, &maps.NearbySearchRequest{PageToken: first.NextPageToken})
	if err != nil {
		// partial result beats none
		logger.FromContext(ctx).Warn("places pagination aborted", zap.Error(err))
		return stores, nil
	}
	for i := range second.Results {
		stores = append(stores, toStore(&second.Results[i]))
	}

	return stores, nil
}

// searchPage runs one rate-limited, deadline-bounded Nearby Search request.
func (c *Client) searchPage(ctx context.Context, req *maps.NearbySearchRequest) (maps.PlacesSearchResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return maps.PlacesSearchResponse{}, fmt.Errorf("rate limit wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.api.NearbySearch(ctx, req)
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(providerLabel, "error").Inc()
		return maps.PlacesSearchResponse{}, err
	}

	metrics.ProviderRequestsTotal.WithLabelValues(providerLabel, "success").Inc()
	metrics.ProviderRequestDuration.WithLabelValues(providerLabel).Observe(time.Since(start).Seconds())
	return resp, nil
}

// Details fills website and phone for a store. Failures are non-fatal;
// the store is returned as-is.
func (c *Client) Details(ctx context.Context, store domain.Store) domain.Store {
	if err := c.limiter.Wait(ctx); err != nil {
		return store
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
		PlaceID: store.ID,
		Fields: []maps.PlaceDetailsFieldMask{
			maps.PlaceDetailsFieldMaskWebsite,
			maps.PlaceDetailsFieldMaskFormattedPhoneNumber,
		},
	})
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(providerLabel, "error").Inc()
		logger.FromContext(ctx).Debug("place details failed",
			zap.String("place_id", store.ID), zap.Error(err))
		return store
	}

	metrics.ProviderRequestsTotal.WithLabelValues(providerLabel, "success").Inc()
	store.Website = resp.Website
	store.Phone = resp.FormattedPhoneNumber
	return store
}

func toStore(r *maps.PlacesSearchResult) domain.Store {
	s := domain.Store{
		ID:           r.PlaceID,
		Name:         r.Name,
		Address:      r.Vicinity,
		Lat:          r.Geometry.Location.Lat,
		Lng:          r.Geometry.Location.Lng,
		Rating:       roundRating(r.Rating),
		ReviewsCount: r.UserRatingsTotal,
	}
	if r.OpeningHours != nil && r.OpeningHours.OpenNow != nil {
		s.CurrentlyOpen = *r.OpeningHours.OpenNow
	}
	return s
}

// roundRating widens the API's float32 rating to one decimal place so 3.9
// stays 3.9 instead of 3.9000000953674316.
func roundRating(r float32) float64 {
	return math.Round(float64(r)*10) / 10
}
