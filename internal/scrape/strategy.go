// Package scrape harvests product listings from retail store websites.
// Two strategies share one extractor: a plain HTTP fetch for server-rendered
// sites and a headless browser for JavaScript-heavy ones. A per-domain rate
// limiter is shared by both so no site sees more traffic than configured.
package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/kailas-cloud/dealscout/internal/domain"
)

// Strategy fetches a page and extracts its product listings.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, pageURL, storeID string) ([]domain.RawListing, error)
}

// browserDomains render product grids client-side and need a real browser.
var browserDomains = map[string]bool{
	"nike.com":    true,
	"amazon.com":  true,
	"zalando.com": true,
	"asos.com":    true,
}

// searchPaths maps known retail domains to their on-site search URL shape.
var searchPaths = map[string]string{
	"nike.com":    "/w?q=%s",
	"adidas.com":  "/search?q=%s",
	"amazon.com":  "/s?k=%s",
	"ebay.com":    "/sch/i.html?_nkw=%s",
	"zalando.com": "/katalog/?q=%s",
	"asos.com":    "/search/?q=%s",
}

// Router picks a strategy per store website and builds its search URL.
type Router struct {
	static  Strategy
	browser Strategy
}

// NewRouter wires the two strategies together.
func NewRouter(static, browser Strategy) *Router {
	return &Router{static: static, browser: browser}
}

// Harvest scrapes one store's website for listings matching the query.
// Stores without a website cannot be harvested.
func (r *Router) Harvest(ctx context.Context, store domain.Store, query string) ([]domain.RawListing, error) {
	if store.Website == "" {
		return nil, fmt.Errorf("store %s has no website: %w", store.ID, domain.ErrScrapeParse)
	}

	pageURL, err := SearchURL(store.Website, query)
	if err != nil {
		return nil, err
	}

	return r.strategyFor(store.Website).Fetch(ctx, pageURL, store.ID)
}

func (r *Router) strategyFor(website string) Strategy {
	if browserDomains[DomainOf(website)] {
		return r.browser
	}
	return r.static
}

// SearchURL derives the on-site search URL for a store website and query.
// Unknown domains fall back to a conventional /search?q= path.
func SearchURL(website, query string) (string, error) {
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	base, err := url.Parse(website)
	if err != nil || base.Host == "" {
		return "", fmt.Errorf("invalid website %q: %w", website, domain.ErrScrapeParse)
	}

	path, ok := searchPaths[DomainOf(website)]
	if !ok {
		path = "/search?q=%s"
	}

	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return base.String() + fmt.Sprintf(path, url.QueryEscape(query)), nil
}
