package scrape

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// DomainLimiter hands out one rate.Limiter per registrable domain so that
// every strategy, whatever its transport, shares the same budget per site.
type DomainLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewDomainLimiter creates a registry with the given per-domain rate.
func NewDomainLimiter(rps float64, burst int) *DomainLimiter {
	if rps <= 0 {
		rps = 0.5
	}
	if burst <= 0 {
		burst = 1
	}
	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Wait blocks until the domain's limiter admits a request or ctx is done.
func (d *DomainLimiter) Wait(ctx context.Context, rawURL string) error {
	return d.limiterFor(rawURL).Wait(ctx)
}

func (d *DomainLimiter) limiterFor(rawURL string) *rate.Limiter {
	key := DomainOf(rawURL)

	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.limiters[key]
	if !ok {
		l = rate.NewLimiter(d.rps, d.burst)
		d.limiters[key] = l
	}
	return l
}

// DomainOf extracts the registrable host of a URL, stripping "www.".
// Unparseable input maps to a single shared bucket.
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
