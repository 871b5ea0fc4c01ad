package scrape

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"github.com/kailas-cloud/dealscout/internal/domain"
	"github.com/kailas-cloud/dealscout/internal/metrics"
)

// BrowserStrategy drives headless Chrome for sites that render product cards
// client-side. One allocator is shared; each fetch gets its own tab.
type BrowserStrategy struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	limiter     *DomainLimiter
	navTimeout  time.Duration
}

// NewBrowserStrategy boots a shared Chrome allocator. Call Close when done.
func NewBrowserStrategy(limiter *DomainLimiter, userAgent string, headless bool, navTimeout time.Duration) *BrowserStrategy {
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	if bin := findChromeBinary(); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// suppress chromedp log noise
	silentCtx, cancelSilent := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	_ = cancelSilent

	return &BrowserStrategy{
		allocCtx:    silentCtx,
		cancelAlloc: cancelAlloc,
		limiter:     limiter,
		navTimeout:  navTimeout,
	}
}

// Name implements Strategy.
func (b *BrowserStrategy) Name() string { return "browser" }

// cardWaitTimeout bounds the wait for the first product card to render.
const cardWaitTimeout = 5 * time.Second

// cardWaitSelector matches any of the known product-card containers.
func cardWaitSelector() string {
	return strings.Join(cardSelectors, ", ")
}

// waitForCards gives client-side rendering a bounded head start. A page with
// no recognizable card container is not an error; extraction decides what
// the page actually holds.
func waitForCards(tabCtx context.Context) {
	waitCtx, cancel := context.WithTimeout(tabCtx, cardWaitTimeout)
	defer cancel()
	_ = chromedp.Run(waitCtx, chromedp.WaitVisible(cardWaitSelector(), chromedp.ByQuery))
}

// Fetch implements Strategy. The page is navigated, given a bounded wait for
// product cards to render, scrolled to trigger lazy loading, then its
// rendered HTML is handed to the shared extractor.
func (b *BrowserStrategy) Fetch(ctx context.Context, pageURL, storeID string) ([]domain.RawListing, error) {
	if err := b.limiter.Wait(ctx, pageURL); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	}

	tabCtx, cancelTab := chromedp.NewContext(b.allocCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.navTimeout)
	defer cancelTimeout()

	// honor the caller's cancellation as well as the tab's own timeout
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	if err := chromedp.Run(tabCtx, chromedp.Navigate(pageURL)); err != nil {
		metrics.ScrapeRequestsTotal.WithLabelValues(b.Name(), "error").Inc()
		if errors.Is(tabCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("render %s: %w", pageURL, domain.ErrScrapeTimeout)
		}
		return nil, fmt.Errorf("render %s: %w", pageURL, err)
	}

	waitForCards(tabCtx)

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight / 2)`, nil),
		chromedp.Sleep(time.Second),
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Sleep(time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		metrics.ScrapeRequestsTotal.WithLabelValues(b.Name(), "error").Inc()
		if errors.Is(tabCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("render %s: %w", pageURL, domain.ErrScrapeTimeout)
		}
		return nil, fmt.Errorf("render %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		metrics.ScrapeRequestsTotal.WithLabelValues(b.Name(), "error").Inc()
		return nil, fmt.Errorf("parse %s: %w: %w", pageURL, err, domain.ErrScrapeParse)
	}

	listings := ExtractListings(doc, storeID, pageURL)
	metrics.ScrapeRequestsTotal.WithLabelValues(b.Name(), "success").Inc()
	metrics.ScrapeListingsTotal.WithLabelValues(b.Name()).Add(float64(len(listings)))
	return listings, nil
}

// Close tears down the shared Chrome allocator.
func (b *BrowserStrategy) Close() {
	b.cancelAlloc()
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}
