package domain

import "errors"

var (
	// ErrInvalidQuery signals missing or malformed search input. Fails the
	// search before the pipeline starts.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrLocationOutOfBounds signals a location outside the configured
	// service area. Fails the search before the pipeline starts.
	ErrLocationOutOfBounds = errors.New("location out of bounds")
	// ErrProvider signals a failure of an external capability (places,
	// embedding, vector index, language model, cache).
	ErrProvider = errors.New("provider error")
	// ErrScrapeParse signals unparsable listing markup for one store.
	ErrScrapeParse = errors.New("scrape parse error")
	// ErrScrapeTimeout signals a scrape exceeding its deadline for one store.
	ErrScrapeTimeout = errors.New("scrape timeout")
	// ErrRateLimited signals a block or rate-limit response from a retailer.
	ErrRateLimited = errors.New("rate limited")
	// ErrMatchFailed signals a whole-stage embedding or index failure.
	ErrMatchFailed = errors.New("semantic matching failed")
	// ErrAnalysisFailed signals malformed or missing language-model output.
	ErrAnalysisFailed = errors.New("analysis failed")
	// ErrSearchNotFound signals a missing or expired cached search result.
	ErrSearchNotFound = errors.New("search not found")
)
