// Package pipeline orchestrates one search through the five stages:
// structure the query, discover stores, harvest listings, match them
// semantically and synthesize recommendations.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dealscout/internal/cache"
	"github.com/kailas-cloud/dealscout/internal/domain"
	"github.com/kailas-cloud/dealscout/internal/geo"
	"github.com/kailas-cloud/dealscout/internal/logger"
	"github.com/kailas-cloud/dealscout/internal/metrics"
	"github.com/kailas-cloud/dealscout/internal/queryparse"
)

const maxQueryLen = 500

// resultSuffix names the cached final state of a search.
const resultSuffix = "result"

// Event statuses. Every event a search emits carries exactly one of these.
const (
	StatusInProgress = "in_progress"
	StatusComplete   = "complete"
	StatusError      = "error"
)

// Event is one progress update emitted while a search runs.
type Event struct {
	SearchID string         `json:"search_id"`
	Status   string         `json:"status"`
	Node     string         `json:"node,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Config holds orchestration settings.
type Config struct {
	ResultTTL time.Duration
	Bounds    geo.Bounds
	Sandbox   bool
}

// Orchestrator runs searches end to end.
type Orchestrator struct {
	stores  StoreFinder
	harvest Harvester
	match   Matcher
	analyze Analyzer
	cache   Cache
	cfg     Config
}

// New creates an Orchestrator.
func New(stores StoreFinder, h Harvester, m Matcher, a Analyzer, c Cache, cfg Config) *Orchestrator {
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = time.Hour
	}
	if cfg.Bounds == (geo.Bounds{}) {
		cfg.Bounds = geo.LebanonBounds
	}
	return &Orchestrator{stores: stores, harvest: h, match: m, analyze: a, cache: c, cfg: cfg}
}

// Run executes a full search and returns its final state. It fails only on
// invalid input or an out-of-bounds location; any mid-pipeline failure is
// recorded in the state's error log and the remaining stages run on what
// the earlier ones produced.
func (o *Orchestrator) Run(ctx context.Context, query string, loc domain.Location) (*domain.PipelineState, error) {
	return o.run(ctx, query, loc, func(Event) {})
}

// Stream executes a full search, emitting a progress event after every stage
// and a final complete event. emit is called synchronously from the search
// goroutine.
func (o *Orchestrator) Stream(ctx context.Context, query string, loc domain.Location, emit func(Event)) (*domain.PipelineState, error) {
	return o.run(ctx, query, loc, emit)
}

func (o *Orchestrator) run(ctx context.Context, query string, loc domain.Location, emit func(Event)) (*domain.PipelineState, error) {
	if err := validateInput(query, loc); err != nil {
		return nil, err
	}
	if !o.cfg.Bounds.Contains(loc) {
		return nil, fmt.Errorf("location %v,%v: %w", loc.Lat, loc.Lng, domain.ErrLocationOutOfBounds)
	}

	searchID := uuid.NewString()
	state := domain.NewPipelineState(searchID, query, loc)
	log := logger.FromContext(ctx).With(zap.String("search_id", searchID))
	ctx = logger.ContextWithLogger(ctx, log)

	log.Info("search started", zap.String("query", query))

	o.runStage(ctx, state, emit, domain.StageStructureQuery, o.structureQuery)
	o.runStage(ctx, state, emit, domain.StageDiscoverStores, o.discoverStores)
	o.runStage(ctx, state, emit, domain.StageHarvestListings, o.harvestListings)
	o.runStage(ctx, state, emit, domain.StageMatchSemantic, o.matchSemantic)
	o.runStage(ctx, state, emit, domain.StageRecommend, o.recommend)

	o.cache.RecordSearch(ctx, time.Now().UTC().Format("2006-01-02"))
	o.cache.SetJSON(ctx, cache.SearchKey(searchID, resultSuffix), state, o.cfg.ResultTTL)

	status := "ok"
	if len(state.Errors) > 0 {
		status = "error"
	}
	metrics.PipelineSearchesTotal.WithLabelValues(status).Inc()

	emit(Event{SearchID: searchID, Status: StatusComplete, Data: map[string]any{
		"stores_found":   len(state.Stores),
		"products_found": len(state.Listings),
		"matches":        len(state.Matches),
		"errors":         len(state.Errors),
	}})

	log.Info("search finished",
		zap.Int("stores", len(state.Stores)),
		zap.Int("listings", len(state.Listings)),
		zap.Int("matches", len(state.Matches)),
		zap.Int("errors", len(state.Errors)))

	return state, nil
}

// Cached returns the stored state of a finished search, or ErrSearchNotFound
// when it never ran or its result expired.
func (o *Orchestrator) Cached(ctx context.Context, searchID string) (*domain.PipelineState, error) {
	var state domain.PipelineState
	if !o.cache.GetJSON(ctx, cache.SearchKey(searchID, resultSuffix), &state) {
		return nil, fmt.Errorf("search %s: %w", searchID, domain.ErrSearchNotFound)
	}
	return &state, nil
}

type stageFunc func(ctx context.Context, state *domain.PipelineState) (map[string]any, error)

// runStage times one stage, folds its error into the state and emits a
// progress event. Stage errors never abort the run.
func (o *Orchestrator) runStage(ctx context.Context, state *domain.PipelineState, emit func(Event), name string, fn stageFunc) {
	start := time.Now()
	data, err := fn(ctx, state)
	elapsed := time.Since(start)

	state.RecordTiming(name, elapsed.Milliseconds())
	metrics.PipelineStageDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	if err != nil {
		state.AddError(fmt.Sprintf("%s: %v", name, err))
		metrics.PipelineStageErrorsTotal.WithLabelValues(name).Inc()
		logger.FromContext(ctx).Warn("stage failed", zap.String("stage", name), zap.Error(err))
	}

	if data == nil {
		data = map[string]any{}
	}
	data["elapsed_ms"] = elapsed.Milliseconds()
	emit(Event{SearchID: state.SearchID, Status: StatusInProgress, Node: name, Data: data})
}

func (o *Orchestrator) structureQuery(_ context.Context, state *domain.PipelineState) (map[string]any, error) {
	structured, err := queryparse.Parse(state.Query)
	if err != nil {
		return nil, err
	}
	state.Structured = &structured
	return map[string]any{"brand": structured.Brand, "category": structured.Category}, nil
}

func (o *Orchestrator) discoverStores(ctx context.Context, state *domain.PipelineState) (map[string]any, error) {
	category := ""
	if state.Structured != nil {
		category = state.Structured.Category
	}

	stores, err := o.stores.Find(ctx, state.Location, category)
	if err != nil {
		if o.cfg.Sandbox {
			state.Stores = sandboxStores(state.Location)
			return map[string]any{"stores_found": len(state.Stores), "sandbox": true}, err
		}
		return nil, err
	}

	state.Stores = stores
	if len(stores) == 0 && o.cfg.Sandbox {
		state.Stores = sandboxStores(state.Location)
	}
	return map[string]any{"stores_found": len(state.Stores)}, nil
}

func (o *Orchestrator) harvestListings(ctx context.Context, state *domain.PipelineState) (map[string]any, error) {
	if len(state.Stores) == 0 {
		return map[string]any{"products_found": 0}, nil
	}

	searchQuery := state.Query
	if state.Structured != nil {
		searchQuery = state.Structured.SearchTerms()
	}

	result, err := o.harvest.Collect(ctx, state.Stores, searchQuery)
	if err != nil {
		return nil, err
	}
	for _, msg := range result.StoreErrors {
		state.AddError("harvest_listings: " + msg)
	}

	state.Listings = result.Listings
	if len(state.Listings) == 0 && o.cfg.Sandbox {
		state.Listings = sandboxListings(state.Stores, searchQuery)
	}
	return map[string]any{
		"products_found": len(state.Listings),
		"failed_stores":  len(result.StoreErrors),
	}, nil
}

func (o *Orchestrator) matchSemantic(ctx context.Context, state *domain.PipelineState) (map[string]any, error) {
	if len(state.Listings) == 0 {
		return map[string]any{"matches": 0}, nil
	}

	structured := domain.StructuredQuery{OriginalQuery: state.Query}
	if state.Structured != nil {
		structured = *state.Structured
	}

	matches, err := o.match.Rank(ctx, state.SearchID, structured, state.Listings, state.Stores)
	if err != nil {
		return nil, err
	}
	state.Matches = matches
	return map[string]any{"matches": len(matches)}, nil
}

func (o *Orchestrator) recommend(ctx context.Context, state *domain.PipelineState) (map[string]any, error) {
	bundle, err := o.analyze.Analyze(ctx, state.Query, state.Matches)
	if err != nil {
		return nil, err
	}
	state.Analysis = bundle

	recommended := 0
	if bundle != nil {
		recommended = len(bundle.TopRecommendations)
	}
	return map[string]any{"recommendations": recommended}, nil
}

// validateInput rejects searches the pipeline cannot start.
func validateInput(query string, loc domain.Location) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return fmt.Errorf("empty query: %w", domain.ErrInvalidQuery)
	}
	if len(trimmed) > maxQueryLen {
		return fmt.Errorf("query longer than %d chars: %w", maxQueryLen, domain.ErrInvalidQuery)
	}
	if loc.Lat < -90 || loc.Lat > 90 || loc.Lng < -180 || loc.Lng > 180 {
		return fmt.Errorf("malformed coordinates %v,%v: %w", loc.Lat, loc.Lng, domain.ErrInvalidQuery)
	}
	return nil
}

// IsFatal reports whether a search error means the request itself was bad
// rather than a downstream capability failing.
func IsFatal(err error) bool {
	return errors.Is(err, domain.ErrInvalidQuery) || errors.Is(err, domain.ErrLocationOutOfBounds)
}
