// Package chi exposes the search pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dealscout/internal/domain"
	"github.com/kailas-cloud/dealscout/internal/geo"
	healthuc "github.com/kailas-cloud/dealscout/internal/usecase/health"
	"github.com/kailas-cloud/dealscout/internal/usecase/pipeline"
)

// Pipeline is the orchestrator surface the HTTP layer consumes.
type Pipeline interface {
	Run(ctx context.Context, query string, loc domain.Location) (*domain.PipelineState, error)
	Stream(ctx context.Context, query string, loc domain.Location, emit func(pipeline.Event)) (*domain.PipelineState, error)
	Cached(ctx context.Context, searchID string) (*domain.PipelineState, error)
}

// Server handles the search API endpoints.
type Server struct {
	pipeline Pipeline
	health   *healthuc.Service
	logger   *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(p Pipeline, health *healthuc.Service, logger *zap.Logger) *Server {
	return &Server{pipeline: p, health: health, logger: logger}
}

// Register mounts all routes on the router.
func (s *Server) Register(r chirouter.Router) {
	r.Post("/api/search", s.handleSearch)
	r.Get("/api/search/stream", s.handleSearchStream)
	r.Get("/api/search/{search_id}", s.handleGetSearch)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

// SearchRequest is the POST /api/search body. A known city name may stand
// in for explicit coordinates.
type SearchRequest struct {
	Query    string          `json:"query"`
	Location domain.Location `json:"location"`
	City     string          `json:"city,omitempty"`
}

// resolveLocation fills Location from the city preset when coordinates were
// not supplied. Unknown cities are an input error.
func (req *SearchRequest) resolveLocation() error {
	if req.City == "" || req.Location != (domain.Location{}) {
		return nil
	}
	c, ok := geo.CityBounds(strings.ToLower(strings.TrimSpace(req.City)))
	if !ok {
		return errors.New("unknown city: " + req.City)
	}
	req.Location = c.Center
	return nil
}

// SearchResponse is the API shape of a finished search.
type SearchResponse struct {
	SearchID        string                       `json:"search_id"`
	Query           string                       `json:"query"`
	Location        domain.Location              `json:"location"`
	StoresFound     int                          `json:"stores_found"`
	ProductsFound   int                          `json:"products_found"`
	Stores          []domain.Store               `json:"stores"`
	Results         []domain.MatchedListing      `json:"results"`
	Analysis        *domain.RecommendationBundle `json:"analysis,omitempty"`
	Errors          []string                     `json:"errors,omitempty"`
	Cached          bool                         `json:"cached"`
	ExecutionTimeMS map[string]int64             `json:"execution_time_ms"`
	Timestamp       time.Time                    `json:"timestamp"`
}

func toSearchResponse(state *domain.PipelineState, cached bool) SearchResponse {
	return SearchResponse{
		SearchID:        state.SearchID,
		Query:           state.Query,
		Location:        state.Location,
		StoresFound:     len(state.Stores),
		ProductsFound:   len(state.Listings),
		Stores:          state.Stores,
		Results:         state.Matches,
		Analysis:        state.Analysis,
		Errors:          state.Errors,
		Cached:          cached,
		ExecutionTimeMS: state.ExecutionTimeMS,
		Timestamp:       time.Now().UTC(),
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}
	if err := req.resolveLocation(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	state, err := s.pipeline.Run(r.Context(), req.Query, req.Location)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSearchResponse(state, false))
}

// handleSearchStream runs a search and streams one NDJSON event per stage,
// followed by a complete event carrying the full result.
func (s *Server) handleSearchStream(w http.ResponseWriter, r *http.Request) {
	req, err := streamRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "streaming unsupported")
		return
	}

	// Events are written as they happen; headers must go out before the
	// first stage finishes.
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")

	started := false
	enc := json.NewEncoder(w)
	emit := func(e pipeline.Event) {
		if e.Status == pipeline.StatusComplete {
			// the stream's own complete event below carries the full result
			return
		}
		started = true
		_ = enc.Encode(e)
		flusher.Flush()
	}

	state, err := s.pipeline.Stream(r.Context(), req.Query, req.Location, emit)
	if err != nil {
		if started {
			_ = enc.Encode(pipeline.Event{Status: pipeline.StatusError, Data: map[string]any{"message": safeMessage(err)}})
			flusher.Flush()
			return
		}
		s.handleDomainError(w, err)
		return
	}

	_ = enc.Encode(pipeline.Event{
		SearchID: state.SearchID,
		Status:   pipeline.StatusComplete,
		Data:     map[string]any{"result": toSearchResponse(state, false)},
	})
	flusher.Flush()
}

func streamRequest(r *http.Request) (SearchRequest, error) {
	q := r.URL.Query()
	var req SearchRequest
	req.Query = q.Get("query")
	if req.Query == "" {
		return req, errors.New("query parameter is required")
	}

	if req.City = q.Get("city"); req.City != "" {
		return req, req.resolveLocation()
	}

	if err := parseCoord(q.Get("lat"), &req.Location.Lat); err != nil {
		return req, errors.New("lat parameter is required and must be a number")
	}
	if err := parseCoord(q.Get("lng"), &req.Location.Lng); err != nil {
		return req, errors.New("lng parameter is required and must be a number")
	}
	return req, nil
}

func parseCoord(raw string, out *float64) error {
	if raw == "" {
		return errors.New("missing")
	}
	return json.Unmarshal([]byte(raw), out)
}

func (s *Server) handleGetSearch(w http.ResponseWriter, r *http.Request) {
	searchID := chirouter.URLParam(r, "search_id")

	state, err := s.pipeline.Cached(r.Context(), searchID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSearchResponse(state, true))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var errorStatus = []struct {
	sentinel error
	status   int
	code     string
}{
	{domain.ErrInvalidQuery, http.StatusBadRequest, "invalid_query"},
	{domain.ErrLocationOutOfBounds, http.StatusBadRequest, "location_out_of_bounds"},
	{domain.ErrSearchNotFound, http.StatusNotFound, "search_not_found"},
	{domain.ErrProvider, http.StatusBadGateway, "provider_error"},
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, m := range errorStatus {
		if errors.Is(err, m.sentinel) {
			s.logger.Warn("request failed", zap.Error(err))
			writeError(w, m.status, m.code, m.sentinel.Error())
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}

// safeMessage returns a sentinel error message for the client without
// exposing internals.
func safeMessage(err error) string {
	for _, m := range errorStatus {
		if errors.Is(err, m.sentinel) {
			return m.sentinel.Error()
		}
	}
	return "internal error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
