package chi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dealscout/internal/domain"
	healthuc "github.com/kailas-cloud/dealscout/internal/usecase/health"
	"github.com/kailas-cloud/dealscout/internal/usecase/pipeline"
)

type mockPipeline struct {
	state   *domain.PipelineState
	err     error
	events  []pipeline.Event
	lastLoc domain.Location
}

func (m *mockPipeline) Run(_ context.Context, _ string, loc domain.Location) (*domain.PipelineState, error) {
	m.lastLoc = loc
	return m.state, m.err
}

func (m *mockPipeline) Stream(_ context.Context, _ string, _ domain.Location, emit func(pipeline.Event)) (*domain.PipelineState, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, e := range m.events {
		emit(e)
	}
	return m.state, nil
}

func (m *mockPipeline) Cached(_ context.Context, searchID string) (*domain.PipelineState, error) {
	if m.state != nil && m.state.SearchID == searchID {
		return m.state, nil
	}
	return nil, domain.ErrSearchNotFound
}

type okPinger struct{}

func (okPinger) Ping(_ context.Context) error { return nil }

type badPinger struct{}

func (badPinger) Ping(_ context.Context) error { return errors.New("down") }

func testState() *domain.PipelineState {
	state := domain.NewPipelineState("sid-1", "adidas samba", domain.Location{Lat: 33.89, Lng: 35.50})
	state.Stores = []domain.Store{{ID: "s1", Name: "Sports Corner"}}
	state.Listings = []domain.RawListing{{ID: "p1", StoreID: "s1", Title: "Samba OG", Price: 99.99}}
	state.Matches = []domain.MatchedListing{{
		RawListing: state.Listings[0], SimilarityScore: 0.9, StoreName: "Sports Corner",
	}}
	state.Analysis = &domain.RecommendationBundle{Summary: "buy it"}
	state.RecordTiming(domain.StageStructureQuery, 3)
	return state
}

func newTestRouter(p Pipeline, db healthuc.Pinger) http.Handler {
	r := chirouter.NewRouter()
	NewServer(p, healthuc.New(db), zap.NewNop()).Register(r)
	return r
}

func TestHandleSearch(t *testing.T) {
	router := newTestRouter(&mockPipeline{state: testState()}, okPinger{})

	body := `{"query":"adidas samba","location":{"lat":33.89,"lng":35.50}}`
	req := httptest.NewRequest("POST", "/api/search", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp SearchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.SearchID != "sid-1" || resp.StoresFound != 1 || resp.ProductsFound != 1 {
		t.Errorf("response = %+v", resp)
	}
	if resp.Cached {
		t.Error("fresh search must not be marked cached")
	}
	if resp.Analysis == nil || resp.Analysis.Summary != "buy it" {
		t.Errorf("analysis = %+v", resp.Analysis)
	}
	if _, ok := resp.ExecutionTimeMS[domain.StageStructureQuery]; !ok {
		t.Error("timings missing")
	}
}

func TestHandleSearch_CityPreset(t *testing.T) {
	p := &mockPipeline{state: testState()}
	router := newTestRouter(p, okPinger{})

	body := `{"query":"adidas samba","city":"Beirut"}`
	req := httptest.NewRequest("POST", "/api/search", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if p.lastLoc.Lat != 33.8886 || p.lastLoc.Lng != 35.4955 {
		t.Errorf("location = %+v, want beirut preset", p.lastLoc)
	}
}

func TestHandleSearch_UnknownCity(t *testing.T) {
	router := newTestRouter(&mockPipeline{state: testState()}, okPinger{})

	req := httptest.NewRequest("POST", "/api/search",
		strings.NewReader(`{"query":"x","city":"paris"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestHandleSearch_BadBody(t *testing.T) {
	router := newTestRouter(&mockPipeline{state: testState()}, okPinger{})

	req := httptest.NewRequest("POST", "/api/search", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestHandleSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid query", domain.ErrInvalidQuery, http.StatusBadRequest, "invalid_query"},
		{"out of bounds", domain.ErrLocationOutOfBounds, http.StatusBadRequest, "location_out_of_bounds"},
		{"provider down", domain.ErrProvider, http.StatusBadGateway, "provider_error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockPipeline{err: tt.err}, okPinger{})

			req := httptest.NewRequest("POST", "/api/search",
				strings.NewReader(`{"query":"x","location":{"lat":33.89,"lng":35.50}}`))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tt.status {
				t.Errorf("status = %d, want %d", rr.Code, tt.status)
			}
			var resp errorResponse
			_ = json.NewDecoder(rr.Body).Decode(&resp)
			if resp.Code != tt.code {
				t.Errorf("code = %q, want %q", resp.Code, tt.code)
			}
		})
	}
}

func TestHandleGetSearch(t *testing.T) {
	router := newTestRouter(&mockPipeline{state: testState()}, okPinger{})

	req := httptest.NewRequest("GET", "/api/search/sid-1", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp SearchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Cached {
		t.Error("replayed search must be marked cached")
	}
}

func TestHandleGetSearch_NotFound(t *testing.T) {
	router := newTestRouter(&mockPipeline{state: testState()}, okPinger{})

	req := httptest.NewRequest("GET", "/api/search/unknown", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestHandleSearchStream(t *testing.T) {
	p := &mockPipeline{
		state: testState(),
		events: []pipeline.Event{
			{SearchID: "sid-1", Status: pipeline.StatusInProgress, Node: domain.StageStructureQuery},
			{SearchID: "sid-1", Status: pipeline.StatusInProgress, Node: domain.StageDiscoverStores},
			{SearchID: "sid-1", Status: pipeline.StatusComplete, Data: map[string]any{"matches": 1}},
		},
	}
	router := newTestRouter(p, okPinger{})

	req := httptest.NewRequest("GET", "/api/search/stream?query=adidas+samba&lat=33.89&lng=35.50", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("content type = %q", ct)
	}

	var lines []pipeline.Event
	scanner := bufio.NewScanner(rr.Body)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		var e pipeline.Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("line not valid JSON: %v", err)
		}
		lines = append(lines, e)
	}

	// two stage events plus exactly one complete event; the orchestrator's
	// own counts-only complete event is replaced by one carrying the result
	if len(lines) != 3 {
		t.Fatalf("expected 3 NDJSON lines, got %d", len(lines))
	}
	for _, e := range lines[:2] {
		if e.Status != pipeline.StatusInProgress {
			t.Errorf("stage event status = %q, want %q", e.Status, pipeline.StatusInProgress)
		}
	}
	if lines[0].Node != domain.StageStructureQuery || lines[1].Node != domain.StageDiscoverStores {
		t.Errorf("stage events = %+v", lines[:2])
	}
	if lines[2].Status != pipeline.StatusComplete {
		t.Errorf("final event = %+v", lines[2])
	}
	if _, ok := lines[2].Data["result"]; !ok {
		t.Errorf("final event must carry the result, got %v", lines[2].Data)
	}
}

func TestHandleSearchStream_MissingParams(t *testing.T) {
	router := newTestRouter(&mockPipeline{state: testState()}, okPinger{})

	for _, target := range []string{
		"/api/search/stream",
		"/api/search/stream?query=x",
		"/api/search/stream?query=x&lat=33.89&lng=abc",
	} {
		req := httptest.NewRequest("GET", target, http.NoBody)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rr.Code)
		}
	}
}

func TestHandleSearchStream_InvalidInput(t *testing.T) {
	router := newTestRouter(&mockPipeline{err: domain.ErrLocationOutOfBounds}, okPinger{})

	req := httptest.NewRequest("GET", "/api/search/stream?query=x&lat=40.7&lng=-74.0", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	// nothing streamed yet, a plain error response is still possible
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	router := newTestRouter(&mockPipeline{}, okPinger{})

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d", rr.Code)
	}

	var resp struct {
		Status string                          `json:"status"`
		Checks map[string]healthuc.CheckResult `json:"checks"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != string(healthuc.Healthy) || resp.Checks["database"] != healthuc.CheckOK {
		t.Errorf("health = %+v", resp)
	}
}

func TestHandleHealth_Degraded(t *testing.T) {
	router := newTestRouter(&mockPipeline{}, badPinger{})

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}
