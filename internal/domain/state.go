package domain

// Stage names in fixed execution order. They key the per-stage timing map
// and label streaming progress events.
const (
	StageStructureQuery  = "structure_query"
	StageDiscoverStores  = "discover_stores"
	StageHarvestListings = "harvest_listings"
	StageMatchSemantic   = "match_semantic"
	StageRecommend       = "recommend"
)

// Stages lists the pipeline stages in execution order.
var Stages = []string{
	StageStructureQuery,
	StageDiscoverStores,
	StageHarvestListings,
	StageMatchSemantic,
	StageRecommend,
}

// PipelineState is the single accumulating record passed through all five
// stages of one search. Fields are populated monotonically in stage order;
// no stage shrinks an upstream collection. The state is owned exclusively by
// the orchestrator of one search and never shared across concurrent searches.
type PipelineState struct {
	SearchID string   `json:"search_id"`
	Query    string   `json:"query"`
	Location Location `json:"location"`

	Structured *StructuredQuery      `json:"parsed_query,omitempty"`
	Stores     []Store               `json:"stores"`
	Listings   []RawListing          `json:"raw_products"`
	Matches    []MatchedListing      `json:"matched_products"`
	Analysis   *RecommendationBundle `json:"analysis,omitempty"`

	Errors          []string         `json:"errors"`
	ExecutionTimeMS map[string]int64 `json:"execution_time_ms"`
}

// NewPipelineState creates the initial state for one search.
func NewPipelineState(searchID, query string, loc Location) *PipelineState {
	return &PipelineState{
		SearchID:        searchID,
		Query:           query,
		Location:        loc,
		Stores:          []Store{},
		Listings:        []RawListing{},
		Matches:         []MatchedListing{},
		Errors:          []string{},
		ExecutionTimeMS: make(map[string]int64),
	}
}

// AddError appends a human-readable error to the shared log.
func (s *PipelineState) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

// RecordTiming stores the elapsed wall-clock milliseconds for a stage.
func (s *PipelineState) RecordTiming(stage string, ms int64) {
	s.ExecutionTimeMS[stage] = ms
}
