// Package match implements the semantic stage: embed harvested listings,
// index them, and rank them against the query vector.
package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/dealscout/internal/db"
	"github.com/kailas-cloud/dealscout/internal/domain"
	"github.com/kailas-cloud/dealscout/internal/logger"
)

// Hash field names for indexed listings.
const (
	fieldSearchID = "search_id"
	fieldPrice    = "price"
	fieldVector   = "vector"
	fieldPayload  = "payload"
)

// Config holds matching parameters.
type Config struct {
	IndexName     string
	KeyPrefix     string
	Dimensions    int
	TopK          int
	MinSimilarity float64
	BatchSize     int
	ListingTTL    time.Duration
}

// Service embeds and ranks listings for one search.
type Service struct {
	embedder domain.Embedder
	batch    domain.BatchEmbedder
	indexer  Indexer
	searcher Searcher
	cfg      Config
}

// New creates a Service.
func New(embedder domain.Embedder, batch domain.BatchEmbedder, indexer Indexer, searcher Searcher, cfg Config) *Service {
	if cfg.IndexName == "" {
		cfg.IndexName = "listings_idx"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "listing:"
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 1536
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 20
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.ListingTTL <= 0 {
		cfg.ListingTTL = 6 * time.Hour
	}
	return &Service{embedder: embedder, batch: batch, indexer: indexer, searcher: searcher, cfg: cfg}
}

// EnsureIndex creates the listing vector index if it does not exist yet.
// Safe to call on every startup.
func (s *Service) EnsureIndex(ctx context.Context) error {
	exists, err := s.indexer.IndexExists(ctx, s.cfg.IndexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", s.cfg.IndexName, err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     s.cfg.IndexName,
		Prefixes: []string{s.cfg.KeyPrefix},
		Fields: []db.IndexField{
			{Name: fieldSearchID, Type: db.IndexFieldTag},
			{Name: fieldPrice, Type: db.IndexFieldNumeric},
			{
				Name:           fieldVector,
				Type:           db.IndexFieldVector,
				VectorAlgo:     db.VectorFlat,
				VectorDim:      s.cfg.Dimensions,
				VectorDistance: db.DistanceCosine,
			},
		},
	}

	if err := s.indexer.CreateIndex(ctx, def); err != nil {
		// lost the race with another instance
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", s.cfg.IndexName, err)
	}
	return nil
}

// Rank embeds every listing, indexes the vectors under the search id, and
// returns the top candidates by cosine similarity to the query, annotated
// with the owning store's name and distance.
func (s *Service) Rank(ctx context.Context, searchID string, query domain.StructuredQuery, listings []domain.RawListing, stores []domain.Store) ([]domain.MatchedListing, error) {
	if len(listings) == 0 {
		return nil, nil
	}

	texts := make([]string, len(listings))
	for i, l := range listings {
		texts[i] = listingText(l)
	}

	vectors, err := s.embedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed listings: %w: %v", domain.ErrMatchFailed, err)
	}

	if err := s.index(ctx, searchID, listings, vectors); err != nil {
		return nil, fmt.Errorf("index listings: %w: %v", domain.ErrMatchFailed, err)
	}

	queryVec, err := s.embedder.Embed(ctx, query.SearchTerms())
	if err != nil {
		return nil, fmt.Errorf("embed query: %w: %v", domain.ErrMatchFailed, err)
	}

	k := s.cfg.TopK
	if len(listings) < k {
		k = len(listings)
	}

	result, err := s.searcher.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    s.cfg.IndexName,
		Vector:       queryVec,
		K:            k,
		TagFilters:   map[string]string{fieldSearchID: searchID},
		ReturnFields: []string{fieldPayload, "__vector_score"},
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w: %v", domain.ErrMatchFailed, err)
	}

	matches := s.join(ctx, result, stores)

	logger.FromContext(ctx).Info("listings matched",
		zap.String("search_id", searchID),
		zap.Int("indexed", len(listings)),
		zap.Int("matched", len(matches)))

	return matches, nil
}

// embedTexts embeds the texts in BatchSize chunks so one large harvest does
// not exceed the provider's per-request input limit.
func (s *Service) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := s.batch.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("got %d vectors for %d texts", len(batch), end-start)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// index writes one hash per listing under listing:{search_id}:{product_id}.
// Hashes carry the products TTL so abandoned searches clean themselves up.
func (s *Service) index(ctx context.Context, searchID string, listings []domain.RawListing, vectors [][]float32) error {
	if len(vectors) != len(listings) {
		return fmt.Errorf("got %d vectors for %d listings", len(vectors), len(listings))
	}

	items := make([]db.HashSetItem, 0, len(listings))
	for i, l := range listings {
		payload, err := json.Marshal(l)
		if err != nil {
			return fmt.Errorf("marshal listing %s: %w", l.ID, err)
		}
		items = append(items, db.HashSetItem{
			Key: s.cfg.KeyPrefix + searchID + ":" + l.ID,
			Fields: map[string]string{
				fieldSearchID: searchID,
				fieldPrice:    strconv.FormatFloat(l.Price, 'f', -1, 64),
				fieldVector:   db.VectorToBytes(vectors[i]),
				fieldPayload:  string(payload),
			},
			TTL: s.cfg.ListingTTL,
		})
	}

	return s.indexer.HSetMulti(ctx, items)
}

// join decodes search hits back into listings and attaches store metadata.
// Corrupt or stale entries are skipped, not fatal.
func (s *Service) join(ctx context.Context, result *db.SearchResult, stores []domain.Store) []domain.MatchedListing {
	byID := make(map[string]domain.Store, len(stores))
	for _, st := range stores {
		byID[st.ID] = st
	}

	matches := make([]domain.MatchedListing, 0, len(result.Entries))
	for _, entry := range result.Entries {
		if entry.Score < s.cfg.MinSimilarity {
			continue
		}

		var l domain.RawListing
		if err := json.Unmarshal([]byte(entry.Fields[fieldPayload]), &l); err != nil || !l.Valid() {
			logger.FromContext(ctx).Warn("skipping undecodable search hit", zap.String("key", entry.Key))
			continue
		}

		m := domain.MatchedListing{RawListing: l, SimilarityScore: entry.Score}
		if st, ok := byID[l.StoreID]; ok {
			m.StoreName = st.Name
			m.DistanceKm = st.DistanceKm
		}
		matches = append(matches, m)
	}

	if len(matches) == 0 {
		return nil
	}
	return matches
}

// listingText is the text that gets embedded for a listing. Title leads;
// specs and description add disambiguating detail when present. Spec keys
// are sorted so the same listing always embeds the same text.
func listingText(l domain.RawListing) string {
	text := l.Title
	keys := make([]string, 0, len(l.Specs))
	for k := range l.Specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		text += " " + k + " " + l.Specs[k]
	}
	if l.Description != "" {
		text += " " + l.Description
	}
	return text
}
