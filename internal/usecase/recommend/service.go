// Package recommend implements the analysis stage: ask a language model to
// pick the best deals among the matched listings.
package recommend

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/dealscout/internal/domain"
	"github.com/kailas-cloud/dealscout/internal/logger"
)

// maxCandidates caps how many listings the model sees. The matches arrive
// ordered by similarity, so the cut keeps the most relevant ones.
const maxCandidates = 20

const systemPrompt = `You are a shopping assistant helping a user in Lebanon find the best product deal nearby.
You will receive the user's query and a numbered list of product candidates with prices, stores and distances.
Reply with a single JSON object and nothing else, in exactly this shape:
{
  "best_value": {"product_id": "...", "reasoning": "..."},
  "top_3_recommendations": [
    {"rank": 1, "product_id": "...", "category": "best_value|best_rating|closest|best_overall", "pros": ["..."], "cons": ["..."], "reasoning": "..."}
  ],
  "price_analysis": {"min_price": 0, "max_price": 0, "average_price": 0, "median_price": 0, "currency": "USD"},
  "summary": "..."
}
Use only product_id values from the candidate list. Recommend at most 3 products.`

// Service produces the final recommendation bundle for a search.
type Service struct {
	completer Completer
}

// New creates a Service.
func New(completer Completer) *Service {
	return &Service{completer: completer}
}

// Analyze asks the model to rank the matched listings. With no matches the
// stage is a no-op and returns nil without touching the model. A bundle whose
// recommendations reference unknown products, or that lacks a price analysis,
// is repaired from the listings themselves.
func (s *Service) Analyze(ctx context.Context, query string, matches []domain.MatchedListing) (*domain.RecommendationBundle, error) {
	if len(matches) == 0 {
		return nil, nil
	}

	candidates := matches
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	bundle, err := s.completer.Complete(ctx, systemPrompt, userPrompt(query, candidates))
	if err != nil {
		return nil, fmt.Errorf("analyze %d candidates: %w", len(candidates), err)
	}

	repair(ctx, bundle, candidates)

	logger.FromContext(ctx).Info("recommendations ready",
		zap.Int("candidates", len(candidates)),
		zap.Int("recommended", len(bundle.TopRecommendations)))

	return bundle, nil
}

// userPrompt enumerates the candidates in match order so the model's reply
// is reproducible for the same input.
func userPrompt(query string, candidates []domain.MatchedListing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nCandidates:\n", query)
	for i, m := range candidates {
		fmt.Fprintf(&b, "%d. product_id=%s title=%q price=%.2f %s store=%q distance_km=%.1f similarity=%.2f",
			i+1, m.ID, m.Title, m.Price, m.Currency, m.StoreName, m.DistanceKm, m.SimilarityScore)
		if m.Availability == "out_of_stock" {
			b.WriteString(" OUT OF STOCK")
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// repair drops recommendations that point at products the model invented and
// fills the price analysis from the candidates when the model omitted it.
func repair(ctx context.Context, bundle *domain.RecommendationBundle, candidates []domain.MatchedListing) {
	known := make(map[string]bool, len(candidates))
	for _, m := range candidates {
		known[m.ID] = true
	}

	kept := bundle.TopRecommendations[:0]
	for _, r := range bundle.TopRecommendations {
		if !known[r.ProductID] {
			logger.FromContext(ctx).Warn("dropping recommendation for unknown product",
				zap.String("product_id", r.ProductID))
			continue
		}
		kept = append(kept, r)
	}
	bundle.TopRecommendations = kept

	if bundle.BestValue != nil && !known[bundle.BestValue.ProductID] {
		bundle.BestValue = nil
	}
	if bundle.PriceSummary == nil {
		bundle.PriceSummary = domain.SummarizePrices(candidates)
	}
}
