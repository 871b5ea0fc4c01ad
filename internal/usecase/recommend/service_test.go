package recommend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/dealscout/internal/domain"
)

type mockCompleter struct {
	bundle *domain.RecommendationBundle
	err    error
	calls  int
	system string
	user   string
}

func (m *mockCompleter) Complete(_ context.Context, system, user string) (*domain.RecommendationBundle, error) {
	m.calls++
	m.system = system
	m.user = user
	return m.bundle, m.err
}

func matched(id string, price float64) domain.MatchedListing {
	return domain.MatchedListing{
		RawListing:      domain.RawListing{ID: id, Title: "item " + id, Price: price, Currency: domain.CurrencyUSD},
		SimilarityScore: 0.8,
		StoreName:       "Store " + id,
		DistanceKm:      1.5,
	}
}

func TestAnalyze_NoMatchesSkipsModel(t *testing.T) {
	c := &mockCompleter{}
	svc := New(c)

	bundle, err := svc.Analyze(context.Background(), "adidas samba", nil)
	if err != nil {
		t.Fatal(err)
	}
	if bundle != nil {
		t.Errorf("expected nil bundle, got %+v", bundle)
	}
	if c.calls != 0 {
		t.Error("model must not be called without candidates")
	}
}

func TestAnalyze_PromptEnumeratesCandidates(t *testing.T) {
	c := &mockCompleter{bundle: &domain.RecommendationBundle{
		TopRecommendations: []domain.Recommendation{{Rank: 1, ProductID: "p1", Category: domain.CategoryBestValue}},
		PriceSummary:       &domain.PriceSummary{MinPrice: 1},
	}}
	svc := New(c)

	out := matched("p2", 85)
	out.Availability = "out_of_stock"
	_, err := svc.Analyze(context.Background(), "adidas samba", []domain.MatchedListing{matched("p1", 99.99), out})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(c.user, "Query: adidas samba") {
		t.Errorf("prompt missing query: %q", c.user)
	}
	if !strings.Contains(c.user, "1. product_id=p1") || !strings.Contains(c.user, "2. product_id=p2") {
		t.Errorf("candidates not enumerated in order: %q", c.user)
	}
	if !strings.Contains(c.user, "OUT OF STOCK") {
		t.Error("unavailable candidates must be flagged")
	}
	if !strings.Contains(c.system, "top_3_recommendations") {
		t.Error("system prompt must spell out the reply shape")
	}
}

func TestAnalyze_DropsUnknownProducts(t *testing.T) {
	c := &mockCompleter{bundle: &domain.RecommendationBundle{
		BestValue: &domain.BestValue{ProductID: "ghost"},
		TopRecommendations: []domain.Recommendation{
			{Rank: 1, ProductID: "p1", Category: domain.CategoryBestValue},
			{Rank: 2, ProductID: "ghost", Category: domain.CategoryClosest},
		},
	}}
	svc := New(c)

	bundle, err := svc.Analyze(context.Background(), "q", []domain.MatchedListing{matched("p1", 10)})
	if err != nil {
		t.Fatal(err)
	}

	if len(bundle.TopRecommendations) != 1 || bundle.TopRecommendations[0].ProductID != "p1" {
		t.Errorf("invented products must be dropped: %+v", bundle.TopRecommendations)
	}
	if bundle.BestValue != nil {
		t.Errorf("invented best value must be dropped: %+v", bundle.BestValue)
	}
}

func TestAnalyze_FillsPriceSummary(t *testing.T) {
	c := &mockCompleter{bundle: &domain.RecommendationBundle{
		TopRecommendations: []domain.Recommendation{{Rank: 1, ProductID: "p1", Category: domain.CategoryBestValue}},
	}}
	svc := New(c)

	bundle, err := svc.Analyze(context.Background(), "q",
		[]domain.MatchedListing{matched("p1", 10), matched("p2", 30)})
	if err != nil {
		t.Fatal(err)
	}

	if bundle.PriceSummary == nil {
		t.Fatal("missing price analysis must be computed from the candidates")
	}
	if bundle.PriceSummary.MinPrice != 10 || bundle.PriceSummary.MaxPrice != 30 || bundle.PriceSummary.AveragePrice != 20 {
		t.Errorf("price summary = %+v", bundle.PriceSummary)
	}
}

func TestAnalyze_CapsCandidates(t *testing.T) {
	c := &mockCompleter{bundle: &domain.RecommendationBundle{
		TopRecommendations: []domain.Recommendation{{Rank: 1, ProductID: "p0", Category: domain.CategoryBestValue}},
		PriceSummary:       &domain.PriceSummary{MinPrice: 1},
	}}
	svc := New(c)

	var many []domain.MatchedListing
	for i := 0; i < 35; i++ {
		many = append(many, matched("p"+string(rune('a'+i%26))+string(rune('0'+i/26)), 10))
	}
	many[0].ID = "p0"

	if _, err := svc.Analyze(context.Background(), "q", many); err != nil {
		t.Fatal(err)
	}
	if strings.Count(c.user, "product_id=") != maxCandidates {
		t.Errorf("prompt lists %d candidates, cap is %d", strings.Count(c.user, "product_id="), maxCandidates)
	}
}

func TestAnalyze_ModelFailure(t *testing.T) {
	c := &mockCompleter{err: domain.ErrAnalysisFailed}
	svc := New(c)

	_, err := svc.Analyze(context.Background(), "q", []domain.MatchedListing{matched("p1", 10)})
	if !errors.Is(err, domain.ErrAnalysisFailed) {
		t.Fatalf("expected ErrAnalysisFailed, got %v", err)
	}
}
