package domain

import "sort"

// RecommendationCategory is the fixed vocabulary of recommendation tags.
type RecommendationCategory string

const (
	CategoryBestValue   RecommendationCategory = "best_value"
	CategoryBestRating  RecommendationCategory = "best_rating"
	CategoryClosest     RecommendationCategory = "closest"
	CategoryBestOverall RecommendationCategory = "best_overall"
)

// Valid reports whether the category belongs to the fixed vocabulary.
func (c RecommendationCategory) Valid() bool {
	switch c {
	case CategoryBestValue, CategoryBestRating, CategoryClosest, CategoryBestOverall:
		return true
	}
	return false
}

// Recommendation is one ranked pick from the analysis stage.
type Recommendation struct {
	Rank      int                    `json:"rank"`
	ProductID string                 `json:"product_id"`
	Category  RecommendationCategory `json:"category"`
	Pros      []string               `json:"pros"`
	Cons      []string               `json:"cons"`
	Reasoning string                 `json:"reasoning,omitempty"`
}

// BestValue names the single best-value listing with the model's reasoning.
type BestValue struct {
	ProductID string `json:"product_id"`
	Reasoning string `json:"reasoning"`
}

// PriceSummary aggregates the price distribution of the analyzed candidates.
type PriceSummary struct {
	MinPrice     float64 `json:"min_price"`
	MaxPrice     float64 `json:"max_price"`
	AveragePrice float64 `json:"average_price"`
	MedianPrice  float64 `json:"median_price"`
	Currency     string  `json:"currency"`
}

// RecommendationBundle is the structured output of the analysis stage.
type RecommendationBundle struct {
	BestValue          *BestValue       `json:"best_value,omitempty"`
	TopRecommendations []Recommendation `json:"top_3_recommendations"`
	PriceSummary       *PriceSummary    `json:"price_analysis,omitempty"`
	Summary            string           `json:"summary,omitempty"`
}

// SummarizePrices computes a PriceSummary over the given listings.
// Returns nil for an empty input.
func SummarizePrices(listings []MatchedListing) *PriceSummary {
	if len(listings) == 0 {
		return nil
	}

	prices := make([]float64, 0, len(listings))
	currency := listings[0].Currency
	var sum float64
	for _, l := range listings {
		prices = append(prices, l.Price)
		sum += l.Price
	}
	sort.Float64s(prices)

	median := prices[len(prices)/2]
	if len(prices)%2 == 0 {
		median = (prices[len(prices)/2-1] + prices[len(prices)/2]) / 2
	}

	return &PriceSummary{
		MinPrice:     prices[0],
		MaxPrice:     prices[len(prices)-1],
		AveragePrice: sum / float64(len(prices)),
		MedianPrice:  median,
		Currency:     currency,
	}
}
