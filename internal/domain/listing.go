package domain

// Currency codes accepted in listings.
const (
	CurrencyUSD = "USD"
	CurrencyLBP = "LBP"
)

// RawListing is a single product offering scraped from one store.
// A listing is only constructed with a non-empty title and a positive price;
// the harvester drops everything else at parse time.
type RawListing struct {
	ID           string            `json:"product_id"`
	StoreID      string            `json:"store_id"`
	Title        string            `json:"title"`
	Price        float64           `json:"price"`
	Currency     string            `json:"currency"`
	Rating       float64           `json:"rating,omitempty"`
	ReviewsCount int               `json:"reviews_count,omitempty"`
	Availability string            `json:"availability"`
	URL          string            `json:"url"`
	ImageURL     string            `json:"image_url,omitempty"`
	Specs        map[string]string `json:"specs,omitempty"`
	Description  string            `json:"description,omitempty"`
}

// Valid reports whether the listing satisfies the acceptance rules.
func (l RawListing) Valid() bool {
	return l.Title != "" && l.Price > 0
}

// MatchedListing is a RawListing annotated with its semantic similarity to
// the query and the owning store's name and distance. One per retained
// candidate, ordered by descending similarity.
type MatchedListing struct {
	RawListing
	SimilarityScore float64 `json:"similarity_score"`
	StoreName       string  `json:"store_name"`
	DistanceKm      float64 `json:"distance_km"`
}
