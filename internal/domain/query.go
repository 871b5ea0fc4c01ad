package domain

import "strings"

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Query is the immutable search input: free text plus the user's location.
type Query struct {
	Text     string   `json:"query"`
	Location Location `json:"location"`
}

// StructuredQuery holds the components extracted from free text. Absent
// components are empty strings. Derived once by the query interpreter and
// never mutated afterward.
type StructuredQuery struct {
	Brand         string `json:"brand,omitempty"`
	Model         string `json:"model,omitempty"`
	Category      string `json:"category,omitempty"`
	Size          string `json:"size,omitempty"`
	Gender        string `json:"gender,omitempty"`
	Color         string `json:"color,omitempty"`
	OriginalQuery string `json:"original_query"`
}

// IsEmpty reports whether nothing beyond the original text was extracted.
func (q StructuredQuery) IsEmpty() bool {
	return q.Brand == "" && q.Model == "" && q.Category == "" &&
		q.Size == "" && q.Gender == "" && q.Color == ""
}

// SearchTerms concatenates the extracted components in priority order
// (brand, model, category, gender, color, size), falling back to the
// original text when nothing was extracted.
func (q StructuredQuery) SearchTerms() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{q.Brand, q.Model, q.Category, q.Gender, q.Color, q.Size} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return q.OriginalQuery
	}
	return strings.Join(parts, " ")
}
