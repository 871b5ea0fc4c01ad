// Package queryparse turns free-text product queries into structured
// components. Parsing is deterministic and makes no external calls.
package queryparse

import (
	"regexp"
	"strings"

	"github.com/kailas-cloud/dealscout/internal/domain"
)

// brands maps lowercase dictionary keys to display names. First match wins.
var brands = []struct{ key, name string }{
	{"adidas", "Adidas"},
	{"nike", "Nike"},
	{"puma", "Puma"},
	{"reebok", "Reebok"},
	{"samsung", "Samsung"},
	{"apple", "Apple"},
	{"lg", "LG"},
	{"sony", "Sony"},
}

// categoryKeywords maps a category to the product words that signal it.
var categoryKeywords = map[string][]string{
	"shoes":       {"shoe", "sneaker", "boot", "sandal", "loafer"},
	"clothing":    {"shirt", "pants", "dress", "jacket", "sweater", "coat"},
	"electronics": {"phone", "laptop", "tablet", "camera", "headphone"},
	"accessories": {"watch", "belt", "hat", "scarf", "bag", "glasses"},
}

// placesKeywords names the kind of store to look for per category. It is a
// separate vocabulary from categoryKeywords: "phone" finds phones in a
// query, "electronics" finds electronics stores on a map.
var placesKeywords = map[string]string{
	"shoes":       "shoe",
	"clothing":    "clothing",
	"electronics": "electronics",
	"accessories": "accessories",
}

// genderKeywords is ordered: "women" must be checked before "men" so that
// the "men" substring inside "women" cannot produce a false positive.
var genderKeywords = []struct {
	gender   string
	keywords []string
}{
	{"women", []string{"women", "woman", "female", "girl"}},
	{"men", []string{"men", "man", "male", "boy"}},
	{"unisex", []string{"unisex", "all", "any"}},
}

var colors = []string{
	"black", "white", "red", "blue", "green", "yellow",
	"orange", "purple", "pink", "brown", "gray", "grey",
}

var (
	shoeSizeRe    = regexp.MustCompile(`\b(\d{1,2}(?:\.\d)?)\b`)
	clothSizeRe   = regexp.MustCompile(`\b(XS|S|M|L|XL|XXL|XXXL)\b`)
	genericSizeRe = regexp.MustCompile(`(?:size\s+)?(\d{1,2}(?:\.\d)?)`)
)

// Parse extracts structured components from a free-text query.
// Empty input returns domain.ErrInvalidQuery together with a zero query;
// callers treat that as "no structured query", not as a fatal condition.
func Parse(text string) (domain.StructuredQuery, error) {
	if strings.TrimSpace(text) == "" {
		return domain.StructuredQuery{OriginalQuery: text}, domain.ErrInvalidQuery
	}

	lower := strings.ToLower(strings.TrimSpace(text))
	tokens := strings.Fields(lower)

	q := domain.StructuredQuery{
		Brand:         extractBrand(lower),
		Category:      extractCategory(lower),
		Gender:        extractGender(lower),
		Color:         extractColor(lower),
		OriginalQuery: text,
	}
	q.Size = extractSize(lower, q.Category)
	q.Model = extractModel(tokens, q)

	return q, nil
}

// Normalize collapses whitespace and lowercases the query.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// FallbackCategory returns the detected category or "general".
func FallbackCategory(text string) string {
	if c := extractCategory(strings.ToLower(text)); c != "" {
		return c
	}
	return "general"
}

// CategorySearchKeyword returns the places-search keyword for a category,
// or a generic retail term for categories without a preset.
func CategorySearchKeyword(category string) string {
	if kw, ok := placesKeywords[category]; ok {
		return kw
	}
	return "store retail"
}

func extractBrand(lower string) string {
	for _, b := range brands {
		if strings.Contains(lower, b.key) {
			return b.name
		}
	}
	return ""
}

func extractCategory(lower string) string {
	for _, cat := range []string{"shoes", "clothing", "electronics", "accessories"} {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(lower, kw) {
				return cat
			}
		}
	}
	return ""
}

func extractGender(lower string) string {
	for _, g := range genderKeywords {
		for _, kw := range g.keywords {
			if strings.Contains(lower, kw) {
				return g.gender
			}
		}
	}
	return ""
}

func extractColor(lower string) string {
	for _, c := range colors {
		if strings.Contains(lower, c) {
			return c
		}
	}
	return ""
}

func extractSize(lower, category string) string {
	switch category {
	case "shoes":
		if m := shoeSizeRe.FindStringSubmatch(lower); m != nil {
			return m[1]
		}
	case "clothing":
		if m := clothSizeRe.FindStringSubmatch(strings.ToUpper(lower)); m != nil {
			return m[1]
		}
	}
	if m := genericSizeRe.FindStringSubmatch(lower); m != nil {
		return m[1]
	}
	return ""
}

// extractModel joins the leftover alphabetic tokens: everything that is not
// the brand, a gender or color keyword, or the literal "size" marker.
func extractModel(tokens []string, q domain.StructuredQuery) string {
	var parts []string
	brandKey := strings.ToLower(q.Brand)

	for _, tok := range tokens {
		if !isAlpha(tok) || tok == "size" || tok == brandKey {
			continue
		}
		if isGenderKeyword(tok) || isColorKeyword(tok) {
			continue
		}
		parts = append(parts, titleCase(tok))
	}
	return strings.Join(parts, " ")
}

func isGenderKeyword(tok string) bool {
	for _, g := range genderKeywords {
		for _, kw := range g.keywords {
			if tok == kw {
				return true
			}
		}
	}
	return false
}

func isColorKeyword(tok string) bool {
	for _, c := range colors {
		if tok == c {
			return true
		}
	}
	return false
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
