package queryparse

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/dealscout/internal/domain"
)

func TestParse_FullQuery(t *testing.T) {
	q, err := Parse("adidas samba man 42 black")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if q.Brand != "Adidas" {
		t.Errorf("Brand = %q, want Adidas", q.Brand)
	}
	if q.Model != "Samba" {
		t.Errorf("Model = %q, want Samba", q.Model)
	}
	if q.Gender != "men" {
		t.Errorf("Gender = %q, want men", q.Gender)
	}
	if q.Size != "42" {
		t.Errorf("Size = %q, want 42", q.Size)
	}
	if q.Color != "black" {
		t.Errorf("Color = %q, want black", q.Color)
	}
	if q.OriginalQuery != "adidas samba man 42 black" {
		t.Errorf("OriginalQuery = %q", q.OriginalQuery)
	}
}

func TestParse_EmptyInput(t *testing.T) {
	q, err := Parse("")
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("err = %v, want ErrInvalidQuery", err)
	}
	if !q.IsEmpty() {
		t.Errorf("empty input should extract nothing, got %+v", q)
	}
	if q.OriginalQuery != "" {
		t.Errorf("OriginalQuery = %q, want empty", q.OriginalQuery)
	}
}

func TestParse_NeverPanics(t *testing.T) {
	inputs := []string{
		"   ",
		"!!!???",
		"42",
		"size size size",
		"women's running shoes nike air zoom pegasus size 8.5 pink",
		"ŁØ†??? unicode junk ™",
	}
	for _, in := range inputs {
		if _, err := Parse(in); err != nil && !errors.Is(err, domain.ErrInvalidQuery) {
			t.Errorf("Parse(%q) returned unexpected error: %v", in, err)
		}
	}
}

func TestParse_BrandCaseInsensitive(t *testing.T) {
	for _, in := range []string{"NIKE air max", "Nike air max", "  nike air max  "} {
		q, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		if q.Brand != "Nike" {
			t.Errorf("Parse(%q).Brand = %q, want Nike", in, q.Brand)
		}
	}
}

func TestParse_WomenBeforeMen(t *testing.T) {
	q, err := Parse("nike shoes for women")
	if err != nil {
		t.Fatal(err)
	}
	if q.Gender != "women" {
		t.Errorf("Gender = %q, want women (men substring must not win)", q.Gender)
	}
}

func TestParse_CategoryDetection(t *testing.T) {
	tests := []struct{ in, want string }{
		{"adidas sneakers", "shoes"},
		{"winter jacket", "clothing"},
		{"samsung phone", "electronics"},
		{"leather belt", "accessories"},
		{"adidas samba", ""},
	}
	for _, tt := range tests {
		q, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.in, err)
		}
		if q.Category != tt.want {
			t.Errorf("Parse(%q).Category = %q, want %q", tt.in, q.Category, tt.want)
		}
	}
}

func TestParse_ShoeSizeDecimal(t *testing.T) {
	q, err := Parse("nike sneaker 10.5")
	if err != nil {
		t.Fatal(err)
	}
	if q.Category != "shoes" {
		t.Fatalf("Category = %q, want shoes", q.Category)
	}
	if q.Size != "10.5" {
		t.Errorf("Size = %q, want 10.5", q.Size)
	}
}

func TestSearchTerms(t *testing.T) {
	q := domain.StructuredQuery{
		Brand: "Adidas", Model: "Samba", Gender: "men",
		Color: "black", Size: "42",
		OriginalQuery: "adidas samba man 42 black",
	}
	got := q.SearchTerms()
	want := "Adidas Samba men black 42"
	if got != want {
		t.Errorf("SearchTerms() = %q, want %q", got, want)
	}
}

func TestSearchTerms_FallbackToOriginal(t *testing.T) {
	q := domain.StructuredQuery{OriginalQuery: "something obscure"}
	if got := q.SearchTerms(); got != "something obscure" {
		t.Errorf("SearchTerms() = %q, want original text", got)
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  Adidas   SAMBA  "); got != "adidas samba" {
		t.Errorf("Normalize = %q", got)
	}
}

func TestCategorySearchKeyword(t *testing.T) {
	tests := []struct{ in, want string }{
		{"shoes", "shoe"},
		{"clothing", "clothing"},
		{"electronics", "electronics"},
		{"accessories", "accessories"},
		{"general", "store retail"},
		{"", "store retail"},
	}
	for _, tt := range tests {
		if got := CategorySearchKeyword(tt.in); got != tt.want {
			t.Errorf("CategorySearchKeyword(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
