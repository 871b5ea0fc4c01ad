package scrape

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kailas-cloud/dealscout/internal/domain"
)

var priceRe = regexp.MustCompile(`(\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{1,2})?|\d+)`)

// ParsePrice extracts an amount and currency from scraped price text such as
// "$129.99", "USD 95", "1,250,000 LBP" or "ل.ل 85000".
// Returns 0 and an empty currency when nothing numeric is present.
func ParsePrice(text string) (float64, string) {
	if text == "" {
		return 0, ""
	}

	currency := detectCurrency(text)

	m := priceRe.FindString(text)
	if m == "" {
		return 0, currency
	}

	amount, ok := normalizeAmount(m)
	if !ok {
		return 0, currency
	}
	return amount, currency
}

func detectCurrency(text string) string {
	upper := strings.ToUpper(text)
	switch {
	case strings.Contains(text, "$") || strings.Contains(upper, "USD"):
		return domain.CurrencyUSD
	case strings.Contains(upper, "LBP") || strings.Contains(text, "ل.ل"):
		return domain.CurrencyLBP
	default:
		return ""
	}
}

// normalizeAmount handles both "1,299.50" and "1.299,50" digit grouping.
func normalizeAmount(s string) (float64, bool) {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastDot > lastComma {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastComma >= 0:
		// a trailing 2-digit group after a comma is decimals, anything else is grouping
		if len(s)-lastComma-1 == 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
