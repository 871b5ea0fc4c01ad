package scrape

import (
	"crypto/sha1" //nolint:gosec // stable listing id, not a security boundary
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/kailas-cloud/dealscout/internal/domain"
)

// cardSelectors are tried in order until one matches; retail sites differ but
// most expose one of these shapes.
var cardSelectors = []string{
	`[data-testid="product-card"]`,
	`[data-test="product-card"]`,
	`li.product-grid__card`,
	`div.product-card`,
	`article.product`,
	`div.s-result-item[data-asin]`,
	`li[class*="product"]`,
	`div[class*="product-tile"]`,
}

var titleSelectors = []string{
	`[data-testid="product-card-title"]`,
	`.product-card__title`,
	`.product-title`,
	`h2 a span`,
	`h3`,
	`h2`,
	`a[title]`,
}

var priceSelectors = []string{
	`[data-testid="product-price"]`,
	`.product-price`,
	`.price`,
	`span.a-price .a-offscreen`,
	`[class*="price"]`,
}

// maxCardsPerPage caps extraction so a pathological page cannot flood a search.
const maxCardsPerPage = 60

// ExtractListings pulls product cards out of a parsed page. baseURL resolves
// relative links; storeID stamps ownership on every listing.
func ExtractListings(doc *goquery.Document, storeID, pageURL string) []domain.RawListing {
	base, _ := url.Parse(pageURL)

	var cards *goquery.Selection
	for _, sel := range cardSelectors {
		if s := doc.Find(sel); s.Length() > 0 {
			cards = s
			break
		}
	}
	if cards == nil {
		return nil
	}

	seen := make(map[string]bool)
	var listings []domain.RawListing

	cards.EachWithBreak(func(_ int, card *goquery.Selection) bool {
		l := extractCard(card, storeID, base)
		if !l.Valid() || seen[l.URL] {
			return true
		}
		seen[l.URL] = true
		listings = append(listings, l)
		return len(listings) < maxCardsPerPage
	})

	return listings
}

func extractCard(card *goquery.Selection, storeID string, base *url.URL) domain.RawListing {
	title := firstText(card, titleSelectors)
	if title == "" {
		if t, ok := card.Find("a[title]").Attr("title"); ok {
			title = strings.TrimSpace(t)
		}
	}

	price, currency := ParsePrice(firstText(card, priceSelectors))
	if currency == "" {
		currency = domain.CurrencyUSD
	}

	link := resolveHref(card, base)

	imageURL := ""
	if src, ok := card.Find("img").First().Attr("src"); ok {
		imageURL = resolveURL(base, src)
	}

	availability := "in_stock"
	cardText := strings.ToLower(card.Text())
	if strings.Contains(cardText, "out of stock") || strings.Contains(cardText, "sold out") {
		availability = "out_of_stock"
	}

	return domain.RawListing{
		ID:           listingID(link),
		StoreID:      storeID,
		Title:        title,
		Price:        price,
		Currency:     currency,
		Availability: availability,
		URL:          link,
		ImageURL:     imageURL,
	}
}

func firstText(s *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(s.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func resolveHref(card *goquery.Selection, base *url.URL) string {
	href, ok := card.Find("a[href]").First().Attr("href")
	if !ok {
		if h, selfOK := card.Attr("href"); selfOK {
			href = h
		}
	}
	return resolveURL(base, href)
}

func resolveURL(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		parsed = base.ResolveReference(parsed)
	}
	return parsed.String()
}

// listingID is stable across runs for the same product URL so cached and
// freshly scraped listings line up.
func listingID(link string) string {
	if link == "" {
		return uuid.NewString()
	}
	sum := sha1.Sum([]byte(link)) //nolint:gosec
	return hex.EncodeToString(sum[:6])
}
