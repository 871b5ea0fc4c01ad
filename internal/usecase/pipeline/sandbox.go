package pipeline

import (
	"fmt"

	"github.com/kailas-cloud/dealscout/internal/domain"
	"github.com/kailas-cloud/dealscout/internal/geo"
)

// Sandbox fixtures keep the pipeline demoable without live provider keys.
// They are only reachable when the sandbox config flag is set.

func sandboxStores(loc domain.Location) []domain.Store {
	stores := []domain.Store{
		{
			ID: "sandbox-sports-corner", Name: "Sports Corner",
			Address: "Hamra Street, Beirut",
			Lat:     loc.Lat + 0.005, Lng: loc.Lng + 0.005,
			Website: "https://sports-corner.example",
			Rating:  4.4, ReviewsCount: 212, CurrentlyOpen: true,
		},
		{
			ID: "sandbox-city-mall", Name: "City Mall Outlet",
			Address: "Dora Highway, Beirut",
			Lat:     loc.Lat + 0.02, Lng: loc.Lng - 0.01,
			Website: "https://city-mall.example",
			Rating:  4.1, ReviewsCount: 540, CurrentlyOpen: true,
		},
		{
			ID: "sandbox-tech-hub", Name: "Tech Hub",
			Address: "Achrafieh, Beirut",
			Lat:     loc.Lat - 0.008, Lng: loc.Lng + 0.012,
			Website: "https://tech-hub.example",
			Rating:  4.7, ReviewsCount: 98, CurrentlyOpen: false,
		},
	}
	for i := range stores {
		stores[i].DistanceKm = geo.Distance(loc, stores[i].Location())
	}
	return stores
}

func sandboxListings(stores []domain.Store, query string) []domain.RawListing {
	prices := []float64{89.99, 109.50, 74.00}
	var listings []domain.RawListing
	for i, st := range stores {
		if i >= len(prices) {
			break
		}
		listings = append(listings, domain.RawListing{
			ID:           fmt.Sprintf("sandbox-%s-%d", st.ID, i+1),
			StoreID:      st.ID,
			Title:        fmt.Sprintf("%s (demo %d)", query, i+1),
			Price:        prices[i],
			Currency:     domain.CurrencyUSD,
			Rating:       4.0 + float64(i)*0.2,
			ReviewsCount: 20 * (i + 1),
			Availability: "in_stock",
			URL:          st.Website + "/demo/" + fmt.Sprint(i+1),
		})
	}
	return listings
}
