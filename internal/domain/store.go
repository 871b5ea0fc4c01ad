package domain

// Store is a nearby retailer discovered via the places provider.
// Created by the store locator and read-only downstream.
type Store struct {
	ID            string  `json:"store_id"`
	Name          string  `json:"name"`
	Address       string  `json:"address"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	DistanceKm    float64 `json:"distance_km"`
	Website       string  `json:"website,omitempty"`
	Phone         string  `json:"phone,omitempty"`
	Rating        float64 `json:"rating"`
	ReviewsCount  int     `json:"reviews_count"`
	CurrentlyOpen bool    `json:"currently_open"`
}

// Location returns the store's coordinates.
func (s Store) Location() Location {
	return Location{Lat: s.Lat, Lng: s.Lng}
}
