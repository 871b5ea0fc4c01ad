package geo

import (
	"math"
	"testing"

	"github.com/kailas-cloud/dealscout/internal/domain"
)

func TestDistance_SamePointIsZero(t *testing.T) {
	points := []domain.Location{
		{Lat: 0, Lng: 0},
		{Lat: 33.8886, Lng: 35.4955},
		{Lat: -45.5, Lng: 170.2},
	}
	for _, p := range points {
		if d := Distance(p, p); d != 0 {
			t.Errorf("Distance(%v, %v) = %v, want 0", p, p, d)
		}
	}
}

func TestDistance_Symmetric(t *testing.T) {
	a := domain.Location{Lat: 33.8886, Lng: 35.4955}
	b := domain.Location{Lat: 34.4325, Lng: 35.8455}
	if Distance(a, b) != Distance(b, a) {
		t.Errorf("Distance not symmetric: d(a,b)=%v d(b,a)=%v", Distance(a, b), Distance(b, a))
	}
}

func TestDistance_KnownCities(t *testing.T) {
	// Beirut to Tripoli is roughly 68.5 km great-circle.
	beirut := domain.Location{Lat: 33.8886, Lng: 35.4955}
	tripoli := domain.Location{Lat: 34.4325, Lng: 35.8455}

	d := Distance(beirut, tripoli)
	if math.Abs(d-68.5) > 3 {
		t.Errorf("Distance(beirut, tripoli) = %v, want ~68.5 ± 3", d)
	}
}

func TestBounds_Contains(t *testing.T) {
	tests := []struct {
		name string
		loc  domain.Location
		want bool
	}{
		{"beirut", domain.Location{Lat: 33.8886, Lng: 35.4955}, true},
		{"edge min", domain.Location{Lat: 33.0, Lng: 35.1}, true},
		{"edge max", domain.Location{Lat: 34.7, Lng: 36.6}, true},
		{"new york", domain.Location{Lat: 40.7128, Lng: -74.0060}, false},
		{"just north", domain.Location{Lat: 34.71, Lng: 35.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LebanonBounds.Contains(tt.loc); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.loc, got, tt.want)
			}
		})
	}
}

func TestWithinRadius(t *testing.T) {
	center := domain.Location{Lat: 33.8886, Lng: 35.4955}
	near := domain.Location{Lat: 33.8950, Lng: 35.5000}
	far := domain.Location{Lat: 34.4325, Lng: 35.8455}

	if !WithinRadius(near, center, 10) {
		t.Error("near point should be within 10km")
	}
	if WithinRadius(far, center, 10) {
		t.Error("tripoli should not be within 10km of beirut")
	}
}

func TestSortByDistance(t *testing.T) {
	stores := []domain.Store{
		{ID: "c", DistanceKm: 5.2},
		{ID: "a", DistanceKm: 0.4},
		{ID: "b", DistanceKm: 2.1},
	}
	SortByDistance(stores)

	want := []string{"a", "b", "c"}
	for i, id := range want {
		if stores[i].ID != id {
			t.Errorf("stores[%d].ID = %s, want %s", i, stores[i].ID, id)
		}
	}
}

func TestCityBounds(t *testing.T) {
	c, ok := CityBounds("beirut")
	if !ok {
		t.Fatal("beirut preset missing")
	}
	if c.RadiusKm != 15 {
		t.Errorf("beirut radius = %v, want 15", c.RadiusKm)
	}
	if _, ok := CityBounds("paris"); ok {
		t.Error("unknown city should not resolve")
	}
}
