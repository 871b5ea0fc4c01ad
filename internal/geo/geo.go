// Package geo provides great-circle distance math and service-area checks
// used by the store locator and the HTTP validation layer.
package geo

import (
	"math"
	"sort"

	"github.com/kailas-cloud/dealscout/internal/domain"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// Bounds is a rectangular service-area bounding box.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// LebanonBounds is the default service area.
var LebanonBounds = Bounds{MinLat: 33.0, MaxLat: 34.7, MinLng: 35.1, MaxLng: 36.6}

// Contains reports whether the location falls inside the box (inclusive).
func (b Bounds) Contains(loc domain.Location) bool {
	return loc.Lat >= b.MinLat && loc.Lat <= b.MaxLat &&
		loc.Lng >= b.MinLng && loc.Lng <= b.MaxLng
}

// Distance returns the great-circle distance between two points in
// kilometers, rounded to 2 decimals.
func Distance(a, b domain.Location) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	d := 2 * earthRadiusKm * math.Asin(math.Sqrt(h))

	return math.Round(d*100) / 100
}

// WithinRadius reports whether point lies within radiusKm of center.
func WithinRadius(point, center domain.Location, radiusKm float64) bool {
	return Distance(point, center) <= radiusKm
}

// SortByDistance orders stores ascending by their distance from center.
// The DistanceKm field must already be populated.
func SortByDistance(stores []domain.Store) {
	sort.SliceStable(stores, func(i, j int) bool {
		return stores[i].DistanceKm < stores[j].DistanceKm
	})
}

// City is a named search-area preset.
type City struct {
	Center   domain.Location
	RadiusKm float64
}

// cityPresets covers the cities the service launched with.
var cityPresets = map[string]City{
	"beirut":  {Center: domain.Location{Lat: 33.8886, Lng: 35.4955}, RadiusKm: 15},
	"tripoli": {Center: domain.Location{Lat: 34.4325, Lng: 35.8455}, RadiusKm: 10},
	"sidon":   {Center: domain.Location{Lat: 33.5597, Lng: 35.3724}, RadiusKm: 8},
	"tyre":    {Center: domain.Location{Lat: 33.2732, Lng: 35.1988}, RadiusKm: 8},
}

// CityBounds returns the preset for a known city name (case-insensitive key,
// lowercase expected). The second return is false for unknown cities.
func CityBounds(name string) (City, bool) {
	c, ok := cityPresets[name]
	return c, ok
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
