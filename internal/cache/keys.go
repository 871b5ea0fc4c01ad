package cache

import (
	"crypto/md5" //nolint:gosec // key fingerprint, not a security boundary
	"encoding/hex"
	"fmt"
	"strings"
)

// Key formats. Coordinates keep their full precision so nearby but distinct
// locations do not collide.
//
//	stores:{lat}:{lng}:{category}
//	products:{store_id}:{query_hash}
//	searches:{search_id}:{suffix}
func StoresKey(lat, lng float64, category string) string {
	if category == "" {
		category = "general"
	}
	return fmt.Sprintf("stores:%v:%v:%s", lat, lng, category)
}

// ProductsKey identifies cached listings for one store and one query.
func ProductsKey(storeID, query string) string {
	return fmt.Sprintf("products:%s:%s", storeID, hashQuery(query))
}

// SearchKey identifies a cached pipeline artifact for a search.
func SearchKey(searchID, suffix string) string {
	return fmt.Sprintf("searches:%s:%s", searchID, suffix)
}

// CounterKey identifies the daily search counter, date in YYYY-MM-DD.
func CounterKey(date string) string {
	return "searches:count:" + date
}

func hashQuery(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := md5.Sum([]byte(normalized)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
