package airquality

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Report is one upstream AQI reading. Payload carries the feed's `data`
// document verbatim; the service never interprets its contents.
type Report struct {
	Payload   json.RawMessage
	FromCache bool
}

// CityKey builds the cache key for a city lookup. The name is used verbatim,
// so "London" and "london" are distinct entries.
func CityKey(city string) string {
	return "city:" + city
}

// CoordsKey builds the cache key for a coordinate lookup.
func CoordsKey(lat, lon float64) string {
	return "coords:" + FormatCoord(lat) + ":" + FormatCoord(lon)
}

// FormatCoord renders a coordinate the way it appears in cache keys and
// upstream geo targets: plain decimal, no exponent, no trailing zeros.
func FormatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Stats is a point-in-time snapshot of the process-wide request counters.
// Counters only ever grow; they reset when the process restarts.
type Stats struct {
	TotalRequests int64 `json:"total_requests"`
	CacheHits     int64 `json:"cache_hits"`
	CacheMisses   int64 `json:"cache_misses"`
	Errors        int64 `json:"errors"`
}

// HitRate renders the share of cache lookups answered from memory, e.g. "66.7%".
func (s Stats) HitRate() string {
	lookups := s.CacheHits + s.CacheMisses
	if lookups == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(s.CacheHits)/float64(lookups)*100)
}
