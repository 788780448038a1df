package memory

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/aerolens/air-quality-api/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aqi_cache_hits_total",
		Help: "Number of cache lookups answered from memory",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aqi_cache_misses_total",
		Help: "Number of cache lookups that found no fresh entry",
	})
	cacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aqi_cache_entries",
		Help: "Number of entries currently stored, stale ones included",
	})
)

type entry struct {
	payload  json.RawMessage
	storedAt time.Time
}

// Cache implements ports.ResponseCache with a mutex-guarded map. Entries
// expire lazily: a lookup past the TTL reads as absent, and the stale entry
// stays in place until a later Set overwrites it.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	stats   ports.StatsRecorder
}

// NewCache creates an empty cache whose entries stay fresh for ttl.
func NewCache(ttl time.Duration, stats ports.StatsRecorder) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		stats:   stats,
	}
}

// Get implements ResponseCache.Get. Every call records a hit or a miss; that
// side effect is part of the contract.
func (c *Cache) Get(key string) (json.RawMessage, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Since(e.storedAt) >= c.ttl {
		if c.stats != nil {
			c.stats.RecordMiss()
		}
		cacheMisses.Inc()
		return nil, false
	}

	if c.stats != nil {
		c.stats.RecordHit()
	}
	cacheHits.Inc()
	return e.payload, true
}

// Set implements ResponseCache.Set.
func (c *Cache) Set(key string, payload json.RawMessage) {
	c.mu.Lock()
	c.entries[key] = entry{payload: payload, storedAt: time.Now()}
	cacheEntries.Set(float64(len(c.entries)))
	c.mu.Unlock()
}

// Size implements ResponseCache.Size.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ ports.ResponseCache = (*Cache)(nil)
