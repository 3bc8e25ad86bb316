// Package cachedb provides a bounded, expiring key/value cache with hit and
// miss accounting, plus a durable mirror for values that must survive a
// restart of the process.
package cachedb

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cloutcontracts/cloutnet/foundation/cachedb/mirror"
)

// Set of default values used when the configuration leaves them unset.
const (
	DefaultMaxEntries    = 1000
	DefaultTTL           = time.Hour
	DefaultSweepInterval = 5 * time.Minute
)

// EventHandler defines a function that is called when events
// occur in the processing of the cache.
type EventHandler func(v string, args ...any)

// Entry represents a single value held by the cache.
type Entry struct {
	Key       string         `json:"key"`
	Value     any            `json:"value"`
	CreatedAt time.Time      `json:"created_at"`
	TTL       time.Duration  `json:"ttl"`
	Metadata  map[string]any `json:"metadata,omitempty"`

	seq uint64
}

// expired reports whether the entry has lived past its TTL.
func (e Entry) expired(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.CreatedAt) > e.TTL
}

// Stats represents a snapshot of the cache usage.
type Stats struct {
	TotalEntries int     `json:"totalEntries"`
	MemoryUsage  int     `json:"memoryUsage"`
	HitRate      float64 `json:"hitRate"`
	MissRate     float64 `json:"missRate"`
}

// Config represents the configuration required to construct a cache.
type Config struct {
	MaxEntries    int
	DefaultTTL    time.Duration
	SweepInterval time.Duration
	Mirror        mirror.Mirror
	EvHandler     EventHandler
}

// =============================================================================

// DB manages the set of cached entries.
type DB struct {
	maxEntries int
	defaultTTL time.Duration
	mirror     mirror.Mirror
	evHandler  EventHandler

	mu      sync.Mutex
	entries map[string]Entry
	hits    int
	misses  int
	seq     uint64

	wg     sync.WaitGroup
	ticker *time.Ticker
	shut   chan struct{}
	once   sync.Once
}

// New constructs a cache and starts the goroutine that sweeps expired
// entries on the configured interval.
func New(cfg Config) *DB {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	db := DB{
		maxEntries: cfg.MaxEntries,
		defaultTTL: cfg.DefaultTTL,
		mirror:     cfg.Mirror,
		evHandler:  ev,
		entries:    make(map[string]Entry),
		ticker:     time.NewTicker(cfg.SweepInterval),
		shut:       make(chan struct{}),
	}

	db.wg.Add(1)
	go func() {
		defer db.wg.Done()
		db.sweepOperations()
	}()

	ev("cachedb: initialized: maxEntries[%d] defaultTTL[%v]", cfg.MaxEntries, cfg.DefaultTTL)

	return &db
}

// Shutdown stops the sweeper goroutine. It is safe to call more than once.
func (db *DB) Shutdown() {
	db.once.Do(func() {
		db.evHandler("cachedb: shutdown: started")
		defer db.evHandler("cachedb: shutdown: completed")

		db.ticker.Stop()
		close(db.shut)
		db.wg.Wait()
	})
}

// Set inserts or overwrites the value for the key. A ttl of zero or less
// uses the default TTL. When the cache is full and the key is new, the
// entry with the oldest creation time is evicted first.
func (db *DB) Set(key string, value any, ttl time.Duration, metadata map[string]any) {
	if ttl <= 0 {
		ttl = db.defaultTTL
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.entries[key]; !exists && len(db.entries) >= db.maxEntries {
		db.evictOldest()
	}

	db.seq++
	db.entries[key] = Entry{
		Key:       key,
		Value:     value,
		CreatedAt: time.Now(),
		TTL:       ttl,
		Metadata:  metadata,
		seq:       db.seq,
	}

	db.evHandler("cachedb: set: key[%s] ttl[%v]", key, ttl)
}

// Get returns the value for the key. Absent and expired keys count as a
// miss, and an expired entry is removed as a side effect.
func (db *DB) Get(key string) (any, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()

	entry, exists := db.entries[key]
	if !exists {
		db.misses++
		return nil, false
	}

	if entry.expired(time.Now()) {
		delete(db.entries, key)
		db.misses++
		return nil, false
	}

	db.hits++
	return entry.Value, true
}

// Has reports whether a live entry exists for the key. It applies the same
// expiry rules as Get but does not count toward the hit and miss rates.
func (db *DB) Has(key string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	entry, exists := db.entries[key]
	if !exists {
		return false
	}

	if entry.expired(time.Now()) {
		delete(db.entries, key)
		return false
	}

	return true
}

// Delete removes the key and reports whether anything was removed.
func (db *DB) Delete(key string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.entries[key]; !exists {
		return false
	}

	delete(db.entries, key)
	return true
}

// Clear removes every entry and resets the hit and miss counters.
func (db *DB) Clear() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.entries = make(map[string]Entry)
	db.hits = 0
	db.misses = 0

	db.evHandler("cachedb: clear: cache cleared")
}

// Keys returns the sorted set of keys that have not expired.
func (db *DB) Keys() []string {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := time.Now()

	keys := make([]string, 0, len(db.entries))
	for key, entry := range db.entries {
		if !entry.expired(now) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	return keys
}

// Stats returns a snapshot of the cache usage. Memory usage is a rough
// estimate based on the serialized size of each entry.
func (db *DB) Stats() Stats {
	db.mu.Lock()
	defer db.mu.Unlock()

	stats := Stats{
		TotalEntries: len(db.entries),
		MemoryUsage:  db.estimateMemoryUsage(),
	}

	if total := db.hits + db.misses; total > 0 {
		stats.HitRate = float64(db.hits) / float64(total)
		stats.MissRate = float64(db.misses) / float64(total)
	}

	return stats
}

// =============================================================================

// sweepOperations removes expired entries every time the ticker fires
// until a shutdown is signaled.
func (db *DB) sweepOperations() {
	for {
		select {
		case <-db.ticker.C:
			db.sweep()

		case <-db.shut:
			return
		}
	}
}

// sweep deletes every expired entry regardless of access.
func (db *DB) sweep() int {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := time.Now()

	var cleaned int
	for key, entry := range db.entries {
		if entry.expired(now) {
			delete(db.entries, key)
			cleaned++
		}
	}

	if cleaned > 0 {
		db.evHandler("cachedb: sweep: cleaned[%d] expired entries", cleaned)
	}

	return cleaned
}

// evictOldest removes the entry with the smallest creation time. Entries
// created at the same instant are ordered by insertion.
func (db *DB) evictOldest() {
	var oldest Entry
	var found bool

	for _, entry := range db.entries {
		if !found || entry.CreatedAt.Before(oldest.CreatedAt) ||
			(entry.CreatedAt.Equal(oldest.CreatedAt) && entry.seq < oldest.seq) {
			oldest = entry
			found = true
		}
	}

	if found {
		delete(db.entries, oldest.Key)
		db.evHandler("cachedb: evict: key[%s]", oldest.Key)
	}
}

// estimateMemoryUsage approximates the size of the cache as two bytes per
// character of each serialized entry.
func (db *DB) estimateMemoryUsage() int {
	var size int
	for _, entry := range db.entries {
		data, err := json.Marshal(entry)
		if err != nil {
			size += len(fmt.Sprint(entry.Value)) * 2
			continue
		}
		size += len(data) * 2
	}
	return size
}
