// Package cache implements the content-addressed result cache. Results are
// keyed by a fingerprint of the normalized text so near-duplicate repostings
// of the same claim share an entry. Storage trouble never propagates: a
// failed read is a miss, a failed write is dropped.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dkorolev/veridict/internal/model"
	"github.com/dkorolev/veridict/internal/store"
)

const (
	// DefaultTTL is how long a cached verdict stays servable
	DefaultTTL = 7 * 24 * time.Hour

	// DefaultMaxEntries caps the cache before LRU eviction kicks in
	DefaultMaxEntries = 1000

	// retainFraction is the share of maxEntries kept on eviction. Keeping
	// only 80% leaves growth room so evictions stay infrequent.
	retainFraction = 0.8

	keyPrefix   = "cache:"
	snippetRune = 100
)

// Entry is one cached verdict with its LRU bookkeeping
type Entry struct {
	Hash           string                  `json:"hash"`
	Result         *model.AggregatedResult `json:"result"`
	CachedAt       int64                   `json:"cached_at"`        // Unix millis
	LastAccessedAt int64                   `json:"last_accessed_at"` // Unix millis
	TextSnippet    string                  `json:"text_snippet"`     // First chars of the original text, for debugging
}

// Stats describes the cache contents
type Stats struct {
	TotalEntries int
	OldestEntry  time.Time
	NewestEntry  time.Time
	AverageAge   time.Duration
	SizeBytes    int64
}

// ResultCache stores aggregated verdicts keyed by text fingerprint
type ResultCache struct {
	store      store.Store
	ttl        time.Duration
	maxEntries int

	mu  sync.Mutex
	now func() time.Time // Injectable for tests
}

// New creates a result cache over the given store. Non-positive ttl or
// maxEntries fall back to the defaults.
func New(st store.Store, ttl time.Duration, maxEntries int) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &ResultCache{
		store:      st,
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// normalize makes hashing whitespace- and case-insensitive
func normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// Fingerprint returns the stable cache key for a text
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(normalize(text)))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached result for text, or nil on miss. Expired entries
// are deleted lazily here; hits bump the entry's last-access time.
func (c *ResultCache) Get(text string) (*model.AggregatedResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fp := Fingerprint(text)
	key := keyPrefix + fp

	data, found, err := c.store.Get(key)
	if err != nil {
		log.WithError(err).Debug("cache read failed, treating as miss")
		return nil, false
	}
	if !found {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		log.WithError(err).Debug("cache entry corrupt, dropping")
		_ = c.store.Delete(key)
		return nil, false
	}

	now := c.now()
	age := now.Sub(time.UnixMilli(entry.CachedAt))
	if age > c.ttl {
		log.WithFields(log.Fields{"hash": fp[:8], "age": age}).Debug("cache entry expired")
		_ = c.store.Delete(key)
		return nil, false
	}

	entry.LastAccessedAt = now.UnixMilli()
	if updated, err := json.Marshal(entry); err == nil {
		if err := c.store.Set(key, updated); err != nil {
			log.WithError(err).Debug("cache access-time update dropped")
		}
	}

	log.WithFields(log.Fields{"hash": fp[:8], "verdict": entry.Result.Verdict}).Debug("cache hit")
	return entry.Result, true
}

// Put stores a result for text, evicting the coldest entries first when
// the cache is at capacity. Failures are dropped.
func (c *ResultCache) Put(text string, result *model.AggregatedResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.evictIfNeeded(); err != nil {
		log.WithError(err).Debug("cache eviction failed")
	}

	now := c.now().UnixMilli()
	fp := Fingerprint(text)
	entry := Entry{
		Hash:           fp,
		Result:         result,
		CachedAt:       now,
		LastAccessedAt: now,
		TextSnippet:    snippet(text),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.WithError(err).Debug("cache entry marshal failed, write dropped")
		return
	}
	if err := c.store.Set(keyPrefix+fp, data); err != nil {
		log.WithError(err).Debug("cache write dropped")
	}
}

// evictIfNeeded keeps the most recently accessed entries when the cache
// is full. Holding 80% of capacity makes the next eviction infrequent.
func (c *ResultCache) evictIfNeeded() error {
	keys, err := c.store.Keys(keyPrefix)
	if err != nil {
		return err
	}
	if len(keys) < c.maxEntries {
		return nil
	}

	entries := c.loadEntries(keys)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastAccessedAt > entries[j].LastAccessedAt
	})

	keep := int(float64(c.maxEntries) * retainFraction)
	if keep > len(entries) {
		keep = len(entries)
	}
	for _, entry := range entries[keep:] {
		_ = c.store.Delete(keyPrefix + entry.Hash)
	}

	log.WithFields(log.Fields{"evicted": len(entries) - keep, "kept": keep}).Debug("cache eviction")
	return nil
}

// Clear removes every cached result, leaving other state in the store alone
func (c *ResultCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.store.Keys(keyPrefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := c.store.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// Stats reports cache contents and a rough size estimate
func (c *ResultCache) Stats() (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.store.Keys(keyPrefix)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	var totalAge time.Duration
	now := c.now()

	for _, key := range keys {
		data, found, err := c.store.Get(key)
		if err != nil || !found {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}

		cachedAt := time.UnixMilli(entry.CachedAt)
		if stats.TotalEntries == 0 || cachedAt.Before(stats.OldestEntry) {
			stats.OldestEntry = cachedAt
		}
		if stats.TotalEntries == 0 || cachedAt.After(stats.NewestEntry) {
			stats.NewestEntry = cachedAt
		}
		totalAge += now.Sub(cachedAt)
		stats.SizeBytes += int64(len(data))
		stats.TotalEntries++
	}

	if stats.TotalEntries > 0 {
		stats.AverageAge = totalAge / time.Duration(stats.TotalEntries)
	}
	return stats, nil
}

// loadEntries reads every entry it can; unreadable ones are skipped and
// left for lazy expiry.
func (c *ResultCache) loadEntries(keys []string) []Entry {
	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		data, found, err := c.store.Get(key)
		if err != nil || !found {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			_ = c.store.Delete(key)
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) > snippetRune {
		runes = runes[:snippetRune]
	}
	return string(runes)
}
