package data

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"prosumer-backtest/internal/model"
)

type cacheEntry struct {
	points    []model.SeriesPoint
	expiresAt time.Time
}

// SeriesCache keeps parsed series files in memory so repeated API runs over
// the same dataset skip the CSV parse. Entries are keyed by path, read
// options and file modification time, so an edited file is reloaded.
type SeriesCache struct {
	mu    sync.RWMutex
	store map[string]*cacheEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewSeriesCache(ttl time.Duration) *SeriesCache {
	return &SeriesCache{
		store: make(map[string]*cacheEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

var (
	globalCache *SeriesCache
	cacheOnce   sync.Once
)

// GetCache returns the process-wide cache, or nil when SERIES_CACHE_TTL is
// "0". The default TTL is one hour.
func GetCache() *SeriesCache {
	cacheOnce.Do(func() {
		ttl := time.Hour
		if s := os.Getenv("SERIES_CACHE_TTL"); s != "" {
			if s == "0" {
				return
			}
			if parsed, err := time.ParseDuration(s); err == nil {
				ttl = parsed
			}
		}
		globalCache = NewSeriesCache(ttl)
	})
	return globalCache
}

// Load returns the cached points of path or loads them. A nil cache loads directly.
func (c *SeriesCache) Load(path string, opts SeriesOptions) ([]model.SeriesPoint, error) {
	if c == nil {
		return LoadSeries(path, opts)
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	key := cacheKey(path, opts, st.ModTime())

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if ok && c.now().Before(e.expiresAt) {
		return clonePoints(e.points), nil
	}

	pts, err := LoadSeries(path, opts)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.evictExpired()
	c.store[key] = &cacheEntry{points: pts, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return clonePoints(pts), nil
}

// Len is the number of cached entries, expired ones included.
func (c *SeriesCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

func (c *SeriesCache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]*cacheEntry)
}

// evictExpired must be called with the write lock held.
func (c *SeriesCache) evictExpired() {
	now := c.now()
	for k, e := range c.store {
		if !now.Before(e.expiresAt) {
			delete(c.store, k)
		}
	}
}

func cacheKey(path string, opts SeriesOptions, mod time.Time) string {
	loc := "UTC"
	if opts.Location != nil {
		loc = opts.Location.String()
	}
	keyStr := fmt.Sprintf("%s|%q|%s|%g|%s|%d", path, opts.Comma, opts.Column, opts.Scale, loc, mod.UnixNano())
	hash := sha256.Sum256([]byte(keyStr))
	return hex.EncodeToString(hash[:])
}

func clonePoints(pts []model.SeriesPoint) []model.SeriesPoint {
	out := make([]model.SeriesPoint, len(pts))
	copy(out, pts)
	return out
}
