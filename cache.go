package main

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedBlessings stores a cached blessing listing with timestamp
type CachedBlessings struct {
	Blessings []Blessing
	Timestamp time.Time
}

// CachedSearch stores a cached search response with timestamp
type CachedSearch struct {
	Result    SearchResult
	Timestamp time.Time
}

// CachedCount stores a cached wish count with timestamp
type CachedCount struct {
	Count     int64
	Timestamp time.Time
}

// CatalogCache manages read caching for blessing listings, search responses
// and per-wall wish counts.
type CatalogCache struct {
	blessingsCache *lru.Cache[string, CachedBlessings]
	searchCache    *lru.Cache[string, CachedSearch]
	countsCache    *lru.Cache[string, CachedCount]
	ttl            time.Duration
	mu             sync.Mutex
}

// NewCatalogCache creates a new catalog cache with specified size and TTL
func NewCatalogCache(size int, ttl time.Duration) (*CatalogCache, error) {
	blessingsCache, err := lru.New[string, CachedBlessings](size)
	if err != nil {
		return nil, err
	}

	searchCache, err := lru.New[string, CachedSearch](size)
	if err != nil {
		return nil, err
	}

	countsCache, err := lru.New[string, CachedCount](size)
	if err != nil {
		return nil, err
	}

	return &CatalogCache{
		blessingsCache: blessingsCache,
		searchCache:    searchCache,
		countsCache:    countsCache,
		ttl:            ttl,
	}, nil
}

// listingKey derives a cache key from a filter set.
func listingKey(f BlessingFilters) string {
	featured := "any"
	if f.IsFeatured != nil {
		featured = fmt.Sprint(*f.IsFeatured)
	}
	return fmt.Sprintf("listing_%s_%s_%s_%s_l%d_o%d",
		f.CategoryID, f.SubcategoryID, f.ContentType, featured, f.Limit, f.Offset)
}

func searchKey(f SearchFilters) string {
	return fmt.Sprintf("search_%s_%s_%s_%s_%s_p%d_l%d",
		f.Query, f.CategorySlug, f.ContentType, f.Sort, f.Order, f.Page, f.Limit)
}

// GetBlessings retrieves a cached listing for a filter set
func (c *CatalogCache) GetBlessings(f BlessingFilters) ([]Blessing, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := listingKey(f)
	cached, ok := c.blessingsCache.Get(key)
	if !ok {
		return nil, false
	}
	if time.Since(cached.Timestamp) > c.ttl {
		c.blessingsCache.Remove(key)
		return nil, false
	}
	return cached.Blessings, true
}

// SetBlessings stores a listing in cache for a filter set
func (c *CatalogCache) SetBlessings(f BlessingFilters, blessings []Blessing) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.blessingsCache.Add(listingKey(f), CachedBlessings{
		Blessings: blessings,
		Timestamp: time.Now(),
	})
}

// GetSearch retrieves a cached search response
func (c *CatalogCache) GetSearch(f SearchFilters) (SearchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := searchKey(f)
	cached, ok := c.searchCache.Get(key)
	if !ok {
		return SearchResult{}, false
	}
	if time.Since(cached.Timestamp) > c.ttl {
		c.searchCache.Remove(key)
		return SearchResult{}, false
	}
	return cached.Result, true
}

// SetSearch stores a search response in cache
func (c *CatalogCache) SetSearch(f SearchFilters, result SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.searchCache.Add(searchKey(f), CachedSearch{
		Result:    result,
		Timestamp: time.Now(),
	})
}

// GetWishCount retrieves a cached wish count for a wall
func (c *CatalogCache) GetWishCount(wallID string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.countsCache.Get(wallID)
	if !ok {
		return 0, false
	}
	if time.Since(cached.Timestamp) > c.ttl {
		c.countsCache.Remove(wallID)
		return 0, false
	}
	return cached.Count, true
}

// SetWishCount stores a wish count in cache for a wall
func (c *CatalogCache) SetWishCount(wallID string, count int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.countsCache.Add(wallID, CachedCount{
		Count:     count,
		Timestamp: time.Now(),
	})
}

// InvalidateWall clears cached data for a specific wall
func (c *CatalogCache) InvalidateWall(wallID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.countsCache.Remove(wallID)
}

// Clear removes all entries from the cache
func (c *CatalogCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.blessingsCache.Purge()
	c.searchCache.Purge()
	c.countsCache.Purge()
}

// Global catalog cache, initialized in main().
var catalogCache *CatalogCache
