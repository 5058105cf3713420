package object

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"
)

// Cache configuration flags - can be set via environment variables
var (
	// EnableLookupCache turns on the chain lookup cache for DefaultRealm
	EnableLookupCache = getEnvBool("PROTEUS_LOOKUP_CACHE", false)

	// MaxLookupEntries is how many receivers a name remembers before
	// evicting the oldest one
	MaxLookupEntries = clampEntries(getEnvInt("PROTEUS_LOOKUP_ENTRIES", 4))
)

const maxLookupSlots = 8

// getEnvBool reads a boolean environment variable with a default value
func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvInt reads an integer environment variable with a default value
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func clampEntries(n int) int {
	if n < 1 {
		return 1
	}
	if n > maxLookupSlots {
		return maxLookupSlots
	}
	return n
}

// lookupEntry remembers where a name resolved for one receiver.
type lookupEntry struct {
	receiver *Object
	holder   *Object // nil when the name was absent from the whole chain
	offset   int
	depth    int
	epoch    uint64
}

// lookupSite holds the entries for one attribute name.
type lookupSite struct {
	entries    [maxLookupSlots]lookupEntry
	entryCount int
}

// lookupCache memoizes chain walks per (receiver, name). Every committed
// write in the realm bumps the epoch and drops all sites, so the cache holds
// no object alive past the next write.
type lookupCache struct {
	mu    sync.Mutex
	sites map[string]*lookupSite
	epoch atomic.Uint64
	limit int

	hits   atomic.Uint64
	misses atomic.Uint64
	deep   atomic.Uint64 // hits that skipped at least two stores
}

func newLookupCache(limit int) *lookupCache {
	return &lookupCache{sites: make(map[string]*lookupSite), limit: clampEntries(limit)}
}

func (c *lookupCache) invalidate() {
	c.epoch.Add(1)
	c.mu.Lock()
	if len(c.sites) > 0 {
		c.sites = make(map[string]*lookupSite)
	}
	c.mu.Unlock()
}

func (c *lookupCache) find(receiver *Object, name string) (lookupEntry, bool) {
	epoch := c.epoch.Load()
	c.mu.Lock()
	defer c.mu.Unlock()
	site, ok := c.sites[name]
	if !ok {
		c.misses.Add(1)
		return lookupEntry{}, false
	}
	for i := 0; i < site.entryCount; i++ {
		if site.entries[i].receiver != receiver {
			continue
		}
		if site.entries[i].epoch != epoch {
			break
		}
		entry := site.entries[i]
		// Move to front for better cache locality
		if i > 0 {
			copy(site.entries[1:i+1], site.entries[0:i])
			site.entries[0] = entry
		}
		c.hits.Add(1)
		if entry.depth >= 2 {
			c.deep.Add(1)
		}
		return entry, true
	}
	c.misses.Add(1)
	return lookupEntry{}, false
}

func (c *lookupCache) update(receiver *Object, name string, holder *Object, offset, depth int) {
	entry := lookupEntry{
		receiver: receiver,
		holder:   holder,
		offset:   offset,
		depth:    depth,
		epoch:    c.epoch.Load(),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry.epoch != c.epoch.Load() {
		return
	}
	site, ok := c.sites[name]
	if !ok {
		site = &lookupSite{}
		c.sites[name] = site
	}
	for i := 0; i < site.entryCount; i++ {
		if site.entries[i].receiver == receiver {
			site.entries[i] = entry
			return
		}
	}
	// Newest at the front; when full the last (oldest) entry falls off
	n := site.entryCount
	if n < c.limit {
		site.entryCount++
	} else {
		n = c.limit - 1
	}
	copy(site.entries[1:n+1], site.entries[0:n])
	site.entries[0] = entry
}

func (c *lookupCache) reset() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.deep.Store(0)
	c.invalidate()
}

// CacheStats summarizes lookup cache activity for a realm.
type CacheStats struct {
	Enabled  bool
	Hits     uint64
	Misses   uint64
	DeepHits uint64 // hits resolved two or more prototypes up
	Sites    int
}

// HitRate returns hits / (hits + misses), or 0 without traffic.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (c *lookupCache) stats() CacheStats {
	c.mu.Lock()
	sites := len(c.sites)
	c.mu.Unlock()
	return CacheStats{
		Enabled:  true,
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		DeepHits: c.deep.Load(),
		Sites:    sites,
	}
}
