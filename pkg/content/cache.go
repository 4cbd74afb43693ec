package content

// Status is the lifecycle of one cache entry.
type Status string

const (
	StatusLoading Status = "loading"
	StatusLoaded  Status = "loaded"
	StatusError   Status = "error"
)

// Entry is the cached aggregation result for one message id.
type Entry struct {
	Status  Status `json:"status"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DefaultCacheSize bounds a Cache when the caller passes no explicit cap.
const DefaultCacheSize = 512

// Cache maps message ids to aggregation entries. It is bounded: once the cap
// is exceeded the oldest-inserted entry is evicted, so a very long
// conversation cannot grow a view's memory without limit. Overwriting an
// existing id refreshes its value but keeps its insertion slot. Not safe for
// concurrent use; the owning manager serializes access.
type Cache struct {
	max     int
	entries map[string]Entry
	order   []string
}

// NewCache returns a cache bounded to max entries; max <= 0 selects
// DefaultCacheSize.
func NewCache(max int) *Cache {
	if max <= 0 {
		max = DefaultCacheSize
	}
	return &Cache{max: max, entries: make(map[string]Entry)}
}

// Get returns the entry for id, if present.
func (c *Cache) Get(id string) (Entry, bool) {
	e, ok := c.entries[id]
	return e, ok
}

// Put stores or overwrites the entry for id, evicting the oldest entry when
// the bound is exceeded.
func (c *Cache) Put(id string, e Entry) {
	if _, exists := c.entries[id]; !exists {
		c.order = append(c.order, id)
		if len(c.order) > c.max {
			evict := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, evict)
		}
	}
	c.entries[id] = e
}

// Len reports the number of live entries.
func (c *Cache) Len() int { return len(c.entries) }

// Snapshot returns a copy of the live entries keyed by message id.
func (c *Cache) Snapshot() map[string]Entry {
	out := make(map[string]Entry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}
