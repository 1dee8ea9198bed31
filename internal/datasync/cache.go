package datasync

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// swrCache is an LRU store whose entries outlive their freshness window:
// a stale entry is still returned so the UI can render immediately while a
// revalidation runs. Size-based eviction keeps the footprint bounded.
type swrCache struct {
	mu       sync.Mutex
	maxSize  int
	freshFor time.Duration
	items    map[string]*list.Element
	lru      *list.List
}

type swrEntry struct {
	key       string
	value     any
	fetchedAt time.Time
}

func newSWRCache(maxSize int, freshFor time.Duration) *swrCache {
	return &swrCache{
		maxSize:  maxSize,
		freshFor: freshFor,
		items:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// get returns the cached value and whether it is still fresh. Stale entries
// are returned, not dropped.
func (c *swrCache) get(key string) (value any, fresh, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if !exists {
		return nil, false, false
	}
	entry := elem.Value.(*swrEntry)
	c.lru.MoveToFront(elem)
	return entry.value, time.Since(entry.fetchedAt) < c.freshFor, true
}

func (c *swrCache) set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &swrEntry{key: key, value: value, fetchedAt: time.Now()}
	if elem, exists := c.items[key]; exists {
		elem.Value = entry
		c.lru.MoveToFront(elem)
		return
	}
	c.items[key] = c.lru.PushFront(entry)
	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// markStale keeps the value but ages it out of the freshness window, so the
// next read serves it while triggering a revalidation.
func (c *swrCache) markStale(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, exists := c.items[key]; exists {
		elem.Value.(*swrEntry).fetchedAt = time.Time{}
	}
}

func (c *swrCache) markStalePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, elem := range c.items {
		if strings.HasPrefix(key, prefix) {
			elem.Value.(*swrEntry).fetchedAt = time.Time{}
		}
	}
}

func (c *swrCache) delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
}

func (c *swrCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.lru.Init()
}

func (c *swrCache) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.items))
	for key := range c.items {
		out = append(out, key)
	}
	return out
}

func (c *swrCache) removeElement(elem *list.Element) {
	entry := elem.Value.(*swrEntry)
	delete(c.items, entry.key)
	c.lru.Remove(elem)
}
