package rag

import (
	"sync"
	"time"
)

// indexCache tracks which papers currently hold a full-text chunk set,
// bounded by a fixed capacity. It is the in-memory authority for eviction
// decisions; the durable truth lives in the paper store's indexed flags.
type indexCache struct {
	mu       sync.Mutex
	capacity int
	at       map[string]time.Time
}

func newIndexCache(capacity int) *indexCache {
	return &indexCache{
		capacity: capacity,
		at:       make(map[string]time.Time, capacity),
	}
}

// seed loads an existing entry without triggering eviction. Used at
// startup to rebuild the cache from the store; entries beyond capacity
// are evicted on the next insert.
func (c *indexCache) seed(id string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at[id] = at
}

// insert records a freshly indexed paper. When the insertion pushes the
// cache over capacity it picks the entry with the oldest timestamp,
// never the one just inserted, removes it and returns it as victim.
// Re-inserting a present id only refreshes its timestamp.
func (c *indexCache) insert(id string, at time.Time) (victim string, evicted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.at[id] = at
	if len(c.at) <= c.capacity {
		return "", false
	}

	var (
		oldest   string
		oldestAt time.Time
	)
	for k, v := range c.at {
		if k == id {
			continue
		}
		if oldest == "" || v.Before(oldestAt) {
			oldest, oldestAt = k, v
		}
	}
	delete(c.at, oldest)
	return oldest, true
}

// restore puts an evicted entry back. Called when the eviction's side
// effects could not be applied, so cache and store stay in agreement.
func (c *indexCache) restore(id string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at[id] = at
}

func (c *indexCache) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.at, id)
}

func (c *indexCache) contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.at[id]
	return ok
}

func (c *indexCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.at)
}

func (c *indexCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = make(map[string]time.Time, c.capacity)
}
