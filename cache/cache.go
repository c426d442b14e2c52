// Package cache provides a bounded, time-expiring key/value store used to
// avoid redundant remote reads.
//
// Keys are built by callers as a deterministic function of the query they
// answer (operation name plus parameters), so semantically identical
// queries collide. The cache never invalidates itself on writes elsewhere
// in the system; callers invalidate or bypass it after a mutation.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[V any] struct {
	key        string
	value      V
	insertedAt time.Time
	lastAccess time.Time
}

// Cache is a fixed-capacity cache with least-recently-used eviction and
// TTL expiry. Expiry is checked on read; a full cache evicts the least
// recently used entry before inserting. All methods are safe for
// concurrent use.
type Cache[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time // swappable in tests

	entries map[string]*list.Element
	order   *list.List // front = most recently used
}

// New creates a Cache holding at most capacity entries, each expiring ttl
// after insertion. Both arguments must be positive.
func New[V any](capacity int, ttl time.Duration) *Cache[V] {
	if capacity <= 0 {
		panic("cache: capacity must be positive")
	}
	if ttl <= 0 {
		panic("cache: ttl must be positive")
	}
	return &Cache[V]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the value stored under key. An entry older than the TTL is
// removed and reported as absent. A hit refreshes the entry's recency.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	ent := elem.Value.(*entry[V])
	if c.now().Sub(ent.insertedAt) > c.ttl {
		c.remove(elem)
		return zero, false
	}
	ent.lastAccess = c.now()
	c.order.MoveToFront(elem)
	return ent.value, true
}

// Set stores value under key. Overwriting an existing key resets its
// insertion time. When the cache is full, the least recently used entry is
// evicted first.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if elem, ok := c.entries[key]; ok {
		ent := elem.Value.(*entry[V])
		ent.value = value
		ent.insertedAt = now
		ent.lastAccess = now
		c.order.MoveToFront(elem)
		return
	}
	if len(c.entries) >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.remove(oldest)
		}
	}
	elem := c.order.PushFront(&entry[V]{key: key, value: value, insertedAt: now, lastAccess: now})
	c.entries[key] = elem
}

// Invalidate removes the entry stored under key, if any.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.remove(elem)
	}
}

// Clear removes every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the number of live entries, counting ones that have expired
// but have not yet been observed by Get.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[V]) remove(elem *list.Element) {
	ent := elem.Value.(*entry[V])
	delete(c.entries, ent.key)
	c.order.Remove(elem)
}
