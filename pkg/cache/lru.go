package cache

import (
	"container/list"
	"sync"
)

// LRU is a size-bounded, least-recently-used cache safe for concurrent use.
// A capacity of 0 disables eviction.
//
// GetOrCompute memoizes per key: concurrent callers asking for the same
// missing key share one computation.
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List // front is most recently used
	items    map[K]*list.Element
	inflight map[K]*call[V]

	hits      uint64
	misses    uint64
	evictions uint64
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// call is one in-flight computation.
type call[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// Stats is a point-in-time view of cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
	Capacity  int
}

// New creates an LRU holding at most capacity entries.
func New[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity < 0 {
		capacity = 0
	}
	return &LRU[K, V]{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[K]*list.Element),
		inflight: make(map[K]*call[V]),
	}
}

// Get returns the cached value and marks it recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		c.hits++
		return el.Value.(*entry[K, V]).value, true
	}
	c.misses++
	var zero V
	return zero, false
}

// Add stores a value, evicting the least recently used entry when full.
func (c *LRU[K, V]) Add(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.add(key, value)
}

// add must be called with mu held.
func (c *LRU[K, V]) add(key K, value V) {
	if el, ok := c.items[key]; ok {
		el.Value.(*entry[K, V]).value = value
		c.ll.MoveToFront(el)
		return
	}
	c.items[key] = c.ll.PushFront(&entry[K, V]{key: key, value: value})
	if c.capacity > 0 && c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*entry[K, V]).key)
		c.evictions++
	}
}

// GetOrCompute returns the cached value for key, or runs compute and caches
// its result. hit reports whether the value came from the cache. Errors are
// returned to every waiter and are not cached.
func (c *LRU[K, V]) GetOrCompute(key K, compute func() (V, error)) (value V, hit bool, err error) {
	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		c.hits++
		c.mu.Unlock()
		return el.Value.(*entry[K, V]).value, true, nil
	}
	if inflight, ok := c.inflight[key]; ok {
		c.hits++
		c.mu.Unlock()
		<-inflight.done
		return inflight.value, inflight.err == nil, inflight.err
	}

	c.misses++
	pending := &call[V]{done: make(chan struct{})}
	c.inflight[key] = pending
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		// An Invalidate or Clear while computing detaches the call; its
		// result is then handed to waiters but not stored.
		if c.inflight[key] == pending {
			delete(c.inflight, key)
			if pending.err == nil {
				c.add(key, pending.value)
			}
		}
		c.mu.Unlock()
		close(pending.done)
	}()

	pending.value, pending.err = runCompute(compute)
	return pending.value, false, pending.err
}

// runCompute turns a panic in compute into an error so waiters are always
// released.
func runCompute[V any](compute func() (V, error)) (value V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return compute()
}

// Invalidate removes one key and reports whether it was cached.
func (c *LRU[K, V]) Invalidate(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.inflight, key)
	el, ok := c.items[key]
	if ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
	return ok
}

// InvalidateFunc removes every key for which match returns true and returns
// the number of cached entries removed.
func (c *LRU[K, V]) InvalidateFunc(match func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.inflight {
		if match(key) {
			delete(c.inflight, key)
		}
	}
	removed := 0
	for key, el := range c.items {
		if match(key) {
			c.ll.Remove(el)
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Clear removes all entries. Counters are kept.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll.Init()
	c.items = make(map[K]*list.Element)
	c.inflight = make(map[K]*call[V])
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Keys returns the cached keys from most to least recently used.
func (c *LRU[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, c.ll.Len())
	for el := c.ll.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[K, V]).key)
	}
	return keys
}

// Stats returns the cache counters.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      c.ll.Len(),
		Capacity:  c.capacity,
	}
}
