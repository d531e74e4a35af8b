package stream

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// weakCache holds fallback streams weakly. Collected streams are reported
// on a reclamation queue by runtime cleanups and pruned by drain.
type weakCache struct {
	entries map[Interface]weakEntry
	gen     uint64

	qmu   sync.Mutex
	queue []reclaimed
}

type weakEntry struct {
	gen   uint64
	value func() Stream
}

type reclaimed struct {
	iface Interface
	gen   uint64
}

func newWeakCache() *weakCache {
	return &weakCache{entries: make(map[Interface]weakEntry)}
}

func (c *weakCache) enqueue(r reclaimed) {
	c.qmu.Lock()
	c.queue = append(c.queue, r)
	c.qmu.Unlock()
}

func (c *weakCache) drain() int {
	c.qmu.Lock()
	queue := c.queue
	c.queue = nil
	c.qmu.Unlock()

	n := 0
	for _, r := range queue {
		// A newer entry may have replaced the collected one.
		if e, ok := c.entries[r.iface]; ok && e.gen == r.gen {
			delete(c.entries, r.iface)
			n++
		}
	}
	return n
}

func (c *weakCache) load(iface Interface) Stream {
	e, ok := c.entries[iface]
	if !ok {
		return nil
	}
	return e.value()
}

func (c *weakCache) store(iface Interface, s Stream, b *defaultBinding) {
	c.gen++
	gen := c.gen
	c.entries[iface] = weakEntry{gen: gen, value: b.weak(s)}
	b.cleanup(s, func() { c.enqueue(reclaimed{iface: iface, gen: gen}) })
}

func (c *weakCache) release(iface Interface) { delete(c.entries, iface) }

func (c *weakCache) len() int { return len(c.entries) }

// ttlCache keeps fallback streams until they have not been used for ttl.
// Expired entries are removed lazily, no janitor goroutine is started.
type ttlCache struct {
	ttl   time.Duration
	items *gocache.Cache
}

func newTTLCache(ttl time.Duration) *ttlCache {
	return &ttlCache{ttl: ttl, items: gocache.New(ttl, 0)}
}

func (c *ttlCache) drain() int {
	before := c.items.ItemCount()
	c.items.DeleteExpired()
	return before - c.items.ItemCount()
}

func (c *ttlCache) load(iface Interface) Stream {
	v, ok := c.items.Get(iface.Name())
	if !ok {
		return nil
	}
	s, ok := v.(Stream)
	if !ok {
		return nil
	}
	c.items.Set(iface.Name(), s, c.ttl)
	return s
}

func (c *ttlCache) store(iface Interface, s Stream, _ *defaultBinding) {
	c.items.Set(iface.Name(), s, gocache.DefaultExpiration)
}

func (c *ttlCache) release(iface Interface) { c.items.Delete(iface.Name()) }

func (c *ttlCache) len() int { return c.items.ItemCount() }
