package engine

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/gitbeacon/beacon/internal/contract"
	"github.com/gitbeacon/beacon/report"
	"github.com/gitbeacon/beacon/schema"
)

// lruEntry is the payload stored in each list element: the cache key (so
// eviction can remove the matching map entry) and the cached bundle.
type lruEntry struct {
	key   string
	value report.Bundle
}

// lru is a bounded, mutex-guarded least-recently-used cache of result
// bundles, keyed by (repo identifier, resolved window, config hash).
// Eviction order is tracked with an intrusive list; hits are O(1).
type lru struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

func newLRU(capacity int) *lru {
	if capacity <= 0 {
		capacity = 100
	}
	return &lru{capacity: capacity, ll: list.New(), items: map[string]*list.Element{}}
}

// get returns the cached bundle for key, moving it to the front (most
// recently used). Hits are O(1).
func (c *lru) get(key string) (report.Bundle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return report.Bundle{}, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*lruEntry).value, true
}

// put inserts or refreshes key, evicting the least-recently-used entry if
// the cache is over capacity. No cache entry is ever mutated after
// insertion except by replacement under the same key.
func (c *lru) put(key string, value report.Bundle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value = &lruEntry{key: key, value: value}
		c.ll.MoveToFront(el)
		return
	}
	el := c.ll.PushFront(&lruEntry{key: key, value: value})
	c.items[key] = el
	if c.ll.Len() > c.capacity {
		back := c.ll.Back()
		if back != nil {
			c.ll.Remove(back)
			delete(c.items, back.Value.(*lruEntry).key)
		}
	}
}

// cacheKey derives the cache key from the repo identifier, the resolved
// window, and a hash of the analyzer configuration.
func cacheKey(repoPath string, window schema.Window, cfg contract.Config) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%+v", repoPath,
		window.Since.UTC().Format(time.RFC3339), window.Until.UTC().Format(time.RFC3339), cfg)
	return hex.EncodeToString(h.Sum(nil))
}
