package component

import (
	"slices"
	"sync"
)

// Fragments are the style and script sources a component contributes to
// the page once, however often it is used.
type Fragments struct {
	Styles  []string
	Scripts []string
}

// Empty reports whether there is nothing to emit.
func (f Fragments) Empty() bool { return len(f.Styles) == 0 && len(f.Scripts) == 0 }

// Cache maps component names to their fragments in first-registration
// order. The first Add for a name wins.
type Cache struct {
	mu      sync.Mutex
	order   []string
	entries map[string]Fragments
}

func NewCache() *Cache {
	return &Cache{entries: map[string]Fragments{}}
}

// Add stores f under name unless name is already present. It reports
// whether f was stored.
func (c *Cache) Add(name string, f Fragments) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[name]; ok {
		return false
	}
	c.entries[name] = f
	c.order = append(c.order, name)
	return true
}

func (c *Cache) Get(name string) (Fragments, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.entries[name]
	return f, ok
}

// Names returns the cached names in the order they were added.
func (c *Cache) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.order)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Reset empties the cache.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = nil
	c.entries = map[string]Fragments{}
}

// Collect concatenates the fragments of names, skipping names not in the
// cache and names already seen.
func (c *Cache) Collect(names []string) Fragments {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out Fragments
	seen := map[string]bool{}
	for _, n := range names {
		f, ok := c.entries[n]
		if !ok || seen[n] {
			continue
		}
		seen[n] = true
		out.Styles = append(out.Styles, f.Styles...)
		out.Scripts = append(out.Scripts, f.Scripts...)
	}
	return out
}
