package parser

import "sync"

// Cache memoizes parsed templates by source string. Parse failures are not
// cached. A Cache is safe for concurrent use.
type Cache struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{
		templates: make(map[string]*Template),
	}
}

// Parse returns the cached template for src, parsing it on first use.
func (c *Cache) Parse(src string) (*Template, error) {
	c.mu.RLock()
	if t, ok := c.templates[src]; ok {
		c.mu.RUnlock()
		return t, nil
	}
	c.mu.RUnlock()

	t, err := ParseTemplate(src)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.templates[src]; ok {
		return existing, nil
	}
	c.templates[src] = t
	return t, nil
}

// Len returns the number of cached templates.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.templates)
}
