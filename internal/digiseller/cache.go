package digiseller

import (
	"sync"

	"github.com/fairyhunter13/plati-repricer/internal/pricing"
)

// descriptionCache holds product base-price lookups for the lifetime of a
// client. Entries never change within one run, so there is no eviction.
type descriptionCache struct {
	mu sync.RWMutex
	m  map[int64]pricing.ProductPricing
}

func newDescriptionCache() *descriptionCache {
	return &descriptionCache{m: make(map[int64]pricing.ProductPricing)}
}

func (c *descriptionCache) Get(productID int64) (pricing.ProductPricing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.m[productID]
	return p, ok
}

func (c *descriptionCache) Set(productID int64, p pricing.ProductPricing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[productID] = p
}

// Len returns the number of cached products.
func (c *descriptionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
