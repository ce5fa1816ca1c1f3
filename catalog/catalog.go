// Package catalog provides the read-only restaurant list the fee cache warms itself from.
package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/krisalay/feecache/geo"
)

// ErrNotFound is returned when a restaurant id is unknown.
var ErrNotFound = errors.New("restaurant not found")

// Restaurant is the subset of restaurant data fee computation needs.
type Restaurant struct {
	ID              string       `json:"id"`
	BaseDeliveryFee float64      `json:"base_delivery_fee"`
	Location        geo.Location `json:"location"`
}

// Catalog is the restaurant list collaborator.
type Catalog interface {
	// List returns every restaurant ordered by id.
	List(ctx context.Context) ([]Restaurant, error)

	// Get returns a single restaurant or ErrNotFound.
	Get(ctx context.Context, id string) (Restaurant, error)
}

// MemoryCatalog is a fixed in-process Catalog.
type MemoryCatalog struct {
	mu   sync.RWMutex
	byID map[string]Restaurant
}

func NewMemoryCatalog(rs ...Restaurant) *MemoryCatalog {
	c := &MemoryCatalog{byID: make(map[string]Restaurant, len(rs))}
	for _, r := range rs {
		c.byID[r.ID] = r
	}
	return c
}

func (c *MemoryCatalog) List(ctx context.Context) ([]Restaurant, error) {
	c.mu.RLock()
	out := make([]Restaurant, 0, len(c.byID))
	for _, r := range c.byID {
		out = append(out, r)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *MemoryCatalog) Get(ctx context.Context, id string) (Restaurant, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.byID[id]
	if !ok {
		return Restaurant{}, ErrNotFound
	}
	return r, nil
}

// Put adds or replaces a restaurant.
func (c *MemoryCatalog) Put(r Restaurant) {
	c.mu.Lock()
	c.byID[r.ID] = r
	c.mu.Unlock()
}
