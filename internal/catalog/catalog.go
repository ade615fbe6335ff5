// Package catalog serves the static furniture catalog.
package catalog

import (
	"errors"
	"strings"
)

// ErrNotFound is returned for an unknown item id.
var ErrNotFound = errors.New("catalog: item not found")

// Item is one piece of furniture. ModelPrompt seeds mesh generation.
type Item struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       int      `json:"price"`
	ModelPrompt string   `json:"modelPrompt"`
	Tags        []string `json:"tags"`
}

// Catalog is a read-only item list.
type Catalog struct {
	items []Item
	byID  map[string]int
}

// New returns a catalog over items. Later duplicates of an id are ignored.
func New(items []Item) *Catalog {
	c := &Catalog{byID: make(map[string]int, len(items))}
	for _, it := range items {
		if _, dup := c.byID[it.ID]; dup {
			continue
		}
		c.byID[it.ID] = len(c.items)
		c.items = append(c.items, it)
	}
	return c
}

// Default returns the built-in furniture catalog.
func Default() *Catalog {
	return New(furniture)
}

// List returns the items in category, matched case-insensitively, or all
// items when category is empty.
func (c *Catalog) List(category string) []Item {
	out := make([]Item, 0, len(c.items))
	for _, it := range c.items {
		if category == "" || strings.EqualFold(it.Category, category) {
			out = append(out, it)
		}
	}
	return out
}

// Get returns the item with id.
func (c *Catalog) Get(id string) (Item, error) {
	i, ok := c.byID[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	return c.items[i], nil
}
