package fielddata

import (
	"fmt"

	"SearchMapper/pkg/mapping"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Snapshot is a Source whose content is identified by a generation number.
type Snapshot interface {
	Source
	Generation() uint64
}

// Cache keeps loaded ordinals per field and segment generation.
type Cache struct {
	lru *lru.Cache[string, *Ordinals]
}

func NewCache(size int) (*Cache, error) {
	c, err := lru.New[string, *Ordinals](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Load returns cached ordinals for the snapshot or builds them.
func (c *Cache) Load(m *mapping.TextFieldMapping, snap Snapshot) (*Ordinals, error) {
	key := fmt.Sprintf("%s@%d", m.Name(), snap.Generation())
	if o, ok := c.lru.Get(key); ok {
		return o, nil
	}
	o, err := Load(m, snap)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, o)
	return o, nil
}

func (c *Cache) Len() int { return c.lru.Len() }
