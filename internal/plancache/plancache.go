// Package plancache keeps recently produced plans in memory, keyed by
// content fingerprint.
//
// Only finished plans belong in the cache. Plans are immutable, so a cached
// tree is shared by every caller that gets it and must never be retyped or
// tagged in place; plan.Retype and plan.Tags already work on copies and side
// tables.
package plancache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/roach88/planir/internal/explain"
	"github.com/roach88/planir/internal/plan"
)

// DefaultSize is the number of plans kept when New is given zero.
const DefaultSize = 128

// Cache is a thread-safe LRU of plans.
type Cache struct {
	lru   *lru.Cache[string, plan.Operator]
	group singleflight.Group
}

// New returns a cache holding at most size plans.
func New(size int) (*Cache, error) {
	if size == 0 {
		size = DefaultSize
	}
	c, err := lru.New[string, plan.Operator](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &Cache{lru: c}, nil
}

// Get returns the plan stored under key.
func (c *Cache) Get(key string) (plan.Operator, bool) {
	return c.lru.Get(key)
}

// Put stores op under key, evicting the least recently used plan when full.
func (c *Cache) Put(key string, op plan.Operator) {
	c.lru.Add(key, op)
}

// Add stores op under its own fingerprint and returns the fingerprint.
func (c *Cache) Add(op plan.Operator) (string, error) {
	fp, err := explain.Fingerprint(op)
	if err != nil {
		return "", err
	}
	c.lru.Add(fp, op)
	return fp, nil
}

// Len returns the number of cached plans.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// GetOrLoad returns the plan stored under key, or calls load and stores its
// result. Concurrent calls for the same key share one load. A failed load
// stores nothing.
func (c *Cache) GetOrLoad(ctx context.Context, key string, load func(context.Context) (plan.Operator, error)) (plan.Operator, error) {
	if op, ok := c.lru.Get(key); ok {
		return op, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		if op, ok := c.lru.Get(key); ok {
			return op, nil
		}
		op, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, op)
		return op, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(plan.Operator), nil
}
