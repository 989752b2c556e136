// Copyright 2026 Rashmi Rout
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"github.com/rashmirrout/loglens/core"
)

// OrderedCache is an insertion-ordered mapping from chunk content hash to
// embedding vector. Insertion order is the eviction order: TrimOldest drops
// the earliest-inserted entries first. Updating an existing key replaces its
// vector without changing its position.
//
// Not safe for concurrent use; the build pipeline serializes access per
// issue.
type OrderedCache struct {
	vectors map[string][]float32
	order   []string
}

// NewOrderedCache creates an empty cache.
func NewOrderedCache() *OrderedCache {
	return &OrderedCache{
		vectors: make(map[string][]float32),
	}
}

// CacheFromEntries rebuilds a cache from persisted entries, preserving their
// order.
func CacheFromEntries(entries []core.CacheEntry) *OrderedCache {
	c := &OrderedCache{
		vectors: make(map[string][]float32, len(entries)),
		order:   make([]string, 0, len(entries)),
	}
	for _, e := range entries {
		c.Put(e.Hash, e.Vector)
	}
	return c
}

// Get returns the vector for a content hash.
func (c *OrderedCache) Get(hash string) ([]float32, bool) {
	v, ok := c.vectors[hash]
	return v, ok
}

// Put stores a vector under a content hash. A new key is appended to the
// eviction order; an existing key keeps its position.
func (c *OrderedCache) Put(hash string, vector []float32) {
	if _, exists := c.vectors[hash]; !exists {
		c.order = append(c.order, hash)
	}
	c.vectors[hash] = vector
}

// Len returns the number of cached vectors.
func (c *OrderedCache) Len() int {
	return len(c.vectors)
}

// TrimOldest evicts the earliest-inserted entries until at most max remain,
// returning the number evicted.
func (c *OrderedCache) TrimOldest(max int) int {
	if max < 0 {
		max = 0
	}
	excess := len(c.order) - max
	if excess <= 0 {
		return 0
	}
	for _, hash := range c.order[:excess] {
		delete(c.vectors, hash)
	}
	c.order = append([]string(nil), c.order[excess:]...)
	return excess
}

// Entries returns the cache contents in insertion order, suitable for
// persistence.
func (c *OrderedCache) Entries() []core.CacheEntry {
	entries := make([]core.CacheEntry, 0, len(c.order))
	for _, hash := range c.order {
		entries = append(entries, core.CacheEntry{Hash: hash, Vector: c.vectors[hash]})
	}
	return entries
}
