// Package cache memoizes decision packages by snapshot fingerprint so
// redundant ticks collapse to a lookup.
package cache

import "github.com/windbluesea/tacsim-agent/pkg/tactical"

type entry struct {
	timestampMs int64
	value       tactical.DecisionPackage
}

// DecisionCache is a TTL-bounded key/value store of decision packages.
// Values are cloned on both put and get so callers and the store never
// share mutable state.
type DecisionCache struct {
	ttlMs int64
	table map[string]entry
}

// New creates a cache with the given TTL in milliseconds.
func New(ttlMs int64) *DecisionCache {
	return &DecisionCache{
		ttlMs: ttlMs,
		table: make(map[string]entry),
	}
}

// Get returns a fresh copy of the stored package if the entry is inside
// its TTL at the given time.
func (c *DecisionCache) Get(key string, nowMs int64) (tactical.DecisionPackage, bool) {
	e, ok := c.table[key]
	if !ok || nowMs-e.timestampMs > c.ttlMs {
		return tactical.DecisionPackage{}, false
	}
	return e.value.Clone(), true
}

// Put stores a copy of the package under the key, overwriting any
// previous entry.
func (c *DecisionCache) Put(key string, value tactical.DecisionPackage, nowMs int64) {
	c.table[key] = entry{timestampMs: nowMs, value: value.Clone()}
}

// Prune drops every expired entry. The pipeline calls this at the start
// of each tick.
func (c *DecisionCache) Prune(nowMs int64) {
	for key, e := range c.table {
		if nowMs-e.timestampMs > c.ttlMs {
			delete(c.table, key)
		}
	}
}

// Len returns the number of stored entries, expired or not; expired
// entries stay counted until Prune removes them.
func (c *DecisionCache) Len() int {
	return len(c.table)
}
