// Package framecache holds a bounded cache of decoded 2352-byte CD frames
// shared across every mounted file, keyed by (file identity, frame index).
// It is bounded two ways at once: an entry-count cap enforced by the
// underlying LRU, and a byte-size soft cap enforced by evicting further
// LRU victims after each insert until the tracked total falls back under
// the limit.
package framecache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Key identifies one cached frame: a file identity (its CHD's inode, per
// the index) and the absolute frame number within that file.
type Key struct {
	FileID uint64
	Frame  uint64
}

// Cache is a frame cache bounded by both entry count and approximate byte
// size.
type Cache struct {
	lru       *lru.Cache[Key, []byte]
	maxBytes  int
	usedBytes int
}

// New creates a cache holding at most maxEntries frames, additionally
// evicting least-recently-used entries whenever the tracked byte total
// exceeds maxBytes.
func New(maxEntries, maxBytes int) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = 64
	}

	c := &Cache{maxBytes: maxBytes}
	underlying, err := lru.NewWithEvict[Key, []byte](maxEntries, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.lru = underlying
	return c, nil
}

func (c *Cache) onEvict(_ Key, value []byte) {
	c.usedBytes -= len(value)
}

// Get returns the cached frame for key, if present. The returned slice is
// an owned copy, never an alias into the cache's stored value: a caller
// holding this buffer across a subsequent Put in the same read must not
// see it mutated or its backing array reused by an eviction.
func (c *Cache) Get(key Key) ([]byte, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

// Put inserts frame into the cache. A capacity-triggered eviction runs
// inside Add via onEvict; afterward, further LRU victims are popped until
// the byte budget is satisfied too.
func (c *Cache) Put(key Key, frame []byte) {
	c.lru.Add(key, frame)
	c.usedBytes += len(frame)
	c.evictToByteBudget()
}

func (c *Cache) evictToByteBudget() {
	if c.maxBytes <= 0 {
		return
	}
	for c.usedBytes > c.maxBytes {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
}

// Len reports the number of frames currently cached.
func (c *Cache) Len() int {
	return c.lru.Len()
}
