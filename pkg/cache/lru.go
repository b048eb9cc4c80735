// Package cache keeps recent extraction results keyed by source content, so
// editors that re-send an unchanged buffer skip the parse.
package cache

import (
	"crypto/sha256"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/rubyhl/pkg/lvar"
)

// DefaultSize is the default budget of source bytes represented in the cache.
const DefaultSize = 32 * humanize.MiByte

// Key identifies one source text under one backend.
type Key [sha256.Size]byte

// KeyOf hashes backend and src into a cache key.
func KeyOf(backend string, src []byte) Key {
	h := sha256.New()
	h.Write([]byte(backend))
	h.Write([]byte{0})
	h.Write(src)

	var key Key

	copy(key[:], h.Sum(nil))

	return key
}

// Entry is a cached extraction. Callers must not modify the slices.
type Entry struct {
	Occurrences []lvar.Occurrence
	Warnings    []string
	Lines       int
}

// LRU is a size-bounded cache of extraction results. An entry is charged
// the length of the source it was extracted from.
type LRU struct {
	mu          sync.Mutex
	entries     map[Key]*lruEntry
	head        *lruEntry // Most recently used.
	tail        *lruEntry // Least recently used.
	maxSize     int64
	currentSize int64

	hits   atomic.Int64
	misses atomic.Int64
}

type lruEntry struct {
	key         Key
	value       Entry
	size        int64
	accessCount int64
	prev        *lruEntry
	next        *lruEntry
}

// evictionCost is higher for entries that are hit often relative to the
// source size they hold.
func (e *lruEntry) evictionCost() float64 {
	sizeKB := float64(e.size) / humanize.KiByte
	if sizeKB < 1 {
		sizeKB = 1
	}

	return float64(e.accessCount) / sizeKB
}

// NewLRU creates a cache holding results for up to maxSize source bytes.
// A non-positive maxSize selects DefaultSize.
func NewLRU(maxSize int64) *LRU {
	if maxSize <= 0 {
		maxSize = DefaultSize
	}

	return &LRU{
		entries: make(map[Key]*lruEntry),
		maxSize: maxSize,
	}
}

// Get returns the entry for key. A nil cache always misses.
func (c *LRU) Get(key Key) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)

		return Entry{}, false
	}

	c.hits.Add(1)

	entry.accessCount++
	c.moveToFront(entry)

	return entry.value, true
}

// Put stores value for key, charged size bytes. Entries larger than the
// whole cache are not stored. A nil cache ignores the call.
func (c *LRU) Put(key Key, size int64, value Entry) {
	if c == nil || size > c.maxSize {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.accessCount++
		c.moveToFront(entry)

		return
	}

	for c.currentSize+size > c.maxSize && c.tail != nil {
		c.evictLowestCost()
	}

	entry := &lruEntry{key: key, value: value, size: size, accessCount: 1}

	c.entries[key] = entry
	c.currentSize += size
	c.addToFront(entry)
}

// Stats holds cache counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Entries     int
	CurrentSize int64
	MaxSize     int64
}

// HitRate returns the cache hit rate (0.0 to 1.0).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}

	return float64(s.Hits) / float64(total)
}

// Stats returns the current counters.
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Entries:     len(c.entries),
		CurrentSize: c.currentSize,
		MaxSize:     c.maxSize,
	}
}

func (c *LRU) moveToFront(entry *lruEntry) {
	if entry == c.head {
		return
	}

	c.removeFromList(entry)
	c.addToFront(entry)
}

func (c *LRU) addToFront(entry *lruEntry) {
	entry.prev = nil
	entry.next = c.head

	if c.head != nil {
		c.head.prev = entry
	}

	c.head = entry

	if c.tail == nil {
		c.tail = entry
	}
}

func (c *LRU) removeFromList(entry *lruEntry) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}

	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}
}

// evictionSampleSize bounds how many tail entries are compared per eviction.
const evictionSampleSize = 5

// evictLowestCost removes the cheapest of the least recently used entries.
func (c *LRU) evictLowestCost() {
	victim := c.tail
	if victim == nil {
		return
	}

	lowestCost := victim.evictionCost()

	entry := victim.prev
	for i := 1; entry != nil && i < evictionSampleSize; i++ {
		if cost := entry.evictionCost(); cost < lowestCost {
			lowestCost = cost
			victim = entry
		}

		entry = entry.prev
	}

	c.removeFromList(victim)
	delete(c.entries, victim.key)
	c.currentSize -= victim.size
}
