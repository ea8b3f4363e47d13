// Package cache implements a parametric set-associative LRU cache: address
// decomposition into (tag, set, offset), per-set LRU replacement, and a single
// access operation reporting Hit or Miss{Prev}.
//
// Grounded on the shape of the teacher's vm.Memory / vm.MemorySegment pair
// (vm/memory.go): a top-level container owning independently-managed regions,
// each region tracking its own occupancy and access bookkeeping.
package cache

import (
	"fmt"
	"math/bits"
)

// WordBits is the width of the address space every cache in this package
// operates over.
const WordBits = 64

// cacheLine holds one way's occupant: whether it is valid, its tag, and (purely
// for Miss.Prev diagnostic reporting) the address that last filled it.
type cacheLine struct {
	valid bool
	tag   uint64
	addr  uint64
}

// cacheSet holds Ways cacheLine slots plus an MRU-to-LRU ordering of way
// indices. order[0] is the most-recently-used way; order[len-1] is the next
// eviction candidate.
type cacheSet struct {
	lines []cacheLine
	order []int
}

// Cache is a parametrised set-associative LRU cache.
type Cache struct {
	sets     []cacheSet
	ways     int
	lineSize int

	offsetBits uint
	setBits    uint
	setMask    uint64
	tagBits    uint
}

// Outcome is the closed result of one access: Hit, or Miss carrying the
// previous occupant's address (if any).
type Outcome struct {
	Hit  bool
	Prev *uint64 // nil on a cold fill, non-nil when an occupant was evicted
}

// New constructs a Cache with the given geometry. sets, ways, and lineSize must
// each be a power of two, and the resulting set/offset bit budget must not
// exceed WordBits — both are configuration errors (spec.md §7), detected here
// at construction rather than on first access, mirroring vm.NewMemory's
// up-front segment validation.
func New(sets, ways, lineSize int) (*Cache, error) {
	if !isPowerOfTwo(sets) {
		return nil, fmt.Errorf("cache configuration: sets (%d) must be a power of two", sets)
	}
	if !isPowerOfTwo(ways) {
		return nil, fmt.Errorf("cache configuration: ways (%d) must be a power of two", ways)
	}
	if !isPowerOfTwo(lineSize) {
		return nil, fmt.Errorf("cache configuration: line size (%d) must be a power of two", lineSize)
	}

	offsetBits := uint(bits.TrailingZeros(uint(lineSize)))
	setBits := uint(bits.TrailingZeros(uint(sets)))
	if offsetBits+setBits > WordBits {
		return nil, fmt.Errorf("cache configuration: set_bits(%d) + offset_bits(%d) exceeds word width (%d)",
			setBits, offsetBits, WordBits)
	}

	c := &Cache{
		ways:       ways,
		lineSize:   lineSize,
		offsetBits: offsetBits,
		setBits:    setBits,
		setMask:    (uint64(1) << setBits) - 1,
		tagBits:    WordBits - setBits - offsetBits,
	}
	c.sets = make([]cacheSet, sets)
	for i := range c.sets {
		c.sets[i] = newCacheSet(ways)
	}
	return c, nil
}

func newCacheSet(ways int) cacheSet {
	order := make([]int, ways)
	for i := range order {
		order[i] = i
	}
	return cacheSet{lines: make([]cacheLine, ways), order: order}
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Sets, Ways, and LineSize report the cache's geometry.
func (c *Cache) Sets() int     { return len(c.sets) }
func (c *Cache) Ways() int     { return c.ways }
func (c *Cache) LineSize() int { return c.lineSize }

func (c *Cache) decompose(addr uint64) (setIndex int, tag uint64) {
	setIndex = int((addr >> c.offsetBits) & c.setMask)
	tag = addr >> (c.offsetBits + c.setBits)
	return
}

// Access performs one byte-granular lookup: on a tag match within the indexed
// set, the occupying way moves to MRU and Hit is reported; otherwise the LRU
// way is evicted (its previous occupant reported via Prev), refilled, and moved
// to MRU.
func (c *Cache) Access(addr uint64) Outcome {
	setIdx, tag := c.decompose(addr)
	set := &c.sets[setIdx]

	for pos, way := range set.order {
		line := &set.lines[way]
		if line.valid && line.tag == tag {
			set.touch(pos)
			return Outcome{Hit: true}
		}
	}

	lruPos := len(set.order) - 1
	way := set.order[lruPos]
	line := &set.lines[way]

	var prev *uint64
	if line.valid {
		p := line.addr
		prev = &p
	}
	line.valid = true
	line.tag = tag
	line.addr = addr
	set.touch(lruPos)

	return Outcome{Hit: false, Prev: prev}
}

// touch moves the way currently at order[pos] to the MRU position (order[0]).
func (s *cacheSet) touch(pos int) {
	way := s.order[pos]
	copy(s.order[1:pos+1], s.order[0:pos])
	s.order[0] = way
}

// LineState describes one occupied or empty way slot, in MRU-to-LRU order,
// for presentation by the interactive inspector.
type LineState struct {
	Valid bool
	Tag   uint64
}

// SetState reports set index setIdx's ways in MRU-to-LRU order.
func (c *Cache) SetState(setIdx int) []LineState {
	set := &c.sets[setIdx]
	states := make([]LineState, len(set.order))
	for i, way := range set.order {
		line := set.lines[way]
		states[i] = LineState{Valid: line.valid, Tag: line.tag}
	}
	return states
}

// Reset empties every line in every set and restores each set's LRU order to
// the identity permutation.
func (c *Cache) Reset() {
	for i := range c.sets {
		c.sets[i] = newCacheSet(c.ways)
	}
}
