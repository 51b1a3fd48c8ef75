package page

import (
	"context"
	"slices"

	"github.com/flashmap/flashmap/flash"
)

// stateCacheSize bounds the number of page states a StateCache may hold
// at once. It is a small constant, not proportional to the ring size N,
// so a StateCache never costs more than O(1) RAM regardless of how many
// pages the flash region has.
const stateCacheSize = 8

// StateCache memoizes page-state reads (header/footer words) for the
// span of a single Fetch or Store call. It is adapted from the teacher's
// LRU page cache, bounded the same way, but it is never retained between
// public calls: fetch/store each construct a fresh StateCache and let it
// be garbage collected on return, so no index survives across calls and
// the "no in-RAM index" invariant (§9, Design Notes) still holds. Its
// only job is to avoid re-reading the same marker words twice during one
// backward scan or rotation.
type StateCache struct {
	driver flash.Driver
	r      Range
	g      Geometry

	cache     map[int]State
	evictList []int
}

// NewStateCache builds an empty, call-scoped cache over driver.
func NewStateCache(driver flash.Driver, r Range, g Geometry) *StateCache {
	return &StateCache{
		driver: driver,
		r:      r,
		g:      g,
		cache:  make(map[int]State, stateCacheSize),
	}
}

// State returns the state of the page at index, reading through to the
// driver on a miss.
func (c *StateCache) State(ctx context.Context, index int) (State, error) {
	if st, ok := c.cache[index]; ok {
		c.prioritize(index)
		return st, nil
	}
	st, err := ReadState(ctx, c.driver, c.r, c.g, index)
	if err != nil {
		return Corrupted, err
	}
	c.add(index, st)
	return st, nil
}

// FindFirst returns the lowest ring-offset page index from startOffset
// whose state equals want, reading through c. Sharing one StateCache
// across a Store call's repeated rescans (each rotation attempt looks
// for the next PartialOpen or Open page again) means pages whose state
// hasn't changed since the last scan are served from cache instead of
// re-read from the driver.
func (c *StateCache) FindFirst(ctx context.Context, want State, startOffset int) (index int, found bool, err error) {
	for idx := range All(c.r, c.g, startOffset) {
		st, err := c.State(ctx, idx)
		if err != nil {
			return 0, false, err
		}
		if st == want {
			return idx, true, nil
		}
	}
	return 0, false, nil
}

// Invalidate drops any cached state for index. Call this after writing a
// page's header or footer marker through this cache so a subsequent
// State call observes the new state rather than a stale hit.
func (c *StateCache) Invalidate(index int) {
	if _, ok := c.cache[index]; ok {
		delete(c.cache, index)
		if i := slices.Index(c.evictList, index); i >= 0 {
			c.evictList = slices.Delete(c.evictList, i, i+1)
		}
	}
}

func (c *StateCache) add(index int, st State) {
	if len(c.cache) == stateCacheSize {
		evict := c.evictList[0]
		c.evictList = c.evictList[1:]
		delete(c.cache, evict)
	}
	c.cache[index] = st
	c.evictList = append(c.evictList, index)
}

func (c *StateCache) prioritize(index int) {
	i := slices.Index(c.evictList, index)
	if i < 0 {
		return
	}
	c.evictList = append(slices.Delete(c.evictList, i, i+1), index)
}
