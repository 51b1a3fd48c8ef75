package flashmap

import (
	"context"

	"github.com/flashmap/flashmap/flash"
	"github.com/flashmap/flashmap/item"
	"github.com/flashmap/flashmap/page"
)

// Fetch returns the most recently stored value for key, or found=false
// if no value for key has ever been stored (or it was displaced by
// rotation, §8.1 property 3). Only the successful return of a prior
// Store guarantees Fetch observes it (§5).
func Fetch[K comparable, V any](ctx context.Context, d flash.Driver, r Region, codec item.Codec[K, V], key K) (value V, found bool, err error) {
	g := validate(d, r)
	rec, found, err := fetchWithLocation(ctx, d, r, g, codec, key)
	if err != nil || !found {
		var zero V
		return zero, false, err
	}
	return rec.Value, true, nil
}

// located pairs a decoded value with its on-flash location, so the store
// path's rotation step can tell whether a buffer page's copy of a key is
// still the newest one.
type located[V any] struct {
	item.Record[V]
}

// fetchWithLocation implements §4.4: locate the active tail, then scan
// backward across the contiguous run of Closed pages preceding it.
func fetchWithLocation[K comparable, V any](ctx context.Context, d flash.Driver, r Region, g page.Geometry, codec item.Codec[K, V], key K) (located[V], bool, error) {
	cache := page.NewStateCache(d, r, g)

	tail, ok, err := locateTail(ctx, d, r, g, cache)
	if err != nil {
		return located[V]{}, false, err
	}
	if !ok {
		return located[V]{}, false, nil
	}

	current := tail
	for {
		match, found, err := scanPageForKey(ctx, d, r, g, codec, current, key)
		if err != nil {
			return located[V]{}, false, err
		}
		if found {
			return located[V]{match}, true, nil
		}

		prev := page.Prev(r, g, current)
		st, err := cache.State(ctx, prev)
		if err != nil {
			return located[V]{}, false, errStorage(err)
		}
		if st != page.Closed {
			// Reached the Open gap (or something stranger): we've
			// looked through everything with data.
			return located[V]{}, false, nil
		}
		current = prev
	}
}

// locateTail finds the current Partial-Open page, or derives that the
// log is empty, or reports Corrupted if no configuration makes sense
// (§4.4 step 1).
func locateTail(ctx context.Context, d flash.Driver, r Region, g page.Geometry, cache *page.StateCache) (int, bool, error) {
	tail, found, err := cache.FindFirst(ctx, page.PartialOpen, 0)
	if err != nil {
		return 0, false, errStorage(err)
	}
	if found {
		return tail, true, nil
	}

	firstOpen, found, err := cache.FindFirst(ctx, page.Open, 0)
	if err != nil {
		return 0, false, errStorage(err)
	}
	if !found {
		return 0, false, errCorrupted("no open page found anywhere on the ring")
	}

	prev := page.Prev(r, g, firstOpen)
	st, err := cache.State(ctx, prev)
	if err != nil {
		return 0, false, errStorage(err)
	}
	switch st {
	case page.Closed:
		return prev, true, nil
	case page.Open:
		// All pages open: nothing has ever been stored.
		return 0, false, nil
	default:
		return 0, false, errCorrupted("page preceding the first open page is neither closed nor open")
	}
}

// scanPageForKey iterates every item on a page in log order and returns
// the last one matching key (later bytes are newer within a page).
func scanPageForKey[K comparable, V any](ctx context.Context, d flash.Driver, r Region, g page.Geometry, codec item.Codec[K, V], pageIndex int, key K) (item.Record[V], bool, error) {
	dataStart, dataEnd := page.DataZone(r, g, pageIndex)
	rd, err := item.NewReader(ctx, d, codec, g.Write, dataStart, dataEnd)
	if err != nil {
		return item.Record[V]{}, false, wrapReaderErr(err)
	}

	var (
		match item.Record[V]
		found bool
	)
	for {
		rec, ok, err := rd.Next(ctx)
		if err != nil {
			return item.Record[V]{}, false, wrapReaderErr(err)
		}
		if !ok {
			break
		}
		if codec.Key(rec.Value) == key {
			match = rec
			found = true
		}
	}
	return match, found, nil
}
