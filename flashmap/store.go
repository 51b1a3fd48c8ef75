package flashmap

import (
	"context"

	"github.com/flashmap/flashmap/flash"
	"github.com/flashmap/flashmap/item"
	"github.com/flashmap/flashmap/page"
)

// Store durably records value, overwriting the latest value previously
// stored under the same key. It returns ErrFullStorage if no room could
// be freed after rotating through every page on the ring (§4.5); the
// item is then not written and all previously stored items remain
// intact.
func Store[K comparable, V any](ctx context.Context, d flash.Driver, r Region, codec item.Codec[K, V], value V) error {
	g := validate(d, r)
	// One StateCache is shared across every rotation this call performs,
	// so a page-state read stays valid across recursive storeAttempt
	// retries until this call itself mutates that page (Invalidate
	// below). It is never retained past this call, so it doesn't violate
	// the "no in-RAM index between calls" invariant.
	cache := page.NewStateCache(d, r, g)
	return storeAttempt(ctx, d, r, g, cache, codec, value, 0)
}

// storeAttempt is the bounded recursion of §4.5: recursion_level ==
// page count means every page has been tried once this call and none
// had room, which can only happen if rotation is churning without
// making progress (spec.md §9's infinite-recursion guard).
func storeAttempt[K comparable, V any](ctx context.Context, d flash.Driver, r Region, g page.Geometry, cache *page.StateCache, codec item.Codec[K, V], value V, level int) error {
	if level == page.Count(r, g) {
		return ErrFullStorage
	}

	tail, found, err := cache.FindFirst(ctx, page.PartialOpen, 0)
	if err != nil {
		return errStorage(err)
	}
	if found {
		wrote, err := appendToTail(ctx, d, r, g, codec, value, tail)
		if err != nil {
			return err
		}
		if wrote {
			return nil
		}
		// The item didn't fit: close this page and rotate into its
		// successor.
		if err := page.Close(ctx, d, r, g, tail); err != nil {
			return errStorage(err)
		}
		cache.Invalidate(tail)
		next := page.Next(r, g, tail)
		if err := rotate(ctx, d, r, g, cache, codec, next, true); err != nil {
			return err
		}
		return storeAttempt(ctx, d, r, g, cache, codec, value, level+1)
	}

	if err := rotate(ctx, d, r, g, cache, codec, 0, false); err != nil {
		return err
	}
	return storeAttempt(ctx, d, r, g, cache, codec, value, level+1)
}

// appendToTail implements the fast path (§4.5.1): find the first free
// address in the Partial-Open page by streaming its items, then try to
// serialize value into whatever room is left. wrote is false (with a nil
// error) when the item simply doesn't fit and the caller should rotate.
func appendToTail[K comparable, V any](ctx context.Context, d flash.Driver, r Region, g page.Geometry, codec item.Codec[K, V], value V, tail int) (wrote bool, err error) {
	dataStart, dataEnd := page.DataZone(r, g, tail)

	rd, err := item.NewReader(ctx, d, codec, g.Write, dataStart, dataEnd)
	if err != nil {
		return false, wrapReaderErr(err)
	}
	freeAddr := dataStart
	for {
		rec, ok, err := rd.Next(ctx)
		if err != nil {
			return false, wrapReaderErr(err)
		}
		if !ok {
			break
		}
		freeAddr = rec.Addr + rec.Len
	}

	available := dataEnd - freeAddr
	limit := uint32(item.MaxSize)
	if available < limit {
		limit = available
	}

	buf := make([]byte, limit)
	used, serErr := codec.SerializeInto(value, buf)
	if serErr == nil {
		n := roundUpWord(used, g.Write)
		if err := d.Write(ctx, freeAddr, buf[:n]); err != nil {
			return false, errStorage(err)
		}
		return true, nil
	}
	if serErr.IsBufferTooSmall() {
		return false, nil
	}
	return false, errItem(serErr)
}

// rotate implements §4.5.2. When closedPartial is true, nextPageToUse is
// the ring-successor of the page that was just closed and must already
// be Open. When closedPartial is false, the first Open page on the ring
// is promoted instead.
func rotate[K comparable, V any](ctx context.Context, d flash.Driver, r Region, g page.Geometry, cache *page.StateCache, codec item.Codec[K, V], nextPageToUse int, closedPartial bool) error {
	var target int
	if closedPartial {
		st, err := cache.State(ctx, nextPageToUse)
		if err != nil {
			return errStorage(err)
		}
		if st != page.Open {
			return errCorrupted("page following the just-closed tail is not open")
		}
		target = nextPageToUse
	} else {
		first, found, err := cache.FindFirst(ctx, page.Open, 0)
		if err != nil {
			return errStorage(err)
		}
		if !found {
			return errCorrupted("no open pages found for rotation")
		}
		target = first
	}

	buffer := page.Next(r, g, target)
	bufferState, err := cache.State(ctx, buffer)
	if err != nil {
		return errStorage(err)
	}
	if bufferState != page.Open {
		if err := migrate(ctx, d, r, g, codec, target, buffer); err != nil {
			return err
		}
		start, end := page.Address(r, g, buffer)
		if err := d.Erase(ctx, start, end); err != nil {
			return errStorage(err)
		}
		cache.Invalidate(buffer)
	}

	if err := page.PartialClose(ctx, d, r, g, target); err != nil {
		return errStorage(err)
	}
	cache.Invalidate(target)
	return nil
}

// migrate copies every item in buffer whose newest version still lives
// on buffer forward into target's data zone, in the order they were
// read (so the copies stay monotonic in log time). It must run to
// completion before buffer is erased: an interruption here is safely
// replayable on reboot, since the partially migrated target just
// contains duplicates of records still present on buffer, and fetch's
// newest-wins rule picks whichever copy is later in log order (§4.5.2).
func migrate[K comparable, V any](ctx context.Context, d flash.Driver, r Region, g page.Geometry, codec item.Codec[K, V], target, buffer int) error {
	writeStart, _ := page.DataZone(r, g, target)
	writeAddr := writeStart

	bufStart, bufEnd := page.DataZone(r, g, buffer)
	rd, err := item.NewReader(ctx, d, codec, g.Write, bufStart, bufEnd)
	if err != nil {
		return wrapReaderErr(err)
	}

	for {
		rec, ok, err := rd.Next(ctx)
		if err != nil {
			return wrapReaderErr(err)
		}
		if !ok {
			break
		}

		key := codec.Key(rec.Value)
		newest, found, err := fetchWithLocation(ctx, d, r, g, codec, key)
		if err != nil {
			return err
		}
		if !found {
			return errCorrupted("key present on the buffer page vanished on re-fetch")
		}

		if page.IndexOf(r, g, newest.Addr) != buffer {
			continue
		}

		raw := make([]byte, newest.Len)
		if err := d.Read(ctx, newest.Addr, raw); err != nil {
			return errStorage(err)
		}
		if err := d.Write(ctx, writeAddr, raw); err != nil {
			return errStorage(err)
		}
		writeAddr += newest.Len
	}
	return nil
}

func roundUpWord(n int, word uint32) int {
	w := int(word)
	if w <= 1 {
		return n
	}
	if rem := n % w; rem != 0 {
		n += w - rem
	}
	return n
}
