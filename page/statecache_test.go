package page

import (
	"context"
	"testing"

	"github.com/flashmap/flashmap/flash/mockflash"
)

func TestStateCacheHitsAndInvalidate(t *testing.T) {
	ctx := context.Background()
	r := Range{Start: 0, End: 1024}
	g := Geometry{Read: 1, Write: 4, Erase: 256}
	d := mockflash.New(1024, g.Write, g.Erase)

	cache := NewStateCache(d, r, g)

	st, err := cache.State(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if st != Open {
		t.Errorf("want %v got %v", Open, st)
	}
	readsAfterFirst := d.Reads

	// A second read of the same page should hit the cache, not the driver.
	if _, err := cache.State(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if d.Reads != readsAfterFirst {
		t.Errorf("want no additional reads, driver reads went from %d to %d", readsAfterFirst, d.Reads)
	}

	if err := PartialClose(ctx, d, r, g, 0); err != nil {
		t.Fatal(err)
	}
	cache.Invalidate(0)

	st, err = cache.State(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if st != PartialOpen {
		t.Errorf("want %v after invalidate got %v", PartialOpen, st)
	}
}

func TestStateCacheEvictsOldestBeyondCapacity(t *testing.T) {
	ctx := context.Background()
	r := Range{Start: 0, End: uint32(stateCacheSize+4) * 256}
	g := Geometry{Read: 1, Write: 4, Erase: 256}
	d := mockflash.New(int(r.End), g.Write, g.Erase)

	cache := NewStateCache(d, r, g)
	for i := 0; i < stateCacheSize+4; i++ {
		if _, err := cache.State(ctx, i); err != nil {
			t.Fatal(err)
		}
	}

	if len(cache.cache) != stateCacheSize {
		t.Errorf("want cache size bounded at %d got %d", stateCacheSize, len(cache.cache))
	}
	if _, ok := cache.cache[0]; ok {
		t.Error("want page 0 evicted as least recently used")
	}
}
