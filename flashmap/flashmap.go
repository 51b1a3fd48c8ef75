// Package flashmap implements the fetch and store procedures of the
// log-structured key-value store: locating the active tail from on-flash
// state alone, scanning backward for the newest value of a key, and
// rotating the two-sector buffer forward when the tail fills. No
// in-RAM index is kept between calls; every call re-derives the log's
// state from the flash headers it reads.
package flashmap

import (
	"fmt"

	"github.com/flashmap/flashmap/flash"
	"github.com/flashmap/flashmap/page"
)

// Region is the half-open byte range the store operates in. Alias of
// page.Range so callers of this package don't need to import page
// directly for the common case.
type Region = page.Range

func geometryOf(d flash.Driver) page.Geometry {
	return page.Geometry{
		Read:  d.ReadSize(),
		Write: d.WriteSize(),
		Erase: d.EraseSize(),
	}
}

// validate enforces the structural preconditions spec.md §3.1/§3.2 place
// on the caller (erase-aligned range spanning >= 2 pages, E >= 3W, byte
// granular reads). Like the assert!s in the reference implementation,
// these are contract violations by the caller, not operational failures,
// so a violation panics rather than returning a MapError.
func validate(d flash.Driver, r Region) page.Geometry {
	g := geometryOf(d)
	if err := g.Validate(); err != nil {
		panic(fmt.Sprintf("flashmap: %v", err))
	}
	if err := r.Validate(g); err != nil {
		panic(fmt.Sprintf("flashmap: %v", err))
	}
	return g
}
