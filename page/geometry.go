// Package page implements the ring-of-pages address arithmetic and the
// page-state machine that the flash log is built on. The ring arithmetic
// (conversions between a ring offset, a page index and a byte address) is
// pure and allocation-free; reading and writing the two marker words that
// encode a page's state goes through a flash.Driver.
package page

import (
	"errors"
	"iter"
)

// Range is a half-open byte range [Start, End) carved out of the flash
// device for the log. Both ends must be a multiple of the erase size and
// the range must span at least two pages.
type Range struct {
	Start uint32
	End   uint32
}

// Len returns the number of bytes in the range.
func (r Range) Len() uint32 {
	return r.End - r.Start
}

// Geometry describes the flash medium's granularities. Read is always 1
// (byte-granular reads), Write is the word size and Erase is the page
// size.
type Geometry struct {
	Read  uint32
	Write uint32
	Erase uint32
}

var (
	// ErrBadGeometry is returned when a Geometry fails the core's
	// structural assumptions (read size other than 1, or erase size too
	// small relative to the word size).
	ErrBadGeometry = errors.New("page: geometry does not satisfy erase size >= 3*write size, read size == 1")
	// ErrBadRange is returned when the flash range is not page aligned
	// or does not span at least two pages.
	ErrBadRange = errors.New("page: range is not erase-size aligned or spans fewer than two pages")
)

// Validate checks the invariants §3.2 and §4.1 rely on: the data zone of
// a page must be non-empty (E >= 3W) and reads must be byte granular.
func (g Geometry) Validate() error {
	if g.Read != 1 {
		return ErrBadGeometry
	}
	if g.Erase < 3*g.Write {
		return ErrBadGeometry
	}
	return nil
}

// Validate checks that r is erase-size aligned and spans at least two
// pages under g.
func (r Range) Validate(g Geometry) error {
	if g.Erase == 0 || r.Start%g.Erase != 0 || r.End%g.Erase != 0 {
		return ErrBadRange
	}
	if r.Len() < 2*g.Erase {
		return ErrBadRange
	}
	return nil
}

// Count returns the number of pages (N) in the ring.
func Count(r Range, g Geometry) int {
	return int(r.Len() / g.Erase)
}

// Address returns the half-open byte range [start, end) occupied by the
// page at the given ring index.
func Address(r Range, g Geometry, index int) (start, end uint32) {
	start = r.Start + uint32(index)*g.Erase
	end = start + g.Erase
	return start, end
}

// DataZone returns the half-open byte range of the data zone of the page
// at index: the bytes between the header and footer marker words.
func DataZone(r Range, g Geometry, index int) (start, end uint32) {
	pageStart, pageEnd := Address(r, g, index)
	return pageStart + g.Write, pageEnd - g.Write
}

// IndexOf returns the ring index of the page containing addr.
func IndexOf(r Range, g Geometry, addr uint32) int {
	return int((addr - r.Start) / g.Erase)
}

// Next returns the ring-successor of index.
func Next(r Range, g Geometry, index int) int {
	n := Count(r, g)
	return (index + 1) % n
}

// Prev returns the ring-predecessor of index.
func Prev(r Range, g Geometry, index int) int {
	n := Count(r, g)
	return (index - 1 + n) % n
}

// All yields every page index on the ring, starting at from and walking
// forward exactly N steps.
func All(r Range, g Geometry, from int) iter.Seq[int] {
	n := Count(r, g)
	return func(yield func(int) bool) {
		idx := from
		for i := 0; i < n; i++ {
			if !yield(idx) {
				return
			}
			idx = Next(r, g, idx)
		}
	}
}
