package page

import (
	"context"
	"fmt"

	"github.com/flashmap/flashmap/flash"
)

// State is a page's logical state, derived from whether its header and
// footer marker words are erased (§3.2).
type State int

const (
	// Open is a blank, usable page: both markers are erased.
	Open State = iota
	// PartialOpen is the active tail: header written, footer erased.
	PartialOpen
	// Closed is an immutable page: both markers written.
	Closed
	// Corrupted is an impossible combination: footer written while the
	// header is still erased.
	Corrupted
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case PartialOpen:
		return "partial-open"
	case Closed:
		return "closed"
	default:
		return "corrupted"
	}
}

// marker is the non-0xFF word written to close off a header or footer.
// Any non-0xFF word satisfies the contract; zero maximizes bit-clearing
// safety if a marker is ever (erroneously) written over an existing one.
func marker(writeSize uint32) []byte {
	return make([]byte, writeSize)
}

func isErased(word []byte) bool {
	for _, b := range word {
		if b != 0xFF {
			return false
		}
	}
	return true
}

// ReadState reads the header and footer marker words of the page at
// index and classifies it per the table in §3.2.
func ReadState(ctx context.Context, d flash.Driver, r Range, g Geometry, index int) (State, error) {
	start, end := Address(r, g, index)
	header := make([]byte, g.Write)
	if err := d.Read(ctx, start, header); err != nil {
		return Corrupted, fmt.Errorf("page: read header of page %d: %w", index, err)
	}
	footer := make([]byte, g.Write)
	if err := d.Read(ctx, end-g.Write, footer); err != nil {
		return Corrupted, fmt.Errorf("page: read footer of page %d: %w", index, err)
	}
	headerErased := isErased(header)
	footerErased := isErased(footer)
	switch {
	case headerErased && footerErased:
		return Open, nil
	case !headerErased && footerErased:
		return PartialOpen, nil
	case !headerErased && !footerErased:
		return Closed, nil
	default: // headerErased && !footerErased
		return Corrupted, nil
	}
}

// PartialClose promotes an Open page to PartialOpen by writing its
// header marker. The caller must have already confirmed the page is
// Open.
func PartialClose(ctx context.Context, d flash.Driver, r Range, g Geometry, index int) error {
	start, _ := Address(r, g, index)
	if err := d.Write(ctx, start, marker(g.Write)); err != nil {
		return fmt.Errorf("page: partial-close page %d: %w", index, err)
	}
	return nil
}

// Close demotes a PartialOpen page to Closed by writing its footer
// marker. The caller must have already confirmed the page is
// PartialOpen.
func Close(ctx context.Context, d flash.Driver, r Range, g Geometry, index int) error {
	_, end := Address(r, g, index)
	if err := d.Write(ctx, end-g.Write, marker(g.Write)); err != nil {
		return fmt.Errorf("page: close page %d: %w", index, err)
	}
	return nil
}

// FindFirst returns the lowest ring-offset page index from startOffset
// whose state equals want, or found=false if no such page exists on the
// ring.
func FindFirst(ctx context.Context, d flash.Driver, r Range, g Geometry, want State, startOffset int) (index int, found bool, err error) {
	for idx := range All(r, g, startOffset) {
		st, err := ReadState(ctx, d, r, g, idx)
		if err != nil {
			return 0, false, err
		}
		if st == want {
			return idx, true, nil
		}
	}
	return 0, false, nil
}
