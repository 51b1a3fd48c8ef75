package item

import (
	"context"

	"github.com/flashmap/flashmap/flash"
)

// Record is one decoded item together with where it lives on flash: its
// absolute address and its on-flash length (the decoded length rounded
// up to a write-size multiple).
type Record[V any] struct {
	Value V
	Addr  uint32
	Len   uint32
}

// Reader lazily deserializes items from one page's data zone, in log
// order, using a fixed MaxSize window so the whole data zone never has
// to be buffered at once (§4.3). It terminates when the unread portion
// of the window is entirely 0xFF (the erased tail).
//
// Reader keeps a reference to the flash driver but holds no lock or other
// exclusive claim on it between Next calls, so a caller (the store path)
// can interleave reads from a Reader with its own writes to the same
// driver without a re-entrancy conflict (Design Notes §9).
type Reader[K comparable, V any] struct {
	driver    flash.Driver
	codec     Codec[K, V]
	writeSize uint32
	dataEnd   uint32

	window      [MaxSize]byte
	windowStart uint32
	used        int
	done        bool
}

// NewReader constructs a Reader over the data zone [dataStart, dataEnd)
// of a single page and performs the initial window fill.
func NewReader[K comparable, V any](ctx context.Context, driver flash.Driver, codec Codec[K, V], writeSize uint32, dataStart, dataEnd uint32) (*Reader[K, V], error) {
	r := &Reader[K, V]{
		driver:      driver,
		codec:       codec,
		writeSize:   writeSize,
		dataEnd:     dataEnd,
		windowStart: dataStart,
	}
	if err := r.topUp(ctx, 0); err != nil {
		return nil, err
	}
	return r, nil
}

// Next returns the next item in log order. ok is false and err is nil
// once the erased tail is reached; ok is false and err is non-nil if an
// item failed to decode.
func (r *Reader[K, V]) Next(ctx context.Context) (rec Record[V], ok bool, err error) {
	if r.done {
		return Record[V]{}, false, nil
	}
	for {
		if r.used == len(r.window) {
			if err := r.compactAndRefill(ctx); err != nil {
				r.done = true
				return Record[V]{}, false, err
			}
		}

		if allErased(r.window[r.used:]) {
			r.done = true
			return Record[V]{}, false, nil
		}

		value, usedBytes, decErr := r.codec.DeserializeFrom(r.window[r.used:])
		if decErr == nil {
			n := roundUp(usedBytes, r.writeSize)
			addr := r.windowStart + uint32(r.used)
			rec = Record[V]{Value: value, Addr: addr, Len: uint32(n)}
			r.used += n
			return rec, true, nil
		}

		if decErr.IsBufferTooSmall() && r.used > 0 {
			if err := r.compactAndRefill(ctx); err != nil {
				r.done = true
				return Record[V]{}, false, err
			}
			continue
		}

		// Either a genuine decode error, or a buffer-too-small with no
		// progress made (a full window that still can't fit the item) —
		// both are a contract violation/corruption signal, not something
		// compaction can fix.
		r.done = true
		return Record[V]{}, false, decErr
	}
}

// topUp fills the window's empty tail (the slot of size len(window)-
// unreadLen) by reading from flash starting right after the preserved
// prefix, padding with 0xFF past the page's data-zone end.
func (r *Reader[K, V]) topUp(ctx context.Context, unreadLen int) error {
	refillStart := r.windowStart + uint32(unreadLen)
	slot := len(r.window) - unreadLen

	var avail uint32
	if refillStart < r.dataEnd {
		avail = r.dataEnd - refillStart
	}
	readLen := slot
	if uint32(readLen) > avail {
		readLen = int(avail)
	}
	if readLen > 0 {
		if err := r.driver.Read(ctx, refillStart, r.window[unreadLen:unreadLen+readLen]); err != nil {
			return err
		}
	}
	for i := unreadLen + readLen; i < len(r.window); i++ {
		r.window[i] = 0xFF
	}
	r.used = 0
	return nil
}

// compactAndRefill slides the window forward by the bytes already
// consumed: the unread suffix moves to the front, then topUp reads the
// newly exposed bytes from flash.
func (r *Reader[K, V]) compactAndRefill(ctx context.Context) error {
	unreadLen := len(r.window) - r.used
	copy(r.window[:unreadLen], r.window[r.used:])
	r.windowStart += uint32(r.used)
	return r.topUp(ctx, unreadLen)
}

func allErased(b []byte) bool {
	for _, v := range b {
		if v != 0xFF {
			return false
		}
	}
	return true
}

func roundUp(n int, word uint32) int {
	w := int(word)
	if w <= 1 {
		return n
	}
	if rem := n % w; rem != 0 {
		n += w - rem
	}
	return n
}
