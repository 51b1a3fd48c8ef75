// Package flash defines the contract the core expects from a storage
// medium (§6.1), which the concrete driver implementations in this
// repository (flash/mockflash, flash/filestore, flash/spiflash) satisfy.
package flash

import "context"

// Driver is the flash-driver contract the core consumes. All operations
// may fail with a driver-specific error which the core surfaces
// unchanged (wrapped in a flashmap.MapError of KindStorage).
//
// Write must only clear 1-bits to 0 and must be word-aligned in both
// address and length. Erase restores a page-aligned range to all-0xFF.
// Read is byte granular and always succeeds for addresses inside the
// caller's flash range.
type Driver interface {
	// ReadSize is the read granularity in bytes. The core requires this
	// to be 1.
	ReadSize() uint32
	// WriteSize is the word size in bytes (W).
	WriteSize() uint32
	// EraseSize is the page size in bytes (E). The core requires
	// EraseSize >= 3*WriteSize.
	EraseSize() uint32

	// Read fills buf from the byte-addressed offset.
	Read(ctx context.Context, addr uint32, buf []byte) error
	// Write clears bits in [addr, addr+len(buf)) to match buf. addr and
	// len(buf) must both be multiples of WriteSize.
	Write(ctx context.Context, addr uint32, buf []byte) error
	// Erase restores [start, end) to all-0xFF. start and end must both
	// be multiples of EraseSize.
	Erase(ctx context.Context, start, end uint32) error
}
