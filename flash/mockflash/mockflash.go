// Package mockflash is an in-RAM flash.Driver for unit tests. It is
// adapted from chirst-cdb's pager.memoryStorage (a byte slice standing in
// for a file), extended to police the NOR-flash write/erase contract and
// to expose the cumulative erase/read/write counters spec.md §8.3 asks
// the test harness to assert wear-minimization with.
package mockflash

import (
	"context"
	"fmt"
)

// Flash is a byte-slice-backed flash.Driver. The zero value is not
// usable; construct one with New.
type Flash struct {
	buf       []byte
	readSize  uint32
	writeSize uint32
	eraseSize uint32

	Reads, Writes, Erases int
}

// New returns a Flash of size bytes (all erased to 0xFF) with the given
// word (write) and page (erase) sizes. Read granularity is always 1.
func New(size int, writeSize, eraseSize uint32) *Flash {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0xFF
	}
	return &Flash{
		buf:       buf,
		readSize:  1,
		writeSize: writeSize,
		eraseSize: eraseSize,
	}
}

func (f *Flash) ReadSize() uint32  { return f.readSize }
func (f *Flash) WriteSize() uint32 { return f.writeSize }
func (f *Flash) EraseSize() uint32 { return f.eraseSize }

// ReadCount, WriteCount and EraseCount satisfy repl.Counters, so
// flashmapctl's .stats command works against the mock backend.
func (f *Flash) ReadCount() int  { return f.Reads }
func (f *Flash) WriteCount() int { return f.Writes }
func (f *Flash) EraseCount() int { return f.Erases }

func (f *Flash) Read(_ context.Context, addr uint32, buf []byte) error {
	f.Reads++
	if int(addr)+len(buf) > len(f.buf) {
		return fmt.Errorf("mockflash: read out of bounds at %d len %d", addr, len(buf))
	}
	copy(buf, f.buf[addr:int(addr)+len(buf)])
	return nil
}

func (f *Flash) Write(_ context.Context, addr uint32, buf []byte) error {
	f.Writes++
	if addr%f.writeSize != 0 || uint32(len(buf))%f.writeSize != 0 {
		return fmt.Errorf("mockflash: write at %d len %d is not word aligned (word=%d)", addr, len(buf), f.writeSize)
	}
	if int(addr)+len(buf) > len(f.buf) {
		return fmt.Errorf("mockflash: write out of bounds at %d len %d", addr, len(buf))
	}
	for i, b := range buf {
		cur := f.buf[int(addr)+i]
		if cur&b != b {
			return fmt.Errorf("mockflash: write at %d attempted to set a 0-bit to 1", int(addr)+i)
		}
		f.buf[int(addr)+i] = cur & b
	}
	return nil
}

func (f *Flash) Erase(_ context.Context, start, end uint32) error {
	f.Erases++
	if start%f.eraseSize != 0 || end%f.eraseSize != 0 {
		return fmt.Errorf("mockflash: erase [%d, %d) is not page aligned (page=%d)", start, end, f.eraseSize)
	}
	if int(end) > len(f.buf) {
		return fmt.Errorf("mockflash: erase out of bounds [%d, %d)", start, end)
	}
	for i := start; i < end; i++ {
		f.buf[i] = 0xFF
	}
	return nil
}

// Snapshot returns a copy of the underlying bytes, useful for simulating
// a reboot by handing the bytes to a fresh Flash (see Restore).
func (f *Flash) Snapshot() []byte {
	out := make([]byte, len(f.buf))
	copy(out, f.buf)
	return out
}

// Restore rebuilds a Flash from bytes previously produced by Snapshot,
// with fresh (zeroed) operational counters. This is how tests simulate
// dropping and rebuilding the in-RAM driver state across a "reboot"
// (spec.md §8.1 property 4, scenario S6).
func Restore(bytes []byte, writeSize, eraseSize uint32) *Flash {
	buf := make([]byte, len(bytes))
	copy(buf, bytes)
	return &Flash{
		buf:       buf,
		readSize:  1,
		writeSize: writeSize,
		eraseSize: eraseSize,
	}
}
