// Package filestore backs a flash.Driver with a regular file, guarded by
// an advisory flock so multiple processes opening the same file behave
// like independent handles onto one flash chip. Adapted from the
// teacher's pager fileStorage and filelock.
package filestore

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"syscall"
)

// Flash is a flash.Driver backed by a single file on disk. The file is
// grown to size bytes (filled with 0xFF, matching an erased NOR chip) the
// first time it is opened.
type Flash struct {
	file *os.File
	lock *fileLock

	size      int64
	readSize  uint32
	writeSize uint32
	eraseSize uint32
}

// Open opens (creating if necessary) path as a size-byte flash image with
// the given write and erase granularities. Read granularity is always 1.
func Open(path string, size int64, writeSize, eraseSize uint32) (*Flash, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("filestore: open %s: %w", path, err)
	}

	lk, err := newFileLock(f.Fd())
	if err != nil {
		f.Close()
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("filestore: stat %s: %w", path, err)
	}
	if fi.Size() < size {
		if err := growErased(f, fi.Size(), size); err != nil {
			f.Close()
			return nil, err
		}
	}

	return &Flash{
		file:      f,
		lock:      lk,
		size:      size,
		readSize:  1,
		writeSize: writeSize,
		eraseSize: eraseSize,
	}, nil
}

func growErased(f *os.File, from, to int64) error {
	const chunk = 64 * 1024
	buf := make([]byte, chunk)
	for i := range buf {
		buf[i] = 0xFF
	}
	for off := from; off < to; off += chunk {
		n := chunk
		if off+int64(n) > to {
			n = int(to - off)
		}
		if _, err := f.WriteAt(buf[:n], off); err != nil {
			return fmt.Errorf("filestore: grow: %w", err)
		}
	}
	return nil
}

func (f *Flash) Close() error {
	return f.file.Close()
}

func (f *Flash) ReadSize() uint32  { return f.readSize }
func (f *Flash) WriteSize() uint32 { return f.writeSize }
func (f *Flash) EraseSize() uint32 { return f.eraseSize }

func (f *Flash) Read(ctx context.Context, addr uint32, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if int64(addr)+int64(len(buf)) > f.size {
		return fmt.Errorf("filestore: read out of range at %d len %d", addr, len(buf))
	}
	if err := f.lock.RLock(); err != nil {
		return err
	}
	defer f.lock.RUnlock()
	_, err := f.file.ReadAt(buf, int64(addr))
	return err
}

func (f *Flash) Write(ctx context.Context, addr uint32, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.writeSize != 0 && (addr%f.writeSize != 0 || len(buf)%int(f.writeSize) != 0) {
		return fmt.Errorf("filestore: write at %d len %d is not write-size aligned", addr, len(buf))
	}
	if int64(addr)+int64(len(buf)) > f.size {
		return fmt.Errorf("filestore: write out of range at %d len %d", addr, len(buf))
	}

	if err := f.lock.Lock(); err != nil {
		return err
	}
	defer f.lock.Unlock()

	cur := make([]byte, len(buf))
	if _, err := f.file.ReadAt(cur, int64(addr)); err != nil {
		return fmt.Errorf("filestore: write read-modify: %w", err)
	}
	for i, b := range buf {
		if cur[i]&b != b {
			return fmt.Errorf("filestore: write at %d would set an erased bit", addr)
		}
	}

	_, err := f.file.WriteAt(buf, int64(addr))
	return err
}

func (f *Flash) Erase(ctx context.Context, start, end uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.eraseSize != 0 && (start%f.eraseSize != 0 || end%f.eraseSize != 0) {
		return fmt.Errorf("filestore: erase [%d,%d) is not erase-size aligned", start, end)
	}
	if int64(end) > f.size {
		return fmt.Errorf("filestore: erase out of range [%d,%d)", start, end)
	}

	if err := f.lock.Lock(); err != nil {
		return err
	}
	defer f.lock.Unlock()

	buf := make([]byte, end-start)
	for i := range buf {
		buf[i] = 0xFF
	}
	_, err := f.file.WriteAt(buf, int64(start))
	return err
}

// fileLock is an advisory cross-process RWMutex over a file descriptor,
// paired with an in-process RWMutex since flock only arbitrates between
// processes, not goroutines within one.
type fileLock struct {
	fd     int
	inproc sync.RWMutex
}

func newFileLock(fd uintptr) (*fileLock, error) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		return nil, fmt.Errorf("filestore: advisory file locking unsupported on %s", runtime.GOOS)
	}
	return &fileLock{fd: int(fd)}, nil
}

func (l *fileLock) Lock() error {
	l.inproc.Lock()
	if err := syscall.Flock(l.fd, syscall.LOCK_EX); err != nil {
		l.inproc.Unlock()
		return fmt.Errorf("filestore: flock LOCK_EX: %w", err)
	}
	return nil
}

func (l *fileLock) Unlock() {
	if err := syscall.Flock(l.fd, syscall.LOCK_UN); err != nil {
		panic(fmt.Sprintf("filestore: flock LOCK_UN: %s", err))
	}
	l.inproc.Unlock()
}

func (l *fileLock) RLock() error {
	l.inproc.RLock()
	if err := syscall.Flock(l.fd, syscall.LOCK_SH); err != nil {
		l.inproc.RUnlock()
		return fmt.Errorf("filestore: flock LOCK_SH: %w", err)
	}
	return nil
}

func (l *fileLock) RUnlock() {
	if err := syscall.Flock(l.fd, syscall.LOCK_UN); err != nil {
		panic(fmt.Sprintf("filestore: flock LOCK_UN: %s", err))
	}
	l.inproc.RUnlock()
}
