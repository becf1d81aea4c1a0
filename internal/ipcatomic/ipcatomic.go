// Package ipcatomic provides a file-backed, memory-mapped 8-byte
// atomic word (component F), used by internal/daemon for the
// daemon-state word and by any poll-signals consumer for a wrapping
// counter.
//
// Grounded on original_source/libs/chj-unix-util/src/polling_signals.rs
// and the DaemonStateAccessor in daemon.rs.
package ipcatomic

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Word is an 8-byte word mmap'd from a file, read/written with
// sequentially-consistent atomics.
//
// This assumes mmap yields an address aligned for 64-bit atomics. On
// every platform Go's runtime supports, mmap returns page-aligned
// memory, so an 8-byte word at offset 0 is always 8-byte aligned.
// Open still checks the alignment and returns an error if it fails;
// there is no lock-protected read-modify-write fallback.
type Word struct {
	file *os.File
	data []byte
	ptr  *uint64
}

// Open creates (if absent) or opens path, truncated/extended to 8
// bytes, and maps it.
func Open(path string) (*Word, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening ipc word file %s: %w", path, err)
	}
	if err := f.Truncate(8); err != nil {
		f.Close()
		return nil, fmt.Errorf("truncating ipc word file %s: %w", path, err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, 8, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap ipc word file %s: %w", path, err)
	}
	addr := uintptr(unsafe.Pointer(&data[0]))
	if addr%8 != 0 {
		unix.Munmap(data)
		f.Close()
		return nil, fmt.Errorf("mmap of %s returned a misaligned address; 64-bit atomics require 8-byte alignment", path)
	}
	return &Word{
		file: f,
		data: data,
		ptr:  (*uint64)(unsafe.Pointer(&data[0])),
	}, nil
}

// Load reads the word with sequential-consistency semantics.
func (w *Word) Load() uint64 {
	return atomic.LoadUint64(w.ptr)
}

// Store writes the word with sequential-consistency semantics.
func (w *Word) Store(v uint64) {
	atomic.StoreUint64(w.ptr, v)
}

// CompareAndSwap performs a CAS on the word.
func (w *Word) CompareAndSwap(old, new uint64) bool {
	return atomic.CompareAndSwapUint64(w.ptr, old, new)
}

// Close unmaps and closes the backing file.
func (w *Word) Close() error {
	if err := unix.Munmap(w.data); err != nil {
		w.file.Close()
		return fmt.Errorf("munmap: %w", err)
	}
	return w.file.Close()
}
