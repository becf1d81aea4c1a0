package daemon

import (
	"fmt"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/backoff"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/ipcatomic"
)

// Want is the supervisor's persistent intent, stored alongside the
// current worker PID in a single ipcatomic.Word so both can be read
// or swapped atomically without a separate lock.
//
// Grounded on the DaemonWant enum and DaemonStateAccessor in
// original_source/libs/chj-unix-util/src/daemon.rs: Want packs into
// the word's upper 32 bits, the worker PID (0 if none) into the lower
// 32 bits, matching the original's single-u64-word encoding.
type Want uint32

const (
	WantDown    Want = 'd'
	WantUp      Want = 'u'
	WantRestart Want = 'r'
)

func (w Want) String() string {
	switch w {
	case WantDown:
		return "down"
	case WantUp:
		return "up"
	case WantRestart:
		return "restart"
	default:
		return fmt.Sprintf("Want(%d)", uint32(w))
	}
}

// State reads and writes the packed (want, pid) word.
type State struct {
	word *ipcatomic.Word
}

// OpenState opens or creates the state word file at path.
func OpenState(path string) (*State, error) {
	w, err := ipcatomic.Open(path)
	if err != nil {
		return nil, err
	}
	return &State{word: w}, nil
}

func pack(want Want, pid uint32) uint64 {
	return uint64(want)<<32 | uint64(pid)
}

func unpack(v uint64) (Want, uint32) {
	return Want(v >> 32), uint32(v)
}

// Read returns the current (want, pid) pair.
func (s *State) Read() (Want, uint32) {
	return unpack(s.word.Load())
}

// Store unconditionally sets (want, pid).
func (s *State) Store(want Want, pid uint32) {
	s.word.Store(pack(want, pid))
}

// StoreWant swaps only the want half, retrying via backoff.Retry to
// ride out concurrent pid updates from the running worker (e.g. the
// self-exec restart path rewriting its own pid at the same moment a
// `stop` command is setting want=down).
func (s *State) StoreWant(want Want) {
	backoff.Retry(func() (struct{}, error) {
		old := s.word.Load()
		_, pid := unpack(old)
		if s.word.CompareAndSwap(old, pack(want, pid)) {
			return struct{}{}, nil
		}
		return struct{}{}, fmt.Errorf("CAS contention setting want=%v", want)
	})
}

// StorePID swaps only the pid half, retrying the same way.
func (s *State) StorePID(pid uint32) {
	backoff.Retry(func() (struct{}, error) {
		old := s.word.Load()
		want, _ := unpack(old)
		if s.word.CompareAndSwap(old, pack(want, pid)) {
			return struct{}{}, nil
		}
		return struct{}{}, fmt.Errorf("CAS contention setting pid=%d", pid)
	})
}

func (s *State) Close() error {
	return s.word.Close()
}
