package ipcatomic

// PollingSignals wraps a Word as a wrapping uint64 signal counter: a
// reader keeps a private "seen" cursor and each poll returns the
// wrapping difference since it last looked, so senders and receivers
// need no synchronization beyond the atomic word itself.
//
// Grounded on original_source/libs/chj-unix-util/src/polling_signals.rs.
type PollingSignals struct {
	word *Word
	seen uint64
}

// OpenPollingSignals opens or creates the signal file at path.
func OpenPollingSignals(path string) (*PollingSignals, error) {
	w, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &PollingSignals{word: w, seen: w.Load()}, nil
}

// Poll returns how many signals have been sent since the last call
// (or since open, on the first call), using wrapping subtraction so a
// counter overflow never produces a spurious huge delta.
func (p *PollingSignals) Poll() uint64 {
	cur := p.word.Load()
	delta := cur - p.seen // wraps naturally on uint64 overflow
	p.seen = cur
	return delta
}

// Send increments the shared counter by one, visible to any poller.
func (p *PollingSignals) Send() {
	for {
		cur := p.word.Load()
		if p.word.CompareAndSwap(cur, cur+1) {
			return
		}
	}
}

// Close releases the underlying mapping.
func (p *PollingSignals) Close() error {
	return p.word.Close()
}
