// Package daemonregistry tracks running supervisor daemons across
// workspaces, so `xmlhub daemon status` run from any directory can
// list every daemon on the machine and detect stale (crashed, never
// unregistered) entries.
//
// Adapted from the teacher's internal/daemon/registry.go: same
// exclusive-file-lock read-modify-write pattern and atomic
// temp-file-then-rename persistence, generalized to this package's
// single-daemon-per-workspace entry shape (no socket/database fields —
// this domain's daemon exposes no RPC surface, only the ipcatomic
// word and its log file) and built on internal/filelock instead of
// the teacher's internal/lockfile.
package daemonregistry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/filelock"
)

// Entry is one running daemon's registration record.
type Entry struct {
	WorkspacePath string    `json:"workspace_path"`
	PID           int       `json:"pid"`
	Version       string    `json:"version"`
	StartedAt     time.Time `json:"started_at"`
}

// Registry manages the machine-global daemon registry file, stored at
// ~/.xmlhub/registry.json.
type Registry struct {
	path     string
	lockPath string
	mu       sync.Mutex // in-process mutex; cross-process uses the file lock
}

func New() (*Registry, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}
	dir := filepath.Join(home, ".xmlhub")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	return &Registry{
		path:     filepath.Join(dir, "registry.json"),
		lockPath: filepath.Join(dir, "registry.lock"),
	}, nil
}

func (r *Registry) withLock(fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return filelock.WithLock(r.lockPath, fn)
}

func (r *Registry) readLocked() ([]Entry, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading registry: %w", err)
	}
	if len(bytesTrim(data)) == 0 {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		// A corrupted registry just means daemons get rediscovered on
		// next register; don't fail the caller over it.
		return nil, nil
	}
	return entries, nil
}

func bytesTrim(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c != 0 && c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) writeLocked(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling registry: %w", err)
	}
	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, "registry-*.json.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file into place: %w", err)
	}
	return nil
}

// Register adds or replaces entry, keyed by workspace path.
func (r *Registry) Register(entry Entry) error {
	return r.withLock(func() error {
		entries, err := r.readLocked()
		if err != nil {
			return err
		}
		filtered := entries[:0:0]
		for _, e := range entries {
			if e.WorkspacePath != entry.WorkspacePath && e.PID != entry.PID {
				filtered = append(filtered, e)
			}
		}
		filtered = append(filtered, entry)
		return r.writeLocked(filtered)
	})
}

// Unregister removes any entry matching workspacePath or pid.
func (r *Registry) Unregister(workspacePath string, pid int) error {
	return r.withLock(func() error {
		entries, err := r.readLocked()
		if err != nil {
			return err
		}
		filtered := entries[:0:0]
		for _, e := range entries {
			if e.WorkspacePath != workspacePath && e.PID != pid {
				filtered = append(filtered, e)
			}
		}
		return r.writeLocked(filtered)
	})
}

// List returns all live entries, pruning and persisting removal of
// any whose PID is no longer running.
func (r *Registry) List(isAlive func(pid int) bool) ([]Entry, error) {
	var live []Entry
	err := r.withLock(func() error {
		entries, err := r.readLocked()
		if err != nil {
			return err
		}
		for _, e := range entries {
			if isAlive(e.PID) {
				live = append(live, e)
			}
		}
		if len(live) != len(entries) {
			if err := r.writeLocked(live); err != nil {
				return fmt.Errorf("pruning stale registry entries: %w", err)
			}
		}
		return nil
	})
	return live, err
}

// Clear removes all entries (used by tests).
func (r *Registry) Clear() error {
	return r.withLock(func() error {
		return r.writeLocked(nil)
	})
}
