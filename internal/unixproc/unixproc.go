// Package unixproc wraps the handful of raw Unix process primitives
// the daemon supervisor and worker need: setsid (via SysProcAttr on
// the self-exec'd child, since Go cannot fork+setsid in-process
// safely), setpriority, setrlimit, and prctl(PR_SET_NAME).
//
// Mechanism differs from the original (no fork — see
// internal/daemon's self-re-exec architecture) but the semantics
// (process becomes its own session leader, resource caps applied
// before running the payload, process renamed for observability) are
// the same ones original_source/libs/chj-unix-util/src/daemon.rs
// establishes around its fork point.
package unixproc

import (
	"fmt"
	"os/exec"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Detach configures cmd so that, once started, it becomes its own
// session leader (setsid) — the Go-idiomatic replacement for
// fork()+setsid() for a process we are about to re-exec into.
func Detach(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true
}

// SetProcessName applies prctl(PR_SET_NAME, name) to the calling
// process, for ps/top observability of the logger subprocess. Absent
// on non-Linux; callers should treat a non-nil error as a
// non-fatal warning (the teacher's own pattern of degrading gracefully
// off Linux).
func SetProcessName(name string) error {
	if len(name) > 15 {
		name = name[:15] // PR_SET_NAME truncates at 15 bytes + NUL
	}
	buf := make([]byte, 16)
	copy(buf, name)
	return unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&buf[0])), 0, 0, 0)
}

// ResourceLimits are the per-worker caps applied before running the
// indexing pipeline (SPEC_FULL.md §5, "Per-worker resource caps").
type ResourceLimits struct {
	AddressSpaceBytes uint64 // RLIMIT_AS soft+hard
	CPUSeconds        uint64 // RLIMIT_CPU soft; hard = soft+1
	Nice              int    // niceness to set (absolute, not added), 0 = unchanged
}

// Apply sets the resource limits on the calling process. Must be
// called from the worker child before it begins the pipeline; these
// limits are never applied to the supervisor itself.
func Apply(limits ResourceLimits) error {
	if limits.AddressSpaceBytes > 0 {
		rl := unix.Rlimit{Cur: limits.AddressSpaceBytes, Max: limits.AddressSpaceBytes}
		if err := unix.Setrlimit(unix.RLIMIT_AS, &rl); err != nil {
			return fmt.Errorf("setting RLIMIT_AS to %d: %w", limits.AddressSpaceBytes, err)
		}
	}
	if limits.CPUSeconds > 0 {
		rl := unix.Rlimit{Cur: limits.CPUSeconds, Max: limits.CPUSeconds + 1}
		if err := unix.Setrlimit(unix.RLIMIT_CPU, &rl); err != nil {
			return fmt.Errorf("setting RLIMIT_CPU to %d: %w", limits.CPUSeconds, err)
		}
	}
	if limits.Nice != 0 {
		if err := unix.Setpriority(unix.PRIO_PROCESS, 0, limits.Nice); err != nil {
			return fmt.Errorf("setting priority by %d: %w", limits.Nice, err)
		}
	}
	return nil
}
