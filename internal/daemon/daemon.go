package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/filelock"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/logger"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/unixproc"
	"golang.org/x/sys/unix"
)

// Opts mirrors the original's DaemonOpts: log rotation policy plus
// the local-vs-UTC timestamp choice, both handed straight through to
// internal/logger.
type Opts struct {
	LocalTime   bool
	MaxLogSize  int64 // bytes; 0 = no size-based rotation
	MaxLogFiles int   // 0 = unbounded
	ProcessName string
}

// StateReader is the read-only view of supervisor intent a running
// payload polls to decide whether to stop.
type StateReader interface {
	Want() Want
}

// Supervisor owns one daemon's state directory (the lock/state word
// and log directory) and knows how to start, stop, restart, signal
// and query it. One Supervisor exists per logical daemon (e.g. one
// per workspace); cmd/xmlhub constructs it from the resolved
// workspace path.
//
// Grounded on original_source/libs/chj-unix-util/src/daemon.rs's
// Daemon<F>/DaemonStateAccessor pair. The original forks twice inside
// start(): once for the daemon child, once for its logger. This port
// instead has Start launch two self-re-exec'd, detached (setsid)
// sibling processes directly — cmd/xmlhub's main recognizes the
// hidden run-child/logger-child invocations and calls RunChild/
// LoggerChild below — since the Go runtime cannot safely fork while
// its scheduler goroutines are live (SPEC_FULL.md §4.J).
type Supervisor struct {
	StateDir string
	LogDir   string
	Opts     Opts

	// Executable, if set, overrides os.Executable() (test seam).
	Executable func() (string, error)
	// RunArgs/LoggerArgs are the argv (after argv[0]) cmd/xmlhub needs
	// to re-invoke itself as the run-child / logger-child. Left to the
	// caller so this package stays free of cobra command names.
	RunArgs    []string
	LoggerArgs []string
}

func (s *Supervisor) statePath() string { return filepath.Join(s.StateDir, "daemon_state.mmap") }
func (s *Supervisor) lockPath() string  { return filepath.Join(s.StateDir, "daemon.lock") }

func (s *Supervisor) openState() (*State, error) {
	if err := os.MkdirAll(s.StateDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory %s: %w", s.StateDir, err)
	}
	return OpenState(s.statePath())
}

// IsRunning reports whether a run-child currently holds the exclusive
// lock, the Go equivalent of the original's non-blocking flock(LOCK_SH)
// probe: a shared-lock attempt that fails means an exclusive holder
// exists.
func (s *Supervisor) IsRunning() bool {
	lock, err := filelock.TryLock(s.lockPath(), false)
	if err != nil {
		return errors.Is(err, filelock.ErrAlreadyLocked)
	}
	lock.Unlock()
	return false
}

// StartResult reports what Start actually launched.
type StartResult struct {
	PID int
}

var ErrAlreadyRunning = errors.New("daemon already running")

// Start launches a detached run-child and its logger sibling, wiring
// the run-child's stdout/stderr into the logger's stdin via an
// anonymous pipe, and returns without waiting for either to exit.
func (s *Supervisor) Start() (*StartResult, error) {
	if s.IsRunning() {
		return nil, ErrAlreadyRunning
	}
	exe, err := s.executable()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory %s: %w", s.LogDir, err)
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating logger pipe: %w", err)
	}

	runCmd := exec.Command(exe, s.RunArgs...)
	runCmd.Stdout = pw
	runCmd.Stderr = pw
	unixproc.Detach(runCmd)
	if err := runCmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, fmt.Errorf("starting run child: %w", err)
	}
	pw.Close() // parent's copy; run child keeps its own

	// Started after the run-child so its pid is known; the original
	// forks the logger first only because fork() hands back the
	// child pid to its parent immediately either way, a constraint
	// that doesn't apply to this self-exec'd sibling-process design.
	loggerArgs := append(append([]string{}, s.LoggerArgs...), fmt.Sprint(runCmd.Process.Pid))
	loggerCmd := exec.Command(exe, loggerArgs...)
	loggerCmd.Stdin = pr
	loggerCmd.Stdout = nil
	loggerCmd.Stderr = nil
	unixproc.Detach(loggerCmd)
	if err := loggerCmd.Start(); err != nil {
		pr.Close()
		return nil, fmt.Errorf("starting logger child: %w", err)
	}
	pr.Close() // parent's copy; logger child keeps its own

	// Reap both children in the background so they never become
	// zombies once this (parent CLI) process is done; the children
	// themselves outlive this wait via setsid, unaffected by it.
	go loggerCmd.Wait()
	go runCmd.Wait()

	return &StartResult{PID: runCmd.Process.Pid}, nil
}

func (s *Supervisor) executable() (string, error) {
	if s.Executable != nil {
		return s.Executable()
	}
	return os.Executable()
}

// RunChild is the run-child's entry point: acquire the exclusive
// lock, record (Up, pid), run payload until it returns or `want`
// moves away from Up, then settle on a final state. It always runs
// payload's cleanup before returning, via defer — Go's guaranteed
// defer execution is this port's replacement for the original's
// panic-on-drop Bomb, since unlike a Rust abort a Go panic still runs
// deferred functions during unwinding.
func (s *Supervisor) RunChild(ctx context.Context, payload func(context.Context, StateReader) error) error {
	lock, err := filelock.TryLock(s.lockPath(), true)
	if err != nil {
		if errors.Is(err, filelock.ErrAlreadyLocked) {
			return ErrAlreadyRunning
		}
		return err
	}
	defer lock.Unlock()

	state, err := s.openState()
	if err != nil {
		return err
	}
	defer state.Close()

	pid := uint32(os.Getpid())
	state.Store(WantUp, pid)

	runErr := payload(ctx, stateReader{state})

	want, _ := state.Read()
	switch want {
	case WantRestart:
		state.Store(WantUp, pid)
		return s.reexecSelf()
	default:
		state.Store(WantDown, 0)
	}
	return runErr
}

type stateReader struct{ state *State }

func (r stateReader) Want() Want {
	want, _ := r.state.Read()
	return want
}

// reexecSelf replaces the current process image with a fresh
// invocation of the same run-child command line, so a restart keeps
// the same pid's lock hand-off as a no-op (the new image re-opens and
// re-acquires the same lock after exec). syscall.Exec never returns
// on success.
func (s *Supervisor) reexecSelf() error {
	exe, err := s.executable()
	if err != nil {
		return err
	}
	argv := append([]string{exe}, s.RunArgs...)
	return syscall.Exec(exe, argv, os.Environ())
}

// LoggerChild is the logger-child's entry point: read from stdin
// until EOF (the run-child's stdout/stderr dying closes the pipe),
// rotating into the supervisor's log directory.
func (s *Supervisor) LoggerChild(daemonPID int) error {
	return logger.Run(os.Stdin, daemonPID, logger.Options{
		Dir:          s.LogDir,
		MaxFileSize:  s.Opts.MaxLogSize,
		MaxFileCount: s.Opts.MaxLogFiles,
		UseLocalTime: s.Opts.LocalTime,
		ProcessName:  s.Opts.ProcessName,
	})
}

// Status reports the current persisted state without requiring the
// caller to hold any lock.
type Status struct {
	Running bool
	Want    Want
	PID     uint32
}

func (s *Supervisor) Status() (Status, error) {
	state, err := s.openState()
	if err != nil {
		return Status{}, err
	}
	defer state.Close()
	want, pid := state.Read()
	return Status{Running: s.IsRunning(), Want: want, PID: pid}, nil
}

// sendSignal delivers sig to the run-child's process group (negative
// pid), matching the original sending to the setsid'd daemon's whole
// group rather than just its leader.
func sendSignal(pid uint32, sig syscall.Signal) error {
	if pid == 0 {
		return fmt.Errorf("no recorded daemon pid to signal")
	}
	if err := unix.Kill(-int(pid), sig); err != nil {
		return fmt.Errorf("signaling process group -%d with %v: %w", pid, sig, err)
	}
	return nil
}

// StopOrRestart implements both `stop` and `restart`: in graceful
// mode it only updates `want` and optionally waits for the run-child
// to notice and exit; in force mode it signals directly (SIGINT, then
// SIGKILL after the timeout) regardless of whether the payload is
// polling `want` at all.
func (s *Supervisor) StopOrRestart(restart bool, opts StopOpts) (StopReport, error) {
	state, err := s.openState()
	if err != nil {
		return StopReport{}, err
	}
	defer state.Close()
	_, pid := state.Read()

	report := StopReport{WasPID: int(pid), WasRunning: s.IsRunning()}
	if !report.WasRunning {
		return report, nil
	}

	targetWant := WantDown
	if restart {
		targetWant = WantRestart
	}

	if opts.Force {
		report.SentSIGINT = true
		if err := sendSignal(pid, syscall.SIGINT); err != nil {
			return report, err
		}
		if opts.Wait || opts.TimeoutBeforeSigkill > 0 {
			deadline := time.Now().Add(time.Duration(opts.TimeoutBeforeSigkill) * time.Second)
			for s.IsRunning() && time.Now().Before(deadline) {
				time.Sleep(200 * time.Millisecond)
			}
			if s.IsRunning() {
				report.SentSIGKILL = true
				if err := sendSignal(pid, syscall.SIGKILL); err != nil {
					return report, err
				}
			}
		}
		return report, nil
	}

	state.StoreWant(targetWant)
	if opts.Wait {
		for {
			stillRunning := s.IsRunning()
			curWant, curPID := state.Read()
			if !stillRunning {
				break
			}
			if restart && curWant == WantUp && curPID != 0 {
				break
			}
			time.Sleep(200 * time.Millisecond)
		}
	}
	return report, nil
}

// SendControlSignal implements the raw STOP/CONT/KILL modes: send the
// named signal straight to the run-child's process group with no
// state-word involvement at all.
func (s *Supervisor) SendControlSignal(mode Mode) error {
	state, err := s.openState()
	if err != nil {
		return err
	}
	defer state.Close()
	_, pid := state.Read()

	switch mode {
	case ModeSTOP:
		return sendSignal(pid, syscall.SIGSTOP)
	case ModeCONT:
		return sendSignal(pid, syscall.SIGCONT)
	case ModeKILL:
		return sendSignal(pid, syscall.SIGKILL)
	default:
		return fmt.Errorf("SendControlSignal: not a raw-signal mode: %v", mode)
	}
}
