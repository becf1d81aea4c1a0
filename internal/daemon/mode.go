// Package daemon implements the supervisor subsystem (component J):
// start/stop/restart/status of a long-running worker under a session
// leader, the want/pid state word, signal delivery, and the
// self-re-exec substitute for the original's fork-based backgrounding.
//
// Grounded on original_source/libs/chj-unix-util/src/daemon.rs: the
// DaemonMode/DaemonWant/StopOpts shapes and the start/stop/restart
// state machine are ported closely; the fork+setsid two-step is
// replaced by a self-re-exec (exec.Command on the os.Executable() path
// with SysProcAttr.Setsid) since the Go runtime cannot safely fork while
// its scheduler threads are running (SPEC_FULL.md §4.J, §1).
package daemon

import "fmt"

// Mode selects one daemon subcommand.
type Mode int

const (
	ModeRun Mode = iota
	ModeStart
	ModeStop
	ModeRestart
	ModeStatus
	ModeSTOP
	ModeCONT
	ModeKILL
)

// modeNames lists every accepted string per mode, including the
// start/up and stop/down aliases the original accepts.
var modeNames = []struct {
	names []string
	mode  Mode
}{
	{[]string{"run"}, ModeRun},
	{[]string{"start", "up"}, ModeStart},
	{[]string{"stop", "down"}, ModeStop},
	{[]string{"restart"}, ModeRestart},
	{[]string{"status"}, ModeStatus},
	{[]string{"STOP"}, ModeSTOP},
	{[]string{"CONT"}, ModeCONT},
	{[]string{"KILL"}, ModeKILL},
}

// ParseMode parses one of the accepted mode strings.
func ParseMode(s string) (Mode, error) {
	for _, m := range modeNames {
		for _, n := range m.names {
			if s == n {
				return m.mode, nil
			}
		}
	}
	return 0, fmt.Errorf("expecting one of run/start(up)/stop(down)/restart/status/STOP/CONT/KILL, got %q", s)
}

func (m Mode) String() string {
	switch m {
	case ModeRun:
		return "run"
	case ModeStart:
		return "start"
	case ModeStop:
		return "stop"
	case ModeRestart:
		return "restart"
	case ModeStatus:
		return "status"
	case ModeSTOP:
		return "STOP"
	case ModeCONT:
		return "CONT"
	case ModeKILL:
		return "KILL"
	default:
		return "invalid"
	}
}

// StopOpts configures Stop/Restart's termination behavior.
type StopOpts struct {
	// Force sends SIGINT then, after TimeoutBeforeSigkill, SIGKILL,
	// instead of the default graceful want=Down signal-less request.
	Force bool
	// Wait, in graceful mode, blocks until the daemon has stopped or
	// restarted; with Force it enables the SIGKILL escalation even when
	// TimeoutBeforeSigkill is 0.
	Wait                 bool
	TimeoutBeforeSigkill uint32 // seconds
}

// StopReport summarizes what Stop/Restart actually did.
type StopReport struct {
	WasPID      int
	WasRunning  bool
	SentSIGINT  bool
	SentSIGKILL bool
	Crashed     bool
}
