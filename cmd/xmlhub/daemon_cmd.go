package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/config"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/daemon"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/daemonregistry"
	"github.com/spf13/cobra"
)

// runChildArg/loggerChildArg are the hidden argv markers Start passes
// to the self-re-exec'd children; they never appear in --help since
// they're matched before cobra even sees the arguments (see
// dispatchHiddenChild below, which main calls before Execute).
const (
	runChildArg    = "__xmlhub-daemon-run-child"
	loggerChildArg = "__xmlhub-daemon-logger-child"
)

var (
	daemonForce   bool
	daemonWait    bool
	daemonTimeout uint32
)

var daemonCmd = &cobra.Command{
	Use:   "daemon <run|start|stop|restart|status|STOP|CONT|KILL>",
	Short: "Control the supervisor daemon that rebuilds the index on change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := daemon.ParseMode(args[0])
		if err != nil {
			return err
		}
		return runDaemonMode(cmd, mode)
	},
}

func init() {
	daemonCmd.Flags().BoolVar(&daemonForce, "force", false, "stop/restart: signal (SIGINT then SIGKILL) instead of a graceful want-flip")
	daemonCmd.Flags().BoolVar(&daemonWait, "wait", false, "stop/restart: block until the daemon has actually stopped/restarted")
	daemonCmd.Flags().Uint32Var(&daemonTimeout, "timeout", 10, "stop/restart --force: seconds to wait before escalating to SIGKILL")
}

func supervisorForCWD() (*daemon.Supervisor, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}
	stateDir := filepath.Join(home, ".xmlhub", "daemons", daemonSlug(wd))
	return &daemon.Supervisor{
		StateDir:   filepath.Join(stateDir, "state"),
		LogDir:     filepath.Join(stateDir, "log"),
		RunArgs:    []string{runChildArg, wd},
		LoggerArgs: []string{loggerChildArg},
		Opts: daemon.Opts{
			MaxLogSize:  10_000_000,
			MaxLogFiles: 50,
			ProcessName: "xmlhub-daemon",
		},
	}, nil
}

// daemonSlug turns a workspace path into a filesystem-safe directory
// component, so distinct workspaces never collide under ~/.xmlhub.
func daemonSlug(path string) string {
	out := make([]rune, 0, len(path))
	for _, r := range path {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func runDaemonMode(cmd *cobra.Command, mode daemon.Mode) error {
	sup, err := supervisorForCWD()
	if err != nil {
		return err
	}

	stopOpts := daemon.StopOpts{Force: daemonForce, Wait: daemonWait, TimeoutBeforeSigkill: daemonTimeout}

	var payload func(context.Context, daemon.StateReader) error
	if mode == daemon.ModeRun {
		payload = rebuildLoopPayload(cmd)
	}

	result, err := sup.Execute(cmd.Context(), mode, stopOpts, payload)
	if err != nil {
		return err
	}

	switch mode {
	case daemon.ModeStart:
		reg, rerr := daemonregistry.New()
		if rerr == nil && result.Started != nil {
			wd, _ := os.Getwd()
			_ = reg.Register(daemonregistry.Entry{
				WorkspacePath: wd,
				PID:           result.Started.PID,
				Version:       buildVersion,
				StartedAt:     time.Now(),
			})
		}
		if result.AlreadyDone {
			fmt.Println("daemon already running")
		} else {
			fmt.Printf("daemon started (pid %d)\n", result.Started.PID)
		}
	case daemon.ModeStatus:
		printStatus(*result.Status)
	case daemon.ModeStop, daemon.ModeRestart:
		printStopReport(mode, *result.Stopped)
	}
	return nil
}

func printStatus(st daemon.Status) {
	if jsonOut {
		fmt.Printf("{\"running\":%v,\"want\":%q,\"pid\":%d}\n", st.Running, st.Want, st.PID)
		return
	}
	if !st.Running {
		fmt.Println("not running")
		return
	}
	fmt.Printf("running (pid %d, want=%s)\n", st.PID, st.Want)
}

func printStopReport(mode daemon.Mode, r daemon.StopReport) {
	if !r.WasRunning {
		fmt.Println("was not running")
		return
	}
	verb := "stopped"
	if mode == daemon.ModeRestart {
		verb = "restarted"
	}
	fmt.Printf("%s (was pid %d, sent SIGINT=%v SIGKILL=%v)\n", verb, r.WasPID, r.SentSIGINT, r.SentSIGKILL)
}

// rebuildLoopPayload is the body ModeRun executes: rebuild, then sleep
// a fixed daemon.rebuild-interval (30s when unset) and rebuild again,
// until StateReader reports `want` moved away from up. A failed rebuild
// is logged to stderr; the interval does not grow after failures.
func rebuildLoopPayload(cmd *cobra.Command) func(context.Context, daemon.StateReader) error {
	return func(ctx context.Context, state daemon.StateReader) error {
		interval := config.GetDuration("daemon.rebuild-interval")
		if interval <= 0 {
			interval = 30 * time.Second
		}
		for {
			if err := runRebuild(cmd); err != nil {
				fmt.Fprintln(os.Stderr, "daemon: rebuild failed:", err)
			}
			if state.Want() != daemon.WantUp {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(interval):
			}
			if state.Want() != daemon.WantUp {
				return nil
			}
		}
	}
}

// dispatchHiddenChild intercepts the two self-re-exec marker argv[1]
// values before cobra parses anything, since these invocations are an
// implementation detail of Start (internal/daemon), never something a
// user types or sees in --help.
func dispatchHiddenChild(argv []string) (handled bool, err error) {
	if len(argv) < 2 {
		return false, nil
	}
	switch argv[1] {
	case runChildArg:
		if len(argv) < 3 {
			return true, fmt.Errorf("%s requires a workspace path argument", runChildArg)
		}
		wd := argv[2]
		if err := os.Chdir(wd); err != nil {
			return true, fmt.Errorf("changing to workspace %s: %w", wd, err)
		}
		sup, err := supervisorForCWD()
		if err != nil {
			return true, err
		}
		cmd := &cobra.Command{}
		return true, sup.RunChild(context.Background(), rebuildLoopPayload(cmd))
	case loggerChildArg:
		sup, err := supervisorForCWD()
		if err != nil {
			return true, err
		}
		ppid := os.Getppid()
		if len(argv) >= 3 {
			if n, perr := strconv.Atoi(argv[2]); perr == nil {
				ppid = n
			}
		}
		return true, sup.LoggerChild(ppid)
	default:
		return false, nil
	}
}
