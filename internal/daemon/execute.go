package daemon

import (
	"context"
	"fmt"
)

// Result is the outcome handed back to cmd/xmlhub for printing, one
// field populated per mode.
type Result struct {
	Mode        Mode
	Started     *StartResult
	Stopped     *StopReport
	Status      *Status
	AlreadyDone bool
}

// Execute dispatches one daemon mode. payload is only used for
// ModeRun (a foreground run, used both for direct `xmlhub daemon run`
// invocations and as the body the self-exec'd run-child calls via
// RunChild).
func (s *Supervisor) Execute(ctx context.Context, mode Mode, stopOpts StopOpts, payload func(context.Context, StateReader) error) (Result, error) {
	switch mode {
	case ModeRun:
		if payload == nil {
			return Result{}, fmt.Errorf("ModeRun requires a payload")
		}
		err := s.RunChild(ctx, payload)
		return Result{Mode: mode}, err

	case ModeStart:
		started, err := s.Start()
		if err != nil {
			if err == ErrAlreadyRunning {
				return Result{Mode: mode, AlreadyDone: true}, nil
			}
			return Result{}, err
		}
		return Result{Mode: mode, Started: started}, nil

	case ModeStop:
		report, err := s.StopOrRestart(false, stopOpts)
		return Result{Mode: mode, Stopped: &report}, err

	case ModeRestart:
		report, err := s.StopOrRestart(true, stopOpts)
		return Result{Mode: mode, Stopped: &report}, err

	case ModeStatus:
		st, err := s.Status()
		return Result{Mode: mode, Status: &st}, err

	case ModeSTOP, ModeCONT, ModeKILL:
		err := s.SendControlSignal(mode)
		return Result{Mode: mode}, err

	default:
		return Result{}, fmt.Errorf("unknown daemon mode: %v", mode)
	}
}
