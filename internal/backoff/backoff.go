// Package backoff implements the supervisor's two retry primitives
// (component J's contract): a job loop whose sleep interval grows on
// error and decays on success, and a bounded CAS-style retry helper
// for compare-and-swap races that should succeed "eventually, barring
// bad luck" rather than signal a real failure.
//
// Grounded line-for-line on
// original_source/libs/chj-unix-util/src/backoff.rs (LoopWithBackoff)
// and retry.rs (Retry/RetryN).
package backoff

import (
	"fmt"
	"math/rand"
	"os"
	"time"
)

// Verbosity controls how much LoopWithBackoff logs about its own
// iteration, independent of error logging (which Quiet controls).
type Verbosity int

const (
	LogEveryIteration Verbosity = iota
	Silent
	// LogActivityInterval logs at most once every EveryNSeconds,
	// regardless of how often the loop iterates.
	LogActivityInterval
)

// LoopWithBackoff mirrors the Rust struct's field set and defaults.
type LoopWithBackoff struct {
	Verbosity          Verbosity
	EveryNSeconds       uint64 // used only when Verbosity == LogActivityInterval
	Quiet              bool
	ErrorSleepFactor   float64
	SuccessSleepFactor float64
	MinSleepSeconds    float64
	MaxSleepSeconds    float64

	// Logf receives diagnostic lines; if nil, logging is skipped.
	Logf func(format string, args ...any)
}

// Default returns the Rust Default impl's values.
func Default() LoopWithBackoff {
	return LoopWithBackoff{
		Verbosity:          LogEveryIteration,
		ErrorSleepFactor:   1.05,
		SuccessSleepFactor: 0.99,
		MinSleepSeconds:    1.0,
		MaxSleepSeconds:    1000.0,
	}
}

// Run calls job repeatedly, adjusting the sleep interval on each
// iteration's success/failure, checking until() after every run and
// returning as soon as it reports true.
func (l LoopWithBackoff) Run(job func() error, until func() bool) {
	sleepSeconds := l.MinSleepSeconds
	var iteration uint64
	var lastLogTime time.Time

	logf := l.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	for {
		err := job()
		if err != nil {
			if !l.Quiet {
				logf("control loop: got error: %v", err)
			}
			sleepSeconds = min64(sleepSeconds*l.ErrorSleepFactor, l.MaxSleepSeconds)
		} else {
			sleepSeconds = max64(sleepSeconds*l.SuccessSleepFactor, l.MinSleepSeconds)
		}
		if until() {
			return
		}

		switch l.Verbosity {
		case Silent:
		case LogEveryIteration:
			logf("loop iteration %d, sleeping %v seconds", iteration, sleepSeconds)
		case LogActivityInterval:
			now := time.Now()
			if lastLogTime.IsZero() || now.Sub(lastLogTime) >= time.Duration(l.EveryNSeconds)*time.Second {
				logf("loop iteration %d, sleeping %v seconds", iteration, sleepSeconds)
				lastLogTime = now
			}
		}

		time.Sleep(time.Duration(sleepSeconds * float64(time.Second)))
		iteration++
	}
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Retry reruns f until it succeeds, sleeping only during the last 100
// of 200 total attempts, and panicking if all 200 are exhausted. It
// exists for compare-and-swap loops that should succeed barring
// extremely bad scheduling luck, not for waiting on another thread's
// unrelated progress.
func Retry[R any](f func() (R, error)) R {
	triesLeft := 200
	for {
		r, err := f()
		if err == nil {
			return r
		}
		triesLeft--
		if triesLeft == 0 {
			panic("backoff.Retry: can't seem to get this to succeed")
		}
		if triesLeft < 100 {
			time.Sleep(time.Duration(rand.Int63n(16384)) * time.Microsecond)
			fmt.Fprintf(os.Stderr, "note: retrying with %d tries left via backoff.Retry\n", triesLeft)
		}
	}
}

// RetryN reruns f until it succeeds or maxTries is exhausted, sleeping
// a constant interval between attempts.
func RetryN[R any](maxTries int, sleep time.Duration, f func() (R, error)) (R, error) {
	triesLeft := maxTries
	for {
		r, err := f()
		if err == nil {
			return r, nil
		}
		triesLeft--
		if triesLeft == 0 {
			return r, err
		}
		time.Sleep(sleep)
	}
}
