// Package versiongate implements the write-time version gate
// (component E): before the renderer writes its two output files,
// scan the commit messages touching those paths for the newest one
// carrying a producing-tool version signature, and refuse the write
// if the running tool is semver-behind it.
//
// Grounded on SPEC_FULL.md §4.E/§4.D and
// original_source/libs/chj-unix-util/src/git_version.rs's commit-log
// scan for a version-signature trailer.
package versiongate

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/version"
)

// SignaturePrefix marks the trailer line a prior run appended to its
// commit message, e.g. "xmlhub-indexer-version: 2.3.1-4-gabc1234".
const SignaturePrefix = "xmlhub-indexer-version:"

var signatureLine = regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(SignaturePrefix) + `\s*(\S+)\s*$`)

// LogReader is the subset of internal/gitclient.Client this package
// needs, kept as an interface so tests can supply canned commit logs
// without a real repository.
type LogReader interface {
	LogCommitMessages(ctx context.Context, paths ...string) ([]string, error)
}

// Decision is the gate's verdict for one write attempt.
type Decision int

const (
	// Accept: no prior recorded version, or running version is
	// Equivalent(>=) or Upgrade(>=) relative to it.
	Accept Decision = iota
	// Warn: comparison was Undecidable (WIP involvement on either
	// side); the write proceeds but the caller should surface a
	// warning.
	Warn
	// Refuse: running version is Upgrade(<) relative to the recorded
	// one — writing would regress the output below a version that
	// has already produced it.
	Refuse
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Warn:
		return "warn"
	case Refuse:
		return "refuse"
	default:
		return "invalid"
	}
}

// Result reports the gate's verdict and the reasoning behind it.
type Result struct {
	Decision Decision
	// Recorded is the newest version found in history, or nil if none
	// was ever recorded for these paths.
	Recorded *version.GitVersion
	Detail   string
}

// Check scans the commit log restricted to outputPaths for the newest
// commit carrying a version signature trailer, and compares running
// against it.
func Check(ctx context.Context, git LogReader, outputPaths []string, running version.GitVersion) (Result, error) {
	messages, err := git.LogCommitMessages(ctx, outputPaths...)
	if err != nil {
		return Result{}, fmt.Errorf("scanning commit log for version signature: %w", err)
	}

	recorded, err := newestSignature(messages)
	if err != nil {
		return Result{}, err
	}
	if recorded == nil {
		return Result{Decision: Accept, Detail: "no prior recorded version; first write"}, nil
	}

	cmp := running.SemverCmp(*recorded)
	crossCheckSemver(running, *recorded, cmp)
	switch cmp.Kind {
	case version.ResultEquivalent, version.ResultUpgrade:
		if cmp.Order == version.Less {
			return Result{
				Decision: Refuse,
				Recorded: recorded,
				Detail:   fmt.Sprintf("running version %s is older than the last recorded version %s (%s)", running, recorded, cmp),
			}, nil
		}
		return Result{Decision: Accept, Recorded: recorded, Detail: cmp.String()}, nil
	case version.ResultUndecidable:
		return Result{
			Decision: Warn,
			Recorded: recorded,
			Detail:   fmt.Sprintf("version comparison against %s is undecidable: %s", recorded, cmp),
		}, nil
	default: // ResultFailedPartialOrd
		return Result{
			Decision: Warn,
			Recorded: recorded,
			Detail:   fmt.Sprintf("version comparison against %s failed: %s", recorded, cmp),
		}, nil
	}
}

// Signature formats the trailer line a writer should append to its
// own commit message after a successful write, so the next run's gate
// can find it.
func Signature(v version.GitVersion) string {
	return fmt.Sprintf("%s %s", SignaturePrefix, v.String())
}

// crossCheckSemver re-derives the non-WIP base-version ordering via
// golang.org/x/mod/semver as a sanity cross-check against our own
// SemVersion.SemverCmp, logging (never failing) on disagreement. Only
// meaningful when neither side is WIP and both base versions are
// canonical (exactly major.minor.patch); anything else is skipped.
func crossCheckSemver(running, recorded version.GitVersion, cmp version.SemVerOrdResult) {
	if running.IsWip() || recorded.IsWip() {
		return
	}
	a, aOK := canonicalSemver(running.Version.String())
	b, bOK := canonicalSemver(recorded.Version.String())
	if !aOK || !bOK {
		return
	}
	want := 0
	switch cmp.Order {
	case version.Less:
		want = -1
	case version.Greater:
		want = 1
	}
	if got := semver.Compare(a, b); got != want {
		slog.Warn("versiongate: x/mod/semver cross-check disagrees with internal SemverCmp",
			"running", running.String(), "recorded", recorded.String(), "semver_compare", got, "internal_order", cmp.Order)
	}
}

// canonicalSemver pads a dotted version string to "vMAJOR.MINOR.PATCH"
// so golang.org/x/mod/semver (which rejects partial versions) can
// parse it; ok is false for anything with more than three components.
func canonicalSemver(s string) (string, bool) {
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return "", false
	}
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	v := "v" + strings.Join(parts, ".")
	if !semver.IsValid(v) {
		return "", false
	}
	return v, true
}

// newestSignature scans messages (assumed newest-first, matching
// internal/gitclient.Client.LogCommitMessages) for the first one
// carrying a parseable signature trailer.
func newestSignature(messages []string) (*version.GitVersion, error) {
	for _, msg := range messages {
		m := signatureLine.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		raw := strings.TrimSpace(m[1])
		v, err := version.ParseGitVersion(raw)
		if err != nil {
			// A malformed trailer shouldn't abort the whole gate; skip
			// it and keep looking further back in history.
			continue
		}
		return &v, nil
	}
	return nil, nil
}
