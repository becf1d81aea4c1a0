// Package release implements the dual-repo release builder (component
// T): a fixed sequence of named steps, each checked and described
// before it runs, that bumps the version, tags the source repo,
// rebuilds the binary and publishes it into a sibling binaries
// repository clone.
//
// Grounded on SPEC_FULL.md §4.T; step-sequencing as an explicit
// []Step slice (rather than one monolithic function) follows the
// teacher's `cmd/bd/release.go`-style staged-command idiom, adapted
// here to present each step to the operator via glamour/huh before
// running it.
package release

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"golang.org/x/crypto/ed25519"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/changelog"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/gitclient"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/signedenvelope"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/timeutil"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/upgrade"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/version"
)

// Options configures one release run.
type Options struct {
	SourceDir       string
	BinariesRepoDir string
	Branch          string
	UnchangedOutput bool // patch-bump instead of minor/major
	SignTag         bool
	PrivateKeyPath  string
	DryRun          bool
	// TargetOS/TargetArch cross-compile the published binary for a
	// platform other than the build host. Empty means "build for the
	// host" (runtime.GOOS/runtime.GOARCH), matching the directory
	// internal/upgrade's platformDir selects on the install side.
	TargetOS   string
	TargetArch string
}

// Step is one unit of the release sequence: a human-readable
// description shown to the operator before Run executes it.
type Step struct {
	Name        string
	Description string
	Run         func(ctx context.Context, st *state) error
}

// state threads data between steps (the next version, changelog text,
// computed hash, etc.) without every step needing the full Options.
type state struct {
	opts        Options
	source      *gitclient.Client
	binaries    *gitclient.Client
	prevVersion version.GitVersion
	nextVersion version.SemVersion
	binaryPath  string
	binaryHash  string
	targetOS    string
	targetArch  string
}

// platformDir names the per-platform directory in the binaries repo,
// matching internal/upgrade's platformDir so a release published here
// is exactly where the upgrade channel will look for it.
func platformDir(goos, goarch string) string {
	return fmt.Sprintf("%s-%s", goos, goarch)
}

// Build returns the fixed step sequence for opts. Steps are returned
// unexecuted; the caller (cmd/xmlhub's release command) presents and
// runs each one, honoring --dry-run by only printing descriptions.
func Build(opts Options) ([]Step, *state) {
	targetOS, targetArch := opts.TargetOS, opts.TargetArch
	if targetOS == "" {
		targetOS = runtime.GOOS
	}
	if targetArch == "" {
		targetArch = runtime.GOARCH
	}
	st := &state{
		opts:       opts,
		source:     gitclient.New(opts.SourceDir),
		binaries:   gitclient.New(opts.BinariesRepoDir),
		targetOS:   targetOS,
		targetArch: targetArch,
	}
	steps := []Step{
		{
			Name:        "verify-source-clean",
			Description: "Verify the source repository is on the expected branch with a clean working tree.",
			Run:         stepVerifySource,
		},
		{
			Name:        "verify-binaries-clean",
			Description: "Verify the sibling binaries repository clone exists, is clean, and its remote branch is an ancestor of the local branch.",
			Run:         stepVerifyBinaries,
		},
		{
			Name:        "compute-next-version",
			Description: "Parse the prior version via `git describe` and compute the next version.",
			Run:         stepComputeVersion,
		},
		{
			Name:        "update-changelog",
			Description: "Append a release line to the changelog and commit it.",
			Run:         stepUpdateChangelog,
		},
		{
			Name:        "tag-and-push-source",
			Description: "Create the release tag (signed if requested) and push the source repository.",
			Run:         stepTagAndPush,
		},
		{
			Name:        "build-and-hash-binary",
			Description: "Rebuild the binary and compute its SHA-256 by both an external tool and in-process, asserting equality.",
			Run:         stepBuildAndHash,
		},
		{
			Name:        "publish-to-binaries-repo",
			Description: "Copy the binary into the binaries repo, write signed app info, commit, and push; the binaries repo is not tagged.",
			Run:         stepPublish,
		},
	}
	return steps, st
}

func stepVerifySource(ctx context.Context, st *state) error {
	clean, err := st.source.IsClean(ctx)
	if err != nil {
		return err
	}
	if !clean {
		return fmt.Errorf("source repository working tree is not clean")
	}
	branch, err := st.source.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if st.opts.Branch != "" && branch != st.opts.Branch {
		return fmt.Errorf("expected branch %q, on %q", st.opts.Branch, branch)
	}
	return nil
}

func stepVerifyBinaries(ctx context.Context, st *state) error {
	if _, err := os.Stat(st.opts.BinariesRepoDir); err != nil {
		return fmt.Errorf("binaries repo clone %s: %w", st.opts.BinariesRepoDir, err)
	}
	clean, err := st.binaries.IsClean(ctx)
	if err != nil {
		return err
	}
	if !clean {
		return fmt.Errorf("binaries repository working tree is not clean")
	}
	remote, err := st.binaries.RemoteForBranch(ctx, "HEAD")
	if err != nil {
		return err
	}
	if err := st.binaries.RemoteUpdate(ctx); err != nil {
		return err
	}
	isAncestor, err := st.binaries.MergeBaseIsAncestor(ctx, remote, "HEAD")
	if err != nil {
		return err
	}
	if !isAncestor {
		return fmt.Errorf("binaries repo remote %s is not an ancestor of HEAD; pull first", remote)
	}
	return nil
}

func stepComputeVersion(ctx context.Context, st *state) error {
	described, err := st.source.Describe(ctx)
	if err != nil {
		return fmt.Errorf("git describe: %w", err)
	}
	prev, err := version.ParseGitVersion(described)
	if err != nil {
		return fmt.Errorf("parsing describe output %q: %w", described, err)
	}
	st.prevVersion = prev

	if st.opts.UnchangedOutput {
		st.nextVersion = prev.Version.NextPatch()
	} else {
		st.nextVersion = prev.Version.NextMinor()
	}
	return nil
}

func stepUpdateChangelog(ctx context.Context, st *state) error {
	changelogPath := filepath.Join(st.opts.SourceDir, "CHANGELOG.md")
	existing, err := os.ReadFile(changelogPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", changelogPath, err)
	}
	cl, err := changelog.Parse(string(existing))
	if err != nil {
		return fmt.Errorf("parsing changelog: %w", err)
	}
	release := changelog.Release{
		Version: version.GitVersion{Version: st.nextVersion},
		Date:    time.Now().Format("2006-01-02"),
	}
	cl.Entries = append([]changelog.Entry{{Kind: changelog.EntryRelease, Release: release}}, cl.Entries...)

	rendered := changelog.Render(cl, true, changelog.DisplayStyle{})
	if err := os.WriteFile(changelogPath, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", changelogPath, err)
	}
	_, err = runGit(ctx, st.opts.SourceDir, "commit", "-m", fmt.Sprintf("release %s: update changelog", st.nextVersion), "--", "CHANGELOG.md")
	return err
}

func stepTagAndPush(ctx context.Context, st *state) error {
	tagName := st.nextVersion.String()
	if err := st.source.Tag(ctx, tagName, fmt.Sprintf("release %s", tagName), st.opts.SignTag); err != nil {
		return err
	}
	return st.source.Push(ctx, "origin", "HEAD", true)
}

func stepBuildAndHash(ctx context.Context, st *state) error {
	outName := "xmlhub-release-build"
	if st.targetOS == "windows" {
		outName += ".exe"
	}
	outPath := filepath.Join(st.opts.SourceDir, outName)
	cmd := exec.CommandContext(ctx, "go", "build", "-ldflags", "-X main.buildVersion="+st.nextVersion.String(), "-o", outPath, "./cmd/xmlhub")
	cmd.Dir = st.opts.SourceDir
	cmd.Env = append(os.Environ(), "GOOS="+st.targetOS, "GOARCH="+st.targetArch)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("go build (GOOS=%s GOARCH=%s): %w\n%s", st.targetOS, st.targetArch, err, out)
	}
	st.binaryPath = outPath

	externalOut, err := exec.CommandContext(ctx, "sha256sum", outPath).Output()
	if err != nil {
		return fmt.Errorf("external hash tool: %w", err)
	}

	inProcessHash, err := hashFileInProcess(outPath)
	if err != nil {
		return err
	}
	if fields := strings.Fields(string(externalOut)); len(fields) == 0 || fields[0] != inProcessHash {
		return fmt.Errorf("sha256sum output %q does not match in-process hash %s", strings.TrimSpace(string(externalOut)), inProcessHash)
	}
	st.binaryHash = inProcessHash
	return nil
}

func hashFileInProcess(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func stepPublish(ctx context.Context, st *state) error {
	if st.opts.PrivateKeyPath == "" {
		return fmt.Errorf("no private key path configured for signing app info")
	}
	priv, _, err := signedenvelope.LoadPrivateKey(st.opts.PrivateKeyPath)
	if err != nil {
		return fmt.Errorf("loading private key: %w", err)
	}
	pub := priv.Public().(ed25519.PublicKey)

	dirName := platformDir(st.targetOS, st.targetArch)
	destDir := filepath.Join(st.opts.BinariesRepoDir, dirName)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", destDir, err)
	}
	binName := "xmlhub"
	if st.targetOS == "windows" {
		binName = "xmlhub.exe"
	}
	destBin := filepath.Join(destDir, binName)
	data, err := os.ReadFile(st.binaryPath)
	if err != nil {
		return err
	}
	if err := os.WriteFile(destBin, data, 0o755); err != nil {
		return err
	}

	commit, err := runGit(ctx, st.opts.SourceDir, "rev-parse", "HEAD")
	if err != nil {
		return fmt.Errorf("resolving source commit: %w", err)
	}
	info := upgrade.Info{
		SHA256:       st.binaryHash,
		Version:      st.nextVersion.String(),
		SourceCommit: strings.TrimSpace(commit),
		RustcVersion: runtime.Version(),
		CargoVersion: goToolchainVersion(),
		OSVersion:    dirName,
		Creator:      creatorString(),
		BuildDate:    timeutil.RFC2822(time.Now()),
	}

	infoPath := destBin + ".info"
	infoBytes, err := upgrade.WriteInfo(infoPath, info)
	if err != nil {
		return err
	}
	if err := signedenvelope.SignToFile(infoPath, priv, pub, "release", infoBytes); err != nil {
		return fmt.Errorf("signing %s: %w", infoPath, err)
	}

	if _, err := runGit(ctx, st.opts.BinariesRepoDir, "add", "."); err != nil {
		return err
	}
	if _, err := runGit(ctx, st.opts.BinariesRepoDir, "commit", "-m", fmt.Sprintf("%s %s-%s", st.nextVersion, st.binaryHash[:12], dirName)); err != nil {
		return err
	}
	return st.binaries.Push(ctx, "origin", "HEAD", false)
}

// goToolchainVersion reports the Go toolchain version recorded in this
// binary's build info, the nearest equivalent to cargo's own version
// string (there being no separate build-tool/compiler split in Go).
func goToolchainVersion() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi.GoVersion != "" {
		return bi.GoVersion
	}
	return runtime.Version()
}

// creatorString matches internal/signedenvelope's "user@host" format.
func creatorString() string {
	user := os.Getenv("USER")
	if user == "" {
		user = "unknown"
	}
	host, _ := os.Hostname()
	if host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("%s@%s", user, host)
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}
