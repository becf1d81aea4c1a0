// Package upgrade implements the signed-binary upgrade channel
// (component S): clone/pull a binaries repository, pick the binary
// for the running OS/arch, verify its signature and hash against the
// compiled-in trusted-key table, and install it.
//
// Grounded on SPEC_FULL.md §4.S and original_source/src/installation/
// (the clone-verify-install sequence); signature/hash verification
// delegates entirely to internal/signedenvelope (component K).
package upgrade

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/gitclient"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/signedenvelope"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/version"
)

// Options configures one Check/Install run.
type Options struct {
	// StateDir holds the local clone of the binaries repository.
	StateDir string
	// BinariesRepoURL is the binaries repository to clone/pull.
	BinariesRepoURL string
	// TrustedKeysFile, if set, augments the compiled-in trusted-key
	// table with a TOML table of additional accepted signer
	// fingerprints.
	TrustedKeysFile string
	// InstallDir is where the binary is copied; empty resolves to
	// the directory the running binary currently lives in.
	InstallDir string
	// ForceReinstall installs even if the remote version is equal to
	// the running one.
	ForceReinstall bool
	// ForceDowngrade installs even if the remote version is older
	// than the running one.
	ForceDowngrade bool
}

// infoEnvelopeVersion is the app_info_version this build understands,
// the header line of the two-line app-info envelope (SPEC_FULL.md §6).
const infoEnvelopeVersion = 1

// infoHeader is the envelope's first line.
type infoHeader struct {
	AppInfoVersion int `json:"app_info_version"`
}

// Info is the per-binary metadata file (".info") living alongside
// each published binary in the repository: the second line of the
// envelope. rustc_version/cargo_version are kept as named fields for
// wire-format compatibility with the original, populated from
// runtime.Version() and the Go toolchain version rather than an
// actual rustc/cargo (SPEC_FULL.md §3).
type Info struct {
	SHA256       string `json:"sha256"`
	Version      string `json:"version"`
	SourceCommit string `json:"source_commit"`
	RustcVersion string `json:"rustc_version"`
	CargoVersion string `json:"cargo_version"`
	OSVersion    string `json:"os_version"`
	Creator      string `json:"creator"`
	BuildDate    string `json:"build_date"` // RFC2822, via internal/timeutil
}

// WriteInfo serializes info as the two-line app-info envelope to path
// and returns the bytes written, so a caller that also signs the file
// (the release publisher) signs exactly what was persisted.
func WriteInfo(path string, info Info) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(infoHeader{AppInfoVersion: infoEnvelopeVersion}); err != nil {
		return nil, fmt.Errorf("encoding app info header: %w", err)
	}
	if err := enc.Encode(info); err != nil {
		return nil, fmt.Errorf("encoding app info body: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

// readInfo parses the two-line app_info envelope out of data, mirroring
// internal/signedenvelope's header-then-body key/signature envelopes.
func readInfo(data []byte) (Info, error) {
	nl := bytes.IndexByte(data, '\n')
	if nl < 0 {
		return Info{}, fmt.Errorf("missing header line")
	}
	var h infoHeader
	if err := json.Unmarshal(data[:nl], &h); err != nil {
		return Info{}, fmt.Errorf("parsing header line: %w", err)
	}
	if h.AppInfoVersion != infoEnvelopeVersion {
		return Info{}, fmt.Errorf("unsupported app_info_version %d", h.AppInfoVersion)
	}
	var info Info
	if err := json.Unmarshal(bytes.TrimSpace(data[nl+1:]), &info); err != nil {
		return Info{}, fmt.Errorf("parsing body line: %w", err)
	}
	return info, nil
}

// Plan describes what Check found and what Install would do about it.
type Plan struct {
	Available      Info
	AvailableVer   version.GitVersion
	Running        version.GitVersion
	SignerOwner    string
	Policy         Policy
	BinaryPath     string
	InfoPath       string
}

// Policy names why Install would or wouldn't proceed.
type Policy int

const (
	PolicyInstallNewer Policy = iota
	PolicySkipEqual
	PolicyForceEqual
	PolicySkipOlder
	PolicyForceOlder
)

func (p Policy) ShouldInstall() bool {
	return p == PolicyInstallNewer || p == PolicyForceEqual || p == PolicyForceOlder
}

func (p Policy) String() string {
	switch p {
	case PolicyInstallNewer:
		return "newer version available, installing"
	case PolicySkipEqual:
		return "same version already installed, skipping (use --force-reinstall)"
	case PolicyForceEqual:
		return "same version, forced reinstall"
	case PolicySkipOlder:
		return "available version is older, skipping (use --force-downgrade)"
	case PolicyForceOlder:
		return "available version is older, forced downgrade"
	default:
		return "unknown policy"
	}
}

func platformDir() string {
	return fmt.Sprintf("%s-%s", runtime.GOOS, runtime.GOARCH)
}

func binaryName() string {
	if runtime.GOOS == "windows" {
		return "xmlhub.exe"
	}
	return "xmlhub"
}

// syncRepo clones the binaries repo into opts.StateDir/binaries-repo
// on first use, else pulls.
func syncRepo(opts Options) (string, error) {
	repoDir := filepath.Join(opts.StateDir, "binaries-repo")
	ctx := context.Background()
	if _, err := os.Stat(filepath.Join(repoDir, ".git")); err == nil {
		client := gitclient.New(repoDir)
		if err := client.Pull(ctx); err != nil {
			return "", fmt.Errorf("pulling binaries repo: %w", err)
		}
		return repoDir, nil
	}
	if err := os.MkdirAll(opts.StateDir, 0o755); err != nil {
		return "", fmt.Errorf("creating state dir %s: %w", opts.StateDir, err)
	}
	if err := gitclient.Clone(ctx, opts.BinariesRepoURL, repoDir); err != nil {
		return "", fmt.Errorf("cloning binaries repo %s: %w", opts.BinariesRepoURL, err)
	}
	return repoDir, nil
}

// Check resolves the repository, verifies the available binary's
// envelope and hash, and computes the install policy without
// modifying anything on disk beyond the repo clone/pull itself.
func Check(opts Options, running version.GitVersion) (*Plan, error) {
	repoDir, err := syncRepo(opts)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(repoDir, platformDir())
	binPath := filepath.Join(dir, binaryName())
	infoPath := binPath + ".info"
	sigPath := infoPath + ".sig"

	infoBytes, err := os.ReadFile(infoPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", infoPath, err)
	}
	info, err := readInfo(infoBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", infoPath, err)
	}

	pub, sig, _, err := signedenvelope.LoadSignature(sigPath)
	if err != nil {
		return nil, fmt.Errorf("loading signature %s: %w", sigPath, err)
	}
	if !signedenvelope.Verify(pub, infoBytes, sig) {
		return nil, fmt.Errorf("signature verification failed for %s", infoPath)
	}

	keys, err := signedenvelope.TrustedKeys(opts.TrustedKeysFile)
	if err != nil {
		return nil, fmt.Errorf("loading trusted keys: %w", err)
	}
	fingerprint := signedenvelope.Fingerprint(pub)
	trusted, ok := signedenvelope.IsTrusted(keys, fingerprint)
	if !ok {
		return nil, fmt.Errorf("signer %s is not in the trusted-key table", fingerprint)
	}

	actualHash, err := hashFile(binPath)
	if err != nil {
		return nil, err
	}
	if actualHash != info.SHA256 {
		return nil, fmt.Errorf("binary hash mismatch: info says %s, computed %s", info.SHA256, actualHash)
	}

	availVer, err := version.ParseGitVersion(info.Version)
	if err != nil {
		return nil, fmt.Errorf("parsing available version %q: %w", info.Version, err)
	}

	cmp := running.SemverCmp(availVer)
	var policy Policy
	switch {
	case cmp.Kind == version.ResultEquivalent && cmp.Order == version.Equal:
		if opts.ForceReinstall {
			policy = PolicyForceEqual
		} else {
			policy = PolicySkipEqual
		}
	case cmp.Order == version.Less:
		policy = PolicyInstallNewer
	default:
		if opts.ForceDowngrade {
			policy = PolicyForceOlder
		} else {
			policy = PolicySkipOlder
		}
	}

	return &Plan{
		Available:    info,
		AvailableVer: availVer,
		Running:      running,
		SignerOwner:  trusted.Owner,
		Policy:       policy,
		BinaryPath:   binPath,
		InfoPath:     infoPath,
	}, nil
}

func hashFile(path string) (string, error) {
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

// Install copies the plan's binary into opts.InstallDir (or the
// running binary's own directory), replacing any existing file, and
// ensures that directory is on PATH by patching the user's shell init
// file if it is absent.
func Install(opts Options, plan *Plan) error {
	installDir := opts.InstallDir
	if installDir == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolving running executable: %w", err)
		}
		installDir = filepath.Dir(exe)
	}
	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return fmt.Errorf("creating install directory %s: %w", installDir, err)
	}

	dest := filepath.Join(installDir, binaryName())
	if err := copyExecutable(plan.BinaryPath, dest); err != nil {
		return err
	}

	if err := ensurePathEntry(installDir); err != nil {
		// Shell-init patching is best-effort; the binary is already
		// installed correctly even if this fails.
		return fmt.Errorf("binary installed at %s, but patching shell PATH failed: %w", dest, err)
	}
	return nil
}

func copyExecutable(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o755); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s to %s: %w", tmp, dst, err)
	}
	return nil
}
