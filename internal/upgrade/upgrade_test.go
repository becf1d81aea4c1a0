package upgrade

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/signedenvelope"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/version"
)

func mustGitVersion(t *testing.T, s string) version.GitVersion {
	t.Helper()
	v, err := version.ParseGitVersion(s)
	if err != nil {
		t.Fatalf("ParseGitVersion(%q): %v", s, err)
	}
	return v
}

func TestPolicyShouldInstall(t *testing.T) {
	cases := map[Policy]bool{
		PolicyInstallNewer: true,
		PolicySkipEqual:    false,
		PolicyForceEqual:   true,
		PolicySkipOlder:    false,
		PolicyForceOlder:   true,
	}
	for p, want := range cases {
		if got := p.ShouldInstall(); got != want {
			t.Errorf("%v.ShouldInstall() = %v, want %v", p, got, want)
		}
	}
}

func TestPlatformAndBinaryName(t *testing.T) {
	if platformDir() == "" {
		t.Error("platformDir() returned empty string")
	}
	if binaryName() == "" {
		t.Error("binaryName() returned empty string")
	}
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	h1, err := hashFile(path)
	if err != nil {
		t.Fatalf("hashFile: %v", err)
	}
	h2, err := hashFile(path)
	if err != nil {
		t.Fatalf("hashFile (second read): %v", err)
	}
	if h1 != h2 {
		t.Errorf("hashFile is not deterministic: %s != %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("hashFile returned %d hex chars, want 64 (sha256)", len(h1))
	}
}

func TestCopyExecutable(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "sub", "dst")
	if err := os.WriteFile(src, []byte("#!/bin/sh\necho hi\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := copyExecutable(src, dst); err != nil {
		t.Fatalf("copyExecutable: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("reading copied file: %v", err)
	}
	if string(data) != "#!/bin/sh\necho hi\n" {
		t.Errorf("copied content mismatch: %q", data)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Error("copied file lost its executable bit")
	}
}

func TestDetectShellInitFile(t *testing.T) {
	home := "/home/someone"
	cases := map[string]string{
		"/bin/zsh":  filepath.Join(home, ".zshrc"),
		"/usr/bin/fish": filepath.Join(home, ".config", "fish", "config.fish"),
		"/bin/bash": filepath.Join(home, ".bashrc"),
		"":          filepath.Join(home, ".bashrc"),
	}
	for shell, want := range cases {
		t.Setenv("SHELL", shell)
		if got := detectShellInitFile(home); got != want {
			t.Errorf("detectShellInitFile() with SHELL=%q = %q, want %q", shell, got, want)
		}
	}
}

func TestEnsurePathEntryNoopWhenAlreadyOnPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PATH", dir+string(os.PathListSeparator)+"/usr/bin")
	if err := ensurePathEntry(dir); err != nil {
		t.Errorf("ensurePathEntry should be a no-op when dir is already on PATH, got: %v", err)
	}
}

func TestWriteInfoReadInfoRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xmlhub.info")
	want := Info{
		SHA256:       "deadbeef",
		Version:      "1.2.3",
		SourceCommit: "abc123",
		RustcVersion: "go1.22.0",
		CargoVersion: "go1.22.0",
		OSVersion:    "linux-amd64",
		Creator:      "user@host",
		BuildDate:    "Fri, 01 Jan 2026 00:00:00 +0000",
	}
	data, err := WriteInfo(path, want)
	if err != nil {
		t.Fatalf("WriteInfo: %v", err)
	}

	fileBytes, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if string(fileBytes) != string(data) {
		t.Error("WriteInfo's returned bytes don't match what was written to disk")
	}
	lines := bytes.Count(fileBytes, []byte("\n"))
	if lines != 2 {
		t.Errorf("expected a two-line envelope, got %d newlines", lines)
	}

	got, err := readInfo(fileBytes)
	if err != nil {
		t.Fatalf("readInfo: %v", err)
	}
	if got != want {
		t.Errorf("readInfo round-trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestReadInfoRejectsUnsupportedVersion(t *testing.T) {
	data := []byte("{\"app_info_version\":99}\n{\"sha256\":\"x\"}\n")
	if _, err := readInfo(data); err == nil {
		t.Error("readInfo should reject an unsupported app_info_version")
	}
}

func TestTrustedKeysCompiledInDefault(t *testing.T) {
	keys, err := signedenvelope.TrustedKeys("")
	if err != nil {
		t.Fatalf("TrustedKeys(\"\"): %v", err)
	}
	if len(keys) == 0 {
		t.Fatal("TrustedKeys(\"\") should return the compiled-in default table, got none")
	}
}

func TestSemverCmpOrdersOlderBeforeNewer(t *testing.T) {
	older := mustGitVersion(t, "1.0.0")
	newer := mustGitVersion(t, "1.1.0")

	cmp := older.SemverCmp(newer)
	if cmp.Order != version.Less {
		t.Fatalf("expected older < newer, got order %v", cmp.Order)
	}
}
