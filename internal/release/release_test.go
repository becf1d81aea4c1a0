package release

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuildReturnsFixedStepSequence(t *testing.T) {
	steps, st := Build(Options{SourceDir: "/src", BinariesRepoDir: "/bin"})
	wantNames := []string{
		"verify-source-clean",
		"verify-binaries-clean",
		"compute-next-version",
		"update-changelog",
		"tag-and-push-source",
		"build-and-hash-binary",
		"publish-to-binaries-repo",
	}
	if len(steps) != len(wantNames) {
		t.Fatalf("Build returned %d steps, want %d", len(steps), len(wantNames))
	}
	for i, name := range wantNames {
		if steps[i].Name != name {
			t.Errorf("step %d = %q, want %q", i, steps[i].Name, name)
		}
		if steps[i].Description == "" {
			t.Errorf("step %q has no description", steps[i].Name)
		}
	}
	if st.source == nil || st.binaries == nil {
		t.Error("Build should wire up both gitclient.Clients in state")
	}
}

func TestHashFileInProcess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bin")
	if err := os.WriteFile(path, []byte("binary-bytes"), 0o755); err != nil {
		t.Fatal(err)
	}
	h1, err := hashFileInProcess(path)
	if err != nil {
		t.Fatalf("hashFileInProcess: %v", err)
	}
	if len(h1) != 64 {
		t.Errorf("expected 64 hex chars for sha256, got %d", len(h1))
	}
	h2, err := hashFileInProcess(path)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Errorf("hashFileInProcess not deterministic: %s != %s", h1, h2)
	}
}

