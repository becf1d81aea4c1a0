// Component Y: rsc.io/script-driven CLI conformance tests, driving the
// testdata/script/*.txt scripts against a once-built xmlhub binary
// placed on PATH for the run.
package main

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"rsc.io/script"
	"rsc.io/script/scripttest"
)

var scriptBinDir string

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "xmlhub-script-test")
	if err != nil {
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	binPath := filepath.Join(dir, "xmlhub")
	build := exec.Command("go", "build", "-o", binPath, ".")
	build.Stdout = os.Stderr
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		os.Exit(1)
	}
	scriptBinDir = dir

	os.Exit(m.Run())
}

func TestCLIScripts(t *testing.T) {
	engine := &script.Engine{
		Cmds:  scripttest.DefaultCmds(),
		Conds: scripttest.DefaultConds(),
	}
	newState := func(t *testing.T) *script.State {
		env := append([]string{"PATH=" + scriptBinDir + string(os.PathListSeparator) + os.Getenv("PATH")}, os.Environ()...)
		st, err := script.NewState(context.Background(), t.TempDir(), env)
		if err != nil {
			t.Fatal(err)
		}
		return st
	}
	scripttest.Run(t, engine, newState, "testdata/script/*.txt")
}
