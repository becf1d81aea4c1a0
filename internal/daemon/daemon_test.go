package daemon

import (
	"path/filepath"
	"testing"
)

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"run":     ModeRun,
		"start":   ModeStart,
		"up":      ModeStart,
		"stop":    ModeStop,
		"down":    ModeStop,
		"restart": ModeRestart,
		"status":  ModeStatus,
		"STOP":    ModeSTOP,
		"CONT":    ModeCONT,
		"KILL":    ModeKILL,
	}
	for s, want := range cases {
		got, err := ParseMode(s)
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", s, err)
		}
		if got != want {
			t.Errorf("ParseMode(%q) = %v, want %v", s, got, want)
		}
	}
	if _, err := ParseMode("bogus"); err == nil {
		t.Error("ParseMode(\"bogus\") should have failed")
	}
}

func TestPackUnpack(t *testing.T) {
	for _, want := range []Want{WantDown, WantUp, WantRestart} {
		for _, pid := range []uint32{0, 1, 99999} {
			v := pack(want, pid)
			gotWant, gotPID := unpack(v)
			if gotWant != want || gotPID != pid {
				t.Errorf("pack/unpack(%v, %d) round-tripped to (%v, %d)", want, pid, gotWant, gotPID)
			}
		}
	}
}

func TestStateStoreRead(t *testing.T) {
	dir := t.TempDir()
	state, err := OpenState(filepath.Join(dir, "daemon_state.mmap"))
	if err != nil {
		t.Fatalf("OpenState: %v", err)
	}
	defer state.Close()

	state.Store(WantUp, 1234)
	want, pid := state.Read()
	if want != WantUp || pid != 1234 {
		t.Fatalf("Read() = (%v, %d), want (up, 1234)", want, pid)
	}

	state.StoreWant(WantRestart)
	want, pid = state.Read()
	if want != WantRestart || pid != 1234 {
		t.Fatalf("after StoreWant: Read() = (%v, %d), want (restart, 1234)", want, pid)
	}

	state.StorePID(5678)
	want, pid = state.Read()
	if want != WantRestart || pid != 5678 {
		t.Fatalf("after StorePID: Read() = (%v, %d), want (restart, 5678)", want, pid)
	}
}

func TestIsRunningWithoutAnyChild(t *testing.T) {
	dir := t.TempDir()
	s := &Supervisor{StateDir: dir, LogDir: filepath.Join(dir, "logs")}
	if s.IsRunning() {
		t.Error("IsRunning() should be false before anything ever locked the file")
	}
}
