package versiongate

import (
	"context"
	"testing"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/version"
)

type fakeLog struct {
	messages []string
}

func (f fakeLog) LogCommitMessages(ctx context.Context, paths ...string) ([]string, error) {
	return f.messages, nil
}

func mustGitVersion(t *testing.T, s string) version.GitVersion {
	t.Helper()
	v, err := version.ParseGitVersion(s)
	if err != nil {
		t.Fatalf("ParseGitVersion(%q): %v", s, err)
	}
	return v
}

func TestCheckNoPriorSignature(t *testing.T) {
	running := mustGitVersion(t, "1.0.0")
	res, err := Check(context.Background(), fakeLog{messages: []string{"unrelated commit"}}, []string{"index.html"}, running)
	if err != nil {
		t.Fatal(err)
	}
	if res.Decision != Accept {
		t.Errorf("Decision = %v, want Accept", res.Decision)
	}
}

func TestCheckUpgradeAccepted(t *testing.T) {
	running := mustGitVersion(t, "1.2.0")
	msgs := []string{
		"rebuild index\n\n" + Signature(mustGitVersion(t, "1.1.0")),
	}
	res, err := Check(context.Background(), fakeLog{messages: msgs}, nil, running)
	if err != nil {
		t.Fatal(err)
	}
	if res.Decision != Accept {
		t.Errorf("Decision = %v, want Accept (got detail %q)", res.Decision, res.Detail)
	}
}

func TestCheckRegressionRefused(t *testing.T) {
	running := mustGitVersion(t, "1.0.0")
	msgs := []string{
		"rebuild index\n\n" + Signature(mustGitVersion(t, "1.2.0")),
	}
	res, err := Check(context.Background(), fakeLog{messages: msgs}, nil, running)
	if err != nil {
		t.Fatal(err)
	}
	if res.Decision != Refuse {
		t.Errorf("Decision = %v, want Refuse", res.Decision)
	}
}

func TestCheckWipUndecidableWarns(t *testing.T) {
	running := mustGitVersion(t, "1.1.0-4-gabc1234")
	msgs := []string{
		"rebuild index\n\n" + Signature(mustGitVersion(t, "1.1.0")),
	}
	res, err := Check(context.Background(), fakeLog{messages: msgs}, nil, running)
	if err != nil {
		t.Fatal(err)
	}
	if res.Decision != Warn {
		t.Errorf("Decision = %v, want Warn", res.Decision)
	}
}
