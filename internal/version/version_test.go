package version

import "testing"

func mustSem(t *testing.T, s string) SemVersion {
	t.Helper()
	v, err := ParseSemVersion(s)
	if err != nil {
		t.Fatalf("ParseSemVersion(%q): %v", s, err)
	}
	return v
}

func mustGit(t *testing.T, s string) GitVersion {
	t.Helper()
	v, err := ParseGitVersion(s)
	if err != nil {
		t.Fatalf("ParseGitVersion(%q): %v", s, err)
	}
	return v
}

func TestSemVersionIncrement(t *testing.T) {
	p := func(s string) SemVersion { return mustSem(t, s) }
	cases := []struct {
		in, want string
		fn       func(SemVersion) SemVersion
	}{
		{"0", "1", SemVersion.NextMajor},
		{"1", "2", SemVersion.NextMajor},
		{"0.1", "1", SemVersion.NextMajor},
		{"0.1.3", "1", SemVersion.NextMajor},
		{"0.1.3", "0.2", SemVersion.NextMinor},
		{"2.1.3", "2.2", SemVersion.NextMinor},
		{"2.1.3", "2.1.4", SemVersion.NextPatch},
		{"2.1.0", "2.1.1", SemVersion.NextPatch},
		{"2.1", "2.1.1", SemVersion.NextPatch},
		{"2", "2.0.1", SemVersion.NextPatch},
	}
	for _, c := range cases {
		got := c.fn(p(c.in)).String()
		if got != c.want {
			t.Errorf("increment(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSemVersionPartialCmp(t *testing.T) {
	p := func(s string) SemVersion { return mustSem(t, s) }
	check := func(a, b string, want Ordering, wantOk bool) {
		ord, ok := p(a).PartialCmp(p(b))
		if ok != wantOk || (ok && ord != want) {
			t.Errorf("PartialCmp(%q,%q) = (%v,%v), want (%v,%v)", a, b, ord, ok, want, wantOk)
		}
	}
	check("2.3.4", "2.3.4", Equal, true)
	check("2.3.5", "2.3.4", Greater, true)
	check("2.4.5", "2.3.4", Greater, true)
	check("2.2.5", "2.3.4", Less, true)
	check("3.2.5", "2.3.4", Greater, true)
	check("3.2", "3.2.1", Less, true)
	check("3.2.2", "3.2", Greater, true)
	check("3.1234", "3.2", Greater, true)
	check("3.2", "3.2.0", Equal, true)
}

func TestSemVersionSemverCmp(t *testing.T) {
	p := func(s string) SemVersion { return mustSem(t, s) }
	check := func(a, b string, wantKind ResultKind, wantOrd Ordering) {
		r := p(a).SemverCmp(p(b))
		if r.Kind != wantKind || r.Order != wantOrd {
			t.Errorf("SemverCmp(%q,%q) = %v, want kind=%v order=%v", a, b, r, wantKind, wantOrd)
		}
	}
	check("1", "1", ResultEquivalent, Equal)
	check("1", "2", ResultUpgrade, Less)
	check("2", "1", ResultUpgrade, Greater)
	check("1.1", "1", ResultEquivalent, Greater)
	check("1.2", "2.1", ResultUpgrade, Less)
	check("0.2", "1.1", ResultUpgrade, Less)
	check("0.1", "0.1", ResultEquivalent, Equal)
	check("0.2", "0.1", ResultUpgrade, Greater)
	check("0.1.2", "0.1", ResultEquivalent, Greater)
	check("0.1.2", "0.1.9", ResultEquivalent, Less)
	check("0.1.2", "0.1.2", ResultEquivalent, Equal)
	check("0.1.2.0.1", "0.1.2", ResultEquivalent, Greater)

	r := p("0.1").SemverCmp(p("0"))
	if r.Kind != ResultUndecidable || r.Order != Greater || r.Reason.Kind != RightMissing {
		t.Errorf("SemverCmp(0.1, 0) = %v, want Undecidable(RightMissing, Greater)", r)
	}
}

func TestGitVersionParse(t *testing.T) {
	g := mustGit(t, "1.2.3-7-g8c847ab")
	if g.Version.String() != "1.2.3" || g.PastTag == nil || g.PastTag.Depth != 7 || g.PastTag.Hash != "8c847ab" || g.Modified {
		t.Fatalf("unexpected parse: %+v", g)
	}
	g2 := mustGit(t, "1.2.3-7-g8c847ab-modified")
	if !g2.Modified {
		t.Fatalf("expected modified flag set")
	}
	if _, err := ParseGitVersion("1.2.3-abc-g8c847ab"); err == nil {
		t.Fatalf("expected error for non-numeric depth")
	}
	if _, err := ParseGitVersion("1.2.3-7-8c847ab"); err == nil {
		t.Fatalf("expected error for missing g prefix")
	}
}

func TestGitVersionSemverCmp(t *testing.T) {
	t2 := func(l, r string) SemVerOrdResult {
		return mustGit(t, l).SemverCmp(mustGit(t, r))
	}
	check := func(l, r string, wantKind ResultKind, wantOrd Ordering) {
		got := t2(l, r)
		if got.Kind != wantKind || got.Order != wantOrd {
			t.Errorf("SemverCmp(%q,%q) = %v, want kind=%v order=%v", l, r, got, wantKind, wantOrd)
		}
	}
	check("2.3.4", "2.3.4", ResultEquivalent, Equal)
	check("2.3.5", "2.3.4", ResultEquivalent, Greater)
	check("2.5", "2.3.4", ResultEquivalent, Greater)
	check("3.5", "2.3.4", ResultUpgrade, Greater)
	check("3", "2.3.4", ResultUpgrade, Greater)
	check("0.3", "2.3.4", ResultUpgrade, Less)
	check("0.3", "0.4", ResultUpgrade, Less)
	check("0.3.9", "0.4", ResultUpgrade, Less)

	r := t2("0.3.9-4-gab1234", "0.3")
	if r.Kind != ResultUndecidable || r.Order != Greater || r.Reason.Kind != Wip {
		t.Errorf("got %v", r)
	}
	r = t2("0.3.9-4-gab1234", "0.3.10")
	if r.Kind != ResultUndecidable || r.Order != Less {
		t.Errorf("got %v", r)
	}
	check("0", "0.3.9-4-gab1234", ResultUndecidable, Less) // LeftMissing branch below checked separately

	r = t2("0", "0.3.9-4-gab1234")
	if r.Reason.Kind != LeftMissing {
		t.Errorf("expected LeftMissing, got %v", r.Reason)
	}
}
