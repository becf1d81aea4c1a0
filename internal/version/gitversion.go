package version

import (
	"fmt"
	"strconv"
	"strings"
)

// PastTag records the "-<depth>-g<hash>" suffix git-describe adds once
// a checkout has moved past its nearest tag.
type PastTag struct {
	Depth uint32
	Hash  string
}

// GitVersion is a SemVersion plus the WIP/modified state git-describe
// strings carry. A non-nil PastTag marks the version as
// work-in-progress.
type GitVersion struct {
	Version  SemVersion
	PastTag  *PastTag
	Modified bool
}

func (g GitVersion) IsWip() bool {
	return g.PastTag != nil
}

func (g GitVersion) String() string {
	var b strings.Builder
	b.WriteString(g.Version.String())
	if g.PastTag != nil {
		fmt.Fprintf(&b, "-%d-g%s", g.PastTag.Depth, g.PastTag.Hash)
	}
	if g.Modified {
		b.WriteString("-modified")
	}
	return b.String()
}

// ParseGitVersion parses a git-describe-style string: "X.Y.Z",
// "X.Y.Z-modified", or "X.Y.Z-<depth>-g<hash>[-modified]".
func ParseGitVersion(s string) (GitVersion, error) {
	parts := strings.Split(s, "-")
	parseBase := func() (SemVersion, error) {
		v, err := ParseSemVersion(parts[0])
		if err != nil {
			return SemVersion{}, fmt.Errorf("expecting a version number string consisting of the optional letter 'v' followed by 1-3 non-negative integer numbers with '.' inbetween, got %q: %w", parts[0], err)
		}
		return v, nil
	}
	switch {
	case len(parts) == 1:
		v, err := parseBase()
		if err != nil {
			return GitVersion{}, err
		}
		return GitVersion{Version: v}, nil
	case len(parts) == 2 && parts[1] == "modified":
		v, err := parseBase()
		if err != nil {
			return GitVersion{}, err
		}
		return GitVersion{Version: v, Modified: true}, nil
	case len(parts) == 3:
		return parsePastTag(s, parts, parseBase, false)
	case len(parts) == 4 && parts[3] == "modified":
		return parsePastTag(s, parts, parseBase, true)
	default:
		return GitVersion{}, fmt.Errorf("expecting either no '-' or two of them and optionally with `-modified` appended, but got: %q", s)
	}
}

func parsePastTag(s string, parts []string, parseBase func() (SemVersion, error), modified bool) (GitVersion, error) {
	depth, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return GitVersion{}, fmt.Errorf("expecting unsigned integer, got %q: %w", parts[1], err)
	}
	if !strings.HasPrefix(parts[2], "g") {
		return GitVersion{}, fmt.Errorf("expecting `g...`, got %q in %q", parts[2], s)
	}
	v, err := parseBase()
	if err != nil {
		return GitVersion{}, err
	}
	return GitVersion{
		Version:  v,
		PastTag:  &PastTag{Depth: uint32(depth), Hash: parts[2][1:]},
		Modified: modified,
	}, nil
}

// PartialCmp orders two GitVersions the way `git describe` output
// should sort for display, folding in past-tag depth when both
// versions share the same base and are otherwise equal. Returns
// ok=false when the comparison is ambiguous (equal base version but
// different commit hashes at the same depth).
func (g GitVersion) PartialCmp(other GitVersion) (Ordering, bool) {
	ord, ok := g.Version.PartialCmp(other.Version)
	if !ok {
		return 0, false
	}
	if ord != Equal {
		return ord, true
	}
	switch {
	case g.PastTag != nil && other.PastTag != nil:
		if g.Version.Equal(other.Version) {
			if g.PastTag.Depth < other.PastTag.Depth {
				return Less, true
			}
			if g.PastTag.Depth > other.PastTag.Depth {
				return Greater, true
			}
			if g.PastTag.Hash != other.PastTag.Hash {
				return 0, false
			}
			return Equal, true
		}
		return 0, false
	case g.PastTag != nil:
		return Greater, true
	case other.PastTag != nil:
		return Less, true
	default:
		return Equal, true
	}
}

// SemverCmp implements the WIP-aware semver_cmp contract: if either
// side is WIP, any Equivalent outcome from the base versions becomes
// Undecidable(Wip, ...), since WIP versions are pessimistically
// assumed incompatible regardless of apparent equivalence.
func (g GitVersion) SemverCmp(other GitVersion) SemVerOrdResult {
	anyWip := g.IsWip() || other.IsWip()
	cmp := g.Version.SemverCmp(other.Version)

	if cmp.Kind == ResultEquivalent && anyWip {
		ord := cmp.Order
		if po, ok := g.PartialCmp(other); ok {
			ord = po
		}
		return SemVerOrdResult{
			Kind:   ResultUndecidable,
			Order:  ord,
			Reason: UndecidabilityReason{Kind: Wip, LeftIsWip: g.IsWip(), RightIsWip: other.IsWip()},
		}
	}
	return cmp
}
