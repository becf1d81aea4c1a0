// Package version implements the SemVer-with-WIP ordering contract
// (component D). semver_cmp is deliberately NOT the language's normal
// ordering: it returns one of four explicit outcomes (Equivalent,
// Upgrade, Undecidable, FailedPartialOrd) and callers must switch on
// the Kind rather than compare with < or ==.
//
// Grounded on original_source/src/git_version.rs, including its
// major-0-treats-minor-as-major rule and its WIP/past-tag handling.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Ordering mirrors the three-way comparison result this package needs
// without importing the cmp package's newer tri-state (kept explicit
// for readability against the ported algorithm).
type Ordering int

const (
	Less Ordering = iota - 1
	Equal
	Greater
)

func (o Ordering) String() string {
	switch o {
	case Less:
		return "less"
	case Equal:
		return "equal"
	case Greater:
		return "greater"
	default:
		return "invalid"
	}
}

// SemVersion is a version as a vector of non-negative integers,
// e.g. "2.7.1" -> [2,7,1]. An optional leading "v" is accepted on
// parse, never re-emitted on Display.
type SemVersion struct {
	parts []uint32
}

// ParseSemVersion parses a "v"-prefixed-or-not dot-separated sequence
// of unsigned integers.
func ParseSemVersion(s string) (SemVersion, error) {
	trimmed := strings.TrimPrefix(s, "v")
	if trimmed == "" {
		return SemVersion{}, fmt.Errorf("empty version string")
	}
	fields := strings.Split(trimmed, ".")
	parts := make([]uint32, 0, len(fields))
	for i, f := range fields {
		n, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return SemVersion{}, fmt.Errorf("expecting part %d of version string %q to be an integer: %q: %w", i+1, s, f, err)
		}
		parts = append(parts, uint32(n))
	}
	return SemVersion{parts: parts}, nil
}

func (v SemVersion) String() string {
	strs := make([]string, len(v.parts))
	for i, p := range v.parts {
		strs[i] = strconv.FormatUint(uint64(p), 10)
	}
	return strings.Join(strs, ".")
}

func (v SemVersion) at(i int) (uint32, bool) {
	if i < len(v.parts) {
		return v.parts[i], true
	}
	return 0, false
}

// NextMajor returns the version with the major component incremented
// and everything else dropped.
func (v SemVersion) NextMajor() SemVersion {
	major, _ := v.at(0)
	return SemVersion{parts: []uint32{major + 1}}
}

// NextMinor returns major.(minor+1), dropping patch and beyond.
func (v SemVersion) NextMinor() SemVersion {
	major, _ := v.at(0)
	minor, _ := v.at(1)
	return SemVersion{parts: []uint32{major, minor + 1}}
}

// NextPatch returns major.minor.(patch+1), dropping anything beyond.
func (v SemVersion) NextPatch() SemVersion {
	major, _ := v.at(0)
	minor, _ := v.at(1)
	patch, _ := v.at(2)
	return SemVersion{parts: []uint32{major, minor, patch + 1}}
}

// cmpSlices computes the plain positional ordering of two version
// part slices, treating a shorter slice as equal to a longer one
// whose extra components are all zero (so "3.2" == "3.2.0").
func cmpSlices(left, right []uint32) (Ordering, bool) {
	nonZeroesMeanLess := func(rest []uint32) Ordering {
		for _, v := range rest {
			if v != 0 {
				return Less
			}
		}
		return Equal
	}
	i := 0
	for {
		lv, lok := atIdx(left, i)
		rv, rok := atIdx(right, i)
		switch {
		case lok && rok:
			switch {
			case lv < rv:
				return Less, true
			case lv > rv:
				return Greater, true
			}
			i++
		case lok && !rok:
			return reverse(nonZeroesMeanLess(left[i:])), true
		default:
			return nonZeroesMeanLess(right[i:]), true
		}
	}
}

func atIdx(s []uint32, i int) (uint32, bool) {
	if i < len(s) {
		return s[i], true
	}
	return 0, false
}

func reverse(o Ordering) Ordering {
	switch o {
	case Less:
		return Greater
	case Greater:
		return Less
	default:
		return Equal
	}
}

// UndecidabilityReason explains why a SemVerOrdResult is Undecidable.
type UndecidabilityReason struct {
	Kind        UndecidabilityKind
	LeftIsWip   bool
	RightIsWip  bool
}

type UndecidabilityKind int

const (
	Wip UndecidabilityKind = iota
	LeftMissing
	RightMissing
	BothMissing
)

func (r UndecidabilityReason) String() string {
	switch r.Kind {
	case Wip:
		return "one or both versions represent work in progress and it is unknown if one is a parent of the other"
	case LeftMissing:
		return "the left version is missing a value"
	case RightMissing:
		return "the right version is missing a value"
	case BothMissing:
		return "both versions are missing a value"
	default:
		return "unknown undecidability reason"
	}
}

// ResultKind discriminates the four SemVerOrdResult outcomes.
type ResultKind int

const (
	ResultEquivalent ResultKind = iota
	ResultUpgrade
	ResultUndecidable
	ResultFailedPartialOrd
)

// SemVerOrdResult is the explicit 4-variant outcome of semver_cmp.
// Callers must switch on Kind; there is intentionally no Less()/bool
// accessor that would let a caller treat this like a normal ordering.
type SemVerOrdResult struct {
	Kind   ResultKind
	Order  Ordering
	Reason UndecidabilityReason // valid only when Kind == ResultUndecidable
	Detail string                // valid only when Kind == ResultFailedPartialOrd
}

func (r SemVerOrdResult) String() string {
	switch r.Kind {
	case ResultEquivalent:
		return fmt.Sprintf("equivalent(%s)", r.Order)
	case ResultUpgrade:
		return fmt.Sprintf("upgrade(%s)", r.Order)
	case ResultUndecidable:
		return fmt.Sprintf("undecidable(%s, %s)", r.Reason, r.Order)
	case ResultFailedPartialOrd:
		return fmt.Sprintf("failed partial ord: %s", r.Detail)
	default:
		return "invalid result"
	}
}

func cmpOptionals(left *uint32, right *uint32) SemVerOrdResult {
	switch {
	case left != nil && right != nil:
		switch {
		case *left < *right:
			return SemVerOrdResult{Kind: ResultUpgrade, Order: Less}
		case *left > *right:
			return SemVerOrdResult{Kind: ResultUpgrade, Order: Greater}
		default:
			return SemVerOrdResult{Kind: ResultEquivalent, Order: Equal}
		}
	case left != nil && right == nil:
		return SemVerOrdResult{Kind: ResultUndecidable, Order: Greater, Reason: UndecidabilityReason{Kind: RightMissing}}
	case left == nil && right != nil:
		return SemVerOrdResult{Kind: ResultUndecidable, Order: Less, Reason: UndecidabilityReason{Kind: LeftMissing}}
	default:
		return SemVerOrdResult{Kind: ResultUndecidable, Order: Equal, Reason: UndecidabilityReason{Kind: BothMissing}}
	}
}

// non0SemverCmp decides compatibility of two version-part slices.
// Only correct when neither slice has 0 in position 0 (the major-0
// special case is handled by the caller, SemVersion.SemverCmp).
func non0SemverCmp(left, right []uint32) SemVerOrdResult {
	l0, lok := atIdx(left, 0)
	r0, rok := atIdx(right, 0)
	var l0p, r0p *uint32
	if lok {
		l0p = &l0
	}
	if rok {
		r0p = &r0
	}
	cmp0 := cmpOptionals(l0p, r0p)
	if cmp0.Kind != ResultEquivalent {
		return cmp0
	}
	// Same first component: return the full-slice ordering inside
	// Equivalent, not just the Equal used to decide compatibility.
	ord, ok := cmpSlices(left, right)
	if !ok {
		return SemVerOrdResult{Kind: ResultFailedPartialOrd, Detail: fmt.Sprintf("%v <=> %v", left, right)}
	}
	return SemVerOrdResult{Kind: ResultEquivalent, Order: ord}
}

// SemverCmp implements the major-0-treats-minor-as-major rule: if
// both versions have a 0 major, component 1 (minor) is compared as
// if it were the major; otherwise the whole slice is compared as is.
func (v SemVersion) SemverCmp(other SemVersion) SemVerOrdResult {
	l0, lok := v.at(0)
	r0, rok := other.at(0)
	if lok && rok && l0 == 0 && r0 == 0 {
		return non0SemverCmp(v.parts[1:], other.parts[1:])
	}
	return non0SemverCmp(v.parts, other.parts)
}

// Equal reports whether v and other denote the same version under the
// plain positional ordering ("3.2" == "3.2.0"). SemVersion holds an
// unexported slice field so it is not comparable with ==; this is the
// supported substitute.
func (v SemVersion) Equal(other SemVersion) bool {
	ord, ok := cmpSlices(v.parts, other.parts)
	return ok && ord == Equal
}

// PartialCmp is the plain positional ordering ("3.2" == "3.2.0").
// GitVersion.PartialCmp builds on it to order versions for display;
// compatibility decisions go through SemverCmp.
func (v SemVersion) PartialCmp(other SemVersion) (Ordering, bool) {
	return cmpSlices(v.parts, other.parts)
}
