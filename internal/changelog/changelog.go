// Package changelog parses and slices Changelog.md (component R): a
// loose line-oriented format mixing a title line, release header
// lines ("vX.Y.Z - date"), bullet point entries, and a few ignored
// decorative lines.
//
// Grounded line-for-line on original_source/src/changelog.rs
// (Changelog::from_str and get_between_versions).
package changelog

import (
	"fmt"
	"strings"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/version"
)

// EntryKind discriminates the two parsed line shapes kept verbatim in
// a Changelog's Entries.
type EntryKind int

const (
	EntryRelease EntryKind = iota
	EntryPoint
)

// Release is one "vX.Y.Z - date" header line, parsed.
type Release struct {
	Version version.GitVersion
	Date    string
}

// Entry is one changelog line: either a Release header or a verbatim
// point (bullet) line.
type Entry struct {
	Kind    EntryKind
	Release Release // valid when Kind == EntryRelease
	Point   string  // valid when Kind == EntryPoint, includes the leading '-'
}

// Changelog is a parsed Changelog.md, or a sub-range of one produced
// by GetBetweenVersions.
type Changelog struct {
	Title        string // the '#'-prefixed title line, if any
	Newest       string // the "Newest ..." sentence, if any
	Entries      []Entry
	From         *version.GitVersion
	IncludeFrom  bool
	To           *version.GitVersion
	IsDowngrade  bool
}

// Parse parses the raw Changelog.md text.
func Parse(text string) (*Changelog, error) {
	c := &Changelog{IncludeFrom: true}
	lineno := 0
	for _, line := range strings.Split(text, "\n") {
		lineno++
		if line == "" {
			continue
		}
		switch line[0] {
		case '#':
			c.Title = line
		case 'v':
			parts := strings.Split(line, " - ")
			if len(parts) != 2 {
				return nil, fmt.Errorf("expecting 2 parts in a release line split on ' - ', on line %d", lineno)
			}
			v, err := version.ParseGitVersion(strings.TrimSpace(parts[0]))
			if err != nil {
				return nil, fmt.Errorf("parsing version number %q on line %d: %w", line, lineno, err)
			}
			c.Entries = append(c.Entries, Entry{
				Kind:    EntryRelease,
				Release: Release{Version: v, Date: parts[1]},
			})
		case '-':
			c.Entries = append(c.Entries, Entry{Kind: EntryPoint, Point: line})
		default:
			switch {
			case strings.HasPrefix(line, "Newest"):
				c.Newest = line
			case strings.HasPrefix(line, "cj"), strings.HasPrefix(line, "Versions"), strings.HasPrefix(line, "..."):
				// decorative, ignored
			case isAllWhitespace(line):
				// ignored
			default:
				return nil, fmt.Errorf("can't parse line %q on line %d", line, lineno)
			}
		}
	}
	return c, nil
}

func isAllWhitespace(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune(" \t\r\v\f", r) {
			return false
		}
	}
	return true
}

// Section groups point entries under the release that introduced
// them; a nil Release denotes the not-yet-released leading section.
type Section struct {
	Release *Release
	Entries []string
}

// Sections regroups c's flat Entries into per-release sections, in
// file order (newest-or-oldest depends on Changelog.md's own
// convention; this performs no reordering).
func (c *Changelog) Sections() []Section {
	var sections []Section
	var pending []string
	for _, e := range c.Entries {
		switch e.Kind {
		case EntryRelease:
			sections = append(sections, Section{Release: &Release{Version: e.Release.Version, Date: e.Release.Date}, Entries: pending})
			pending = nil
		case EntryPoint:
			pending = append(pending, e.Point)
		}
	}
	if len(pending) > 0 {
		sections = append(sections, Section{Entries: pending})
	}
	return sections
}

// DisplayTitle builds the "# Changes from/since version X until
// version Y" heading GetBetweenVersions results are shown under.
func (c *Changelog) DisplayTitle() string {
	fromOrSince := "since"
	if c.IncludeFrom {
		fromOrSince = "from"
	}
	fromPart := ""
	if c.From != nil {
		fromPart = fmt.Sprintf("%s version %s", fromOrSince, c.From.String())
	}
	toPart := ""
	if c.To != nil {
		toPart = fmt.Sprintf("until version %s", c.To.String())
	}
	suffix := ""
	if c.IsDowngrade {
		suffix = " (for downgrade)"
	}
	return fmt.Sprintf("# Changes %s %s%s", fromPart, toPart, suffix)
}

// FromAfterToError reports a caller-supplied from > to range when
// downgrades are disallowed.
type FromAfterToError struct{ From, To string }

func (e FromAfterToError) Error() string {
	return fmt.Sprintf("given `from` release number is after `to`: %s > %s", e.From, e.To)
}

// WronglyOrderedError reports a Changelog.md whose release lines are
// not in the expected monotonic order once from/to were both located.
type WronglyOrderedError struct{ From, To string }

func (e WronglyOrderedError) Error() string {
	return fmt.Sprintf("Changelog.md has wrongly ordered releases, or there is a bug: expected %s < %s", e.From, e.To)
}

// GetBetweenVersions selects the sub-range of c's Entries between
// from and to (either bound may be nil for "start"/"end of log").
// include_from controls whether the located from release's own
// header line is kept (never its point entries from before it).
// If allowDowngrades is false, from > to is an error; otherwise the
// bounds are swapped and IsDowngrade is set.
func (c *Changelog) GetBetweenVersions(allowDowngrades, includeFrom bool, from, to *version.GitVersion) (*Changelog, error) {
	isDowngrade := false
	if from != nil && to != nil {
		if ord, ok := from.PartialCmp(*to); ok && ord == version.Greater {
			if !allowDowngrades {
				return nil, FromAfterToError{From: from.String(), To: to.String()}
			}
			isDowngrade = true
		}
	}
	if isDowngrade {
		from, to = to, from
	}

	n := len(c.Entries)
	var start, end *int
	if from == nil {
		zero := 0
		start = &zero
	}
	if to == nil {
		last := n - 1
		end = &last
	}
	for i := 0; i < n; i++ {
		e := c.Entries[i]
		if e.Kind != EntryRelease {
			continue
		}
		if from != nil && start == nil {
			if ord, ok := e.Release.Version.PartialCmp(*from); ok && (ord == version.Greater || ord == version.Equal) {
				idx := i
				start = &idx
			}
		}
		if to != nil && end == nil {
			if ord, ok := e.Release.Version.PartialCmp(*to); ok && (ord == version.Greater || ord == version.Equal) {
				idx := i
				end = &idx
			}
		}
		if start != nil && end != nil {
			break
		}
	}
	startIdx := n
	if start != nil {
		startIdx = *start
	}
	possiblyAfterStart := startIdx
	if !includeFrom && startIdx < n {
		if c.Entries[startIdx].Kind == EntryRelease {
			possiblyAfterStart = min(startIdx+1, n)
		}
	}
	endIdx := n
	if end != nil {
		endIdx = *end
	}
	afterEnd := min(endIdx+1, n)

	if possiblyAfterStart > afterEnd {
		return nil, WronglyOrderedError{From: fmt.Sprint(from), To: fmt.Sprint(to)}
	}

	out := &Changelog{
		Title:       c.Title,
		Newest:      c.Newest,
		IncludeFrom: includeFrom,
		From:        from,
		To:          to,
		IsDowngrade: isDowngrade,
		Entries:     append([]Entry(nil), c.Entries[possiblyAfterStart:afterEnd]...),
	}
	return out, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
