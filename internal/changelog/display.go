package changelog

import (
	"fmt"
	"strings"
)

// DisplayStyle selects how Render lays out a Changelog.
type DisplayStyle struct {
	// Innovative reproduces Changelog.md's own source ordering
	// verbatim; when false, releases are grouped into "## vX (date)"
	// sections.
	Innovative bool

	PrintColonAfterRelease bool
	NewestSectionFirst     bool
	NewestItemFirst        bool
}

// Render formats c per style, optionally prefixing the generated
// DisplayTitle heading.
func Render(c *Changelog, generateTitle bool, style DisplayStyle) string {
	var b strings.Builder
	if generateTitle {
		b.WriteString(c.DisplayTitle())
		b.WriteByte('\n')
	}

	if style.Innovative {
		if c.Newest != "" {
			fmt.Fprintf(&b, "%s\n\n", c.Newest)
		}
		for _, e := range c.Entries {
			switch e.Kind {
			case EntryRelease:
				fmt.Fprintf(&b, "\nv%s released on %s\n", e.Release.Version.String(), e.Release.Date)
			case EntryPoint:
				fmt.Fprintf(&b, "%s\n", e.Point)
			}
		}
		return b.String()
	}

	sections := c.Sections()
	if style.NewestSectionFirst {
		reverseSections(sections)
	}
	colon := ""
	if style.PrintColonAfterRelease {
		colon = ":"
	}
	for _, s := range sections {
		if s.Release != nil {
			fmt.Fprintf(&b, "\n## v%s (%s)%s\n\n", s.Release.Version.String(), s.Release.Date, colon)
		} else {
			fmt.Fprintf(&b, "\n## (unreleased)%s\n\n", colon)
		}
		entries := s.Entries
		if style.NewestItemFirst {
			entries = reversedStrings(entries)
		}
		for _, e := range entries {
			fmt.Fprintf(&b, "%s\n", e)
		}
	}
	return b.String()
}

func reverseSections(s []Section) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func reversedStrings(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}
