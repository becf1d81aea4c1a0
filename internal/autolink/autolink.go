// Package autolink wraps bare URLs and DOIs found in free-text
// attribute values into clickable HTML anchors, per each attribute's
// Autolink mode (component Q).
//
// Grounded on original_source/src/xmlhub_metadata.rs's Autolink enum
// and its regex-based URL/DOI detection.
package autolink

import (
	"html"
	"regexp"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/attributes"
)

// urlPattern matches http(s) URLs; doiPattern matches bare DOIs. In a
// value that already carries a doi.org URL, only the DOI after the
// prefix is matched and linked; the prefix stays plain text.
var (
	urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)
	doiPattern = regexp.MustCompile(`\b10\.\d{4,9}/[^\s<>"]+`)
)

// Wrap HTML-escapes s and wraps any URLs/DOIs it contains in <a>
// tags, according to mode. AutolinkNone returns the escaped text
// unchanged.
func Wrap(mode attributes.Autolink, s string) string {
	switch mode {
	case attributes.AutolinkWeb:
		return wrapPattern(s, urlPattern, func(m string) string { return m })
	case attributes.AutolinkDoi:
		return wrapPattern(s, doiPattern, func(m string) string { return "https://doi.org/" + m })
	default:
		return html.EscapeString(s)
	}
}

func wrapPattern(s string, pattern *regexp.Regexp, hrefFor func(match string) string) string {
	var out []byte
	last := 0
	for _, loc := range pattern.FindAllStringIndex(s, -1) {
		start, end := loc[0], loc[1]
		out = append(out, html.EscapeString(s[last:start])...)
		match := s[start:end]
		href := hrefFor(match)
		out = append(out, `<a href="`...)
		out = append(out, html.EscapeString(href)...)
		out = append(out, `">`...)
		out = append(out, html.EscapeString(match)...)
		out = append(out, `</a>`...)
		last = end
	}
	out = append(out, html.EscapeString(s[last:])...)
	return string(out)
}
