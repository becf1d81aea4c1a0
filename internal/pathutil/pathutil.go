// Package pathutil holds the path-joining and extension-appending
// helpers used across the indexer, renderer and upgrade channel.
package pathutil

import (
	"path/filepath"
	"strings"
)

// AppendExt returns path with suffix appended to its extension, e.g.
// AppendExt("a/b.xml", ".bak") == "a/b.xml.bak".
func AppendExt(path, suffix string) string {
	return path + suffix
}

// WithExt replaces path's extension with ext (which should include the
// leading dot), e.g. WithExt("a/b.xml", ".html") == "a/b.html".
func WithExt(path, ext string) string {
	trimmed := strings.TrimSuffix(path, filepath.Ext(path))
	return trimmed + ext
}

// NormalizeWhitespace collapses runs of ASCII whitespace to a single
// space and trims the result, matching the attribute spec's
// normalize-whitespace kind.
func NormalizeWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// SplitRelative splits a forward-slash relative path into its
// components, dropping any empty segments produced by a leading or
// doubled slash.
func SplitRelative(rel string) []string {
	parts := strings.Split(rel, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
