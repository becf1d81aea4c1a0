// Package timeutil provides the small set of time formatting helpers
// shared by the signed envelope (RFC2822 birth timestamps), the app
// info file (RFC2822 build dates) and the logger (per-line timestamps).
package timeutil

import "time"

// RFC2822 formats t the way mail headers and the original app-info/
// key envelope format expect.
func RFC2822(t time.Time) string {
	return t.Format(time.RFC1123Z)
}

// ParseRFC2822 parses a timestamp produced by RFC2822.
func ParseRFC2822(s string) (time.Time, error) {
	return time.Parse(time.RFC1123Z, s)
}

// LogTimestamp formats t for prepending to a logger line, in either
// UTC or local time depending on useLocal.
func LogTimestamp(t time.Time, useLocal bool) string {
	if !useLocal {
		t = t.UTC()
	}
	return t.Format("2006-01-02T15:04:05.000000")
}
