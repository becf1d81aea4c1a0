package xmldoc

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

// EditKind discriminates the two edit shapes.
type EditKind int

const (
	EditDelete EditKind = iota
	EditInsert
)

// Edit is either delete(byte-range) or insert(byte-position, string).
// A sequence of edits must be non-overlapping once sorted; Render
// checks this and returns an error rather than silently corrupting
// the document.
type Edit struct {
	Kind       EditKind
	Start, End int // End unused for EditInsert
	Text       string
}

// DeleteRange queues deletion of [start,end).
func DeleteRange(start, end int) Edit {
	return Edit{Kind: EditDelete, Start: start, End: end}
}

// InsertAt queues insertion of text at pos.
func InsertAt(pos int, text string) Edit {
	return Edit{Kind: EditInsert, Start: pos, Text: text}
}

// ClearBody queues deletion of e's body (BodyStart..BodyEnd). If
// treatWhitespaceAsEmpty is true and the body is whitespace-only, this
// is a documented no-op (no edit is appended) rather than deleting an
// already-empty range.
func ClearBody(edits []Edit, e *Element, source []byte, treatWhitespaceAsEmpty bool) []Edit {
	if e.BodyStart >= e.BodyEnd {
		return edits
	}
	if treatWhitespaceAsEmpty && isWhitespace(source[e.BodyStart:e.BodyEnd]) {
		return edits
	}
	return append(edits, DeleteRange(e.BodyStart, e.BodyEnd))
}

func isWhitespace(b []byte) bool {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}

// ReplaceAttr queues an attribute-value replacement on e. Since
// attribute positions are not individually tracked (only element
// ranges are), this rewrites the whole start tag via one delete +
// one insert spanning e.Start to the first '>' byte found in the
// source at or after e.Start.
func ReplaceAttr(edits []Edit, e *Element, source []byte, name, newValue string) ([]Edit, error) {
	tagEnd := findTagEnd(source, e.Start)
	if tagEnd < 0 {
		return edits, fmt.Errorf("replacing attribute %q: could not find end of start tag for <%s>", name, e.Name)
	}
	rendered, err := renderStartTag(e, name, newValue)
	if err != nil {
		return edits, err
	}
	edits = append(edits, DeleteRange(e.Start, tagEnd))
	edits = append(edits, InsertAt(e.Start, rendered))
	return edits, nil
}

func findTagEnd(source []byte, from int) int {
	for i := from; i < len(source); i++ {
		if source[i] == '>' {
			return i + 1
		}
	}
	return -1
}

func renderStartTag(e *Element, replaceName, replaceValue string) (string, error) {
	out := "<" + e.Name
	replaced := false
	for _, a := range e.Attrs {
		ln := LocalName(a.Name)
		val := a.Value
		if ln == replaceName {
			val = replaceValue
			replaced = true
		}
		out += fmt.Sprintf(" %s=%q", a.Name.Local, val)
	}
	if !replaced {
		return "", fmt.Errorf("attribute %q not found on <%s>", replaceName, e.Name)
	}
	if len(e.Children) == 0 && e.BodyStart == e.BodyEnd {
		return out + "/>", nil
	}
	return out + ">", nil
}

// Render applies edits to source: sorting by start position, with
// inserts ordered before deletes at equal start; verifying no two
// edits' ranges overlap; and streaming untouched ranges interleaved
// with insertions and omitted deletions. The empty edit list returns
// source unchanged.
func Render(source []byte, edits []Edit) (string, error) {
	if len(edits) == 0 {
		return string(source), nil
	}

	sorted := append([]Edit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].Kind == EditInsert && sorted[j].Kind == EditDelete
	})

	for _, e := range sorted {
		if e.Start < 0 || e.Start > len(source) || (e.Kind == EditDelete && e.End > len(source)) {
			return "", fmt.Errorf("edit out of bounds: %+v", e)
		}
		if !utf8.RuneStart(byteAt(source, e.Start)) {
			return "", fmt.Errorf("edit start %d is not a UTF-8 boundary", e.Start)
		}
		if e.Kind == EditDelete && !utf8.RuneStart(byteAt(source, e.End)) {
			return "", fmt.Errorf("edit end %d is not a UTF-8 boundary", e.End)
		}
	}

	if err := checkNonOverlap(sorted); err != nil {
		return "", err
	}

	var out []byte
	cursor := 0
	for _, e := range sorted {
		switch e.Kind {
		case EditInsert:
			out = append(out, source[cursor:e.Start]...)
			out = append(out, e.Text...)
			cursor = e.Start
		case EditDelete:
			out = append(out, source[cursor:e.Start]...)
			cursor = e.End
		}
	}
	out = append(out, source[cursor:]...)
	return string(out), nil
}

func byteAt(b []byte, i int) byte {
	if i >= len(b) {
		return 0
	}
	return b[i]
}

// checkNonOverlap verifies that, after sorting, no two delete ranges
// overlap and no insert falls strictly inside a delete range that
// isn't adjacent to it.
func checkNonOverlap(sorted []Edit) error {
	lastDeleteEnd := -1
	for _, e := range sorted {
		switch e.Kind {
		case EditDelete:
			if e.Start < lastDeleteEnd {
				return fmt.Errorf("overlapping edits at byte %d", e.Start)
			}
			if e.Start >= e.End {
				continue
			}
			lastDeleteEnd = e.End
		case EditInsert:
			if e.Start < lastDeleteEnd {
				return fmt.Errorf("overlapping edits at byte %d", e.Start)
			}
		}
	}
	return nil
}
