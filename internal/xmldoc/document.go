// Package xmldoc implements the source-range-preserving XML reader
// and modifier (component M): a Document owns both the original
// source bytes and a tree of Elements carrying byte offsets into that
// source, plus a queue of non-overlapping edits that can be applied
// to rebuild a modified document.
//
// stdlib encoding/xml does not expose source ranges; this package
// wraps xml.Decoder's InputOffset() to recover them, keeping source
// and tree in one owning Document rather than a borrowing tree
// structure, per SPEC_FULL.md §9's resolution of the
// self-referential-document re-architecture note.
package xmldoc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Comment is a raw XML comment with its byte range in the source.
// Parse keeps only the comments that precede the root element, where
// the comment-header extractor looks for metadata records.
type Comment struct {
	Text       string // comment body, without <!-- -->
	Start, End int    // byte offsets in Document.Source, covering <!--...-->
}

// Element is one XML element, with its name (local part only —
// namespaces are ignored per the BEAST version gate's own rule),
// attributes, children, and byte ranges.
type Element struct {
	Name       string
	Attrs      []xml.Attr
	Children   []*Element
	Start, End int // byte range of the whole element, "<tag...>...</tag>" or "<tag/>"

	// BodyStart/BodyEnd span from the first child's Start to the last
	// child's End — the range a "clear body" edit deletes. Without child
	// elements they span the text between the start and end tags, and
	// are equal for an empty body.
	BodyStart, BodyEnd int

	// StartTagCol is the 0-based column (byte offset from the
	// preceding newline) the opening tag begins at, used to align a
	// prepended comment at the same indentation.
	StartTagCol int
}

// LocalName strips a namespace prefix, matching the
// namespace-insensitive element lookup the spec requires.
func LocalName(name xml.Name) string {
	if i := strings.IndexByte(name.Local, ':'); i >= 0 {
		return name.Local[i+1:]
	}
	return name.Local
}

// Attr returns the value of the namespace-insensitive attribute name
// on e, and whether it was present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if LocalName(a.Name) == name {
			return a.Value, true
		}
	}
	return "", false
}

// Document is an immutable source string plus the parsed tree and the
// header comments preceding the root element.
type Document struct {
	Source         []byte
	HeaderComments []Comment
	Root           *Element
}

// Parse reads a full XML document, preserving byte ranges.
func Parse(data []byte) (*Document, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	doc := &Document{Source: data}

	var stack []*Element
	var lastOffset int64
	sawRoot := false

	for {
		startOffset := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing XML: %w", err)
		}
		endOffset := dec.InputOffset()

		switch t := tok.(type) {
		case xml.Comment:
			c := Comment{Text: string(t), Start: int(startOffset), End: int(endOffset)}
			if !sawRoot {
				doc.HeaderComments = append(doc.HeaderComments, c)
			}
		case xml.StartElement:
			sawRoot = true
			el := &Element{
				Name:        LocalName(t.Name),
				Attrs:       append([]xml.Attr(nil), t.Attr...),
				Start:       int(startOffset),
				StartTagCol: columnAt(data, int(startOffset)),
			}
			el.BodyStart = int(endOffset)
			el.BodyEnd = int(endOffset)
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			} else if doc.Root == nil {
				doc.Root = el
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("parsing XML: unmatched end element %q", t.Name.Local)
			}
			el := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			el.End = int(endOffset)
			if len(el.Children) > 0 {
				el.BodyEnd = el.Children[len(el.Children)-1].End
				el.BodyStart = el.Children[0].Start
			} else {
				el.BodyEnd = int(startOffset)
			}
		}
		lastOffset = endOffset
	}
	_ = lastOffset

	if doc.Root == nil {
		return nil, fmt.Errorf("parsing XML: no root element found")
	}
	return doc, nil
}

func columnAt(data []byte, offset int) int {
	col := 0
	for i := offset - 1; i >= 0 && data[i] != '\n'; i-- {
		col++
	}
	return col
}

// FindByLocalName returns every element in the tree (including Root)
// whose local name equals name, namespace-insensitive, in document
// order.
func (d *Document) FindByLocalName(name string) []*Element {
	var out []*Element
	var walk func(*Element)
	walk = func(e *Element) {
		if e.Name == name {
			out = append(out, e)
		}
		for _, c := range e.Children {
			walk(c)
		}
	}
	if d.Root != nil {
		walk(d.Root)
	}
	return out
}
