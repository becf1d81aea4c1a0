package indexer

import "strings"

// Highlight flags a section with a problem for visual emphasis.
type Highlight int

const (
	HighlightNone Highlight = iota
	HighlightRed           // contains file-level errors
	HighlightOrange        // contains file-level warnings only
)

// NumberPath names a section for anchors and table-of-contents
// linking: a vector of 1-based integers, e.g. [2,1,3] for
// "section-2.1.3".
type NumberPath []int

func (p NumberPath) String() string {
	strs := make([]string, len(p))
	for i, n := range p {
		strs[i] = itoa(n)
	}
	return strings.Join(strs, ".")
}

func (p NumberPath) Anchor() string {
	return "section-" + p.String()
}

func (p NumberPath) Child(n int) NumberPath {
	out := make(NumberPath, len(p)+1)
	copy(out, p)
	out[len(p)] = n
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Section is one node of the output tree shared by both renderers.
type Section struct {
	Highlight Highlight
	Title     string
	IntroHTML string // optional HTML fragment rendered before children
	Children  []*Section
	Number    NumberPath
}

// NewSection constructs a section and assigns NumberPaths to it and
// all descendants added via AddChild, so both renderers can run from
// stable ids/paths without needing back-pointers into each other's
// output (SPEC_FULL.md §9, cyclic section/index link resolution).
func NewSection(number NumberPath, title string) *Section {
	return &Section{Number: number, Title: title}
}

// AddChild appends a new child section with the next sequential
// number under s.
func (s *Section) AddChild(title string) *Section {
	child := NewSection(s.Number.Child(len(s.Children)+1), title)
	s.Children = append(s.Children, child)
	return child
}

// Walk visits s and every descendant, depth-first, pre-order.
func (s *Section) Walk(visit func(*Section)) {
	visit(s)
	for _, c := range s.Children {
		c.Walk(visit)
	}
}
