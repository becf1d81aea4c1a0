// Package attributes implements the declarative attribute
// specification model (component L): kind, need, autolink mode,
// indexing mode, and derived attributes, plus the key-string
// preparation rules the indexer uses to build inverted indexes.
//
// Grounded on original_source/src/xmlhub_metadata.rs
// (METADATA_SPECIFICATION and KeyStringPreparation).
package attributes

import (
	"fmt"
	"strings"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/pathutil"
)

// Need says whether an attribute must be present.
type Need int

const (
	Optional Need = iota
	Required
)

// Kind is the shape of an attribute's value.
type Kind interface {
	isKind()
}

// StringKind is a single free-text value.
type StringKind struct {
	NormalizeWhitespace bool
}

func (StringKind) isKind() {}

// StringListKind is a value split on Separator into a list.
type StringListKind struct {
	Separator string
}

func (StringListKind) isKind() {}

// Autolink selects how free text in a value is auto-linked.
type Autolink int

const (
	AutolinkNone Autolink = iota
	AutolinkWeb
	AutolinkDoi
)

// Indexing controls whether, and how, an attribute's values become
// inverted-index keys.
type Indexing struct {
	Indexed       bool
	FirstWordOnly bool
	UseLowercase  bool
}

var NoIndex = Indexing{}

func Indexed(firstWordOnly, useLowercase bool) Indexing {
	return Indexing{Indexed: true, FirstWordOnly: firstWordOnly, UseLowercase: useLowercase}
}

// DeriveFunc computes a derived attribute's raw string(s) from the
// current (user-specified-only) view of a file's values. Returning a
// non-empty warning does not fail the file; it is appended to the
// shared warnings buffer.
type DeriveFunc func(values map[string]Value) (raw string, warning string)

// Spec is one entry in the attribute specification table. Position in
// the table (see Table()) is the canonical display order.
type Spec struct {
	Name        string
	Description string
	Need        Need
	Kind        Kind
	Autolink    Autolink
	Indexing    Indexing
	// Derive is non-nil for derived attributes; DerivesFrom names the
	// other attributes it reads (checked to exist at init time).
	Derive      DeriveFunc
	DerivesFrom []string
}

func (s Spec) IsDerived() bool { return s.Derive != nil }

// PrepareKeyString normalizes a raw value into an index key per s's
// Indexing rule: normalize whitespace, optionally keep only the first
// word, optionally lowercase.
func (s Spec) PrepareKeyString(raw string) string {
	v := pathutil.NormalizeWhitespace(raw)
	if s.Indexing.FirstWordOnly {
		if i := strings.IndexByte(v, ' '); i >= 0 {
			v = v[:i]
		}
	}
	if s.Indexing.UseLowercase {
		v = strings.ToLower(v)
	}
	return v
}

// validateTable checks the name-uniqueness and derivation-reference
// invariants the spec's data model requires.
func validateTable(specs []Spec) error {
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		if seen[s.Name] {
			return fmt.Errorf("duplicate attribute name %q in specification table", s.Name)
		}
		seen[s.Name] = true
	}
	for _, s := range specs {
		for _, dep := range s.DerivesFrom {
			if !seen[dep] {
				return fmt.Errorf("attribute %q derives from unknown attribute %q", s.Name, dep)
			}
		}
	}
	return nil
}
