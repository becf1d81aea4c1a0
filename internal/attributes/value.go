package attributes

import (
	"strings"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/pathutil"
)

// ValueKind discriminates the two value shapes a parsed attribute
// value can take; an absent value is reported by ParseValue's ok
// result.
type ValueKind int

const (
	SingleString ValueKind = iota
	StringList
)

// Value is one attribute's parsed value: either a single string or a
// non-empty list of strings. A list must not be empty if present.
type Value struct {
	Kind   ValueKind
	Single string
	List   []string
}

// Raw returns the value as a single display string (comma-joining a
// list), for rendering and autolinking.
func (v Value) Raw() string {
	if v.Kind == SingleString {
		return v.Single
	}
	return strings.Join(v.List, ", ")
}

// ParseValue builds a Value from raw input text per spec's kind,
// returning an error for a required attribute whose input is
// effectively empty ("" after trim, or "NA").
func ParseValue(spec Spec, raw string) (Value, bool, error) {
	trimmed := strings.TrimSpace(raw)
	isEmpty := trimmed == "" || trimmed == "NA"

	switch k := spec.Kind.(type) {
	case StringKind:
		if isEmpty {
			if spec.Need == Required {
				return Value{}, false, errEmptyRequired(spec.Name)
			}
			return Value{}, false, nil
		}
		v := trimmed
		if k.NormalizeWhitespace {
			v = pathutil.NormalizeWhitespace(v)
		}
		return Value{Kind: SingleString, Single: v}, true, nil

	case StringListKind:
		if isEmpty {
			if spec.Need == Required {
				return Value{}, false, errEmptyRequired(spec.Name)
			}
			return Value{}, false, nil
		}
		items := splitList(trimmed, k.Separator)
		if len(items) == 0 {
			if spec.Need == Required {
				return Value{}, false, errEmptyRequired(spec.Name)
			}
			return Value{}, false, nil
		}
		return Value{Kind: StringList, List: items}, true, nil

	default:
		return Value{}, false, errEmptyRequired(spec.Name)
	}
}

// splitList splits on sep, trims, whitespace-normalizes, and drops
// empty items — and is invariant under padding sep with whitespace
// (" , " splits the same as ",").
func splitList(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = pathutil.NormalizeWhitespace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func errEmptyRequired(name string) error {
	return &EmptyRequiredError{Name: name}
}

// EmptyRequiredError reports a required attribute whose input was
// empty after trimming, or the literal "NA".
type EmptyRequiredError struct {
	Name string
}

func (e *EmptyRequiredError) Error() string {
	return "required attribute " + e.Name + " is missing or empty"
}
