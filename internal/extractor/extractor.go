// Package extractor implements the comment-header extractor
// (component N): parses "Key: value" records out of the XML comments
// preceding the root element, splits multi-value fields per their
// attribute spec, computes derived attributes, and enforces the BEAST
// version gate.
//
// Grounded on original_source/src/xmlhub_fileinfo.rs (Metadata,
// FileInfo) and xmlhub_metadata.rs (value parsing rules).
package extractor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/attributes"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/xmldoc"
)

// Issue is one file-level problem: either an error (the file is
// excluded from the indexes) or a warning (the file is kept, the
// issue is surfaced in its info box).
type Issue struct {
	Message string
	Warning bool
}

// Result is the per-file extraction outcome.
type Result struct {
	Metadata *attributes.Metadata
	Warnings []string
	Errors   []string
}

// Ok reports whether the file has no errors and should be indexed.
func (r Result) Ok() bool { return len(r.Errors) == 0 }

var keyLinePrefix = ": "

// Extract runs the full extraction pipeline over a parsed document:
// header comment parsing, BEAST version gate, derived attributes.
func Extract(doc *xmldoc.Document, allowNonV2 bool) Result {
	var res Result
	res.Metadata = attributes.NewMetadata()

	raw := collectRawValues(doc.HeaderComments)

	for _, spec := range attributes.Table() {
		if spec.IsDerived() {
			continue
		}
		input, present := raw[spec.Name]
		if !present {
			if spec.Need == attributes.Required {
				res.Errors = append(res.Errors, fmt.Sprintf("missing required attribute %q", spec.Name))
			}
			continue
		}
		v, ok, err := attributes.ParseValue(spec, input)
		if err != nil {
			res.Errors = append(res.Errors, err.Error())
			continue
		}
		if ok {
			res.Metadata.Set(spec.Name, v)
		}
	}

	for key := range raw {
		if _, known := attributes.ByName(key); !known {
			res.Warnings = append(res.Warnings, fmt.Sprintf("unknown attribute %q in header comment", key))
		}
	}

	if err := checkBeastVersion(doc, allowNonV2); err != nil {
		res.Errors = append(res.Errors, err.Error())
	}

	res.Metadata.Extend(&res.Warnings)
	return res
}

// collectRawValues splits each header comment into lines, recognizing
// "Key: value" records (Key matched case-sensitively against the
// attribute table), and accumulates values per key across comments —
// multiple comments (or multiple matching lines) for the same key are
// joined with the key's own separator when it is a list kind, or
// simply concatenated with a space for single-string kinds.
func collectRawValues(comments []xmldoc.Comment) map[string]string {
	raw := make(map[string]string)
	for _, c := range comments {
		for _, line := range strings.Split(c.Text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			idx := strings.Index(line, ":")
			if idx < 0 {
				continue
			}
			key := strings.TrimSpace(line[:idx])
			value := strings.TrimSpace(line[idx+len(keyLinePrefix)-1:])
			spec, known := attributes.ByName(key)
			if !known {
				// Keep the raw text under the literal key so the
				// caller can still report "unknown key" with its
				// original casing.
				raw[key] = value
				continue
			}
			if existing, ok := raw[spec.Name]; ok {
				sep := " "
				if sl, isList := spec.Kind.(attributes.StringListKind); isList {
					sep = sl.Separator
				}
				raw[spec.Name] = existing + sep + value
			} else {
				raw[spec.Name] = value
			}
		}
	}
	return raw
}

// checkBeastVersion enforces the BEAST version gate: the root element
// must be named "beast" (namespace ignored) with a "version" attribute
// parseable as product.major[.patch...], product in {1,2,3+}. Unless
// allowNonV2 is set, any product other than 2 is a file-level error.
func checkBeastVersion(doc *xmldoc.Document, allowNonV2 bool) error {
	if doc.Root == nil || doc.Root.Name != "beast" {
		return fmt.Errorf("root element is not <beast>")
	}
	versionAttr, ok := doc.Root.Attr("version")
	if !ok {
		return fmt.Errorf("<beast> element has no version attribute")
	}
	parts := strings.SplitN(versionAttr, ".", 2)
	product, err := strconv.Atoi(parts[0])
	if err != nil {
		return fmt.Errorf("beast version %q: product component is not an integer: %w", versionAttr, err)
	}
	if product != 2 && !allowNonV2 {
		return fmt.Errorf("beast version %q: expected BEAST2 (product 2), got product %d", versionAttr, product)
	}
	return nil
}
