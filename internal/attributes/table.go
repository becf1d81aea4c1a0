package attributes

import "sync"

// Table returns the canonical METADATA_SPECIFICATION table, in its
// declaration (= canonical display) order. Grounded verbatim on
// original_source/src/xmlhub_metadata.rs; see SPEC_FULL.md §4.L for
// the table reproduced as prose.
func Table() []Spec {
	tableOnce.Do(buildTable)
	return table
}

var (
	tableOnce sync.Once
	table     []Spec
)

func buildTable() {
	specs := []Spec{
		{
			Name:        "Keywords",
			Description: "Free-text keywords describing the analysis, comma-separated.",
			Need:        Required,
			Kind:        StringListKind{Separator: ","},
			Autolink:    AutolinkWeb,
			Indexing:    Indexed(false, true),
		},
		{
			Name:        "Version",
			Description: "The xmlhub metadata schema version this file's header was written against.",
			Need:        Required,
			Kind:        StringKind{NormalizeWhitespace: false},
			Autolink:    AutolinkWeb,
			Indexing:    Indexed(false, false),
		},
		{
			Name:        "Packages",
			Description: "BEAST2 packages (and versions) this analysis requires, comma-separated.",
			Need:        Required,
			Kind:        StringListKind{Separator: ","},
			Autolink:    AutolinkWeb,
			Indexing:    Indexed(true, false),
		},
		{
			Name:        "Description",
			Description: "A free-text description of the analysis.",
			Need:        Optional,
			Kind:        StringKind{NormalizeWhitespace: true},
			Autolink:    AutolinkWeb,
			Indexing:    NoIndex,
		},
		{
			Name:        "Comments",
			Description: "Free-text comments.",
			Need:        Optional,
			Kind:        StringKind{NormalizeWhitespace: true},
			Autolink:    AutolinkWeb,
			Indexing:    NoIndex,
		},
		{
			Name:        "DOI",
			Description: "Digital Object Identifier(s) associated with the analysis, comma-separated.",
			Need:        Optional,
			Kind:        StringListKind{Separator: ","},
			Autolink:    AutolinkDoi,
			Indexing:    Indexed(false, false),
		},
		{
			Name:        "Citation",
			Description: "Citation(s) for the analysis, pipe-separated.",
			Need:        Optional,
			Kind:        StringListKind{Separator: "|"},
			Autolink:    AutolinkWeb,
			Indexing:    Indexed(false, false),
		},
		{
			Name:        "Contact",
			Description: "Contact email or name for the analysis author.",
			Need:        Required,
			Kind:        StringKind{NormalizeWhitespace: true},
			Autolink:    AutolinkWeb,
			Indexing:    Indexed(false, false),
		},
		{
			Name:        "Repository",
			Description: "Upstream source repository for the analysis, if any.",
			Need:        Optional,
			Kind:        StringKind{NormalizeWhitespace: true},
			Autolink:    AutolinkWeb,
			Indexing:    Indexed(false, false),
		},
		{
			Name:        "PackagesCanonical",
			Description: "Derived: first-word-only package names, for stable index-key linkage independent of version suffixes.",
			Need:        Optional,
			Kind:        StringListKind{Separator: ","},
			Autolink:    AutolinkNone,
			Indexing:    NoIndex,
			DerivesFrom: []string{"Packages"},
			Derive:      deriveCanonicalPackages,
		},
	}
	if err := validateTable(specs); err != nil {
		panic(err) // programming error: the compiled-in table is malformed
	}
	table = specs
}

// deriveCanonicalPackages keeps only the first word of each Packages
// entry, matching the index key the Packages attribute itself uses,
// so the renderer can link a file's package list to its index entries
// without recomputing the preparation rule at render time.
func deriveCanonicalPackages(values map[string]Value) (string, string) {
	pkgs, ok := values["Packages"]
	if !ok || pkgs.Kind != StringList {
		return "", ""
	}
	out := make([]string, 0, len(pkgs.List))
	for _, p := range pkgs.List {
		if i := indexOfSpace(p); i >= 0 {
			p = p[:i]
		}
		out = append(out, p)
	}
	return joinComma(out), ""
}

func indexOfSpace(s string) int {
	for i, c := range s {
		if c == ' ' {
			return i
		}
	}
	return -1
}

func joinComma(items []string) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += ","
		}
		out += it
	}
	return out
}

// ByName looks up a spec by canonical name.
func ByName(name string) (Spec, bool) {
	for _, s := range Table() {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}
