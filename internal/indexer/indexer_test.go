package indexer

import (
	"strings"
	"testing"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/extractor"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/xmldoc"
)

// mustExtract parses and extracts one XML document, failing the test
// on any file-level error — the §8 scenario-1 fixtures are expected to
// extract cleanly.
func mustExtract(t *testing.T, relPath, xmlSrc string, id int) *FileInfo {
	t.Helper()
	doc, err := xmldoc.Parse([]byte(xmlSrc))
	if err != nil {
		t.Fatalf("parsing %s: %v", relPath, err)
	}
	res := extractor.Extract(doc, false)
	if !res.Ok() {
		t.Fatalf("extracting %s: %v", relPath, res.Errors)
	}
	return &FileInfo{ID: id, BasePath: ".", RelativePath: relPath, Metadata: res.Metadata, Warnings: res.Warnings}
}

const scenario1XML = `<!--
Keywords: foo, bar
Version: 2.7.1
Packages: BDSKY 1.2.3
Contact: a@b
-->
<beast version="2.7.1"><data/></beast>`

// TestSimpleIndexScenario reproduces SPEC_FULL.md §8 scenario 1: a
// single file with Keywords "foo, bar" and Packages "BDSKY 1.2.3"
// should produce a Keywords section with "bar" and "foo" entries and a
// Packages section with only "BDSKY" (first-word-only indexing).
func TestSimpleIndexScenario(t *testing.T) {
	f := mustExtract(t, "A/x.xml", scenario1XML, 0)
	indexes := BuildIndexes([]*FileInfo{f})

	var keywords, packages *AttributeIndex
	for _, idx := range indexes {
		switch idx.AttributeName {
		case "Keywords":
			keywords = idx
		case "Packages":
			packages = idx
		}
	}
	if keywords == nil {
		t.Fatal("no Keywords index built")
	}
	if packages == nil {
		t.Fatal("no Packages index built")
	}

	wantKeywordKeys := []string{"bar", "foo"}
	gotKeywordKeys := keywords.SortedKeys()
	if strings.Join(gotKeywordKeys, ",") != strings.Join(wantKeywordKeys, ",") {
		t.Errorf("Keywords keys = %v, want %v", gotKeywordKeys, wantKeywordKeys)
	}
	for _, k := range wantKeywordKeys {
		files := keywords.Entries[k]
		if len(files) != 1 || files[0].RelativePath != "A/x.xml" {
			t.Errorf("Keywords[%q] = %v, want [A/x.xml]", k, files)
		}
	}

	gotPackageKeys := packages.SortedKeys()
	if len(gotPackageKeys) != 1 || gotPackageKeys[0] != "BDSKY" {
		t.Errorf("Packages keys = %v, want [BDSKY] (first-word-only)", gotPackageKeys)
	}
}

// TestAssembleSectionsCrossLinksFileToIndex verifies the info-box <->
// index-entry cross-link: a file's info box must contain a link to
// each of its indexed attribute values' index entry, and the index
// entry must link back to the file's info box.
func TestAssembleSectionsCrossLinksFileToIndex(t *testing.T) {
	f := mustExtract(t, "A/x.xml", scenario1XML, 0)
	out := &Output{Files: []*FileInfo{f}}
	folders, err := BuildFolderTree(out.Files)
	if err != nil {
		t.Fatal(err)
	}
	out.Folders = folders
	out.Indexes = BuildIndexes(out.Files)
	root := assembleSections(out)

	var infoBoxHTML, keywordsEntryHTML string
	root.Walk(func(s *Section) {
		if strings.Contains(s.IntroHTML, `id="file-0"`) {
			infoBoxHTML = s.IntroHTML
		}
		if s.Title == "foo" {
			keywordsEntryHTML = s.IntroHTML
		}
	})

	if infoBoxHTML == "" {
		t.Fatal("no info box found for file 0")
	}
	if !strings.Contains(infoBoxHTML, "Keywords") {
		t.Errorf("info box missing Keywords row: %s", infoBoxHTML)
	}
	if !strings.Contains(infoBoxHTML, `href="#section-`) {
		t.Errorf("info box does not link back to any index entry: %s", infoBoxHTML)
	}
	if keywordsEntryHTML == "" {
		t.Fatal("no Keywords=foo index entry found")
	}
	if !strings.Contains(keywordsEntryHTML, `href="#file-0"`) {
		t.Errorf("Keywords=foo entry does not link to file 0: %s", keywordsEntryHTML)
	}
}

func TestBuildFolderTreeRejectsDuplicateNames(t *testing.T) {
	files := []*FileInfo{
		{ID: 0, RelativePath: "A/x.xml"},
		{ID: 1, RelativePath: "A/x.xml"},
	}
	if _, err := BuildFolderTree(files); err == nil {
		t.Fatal("expected an error for duplicate file name within one folder")
	}
}

func TestBuildFolderTreeOrdering(t *testing.T) {
	files := []*FileInfo{
		{ID: 0, RelativePath: "B/b.xml"},
		{ID: 1, RelativePath: "A/a.xml"},
		{ID: 2, RelativePath: "top.xml"},
	}
	root, err := BuildFolderTree(files)
	if err != nil {
		t.Fatal(err)
	}
	if got := root.SortedFolderNames(); strings.Join(got, ",") != "A,B" {
		t.Errorf("SortedFolderNames = %v, want [A B]", got)
	}
	if got := root.SortedFileNames(); strings.Join(got, ",") != "top.xml" {
		t.Errorf("SortedFileNames = %v, want [top.xml]", got)
	}
}
