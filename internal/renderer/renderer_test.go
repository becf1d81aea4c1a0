package renderer

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/indexer"
)

func buildTestTree() *indexer.Section {
	root := indexer.NewSection(nil, "xmlhub index")
	overview := root.AddChild("Overview")
	overview.IntroHTML = "<p>1 file indexed.</p>"
	keywords := root.AddChild("Keywords")
	entry := keywords.AddChild("foo")
	entry.IntroHTML = `<a href="#file-0">A/x.xml</a> `
	return root
}

// TestRenderIdempotent checks SPEC_FULL.md §8's index-idempotence
// property for the renderer stage: rendering the same Section tree
// (with the same Generated timestamp) twice produces byte-identical
// HTML and Markdown.
func TestRenderIdempotent(t *testing.T) {
	root := buildTestTree()
	opts := Options{Title: "Test Index", Generated: time.Unix(0, 0).UTC()}

	var buf1, buf2 bytes.Buffer
	if err := renderHTML(&buf1, root, opts); err != nil {
		t.Fatal(err)
	}
	if err := renderHTML(&buf2, root, opts); err != nil {
		t.Fatal(err)
	}
	if buf1.String() != buf2.String() {
		t.Error("renderHTML is not idempotent across two runs with identical input")
	}

	var md1, md2 bytes.Buffer
	if err := renderMarkdown(&md1, root, opts); err != nil {
		t.Fatal(err)
	}
	if err := renderMarkdown(&md2, root, opts); err != nil {
		t.Fatal(err)
	}
	if md1.String() != md2.String() {
		t.Error("renderMarkdown is not idempotent across two runs with identical input")
	}
}

// TestRenderMarkdownUsesRawAnchorsAndInlinesFragments verifies
// SPEC_FULL.md §4.P: the Markdown output carries raw <a name=…>
// anchors (to survive a downstream Markdown->HTML pass) and inlines
// IntroHTML fragments verbatim rather than stripping them to text.
func TestRenderMarkdownUsesRawAnchorsAndInlinesFragments(t *testing.T) {
	root := buildTestTree()
	opts := Options{Title: "Test Index", Generated: time.Unix(0, 0).UTC()}

	var buf bytes.Buffer
	if err := renderMarkdown(&buf, root, opts); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if !strings.Contains(out, `<a name="section-1"></a>`) {
		t.Errorf("Markdown output missing raw anchor for Overview section:\n%s", out)
	}
	if !strings.Contains(out, `<a href="#file-0">A/x.xml</a>`) {
		t.Errorf("Markdown output did not inline the info-box link fragment verbatim:\n%s", out)
	}
}

// TestRenderHTMLIncludesTOCAndCSS verifies SPEC_FULL.md §4.P's "full
// document with embedded CSS, a linked table of contents" requirement.
func TestRenderHTMLIncludesTOCAndCSS(t *testing.T) {
	root := buildTestTree()
	opts := Options{Title: "Test Index", Generated: time.Unix(0, 0).UTC()}

	var buf bytes.Buffer
	if err := renderHTML(&buf, root, opts); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if !strings.Contains(out, "<style>") {
		t.Errorf("HTML output missing embedded <style>:\n%s", out)
	}
	if !strings.Contains(out, `<nav class="toc">`) {
		t.Errorf("HTML output missing table of contents nav:\n%s", out)
	}
	if !strings.Contains(out, `href="#section-2.1">`) {
		t.Errorf("HTML output TOC missing nested link to the Keywords/foo entry:\n%s", out)
	}
	if !strings.Contains(out, `id="section-2.1"`) {
		t.Errorf("HTML output missing the anchor heading id for section 2.1:\n%s", out)
	}
}
