// Package renderer implements the dual HTML/Markdown output stage
// (component P): it walks an indexer.Section tree and produces both
// artifacts concurrently, then writes each atomically via a
// trash-then-rename swap so a reader never observes a half-written
// file.
//
// Grounded on original_source/src/xmlhub_html.rs and
// xmlhub_markdown.rs for the two renderers' shape, and on this tree's
// own atomic-write idiom (internal/storage's trash-directory rename
// pattern) for the publish step.
package renderer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	xhtml "golang.org/x/net/html"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/indexer"
)

// Options configures a render run.
type Options struct {
	OutDir     string // directory receiving index.html and index.md
	TrashDir   string // directory receiving superseded files
	Title      string
	Generated  time.Time
}

// Render produces both artifacts from root and publishes them
// atomically. The two renderers run concurrently since neither reads
// the other's output.
func Render(root *indexer.Section, opts Options) error {
	var htmlBuf, mdBuf bytes.Buffer
	var wg sync.WaitGroup
	var htmlErr, mdErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		htmlErr = renderHTML(&htmlBuf, root, opts)
	}()
	go func() {
		defer wg.Done()
		mdErr = renderMarkdown(&mdBuf, root, opts)
	}()
	wg.Wait()

	if htmlErr != nil {
		return fmt.Errorf("rendering HTML: %w", htmlErr)
	}
	if mdErr != nil {
		return fmt.Errorf("rendering Markdown: %w", mdErr)
	}

	if err := publish(opts.OutDir, opts.TrashDir, "index.html", htmlBuf.Bytes()); err != nil {
		return err
	}
	if err := publish(opts.OutDir, opts.TrashDir, "index.md", mdBuf.Bytes()); err != nil {
		return err
	}
	return nil
}

// publish writes content to name under outDir, moving any previous
// version into trashDir first so the swap is atomic: a crash between
// the trash-move and the rename leaves the old file recoverable in
// trash, never a half-written index.
func publish(outDir, trashDir, name string, content []byte) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	if err := os.MkdirAll(trashDir, 0755); err != nil {
		return err
	}
	target := filepath.Join(outDir, name)
	if _, err := os.Stat(target); err == nil {
		trashed := filepath.Join(trashDir, fmt.Sprintf("%s.%d", name, timeSinceEpochNanos()))
		if err := os.Rename(target, trashed); err != nil {
			return fmt.Errorf("moving previous %s to trash: %w", name, err)
		}
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("publishing %s: %w", name, err)
	}
	return nil
}

// timeSinceEpochNanos is split out so tests can override it; outside
// of tests it is time.Now().UnixNano().
var timeSinceEpochNanos = func() int64 { return time.Now().UnixNano() }

// renderHTML builds the document as an x/net/html node tree and
// serializes it with xhtml.Render, rather than string-concatenating
// markup by hand: fragments coming from Section.IntroHTML are
// re-parsed and spliced in as real nodes, so a stray "<" in extracted
// file metadata can never break the surrounding structure.
func renderHTML(w *bytes.Buffer, root *indexer.Section, opts Options) error {
	doc := &xhtml.Node{Type: xhtml.DocumentNode}
	htmlEl := elem("html", attr("lang", "en"))
	doc.AppendChild(htmlEl)

	head := elem("head")
	meta := elem("meta", attr("charset", "utf-8"))
	title := elem("title", text(opts.Title))
	style := elem("style")
	style.AppendChild(text(embeddedCSS))
	head.AppendChild(meta)
	head.AppendChild(title)
	head.AppendChild(style)
	htmlEl.AppendChild(head)

	body := elem("body")
	generated := elem("p", attr("class", "generated"), text("Generated "+opts.Generated.Format(time.RFC3339)))
	body.AppendChild(generated)
	body.AppendChild(buildTOC(root))

	root.Walk(func(s *indexer.Section) {
		if len(s.Number) == 0 {
			return
		}
		level := len(s.Number)
		if level > 6 {
			level = 6
		}
		heading := elem(fmt.Sprintf("h%d", level), attr("id", s.Number.Anchor()))
		if class := highlightClass(s.Highlight); class != "" {
			heading.Attr = append(heading.Attr, xhtml.Attribute{Key: "class", Val: class})
		}
		heading.AppendChild(text(s.Number.String() + " " + s.Title))
		body.AppendChild(heading)

		if s.IntroHTML != "" {
			div := elem("div")
			for _, n := range parseFragment(s.IntroHTML, div) {
				div.AppendChild(n)
			}
			body.AppendChild(div)
		}
	})
	htmlEl.AppendChild(body)

	fmt.Fprint(w, "<!DOCTYPE html>\n")
	return xhtml.Render(w, doc)
}

// embeddedCSS is the HTML output's inline stylesheet — kept small and
// embedded directly (no external stylesheet request) so the generated
// page is self-contained inside the Git working tree it lives in.
const embeddedCSS = `
body { font-family: sans-serif; max-width: 60em; margin: 2em auto; }
nav.toc ul { list-style: none; }
.highlight-error { color: #a33; }
.highlight-warning { color: #a60; }
.info-box { border: 1px solid #ccc; border-radius: 4px; padding: 0.5em 1em; margin: 0.5em 0; }
.info-box-path { font-family: monospace; font-weight: bold; }
.info-box-table th { text-align: left; padding-right: 1em; vertical-align: top; }
.info-box-warnings { color: #a60; }
.generated { color: #777; font-size: 0.9em; }
`

// buildTOC renders a nested <nav><ul> table of contents from root's
// NumberPaths: one <li><a href="#section-N.N.N"> per section, nested
// to match each Section's depth by hanging each deeper <ul> off the
// last <li> seen at the shallower depth.
func buildTOC(root *indexer.Section) *xhtml.Node {
	nav := elem("nav", attr("class", "toc"))
	topList := elem("ul")
	nav.AppendChild(topList)

	listAtDepth := map[int]*xhtml.Node{1: topList}
	liAtDepth := map[int]*xhtml.Node{}

	root.Walk(func(s *indexer.Section) {
		depth := len(s.Number)
		if depth == 0 {
			return
		}
		list, ok := listAtDepth[depth]
		if !ok {
			parentLi := liAtDepth[depth-1]
			list = elem("ul")
			parentLi.AppendChild(list)
			listAtDepth[depth] = list
		}
		li := elem("li")
		a := elem("a", attr("href", "#"+s.Number.Anchor()))
		a.AppendChild(text(s.Number.String() + " " + s.Title))
		li.AppendChild(a)
		list.AppendChild(li)

		liAtDepth[depth] = li
		// Invalidate any stale deeper list/li from a now-finished
		// sibling subtree, so the next section at depth+1 (if any)
		// starts a fresh <ul> hung off this <li>.
		for d := range listAtDepth {
			if d > depth {
				delete(listAtDepth, d)
			}
		}
	})
	return nav
}

func highlightClass(h indexer.Highlight) string {
	switch h {
	case indexer.HighlightRed:
		return "highlight-error"
	case indexer.HighlightOrange:
		return "highlight-warning"
	default:
		return ""
	}
}

func elem(tag string, attrs ...xhtml.Attribute) *xhtml.Node {
	return &xhtml.Node{Type: xhtml.ElementNode, Data: tag, DataAtom: 0, Attr: attrs}
}

func attr(key, val string) xhtml.Attribute {
	return xhtml.Attribute{Key: key, Val: val}
}

func text(s string) *xhtml.Node {
	return &xhtml.Node{Type: xhtml.TextNode, Data: s}
}

// parseFragment parses an IntroHTML fragment in the context of a
// <div>, falling back to a single text node if the fragment is
// malformed (xhtml.ParseFragment never fails outright, but guards
// against a nil/empty result).
func parseFragment(fragment string, context *xhtml.Node) []*xhtml.Node {
	nodes, err := xhtml.ParseFragment(strings.NewReader(fragment), &xhtml.Node{
		Type: xhtml.ElementNode,
		Data: "div",
	})
	if err != nil || len(nodes) == 0 {
		return []*xhtml.Node{text(fragment)}
	}
	return nodes
}

// renderMarkdown mirrors the heading structure of renderHTML using `#`
// headings, but per SPEC_FULL.md §4.P inserts each section's anchor as
// a raw `<a name=…>` tag (so it survives a downstream Markdown->HTML
// pass) and inlines IntroHTML fragments verbatim rather than
// flattening them to plaintext — an info box or index-entry link list
// is still real HTML embedded in the Markdown body, not prose.
func renderMarkdown(w *bytes.Buffer, root *indexer.Section, opts Options) error {
	fmt.Fprintf(w, "# %s\n\n", opts.Title)
	fmt.Fprintf(w, "_Generated %s_\n\n", opts.Generated.Format(time.RFC3339))
	root.Walk(func(s *indexer.Section) {
		if len(s.Number) == 0 {
			return
		}
		level := len(s.Number) + 1
		if level > 6 {
			level = 6
		}
		marker := markWarning(s.Highlight)
		fmt.Fprintf(w, `<a name="%s"></a>`+"\n", s.Number.Anchor())
		fmt.Fprintf(w, "%s %s %s%s\n\n", strings.Repeat("#", level), s.Number.String(), s.Title, marker)
		if s.IntroHTML != "" {
			fmt.Fprintf(w, "%s\n\n", s.IntroHTML)
		}
	})
	return nil
}

func markWarning(h indexer.Highlight) string {
	switch h {
	case indexer.HighlightRed:
		return " :red_circle:"
	case indexer.HighlightOrange:
		return " :warning:"
	default:
		return ""
	}
}
