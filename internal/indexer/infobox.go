package indexer

import (
	"fmt"
	"html"
	"strings"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/attributes"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/autolink"
)

// indexAnchors maps attribute name -> prepared key -> the anchor of
// that key's Section, so an info box's metadata table can link each
// indexed value back to the index entry that lists it (the HTML
// renderer's promised "vice versa" of the index-entry -> info-box
// link built by renderFileLinks).
type indexAnchors map[string]map[string]string

// InfoBoxHTML renders f's per-file "info box" (glossary: the per-file
// HTML block containing the path and the metadata table): an anchored
// div keyed by file id, the relative path, and one table row per
// present attribute in canonical (table) order. Free-text values are
// passed through autolink.Wrap per the attribute's Autolink mode
// (component Q); indexed attributes link each value back to its index
// entry when anchors is non-nil.
func (f *FileInfo) InfoBoxHTML(anchors indexAnchors) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="info-box" id="file-%d">`, f.ID)
	fmt.Fprintf(&b, `<p class="info-box-path">%s</p>`, html.EscapeString(f.RelativePath))
	b.WriteString(`<table class="info-box-table">`)
	for _, spec := range attributes.Table() {
		v, ok := f.Metadata.Get(spec.Name)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, `<tr><th>%s</th><td>%s</td></tr>`,
			html.EscapeString(spec.Name), renderValue(spec, v, anchors))
	}
	b.WriteString(`</table>`)
	if len(f.Warnings) > 0 {
		b.WriteString(`<ul class="info-box-warnings">`)
		for _, w := range f.Warnings {
			fmt.Fprintf(&b, `<li>%s</li>`, html.EscapeString(w))
		}
		b.WriteString(`</ul>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

// renderValue renders one attribute value for the info-box table:
// each list/single item is autolinked per spec.Autolink, and, when the
// attribute is indexed and anchors carries a matching entry, wrapped
// in a link back to that index Section.
func renderValue(spec attributes.Spec, v attributes.Value, anchors indexAnchors) string {
	items := valueItems(v)
	rendered := make([]string, len(items))
	for i, item := range items {
		linked := autolink.Wrap(spec.Autolink, item)
		if spec.Indexing.Indexed && anchors != nil {
			key := spec.PrepareKeyString(item)
			if anchor, ok := anchors[spec.Name][key]; ok {
				linked = fmt.Sprintf(`<a href="#%s">%s</a>`, anchor, linked)
			}
		}
		rendered[i] = linked
	}
	return strings.Join(rendered, ", ")
}

// renderInfoBoxes concatenates the info boxes for files, in the
// caller's given order.
func renderInfoBoxes(files []*FileInfo, anchors indexAnchors) string {
	var b strings.Builder
	for _, f := range files {
		b.WriteString(f.InfoBoxHTML(anchors))
	}
	return b.String()
}
