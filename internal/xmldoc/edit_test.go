package xmldoc

import "testing"

func TestRenderEmptyEditsReturnsOriginal(t *testing.T) {
	src := []byte(`<beast version="2.7.1"><data>G</data></beast>`)
	got, err := Render(src, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != string(src) {
		t.Fatalf("got %q, want unchanged source", got)
	}
}

func TestClearBodyEdit(t *testing.T) {
	src := []byte(`<beast version="2.7.1"><data>G</data></beast>`)
	doc, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	dataElems := doc.FindByLocalName("data")
	if len(dataElems) != 1 {
		t.Fatalf("expected 1 <data> element, got %d", len(dataElems))
	}
	var edits []Edit
	edits = ClearBody(edits, dataElems[0], src, false)

	got, err := Render(src, edits)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := `<beast version="2.7.1"><data></data></beast>`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestOverlappingEditsError(t *testing.T) {
	src := []byte(`<beast version="2.7.1"><data>G</data></beast>`)
	edits := []Edit{
		DeleteRange(5, 15),
		DeleteRange(10, 20),
	}
	if _, err := Render(src, edits); err == nil {
		t.Fatalf("expected overlap error")
	}
}

func TestFindByLocalNameNamespaceInsensitive(t *testing.T) {
	src := []byte(`<ns:beast xmlns:ns="urn:x" version="2.0"><ns:data>x</ns:data></ns:beast>`)
	doc, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Root.Name != "beast" {
		t.Fatalf("expected local name beast, got %q", doc.Root.Name)
	}
	if len(doc.FindByLocalName("data")) != 1 {
		t.Fatalf("expected to find namespaced data element by local name")
	}
}

func TestHeaderCommentsCapturedBeforeRoot(t *testing.T) {
	src := []byte("<!--Keywords: foo, bar\nVersion: 2.7.1-->\n<beast version=\"2.0\"></beast>")
	doc, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.HeaderComments) != 1 {
		t.Fatalf("expected 1 header comment, got %d", len(doc.HeaderComments))
	}
}
