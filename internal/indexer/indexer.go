package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/extractor"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/gitclient"
	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/xmldoc"
)

// Options configures one indexing run.
type Options struct {
	BasePath     string
	AllowNonV2   bool
	WorkerCount  int // 0 = runtime.GOMAXPROCS(0)
}

// Output is the complete result of one indexing run.
type Output struct {
	Files    []*FileInfo
	Errored  []Errored
	Folders  *Folder
	Indexes  []*AttributeIndex
	Overview *Section
}

// Run lists the tracked XML files under opts.BasePath via git, reads
// and extracts each (in parallel, one goroutine constructing each
// FileInfo before publishing it into a pre-sized slice — no lock is
// needed since each goroutine owns a disjoint index, matching
// SPEC_FULL.md §5's thread-safety contract), then builds the folder
// tree, indexes and Section tree single-threaded from the flat result.
func Run(ctx context.Context, git *gitclient.Client, opts Options) (*Output, error) {
	paths, err := git.LsFiles(ctx, opts.BasePath)
	if err != nil {
		return nil, fmt.Errorf("listing tracked files under %s: %w", opts.BasePath, err)
	}

	files := make([]*FileInfo, len(paths))
	errs := make([]*Errored, len(paths))

	workers := opts.WorkerCount
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, rel := range paths {
		i, rel := i, rel
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			fi, fe := extractOne(opts.BasePath, rel, i, opts.AllowNonV2)
			if fe != nil {
				errs[i] = fe
			} else {
				files[i] = fi
			}
		}()
	}
	wg.Wait()

	out := &Output{}
	for i := range paths {
		if files[i] != nil {
			out.Files = append(out.Files, files[i])
		} else if errs[i] != nil {
			out.Errored = append(out.Errored, *errs[i])
		}
	}

	folders, err := BuildFolderTree(out.Files)
	if err != nil {
		return nil, err
	}
	out.Folders = folders
	out.Indexes = BuildIndexes(out.Files)
	out.Overview = assembleSections(out)

	return out, nil
}

func extractOne(base, rel string, id int, allowNonV2 bool) (*FileInfo, *Errored) {
	full := filepath.Join(base, rel)
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, &Errored{RelativePath: rel, Errors: []string{fmt.Sprintf("reading file: %v", err)}}
	}
	doc, err := xmldoc.Parse(data)
	if err != nil {
		return nil, &Errored{RelativePath: rel, Errors: []string{fmt.Sprintf("parsing XML: %v", err)}}
	}
	res := extractor.Extract(doc, allowNonV2)
	if !res.Ok() {
		return nil, &Errored{RelativePath: rel, Errors: res.Errors}
	}
	return &FileInfo{
		ID:           id,
		BasePath:     base,
		RelativePath: rel,
		Metadata:     res.Metadata,
		Warnings:     res.Warnings,
	}, nil
}

// assembleSections composes the overview section, one section per
// indexed attribute (with subsections per key value), and a
// deeply-nested section reflecting the folder tree. Index entries are
// assigned their Section (and hence their anchor) before the folder
// tree is walked, so each file's info box can link back to every
// index entry that lists it (the cross-link this spec's 4.P calls
// "vice versa" — solved, per the Design Notes, by assigning ids/anchors
// in one pass and rendering from them in a second).
func assembleSections(out *Output) *Section {
	root := NewSection(nil, "xmlhub index")
	if len(out.Errored) > 0 {
		root.Highlight = HighlightRed
	}

	overview := root.AddChild("Overview")
	overview.IntroHTML = fmt.Sprintf("<p>%d files indexed, %d excluded due to errors.</p>", len(out.Files), len(out.Errored))

	anchors := make(indexAnchors)
	for _, idx := range out.Indexes {
		section := root.AddChild(idx.AttributeName)
		byKey := make(map[string]string, len(idx.Entries))
		for _, key := range idx.SortedKeys() {
			entrySection := section.AddChild(key)
			entrySection.IntroHTML = renderFileLinks(idx.Entries[key])
			byKey[key] = entrySection.Number.Anchor()
		}
		anchors[idx.AttributeName] = byKey
	}

	folderSection := root.AddChild("Files")
	addFolderSection(folderSection, out.Folders, anchors)

	return root
}

func addFolderSection(parent *Section, folder *Folder, anchors indexAnchors) {
	var infoBoxes []*FileInfo
	for _, name := range folder.SortedFileNames() {
		infoBoxes = append(infoBoxes, folder.Files[name])
	}
	sort.Slice(infoBoxes, func(i, j int) bool {
		return infoBoxes[i].RelativePath < infoBoxes[j].RelativePath
	})
	parent.IntroHTML = renderInfoBoxes(infoBoxes, anchors)

	for _, name := range folder.SortedFolderNames() {
		child := parent.AddChild(name)
		addFolderSection(child, folder.Folders[name], anchors)
	}
}

// renderFileLinks is the index-entry-side half of the file-info-box
// cross-link: a plain hyperlink per file, pointing at the anchor the
// folder-tree pass (addFolderSection) gives that file's info box.
// Rendering the full info box here too would duplicate its id
// attribute across the document.
func renderFileLinks(files []*FileInfo) string {
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, `<a href="#file-%d">%s</a> `, f.ID, f.RelativePath)
	}
	return b.String()
}
