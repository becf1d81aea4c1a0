package indexer

import (
	"fmt"
	"sort"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/pathutil"
)

// Folder is a recursive tree node: files directly inside it, and
// child folders by name. No duplicate file name may exist within a
// single Folder.
type Folder struct {
	Files   map[string]*FileInfo
	Folders map[string]*Folder
}

func newFolder() *Folder {
	return &Folder{Files: make(map[string]*FileInfo), Folders: make(map[string]*Folder)}
}

// BuildFolderTree splits each file's relative path on '/' and inserts
// it into the tree, returning an error if two files end up with the
// same name inside the same folder.
func BuildFolderTree(files []*FileInfo) (*Folder, error) {
	root := newFolder()
	for _, f := range files {
		parts := pathutil.SplitRelative(f.RelativePath)
		if len(parts) == 0 {
			return nil, fmt.Errorf("file %q has an empty relative path", f.RelativePath)
		}
		node := root
		for _, dir := range parts[:len(parts)-1] {
			child, ok := node.Folders[dir]
			if !ok {
				child = newFolder()
				node.Folders[dir] = child
			}
			node = child
		}
		name := parts[len(parts)-1]
		if _, dup := node.Files[name]; dup {
			return nil, fmt.Errorf("duplicate file name %q within one folder", name)
		}
		node.Files[name] = f
	}
	return root, nil
}

// SortedFileNames returns f's direct file names in lexicographic
// order.
func (f *Folder) SortedFileNames() []string {
	names := make([]string, 0, len(f.Files))
	for n := range f.Files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SortedFolderNames returns f's direct subfolder names in
// lexicographic order.
func (f *Folder) SortedFolderNames() []string {
	names := make([]string, 0, len(f.Folders))
	for n := range f.Folders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
