package indexer

import (
	"sort"
	"strings"

	"github.com/pflanze-xmlhub/xmlhub-indexer/internal/attributes"
)

// AttributeIndex maps a prepared key string to the files carrying it,
// for one indexed attribute.
type AttributeIndex struct {
	AttributeName string
	Entries       map[string][]*FileInfo
}

// BuildIndexes walks all successful files and, for each indexed
// attribute, inserts each prepared key string into a sorted map. Ties
// under one key are ordered by stable FileInfo.ID.
func BuildIndexes(files []*FileInfo) []*AttributeIndex {
	var indexes []*AttributeIndex
	for _, spec := range attributes.Table() {
		if !spec.Indexing.Indexed {
			continue
		}
		idx := &AttributeIndex{AttributeName: spec.Name, Entries: make(map[string][]*FileInfo)}
		for _, f := range files {
			v, ok := f.Metadata.Get(spec.Name)
			if !ok {
				continue
			}
			for _, raw := range valueItems(v) {
				key := spec.PrepareKeyString(raw)
				idx.Entries[key] = append(idx.Entries[key], f)
			}
		}
		for key := range idx.Entries {
			sort.Slice(idx.Entries[key], func(i, j int) bool {
				return idx.Entries[key][i].ID < idx.Entries[key][j].ID
			})
		}
		indexes = append(indexes, idx)
	}
	return indexes
}

func valueItems(v attributes.Value) []string {
	if v.Kind == attributes.StringList {
		return v.List
	}
	return []string{v.Single}
}

// SortedKeys returns idx's keys ordered case-insensitive
// lexicographically, ties broken by the original (case-sensitive)
// key.
func (idx *AttributeIndex) SortedKeys() []string {
	keys := make([]string, 0, len(idx.Entries))
	for k := range idx.Entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		li, lj := strings.ToLower(keys[i]), strings.ToLower(keys[j])
		if li != lj {
			return li < lj
		}
		return keys[i] < keys[j]
	})
	return keys
}
