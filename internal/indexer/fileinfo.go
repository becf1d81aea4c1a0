// Package indexer implements the indexer engine (component O): it
// walks the tracked XML files, extracts and validates each in
// parallel, builds a folder tree and per-attribute inverted indexes,
// and assembles the nested Section tree the dual renderer consumes.
//
// Grounded on original_source/src/xmlhub_fileinfo.rs (FileInfo) for
// the data model and the teacher's bounded-goroutine worker-pool idiom
// (internal/compact, internal/audit) for the parallel walk.
package indexer

import "github.com/pflanze-xmlhub/xmlhub-indexer/internal/attributes"

// FileInfo is one successfully (or partially) extracted file. ID is
// stable within a single pipeline run and is the sole ordering key —
// FileInfos are otherwise unordered.
type FileInfo struct {
	ID           int
	BasePath     string
	RelativePath string
	Metadata     *attributes.Metadata
	Warnings     []string
}

// Errored is one file excluded from the indexes because required
// attributes failed extraction.
type Errored struct {
	RelativePath string
	Errors       []string
}
