package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// File is one media file found in the working directory.
type File struct {
	Path     string
	Name     string
	Kind     Kind
	Original bool
}

type candidate struct {
	File
	// rank is the position of the identifier in CandidateIDs; 0 is the
	// primary reading of the file name.
	rank int
}

// Index groups media files by the identifiers their names embed.
type Index struct {
	dir   string
	files []File
	byID  map[string][]candidate
}

// BuildIndex lists dir (not recursively) and indexes every photo or video.
// Metadata JSON, hidden files, and files of unknown type are ignored.
func BuildIndex(ctx context.Context, dir string) (*Index, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read media directory: %w", err)
	}
	idx := &Index{dir: dir, byID: make(map[string][]candidate)}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		ids := CandidateIDs(entry.Name())
		if len(ids) == 0 {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		kind := DetectKind(path)
		if kind == KindUnknown {
			continue
		}
		file := File{Path: path, Name: entry.Name(), Kind: kind, Original: IsOriginalName(entry.Name())}
		idx.files = append(idx.files, file)
		for rank, id := range ids {
			idx.byID[id] = append(idx.byID[id], candidate{File: file, rank: rank})
		}
	}
	return idx, nil
}

// Len returns the number of indexed media files.
func (idx *Index) Len() int {
	return len(idx.files)
}

// Candidates returns the files whose primary reading is id, or, when none
// exist, the files that embed id in an alternate position. The result is
// sorted by name.
func (idx *Index) Candidates(id string) []File {
	all := idx.byID[id]
	if len(all) == 0 {
		return nil
	}
	best := all[0].rank
	for _, c := range all {
		if c.rank < best {
			best = c.rank
		}
	}
	out := make([]File, 0, len(all))
	for _, c := range all {
		if c.rank == best {
			out = append(out, c.File)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Orphans returns the names of indexed files whose path is not in claimed.
func (idx *Index) Orphans(claimed map[string]struct{}) []string {
	var out []string
	for _, file := range idx.files {
		if _, ok := claimed[file.Path]; !ok {
			out = append(out, file.Name)
		}
	}
	sort.Strings(out)
	return out
}
