package gallery

import (
	"time"

	"flashbulb/internal/media"
	"flashbulb/internal/metadata"
	"flashbulb/internal/normalize"
)

// Item is one photo or video ready for rendering.
type Item struct {
	ID    string
	Title string
	// Description keeps the inline markup the export carried, unescaped once.
	Description string
	SearchText  string

	Taken    time.Time
	Imported time.Time
	// Resolved orders and groups the item. Never zero.
	Resolved time.Time
	// Fallback is set when Resolved is the import time.
	Fallback bool

	Geo     *normalize.Location
	Views   int64
	Faves   int64
	License string
	PageURL string

	Tags     []string
	Comments []Comment
	Notes    []Note
	Albums   []string

	Kind     media.Kind
	Original string
	// PosterURL is the remote still for a video without a local one.
	PosterURL string
	// ThumbnailSource is the local image thumbnails are cut from; empty when
	// the item has no still.
	ThumbnailSource string
	// Thumbnail is the generated thumbnail path, set by the pipeline.
	Thumbnail string
}

// IsVideo reports whether the item's original is a video.
func (it *Item) IsVideo() bool {
	return it.Kind == media.KindVideo
}

// Comment is a comment with its author resolved where possible.
type Comment struct {
	ID         string
	AuthorID   string
	AuthorName string
	Text       string
	Date       time.Time
	RawDate    string
	URL        string
}

// Author returns the display name, or the raw identifier when unresolved.
func (c Comment) Author() string {
	if c.AuthorName != "" {
		return c.AuthorName
	}
	return c.AuthorID
}

// Note is an annotated image region.
type Note struct {
	AuthorID   string
	AuthorName string
	Text       string
	X, Y, W, H int
}

// Tag is a label and the items carrying it, in item order.
type Tag struct {
	Name    string
	ItemIDs []string
}

// Count returns how many items carry the tag.
func (t *Tag) Count() int {
	return len(t.ItemIDs)
}

// Album is an export album restricted to items that survived the build.
type Album struct {
	ID          string
	Title       string
	Description string
	URL         string
	Created     time.Time
	ItemIDs     []string
	CoverID     string
}

// YearGroup is the set of items resolved to one calendar year.
type YearGroup struct {
	Year  int
	Items []*Item
}

// Stats are headline counts for the site footer and the run report.
type Stats struct {
	Items     int `json:"items"`
	Photos    int `json:"photos"`
	Videos    int `json:"videos"`
	Tags      int `json:"tags"`
	Albums    int `json:"albums"`
	Comments  int `json:"comments"`
	Geotagged int `json:"geotagged"`
	Fallback  int `json:"fallback_dates"`
}

// Graph is the complete rendering input.
type Graph struct {
	Items  []*Item
	Tags   []*Tag
	Albums []*Album
	Owner  metadata.Owner

	index map[string]int
	tags  map[string]*Tag
}

// Item returns the item with id.
func (g *Graph) Item(id string) (*Item, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.Items[i], true
}

// Neighbours returns the items before and after id in chronological order.
func (g *Graph) Neighbours(id string) (prev, next *Item) {
	i, ok := g.index[id]
	if !ok {
		return nil, nil
	}
	if i > 0 {
		prev = g.Items[i-1]
	}
	if i+1 < len(g.Items) {
		next = g.Items[i+1]
	}
	return prev, next
}

// Tag returns the tag named name.
func (g *Graph) Tag(name string) (*Tag, bool) {
	t, ok := g.tags[name]
	return t, ok
}

// ItemsFor returns the items for ids, skipping unknown identifiers.
func (g *Graph) ItemsFor(ids []string) []*Item {
	out := make([]*Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := g.Item(id); ok {
			out = append(out, it)
		}
	}
	return out
}

// Years groups items by resolved year. newestFirst reverses both the groups
// and the items inside each group.
func (g *Graph) Years(newestFirst bool) []YearGroup {
	var groups []YearGroup
	for _, it := range g.Items {
		year := it.Resolved.Year()
		if n := len(groups); n == 0 || groups[n-1].Year != year {
			groups = append(groups, YearGroup{Year: year})
		}
		last := &groups[len(groups)-1]
		last.Items = append(last.Items, it)
	}
	if !newestFirst {
		return groups
	}
	for i, j := 0, len(groups)-1; i < j; i, j = i+1, j-1 {
		groups[i], groups[j] = groups[j], groups[i]
	}
	for _, group := range groups {
		items := group.Items
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}
	return groups
}

// Stats counts items by kind and feature.
func (g *Graph) Stats() Stats {
	s := Stats{Items: len(g.Items), Tags: len(g.Tags), Albums: len(g.Albums)}
	for _, it := range g.Items {
		if it.IsVideo() {
			s.Videos++
		} else {
			s.Photos++
		}
		s.Comments += len(it.Comments)
		if it.Geo != nil {
			s.Geotagged++
		}
		if it.Fallback {
			s.Fallback++
		}
	}
	return s
}

// CommentAuthors returns the distinct raw author identifiers of all comments
// and notes in entries.
func CommentAuthors(entries []Entry) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, e := range entries {
		for _, c := range e.Fields.Comments {
			add(c.Author)
		}
		for _, n := range e.Fields.Notes {
			add(n.Author)
		}
	}
	return out
}
