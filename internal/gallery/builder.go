package gallery

import (
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"flashbulb/internal/logging"
	"flashbulb/internal/media"
	"flashbulb/internal/metadata"
	"flashbulb/internal/normalize"
	"flashbulb/internal/services"
	"flashbulb/internal/textutil"
)

// Entry is one record that passed loading, matching, and normalization.
type Entry struct {
	Record metadata.Record
	Fields normalize.Fields
	Match  media.Match
}

// Input is everything the builder combines.
type Input struct {
	Entries []Entry
	Albums  []metadata.Album
	Owner   metadata.Owner
	// Names maps author identifiers to display names.
	Names map[string]string
	// Location is used to parse album creation times.
	Location *time.Location
}

// Builder assembles a Graph.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder returns a Builder.
func NewBuilder(logger *slog.Logger) *Builder {
	return &Builder{logger: logging.NewComponentLogger(logger, "gallery")}
}

// Build combines in into a Graph. Every entry must carry a resolved timestamp
// and a unique identifier.
func (b *Builder) Build(in Input) (*Graph, error) {
	g := &Graph{
		Owner: in.Owner,
		index: make(map[string]int, len(in.Entries)),
		tags:  make(map[string]*Tag),
	}
	names := in.Names
	if names == nil {
		names = map[string]string{}
	}
	nameFor := func(id string) string {
		if name := names[id]; name != "" {
			return name
		}
		if id != "" && id == in.Owner.NSID {
			return in.Owner.Name
		}
		return ""
	}

	seen := make(map[string]struct{}, len(in.Entries))
	for _, e := range in.Entries {
		id := e.Record.ID
		if _, dup := seen[id]; dup {
			return nil, services.Wrap(services.ErrMetadata, services.StageGallery, "build",
				fmt.Sprintf("duplicate item %s", id), nil)
		}
		seen[id] = struct{}{}
		if e.Fields.Timestamps.Resolved.IsZero() {
			return nil, services.Wrap(services.ErrTimestamp, services.StageGallery, "build",
				fmt.Sprintf("item %s has no resolved timestamp", id), nil)
		}
		g.Items = append(g.Items, newItem(e, nameFor))
	}

	sort.SliceStable(g.Items, func(i, j int) bool {
		a, c := g.Items[i], g.Items[j]
		if !a.Resolved.Equal(c.Resolved) {
			return a.Resolved.Before(c.Resolved)
		}
		return textutil.LessID(a.ID, c.ID)
	})
	for i, it := range g.Items {
		g.index[it.ID] = i
		for _, label := range it.Tags {
			tag, ok := g.tags[label]
			if !ok {
				tag = &Tag{Name: label}
				g.tags[label] = tag
				g.Tags = append(g.Tags, tag)
			}
			tag.ItemIDs = append(tag.ItemIDs, it.ID)
		}
	}
	sort.SliceStable(g.Tags, func(i, j int) bool {
		if g.Tags[i].Count() != g.Tags[j].Count() {
			return g.Tags[i].Count() > g.Tags[j].Count()
		}
		return g.Tags[i].Name < g.Tags[j].Name
	})

	b.buildAlbums(g, in)

	b.logger.Info("item graph built",
		logging.Int("item_count", len(g.Items)),
		logging.Int("tag_count", len(g.Tags)),
		logging.Int("album_count", len(g.Albums)),
		logging.String(logging.FieldEventType, "graph_built"),
	)
	return g, nil
}

func newItem(e Entry, nameFor func(string) string) *Item {
	f := e.Fields
	it := &Item{
		ID:              e.Record.ID,
		Title:           f.Title,
		Description:     f.Description,
		SearchText:      f.SearchText,
		Taken:           f.Timestamps.Taken,
		Imported:        f.Timestamps.Imported,
		Resolved:        f.Timestamps.Resolved,
		Fallback:        f.Timestamps.Fallback,
		Geo:             f.Geo,
		Views:           e.Record.CountViews,
		Faves:           e.Record.CountFaves,
		License:         strings.TrimSpace(e.Record.License),
		PageURL:         strings.TrimSpace(e.Record.PhotoPage),
		Tags:            append([]string(nil), f.Tags...),
		Kind:            e.Match.Kind,
		Original:        e.Match.Original,
		PosterURL:       e.Match.PosterURL,
		ThumbnailSource: e.Match.ThumbnailSource(),
	}
	for _, c := range f.Comments {
		it.Comments = append(it.Comments, Comment{
			ID:         c.ID,
			AuthorID:   c.Author,
			AuthorName: nameFor(c.Author),
			Text:       c.Text,
			Date:       c.Date,
			RawDate:    c.RawDate,
			URL:        c.URL,
		})
	}
	for _, n := range f.Notes {
		it.Notes = append(it.Notes, Note{
			AuthorID:   n.Author,
			AuthorName: nameFor(n.Author),
			Text:       n.Text,
			X:          n.X,
			Y:          n.Y,
			W:          n.W,
			H:          n.H,
		})
	}
	return it
}

func (b *Builder) buildAlbums(g *Graph, in Input) {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	for _, src := range in.Albums {
		album := &Album{
			ID:          src.ID,
			Title:       normalize.Text(src.Title),
			Description: normalize.Text(src.Description),
			URL:         strings.TrimSpace(src.URL),
		}
		album.Created, _ = normalize.ParseTime(src.Created, loc)
		members := make(map[string]struct{}, len(src.PhotoIDs))
		for _, id := range src.PhotoIDs {
			if _, ok := g.index[id]; !ok {
				continue
			}
			if _, dup := members[id]; dup {
				continue
			}
			members[id] = struct{}{}
			album.ItemIDs = append(album.ItemIDs, id)
		}
		if len(album.ItemIDs) == 0 {
			b.logger.Debug("album has no surviving items",
				logging.String("album_id", src.ID),
				logging.String("title", album.Title),
			)
			continue
		}
		album.CoverID = album.ItemIDs[0]
		if cover := coverID(src.Cover); cover != "" {
			if _, ok := members[cover]; ok {
				album.CoverID = cover
			}
		}
		if album.Title == "" {
			album.Title = "Album " + album.ID
		}
		for _, id := range album.ItemIDs {
			it := g.Items[g.index[id]]
			it.Albums = append(it.Albums, album.ID)
		}
		g.Albums = append(g.Albums, album)
	}
}

// coverID extracts the photo identifier from a cover reference, which is a
// bare identifier or a photo page URL ending in one.
func coverID(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		ref = u.Path
	}
	parts := strings.Split(strings.Trim(ref, "/"), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if textutil.IsDigits(parts[i]) {
			return parts[i]
		}
	}
	return ""
}
