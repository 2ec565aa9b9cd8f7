package site

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"flashbulb/internal/fileutil"
	"flashbulb/internal/gallery"
	"flashbulb/internal/logging"
	"flashbulb/internal/normalize"
	"flashbulb/internal/textutil"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed assets
var assetFS embed.FS

const (
	dateLayout      = "2006-01-02 15:04:05"
	searchDescLimit = 200
)

// Options control page content.
type Options struct {
	Title    string
	Subtitle string
	// NewestFirst orders the index from the latest year down.
	NewestFirst bool
	// CopyOriginals copies original media next to each detail page.
	CopyOriginals bool
	// BuiltAt is printed in the index footer.
	BuiltAt time.Time
}

// Summary counts what Render wrote.
type Summary struct {
	Pages           int
	Originals       int
	OriginalsReused int
}

// Renderer writes the static site for a Graph.
type Renderer struct {
	dir    string
	opts   Options
	tmpl   *template.Template
	logger *slog.Logger
}

// NewRenderer parses the page templates for a site rooted at dir.
func NewRenderer(dir string, opts Options, logger *slog.Logger) (*Renderer, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("site directory is required")
	}
	if strings.TrimSpace(opts.Title) == "" {
		opts.Title = "Flashbulb"
	}
	if opts.BuiltAt.IsZero() {
		opts.BuiltAt = time.Now()
	}
	tmpl, err := template.New("site").Funcs(template.FuncMap{
		"grid": func(root string, items []gridEntry) gridView {
			return gridView{Root: root, Items: items}
		},
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{dir: dir, opts: opts, tmpl: tmpl, logger: logging.NewComponentLogger(logger, "site")}, nil
}

// ItemDir returns the directory holding an item's page, thumbnail, and original.
func ItemDir(siteDir, id string) string {
	return filepath.Join(siteDir, "photos", id)
}

// ThumbnailPath returns where an item's thumbnail is written.
func ThumbnailPath(siteDir, id string) string {
	return filepath.Join(ItemDir(siteDir, id), "thumb.jpg")
}

// Render writes every page, asset, and copied original. It performs no data
// cleaning; text is escaped and rich text passes through SafeMarkup.
func (r *Renderer) Render(ctx context.Context, g *gallery.Graph) (Summary, error) {
	var summary Summary
	w := &pageWriter{r: r, summary: &summary}

	if err := r.writeAssets(); err != nil {
		return summary, err
	}

	tagSegments := textutil.NewSegmentSet()
	for _, tag := range g.Tags {
		tagSegments.Segment(tag.Name)
	}
	albumSegments := textutil.NewSegmentSet()
	albums := make(map[string]albumLink, len(g.Albums))
	for _, album := range g.Albums {
		albums[album.ID] = albumLink{ID: album.ID, Title: album.Title, Segment: albumSegments.Segment(album.ID)}
	}
	views := make(map[string]gridEntry, len(g.Items))
	for _, it := range g.Items {
		views[it.ID] = newGridEntry(it)
	}

	if err := w.write("index.html", "index", r.indexPage(g, views)); err != nil {
		return summary, err
	}

	for _, it := range g.Items {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		original, err := r.copyOriginal(it, &summary)
		if err != nil {
			return summary, err
		}
		page := r.photoPage(g, it, original, tagSegments, albums)
		if err := w.write(filepath.Join("photos", it.ID, "index.html"), "photo", page); err != nil {
			return summary, err
		}
	}

	if err := w.write(filepath.Join("tags", "index.html"), "tags", r.tagIndexPage(g, tagSegments)); err != nil {
		return summary, err
	}
	for _, tag := range g.Tags {
		page := tagPage{
			Layout: r.layout("../../", tag.Name),
			Name:   tag.Name,
			Items:  entriesFor(tag.ItemIDs, views),
		}
		if err := w.write(filepath.Join("tags", tagSegments.Segment(tag.Name), "index.html"), "tag", page); err != nil {
			return summary, err
		}
	}

	if len(g.Albums) > 0 {
		if err := w.write(filepath.Join("albums", "index.html"), "albums", r.albumIndexPage(g, albums, views)); err != nil {
			return summary, err
		}
		for _, album := range g.Albums {
			page := albumPage{
				Layout:      r.layout("../../", album.Title),
				Title:       album.Title,
				Description: SafeMarkup(album.Description),
				URL:         album.URL,
				Items:       entriesFor(album.ItemIDs, views),
			}
			if !album.Created.IsZero() {
				page.Created = album.Created.Format("2006-01-02")
			}
			if err := w.write(filepath.Join("albums", albums[album.ID].Segment, "index.html"), "album", page); err != nil {
				return summary, err
			}
		}
	}

	r.logger.Info("site written",
		logging.String("dir", r.dir),
		logging.Int("page_count", summary.Pages),
		logging.Int("originals_copied", summary.Originals),
		logging.Int("originals_reused", summary.OriginalsReused),
		logging.String(logging.FieldEventType, "site_written"),
	)
	return summary, nil
}

func (r *Renderer) writeAssets() error {
	return fs.WalkDir(assetFS, "assets", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := assetFS.ReadFile(path)
		if err != nil {
			return err
		}
		if err := fileutil.WriteFileAtomic(filepath.Join(r.dir, filepath.FromSlash(path)), data, 0o644); err != nil {
			return fmt.Errorf("write asset %s: %w", path, err)
		}
		return nil
	})
}

// copyOriginal places the item's original next to its page and returns the
// page-relative file name, or "" when originals are not published.
func (r *Renderer) copyOriginal(it *gallery.Item, summary *Summary) (string, error) {
	if !r.opts.CopyOriginals || it.Original == "" {
		return "", nil
	}
	name := "original" + strings.ToLower(filepath.Ext(it.Original))
	copied, err := fileutil.CopyIfChanged(it.Original, filepath.Join(ItemDir(r.dir, it.ID), name))
	if err != nil {
		return "", fmt.Errorf("copy original for %s: %w", it.ID, err)
	}
	if copied {
		summary.Originals++
	} else {
		summary.OriginalsReused++
	}
	return name, nil
}

type pageWriter struct {
	r       *Renderer
	summary *Summary
	buf     bytes.Buffer
}

func (w *pageWriter) write(rel, name string, data any) error {
	w.buf.Reset()
	if err := w.r.tmpl.ExecuteTemplate(&w.buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", rel, err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(w.r.dir, rel), w.buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	w.summary.Pages++
	return nil
}

func (r *Renderer) layout(root, title string) layout {
	pageTitle := r.opts.Title
	if title != "" {
		pageTitle = title + " · " + r.opts.Title
	}
	return layout{Root: root, PageTitle: pageTitle, SiteTitle: r.opts.Title}
}

func (r *Renderer) indexPage(g *gallery.Graph, views map[string]gridEntry) indexPage {
	page := indexPage{
		Layout:   r.layout("", ""),
		Subtitle: r.opts.Subtitle,
		Stats:    g.Stats(),
		Owner:    g.Owner.Name,
		Built:    r.opts.BuiltAt.Format("2006-01-02"),
	}
	for _, group := range g.Years(r.opts.NewestFirst) {
		yv := yearView{Year: group.Year}
		for _, it := range group.Items {
			yv.Items = append(yv.Items, views[it.ID])
		}
		page.Years = append(page.Years, yv)
	}
	for _, it := range g.Items {
		if len(it.Tags) > 0 {
			page.Tagged++
		}
		if len(it.Comments) > 0 {
			page.Commented++
		}
	}
	if len(g.Items) > 0 {
		page.YearMin = g.Items[0].Resolved.Year()
		page.YearMax = g.Items[len(g.Items)-1].Resolved.Year()
	}
	return page
}

func (r *Renderer) photoPage(g *gallery.Graph, it *gallery.Item, original string, tags *textutil.SegmentSet, albums map[string]albumLink) photoPage {
	heading := it.Title
	if heading == "" {
		heading = it.ID
	}
	page := photoPage{
		Layout:      r.layout("../../", heading),
		Item:        it,
		Heading:     heading,
		Date:        it.Resolved.Format(dateLayout),
		Original:    original,
		HasThumb:    it.Thumbnail != "",
		HasAlbums:   len(g.Albums) > 0,
		Description: SafeMarkup(it.Description),
		Notes:       it.Notes,
	}
	prev, next := g.Neighbours(it.ID)
	if prev != nil {
		page.Prev = prev.ID
	}
	if next != nil {
		page.Next = next.ID
	}
	for _, name := range it.Tags {
		page.Tags = append(page.Tags, tagLink{Name: name, Segment: tags.Segment(name)})
	}
	for _, id := range it.Albums {
		if link, ok := albums[id]; ok {
			page.Albums = append(page.Albums, link)
		}
	}
	for _, c := range it.Comments {
		date := c.RawDate
		if !c.Date.IsZero() {
			date = c.Date.Format(dateLayout)
		}
		page.Comments = append(page.Comments, commentView{Text: SafeMarkup(c.Text), Date: date, Author: c.Author()})
	}
	return page
}

func (r *Renderer) tagIndexPage(g *gallery.Graph, tags *textutil.SegmentSet) tagIndexPage {
	page := tagIndexPage{Layout: r.layout("../", "Tags")}
	for _, tag := range g.Tags {
		page.Tags = append(page.Tags, tagLink{Name: tag.Name, Segment: tags.Segment(tag.Name), Count: tag.Count()})
	}
	for _, it := range g.Items {
		if len(it.Tags) > 0 {
			page.Tagged++
		}
	}
	return page
}

func (r *Renderer) albumIndexPage(g *gallery.Graph, albums map[string]albumLink, views map[string]gridEntry) albumIndexPage {
	page := albumIndexPage{Layout: r.layout("../", "Albums")}
	for _, album := range g.Albums {
		link := albums[album.ID]
		link.Count = len(album.ItemIDs)
		link.CoverID = album.CoverID
		link.CoverThumb = views[album.CoverID].HasThumb
		page.Albums = append(page.Albums, link)
	}
	return page
}

func newGridEntry(it *gallery.Item) gridEntry {
	title := it.Title
	if title == "" {
		title = it.ID
	}
	return gridEntry{
		ID:       it.ID,
		Title:    title,
		Tags:     strings.Join(it.Tags, ","),
		Desc:     normalize.Truncate(it.SearchText, searchDescLimit),
		Date:     it.Resolved.Format("2006-01-02"),
		Video:    it.IsVideo(),
		HasThumb: it.Thumbnail != "",
	}
}

func entriesFor(ids []string, views map[string]gridEntry) []gridEntry {
	out := make([]gridEntry, 0, len(ids))
	for _, id := range ids {
		if v, ok := views[id]; ok {
			out = append(out, v)
		}
	}
	return out
}
