package site

import (
	"html/template"

	"flashbulb/internal/gallery"
)

type layout struct {
	Root      string
	PageTitle string
	SiteTitle string
}

type gridEntry struct {
	ID       string
	Title    string
	Tags     string
	Desc     string
	Date     string
	Video    bool
	HasThumb bool
}

type gridView struct {
	Root  string
	Items []gridEntry
}

type yearView struct {
	Year  int
	Items []gridEntry
}

type tagLink struct {
	Name    string
	Segment string
	Count   int
}

type albumLink struct {
	ID         string
	Title      string
	Segment    string
	Count      int
	CoverID    string
	CoverThumb bool
}

type commentView struct {
	Text   template.HTML
	Date   string
	Author string
}

type indexPage struct {
	Layout    layout
	Subtitle  string
	Stats     gallery.Stats
	Years     []yearView
	YearMin   int
	YearMax   int
	Tagged    int
	Commented int
	Owner     string
	Built     string
}

type photoPage struct {
	Layout      layout
	Item        *gallery.Item
	Heading     string
	Date        string
	Original    string
	HasThumb    bool
	HasAlbums   bool
	Prev        string
	Next        string
	Description template.HTML
	Tags        []tagLink
	Notes       []gallery.Note
	Comments    []commentView
	Albums      []albumLink
}

type tagIndexPage struct {
	Layout layout
	Tags   []tagLink
	Tagged int
}

type tagPage struct {
	Layout layout
	Name   string
	Items  []gridEntry
}

type albumIndexPage struct {
	Layout layout
	Albums []albumLink
}

type albumPage struct {
	Layout      layout
	Title       string
	Description template.HTML
	Created     string
	URL         string
	Items       []gridEntry
}
