package normalize

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"flashbulb/internal/metadata"
)

const microDegrees = 1e6

// Location is a geolocation in decimal degrees.
type Location struct {
	Latitude  float64
	Longitude float64
	Accuracy  int
}

// Geo converts the first usable exported location from micro-degrees. A (0,0)
// or out-of-range coordinate means no location.
func Geo(values []metadata.Geo) *Location {
	for _, g := range values {
		if g.Latitude == 0 && g.Longitude == 0 {
			continue
		}
		lat := float64(g.Latitude) / microDegrees
		lon := float64(g.Longitude) / microDegrees
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			continue
		}
		return &Location{Latitude: lat, Longitude: lon, Accuracy: int(g.Accuracy)}
	}
	return nil
}

// Comment is a normalized comment. Author is the raw NSID.
type Comment struct {
	ID      string
	Author  string
	Text    string
	Date    time.Time
	RawDate string
	URL     string
}

// Note is a normalized image-region annotation.
type Note struct {
	Author     string
	Text       string
	X, Y, W, H int
}

// Fields holds every repaired field of one record.
type Fields struct {
	Title       string
	Description string
	SearchText  string
	Timestamps  Timestamps
	Tags        []string
	Geo         *Location
	Comments    []Comment
	Notes       []Note
}

// Normalizer applies the field repair rules. It is not safe for concurrent use.
type Normalizer struct {
	window Window
	loc    *time.Location
	lower  cases.Caser
}

// NewNormalizer returns a Normalizer using the plausibility window and the
// location zone-less timestamps are interpreted in.
func NewNormalizer(window Window, loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{window: window, loc: loc, lower: cases.Lower(language.Und)}
}

// Window returns the plausibility window in use.
func (n *Normalizer) Window() Window {
	return n.window
}

// Record normalizes one record. The only error is ErrTimestamp when the item
// has no usable timestamp; such items are excluded.
func (n *Normalizer) Record(record metadata.Record) (Fields, error) {
	ts, err := ResolveTimestamps(record.DateTaken, record.DateImported, n.window, n.loc)
	if err != nil {
		return Fields{}, err
	}

	description := Text(record.Description)
	fields := Fields{
		Title:       Text(record.Title),
		Description: description,
		SearchText:  PlainText(description),
		Timestamps:  ts,
		Tags:        n.Tags(record.Tags),
		Geo:         Geo(record.Geo),
	}

	for _, c := range record.Comments {
		text := Text(c.Text)
		if text == "" {
			continue
		}
		comment := Comment{
			ID:      c.ID.String(),
			Author:  strings.TrimSpace(c.User),
			Text:    text,
			RawDate: strings.TrimSpace(c.Date),
			URL:     strings.TrimSpace(c.URL),
		}
		comment.Date, _ = ParseTime(c.Date, n.loc)
		fields.Comments = append(fields.Comments, comment)
	}

	for _, note := range record.Notes {
		text := Text(note.Text)
		if text == "" {
			continue
		}
		fields.Notes = append(fields.Notes, Note{
			Author: strings.TrimSpace(note.User),
			Text:   text,
			X:      int(note.X),
			Y:      int(note.Y),
			W:      int(note.W),
			H:      int(note.H),
		})
	}
	return fields, nil
}

// Tags lowercases, trims, and deduplicates tag labels preserving first
// occurrence. Empty labels are dropped.
func (n *Normalizer) Tags(tags []metadata.Tag) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		label := n.lower.String(strings.Join(strings.Fields(Text(tag.Tag)), " "))
		if label == "" {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}
