package metadata

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Record is one decoded per-item metadata file. Text fields are kept exactly
// as exported; the normalize package repairs them.
type Record struct {
	ID           string
	Title        string
	Description  string
	DateTaken    string
	DateImported string
	CountViews   int64
	CountFaves   int64
	License      string
	PhotoPage    string
	// Original is the URL the export declares for the original asset. For
	// videos it points at a poster image, not the video.
	Original string
	Privacy  string
	Geo      []Geo
	Tags     []Tag
	Notes    []Note
	Comments []Comment
	Albums   []AlbumRef
	// Source is the metadata file name the record was read from.
	Source string
}

// Geo is a location in micro-degrees as exported.
type Geo struct {
	Latitude  FlexInt `json:"latitude"`
	Longitude FlexInt `json:"longitude"`
	Accuracy  FlexInt `json:"accuracy"`
}

// Tag is a single tag label. It decodes from {"tag": "x"} or a bare string.
type Tag struct {
	Tag  string `json:"tag"`
	User string `json:"user,omitempty"`
}

func (t *Tag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &t.Tag)
	}
	var raw struct {
		Tag  string `json:"tag"`
		Raw  string `json:"raw"`
		User string `json:"user"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Tag = firstNonEmpty(raw.Tag, raw.Raw)
	t.User = raw.User
	return nil
}

// Note is an image-region annotation.
type Note struct {
	ID   FlexString `json:"id"`
	User string     `json:"user"`
	Text string     `json:"text"`
	X    FlexInt    `json:"x"`
	Y    FlexInt    `json:"y"`
	W    FlexInt    `json:"w"`
	H    FlexInt    `json:"h"`
}

// Comment is an inline comment as exported. User holds the author NSID.
type Comment struct {
	ID   FlexString `json:"id"`
	Date string     `json:"date"`
	User string     `json:"user"`
	Text string     `json:"comment"`
	URL  string     `json:"url"`
}

// AlbumRef is an album membership listed on a record.
type AlbumRef struct {
	ID    FlexString `json:"id"`
	Title string     `json:"title"`
	URL   string     `json:"url"`
}

// recordJSON lists every accepted spelling of each field.
type recordJSON struct {
	ID           FlexString         `json:"id"`
	Name         string             `json:"name"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	DateTaken    string             `json:"date_taken"`
	DateImported string             `json:"date_imported"`
	DateImport   string             `json:"date_import"`
	DateUploaded string             `json:"date_uploaded"`
	CountViews   FlexInt            `json:"count_views"`
	Views        FlexInt            `json:"views"`
	CountFaves   FlexInt            `json:"count_faves"`
	Faves        FlexInt            `json:"faves"`
	License      string             `json:"license"`
	PhotoPage    string             `json:"photopage"`
	PhotoPageAlt string             `json:"photo_page"`
	Original     string             `json:"original"`
	Privacy      string             `json:"privacy"`
	Geo          FlexList[Geo]      `json:"geo"`
	Tags         FlexList[Tag]      `json:"tags"`
	Notes        FlexList[Note]     `json:"notes"`
	Comments     FlexList[Comment]  `json:"comments"`
	Albums       FlexList[AlbumRef] `json:"albums"`
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Record{
		ID:           raw.ID.String(),
		Title:        firstNonEmpty(raw.Name, raw.Title),
		Description:  raw.Description,
		DateTaken:    strings.TrimSpace(raw.DateTaken),
		DateImported: strings.TrimSpace(firstNonEmpty(raw.DateImported, raw.DateImport, raw.DateUploaded)),
		CountViews:   int64(firstNonZero(raw.CountViews, raw.Views)),
		CountFaves:   int64(firstNonZero(raw.CountFaves, raw.Faves)),
		License:      strings.TrimSpace(raw.License),
		PhotoPage:    strings.TrimSpace(firstNonEmpty(raw.PhotoPage, raw.PhotoPageAlt)),
		Original:     strings.TrimSpace(raw.Original),
		Privacy:      strings.TrimSpace(raw.Privacy),
		Geo:          raw.Geo,
		Tags:         raw.Tags,
		Notes:        raw.Notes,
		Comments:     raw.Comments,
		Albums:       raw.Albums,
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...FlexInt) FlexInt {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
