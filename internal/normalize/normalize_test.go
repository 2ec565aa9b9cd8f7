package normalize_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"flashbulb/internal/metadata"
	"flashbulb/internal/normalize"
	"flashbulb/internal/services"
)

func defaultWindow() normalize.Window {
	return normalize.Window{
		Earliest: time.Date(2004, 2, 1, 0, 0, 0, 0, time.UTC),
		Latest:   time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestTextUnescapesOnceAndKeepsMarkup(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"A &amp; B <b>bold</b>", "A & B <b>bold</b>"},
		{"&quot;quoted&quot; <a href=\"https://x.test\">link</a>", "\"quoted\" <a href=\"https://x.test\">link</a>"},
		{"double &amp;amp; stays once", "double &amp; stays once"},
		{"  plain  ", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalize.Text(tt.in); got != tt.want {
			t.Fatalf("Text(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlainTextStripsTags(t *testing.T) {
	got := normalize.PlainText("A & B <b>bold</b>\n\n<i>more</i>")
	if strings.ContainsAny(got, "<>") {
		t.Fatalf("expected tags stripped, got %q", got)
	}
	for _, want := range []string{"bold", "more"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
	if strings.Contains(got, "\n") || strings.Contains(got, "  ") {
		t.Fatalf("expected collapsed whitespace, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := normalize.Truncate("short", 10); got != "short" {
		t.Fatalf("unexpected truncate: %q", got)
	}
	if got := normalize.Truncate("one two three four", 12); got != "one two" {
		t.Fatalf("expected word boundary cut, got %q", got)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		raw  string
		ok   bool
		want time.Time
	}{
		{"2012-03-04 05:06:07", true, time.Date(2012, 3, 4, 5, 6, 7, 0, time.UTC)},
		{"2012-03-04T05:06:07Z", true, time.Date(2012, 3, 4, 5, 6, 7, 0, time.UTC)},
		{"2012-03-04T05:06:07", true, time.Date(2012, 3, 4, 5, 6, 7, 0, time.UTC)},
		{"2012-03-04", true, time.Date(2012, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"1330837567", true, time.Unix(1330837567, 0)},
		{"0000-00-00 00:00:00", false, time.Time{}},
		{"yesterday", false, time.Time{}},
		{"", false, time.Time{}},
	}
	for _, tt := range tests {
		got, ok := normalize.ParseTime(tt.raw, time.UTC)
		if ok != tt.ok {
			t.Fatalf("ParseTime(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
		}
		if ok && !got.Equal(tt.want) {
			t.Fatalf("ParseTime(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestResolveTimestampsFallsBackToImport(t *testing.T) {
	ts, err := normalize.ResolveTimestamps("1901-06-01 12:00:00", "2012-05-05 10:00:00", defaultWindow(), time.UTC)
	if err != nil {
		t.Fatalf("ResolveTimestamps returned error: %v", err)
	}
	if !ts.Fallback {
		t.Fatal("expected fallback flag")
	}
	if ts.Resolved.Year() != 2012 {
		t.Fatalf("expected 2012, got %v", ts.Resolved)
	}
	if ts.Taken.Year() != 1901 {
		t.Fatalf("expected raw capture time kept, got %v", ts.Taken)
	}
}

func TestResolveTimestampsPrefersPlausibleCapture(t *testing.T) {
	ts, err := normalize.ResolveTimestamps("2010-01-01 00:00:00", "2012-05-05 10:00:00", defaultWindow(), time.UTC)
	if err != nil {
		t.Fatalf("ResolveTimestamps returned error: %v", err)
	}
	if ts.Fallback || ts.Resolved.Year() != 2010 {
		t.Fatalf("unexpected resolution: %+v", ts)
	}
}

func TestResolveTimestampsExcludesWhenBothUnusable(t *testing.T) {
	tests := []struct{ taken, imported string }{
		{"", ""},
		{"0000-00-00 00:00:00", "garbage"},
		{"1901-01-01", "2099-01-01"},
	}
	for _, tt := range tests {
		_, err := normalize.ResolveTimestamps(tt.taken, tt.imported, defaultWindow(), time.UTC)
		if !errors.Is(err, services.ErrTimestamp) {
			t.Fatalf("expected ErrTimestamp for %+v, got %v", tt, err)
		}
	}
}

func TestTagsLowercaseDedupe(t *testing.T) {
	n := normalize.NewNormalizer(defaultWindow(), time.UTC)
	tags := []metadata.Tag{{Tag: "Beach"}, {Tag: " beach "}, {Tag: ""}, {Tag: "ÉTÉ"}, {Tag: "Sunset"}}
	got := n.Tags(tags)
	want := []string{"beach", "été", "sunset"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Tags = %v, want %v", got, want)
	}
}

func TestGeo(t *testing.T) {
	loc := normalize.Geo([]metadata.Geo{{Latitude: 0, Longitude: 0}, {Latitude: 37774900, Longitude: -122419400, Accuracy: 16}})
	if loc == nil {
		t.Fatal("expected location")
	}
	if loc.Latitude != 37.7749 || loc.Longitude != -122.4194 || loc.Accuracy != 16 {
		t.Fatalf("unexpected location: %+v", loc)
	}
	if normalize.Geo([]metadata.Geo{{}}) != nil {
		t.Fatal("expected (0,0) to mean no location")
	}
	if normalize.Geo([]metadata.Geo{{Latitude: 95000000, Longitude: 1}}) != nil {
		t.Fatal("expected out-of-range latitude to be dropped")
	}
	if normalize.Geo(nil) != nil {
		t.Fatal("expected nil for no geo")
	}
}

func TestNormalizerRecord(t *testing.T) {
	payload := `{
		"id": "1",
		"name": "Tom &amp; Jerry",
		"description": "A &amp; B <b>bold</b>",
		"date_taken": "1901-01-01 00:00:00",
		"date_imported": "2012-01-01 00:00:00",
		"tags": [{"tag": "Cats"}, {"tag": "cats"}],
		"comments": [
			{"id": "c1", "user": "55023503@N00", "comment": "Great &lt;3", "date": "2012-02-02 10:00:00"},
			{"id": "c2", "user": "1@N00", "comment": "   "}
		],
		"notes": {"user": "1@N00", "text": "a face", "x": "10", "y": 20, "w": 30, "h": 40}
	}`
	var record metadata.Record
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	fields, err := normalize.NewNormalizer(defaultWindow(), time.UTC).Record(record)
	if err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if fields.Title != "Tom & Jerry" {
		t.Fatalf("unexpected title: %q", fields.Title)
	}
	if fields.Description != "A & B <b>bold</b>" {
		t.Fatalf("unexpected description: %q", fields.Description)
	}
	if strings.Contains(fields.SearchText, "<b>") {
		t.Fatalf("search text has markup: %q", fields.SearchText)
	}
	if !fields.Timestamps.Fallback || fields.Timestamps.Resolved.Year() != 2012 {
		t.Fatalf("unexpected timestamps: %+v", fields.Timestamps)
	}
	if len(fields.Tags) != 1 || fields.Tags[0] != "cats" {
		t.Fatalf("unexpected tags: %v", fields.Tags)
	}
	if len(fields.Comments) != 1 || fields.Comments[0].Text != "Great <3" || fields.Comments[0].Author != "55023503@N00" {
		t.Fatalf("unexpected comments: %+v", fields.Comments)
	}
	if fields.Comments[0].Date.IsZero() {
		t.Fatal("expected comment date parsed")
	}
	if len(fields.Notes) != 1 || fields.Notes[0].X != 10 || fields.Notes[0].H != 40 {
		t.Fatalf("unexpected notes: %+v", fields.Notes)
	}
}
