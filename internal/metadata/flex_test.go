package metadata_test

import (
	"encoding/json"
	"testing"

	"flashbulb/internal/metadata"
)

func TestFlexListAcceptsScalarOrList(t *testing.T) {
	tests := []struct {
		name string
		json string
		want []string
	}{
		{"list", `{"tags": [{"tag": "a"}, {"tag": "b"}]}`, []string{"a", "b"}},
		{"single object", `{"tags": {"tag": "solo"}}`, []string{"solo"}},
		{"bare strings", `{"tags": ["x", "y"]}`, []string{"x", "y"}},
		{"single bare string", `{"tags": "only"}`, []string{"only"}},
		{"null", `{"tags": null}`, nil},
		{"absent", `{}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var record metadata.Record
			if err := json.Unmarshal([]byte(tt.json), &record); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(record.Tags) != len(tt.want) {
				t.Fatalf("got %d tags, want %d", len(record.Tags), len(tt.want))
			}
			for i, tag := range record.Tags {
				if tag.Tag != tt.want[i] {
					t.Fatalf("tag %d = %q, want %q", i, tag.Tag, tt.want[i])
				}
			}
		})
	}
}

func TestFlexIntAcceptsStringsAndNumbers(t *testing.T) {
	tests := []struct {
		json string
		want int64
	}{
		{`{"count_views": 12}`, 12},
		{`{"count_views": "12"}`, 12},
		{`{"count_views": " 7 "}`, 7},
		{`{"count_views": ""}`, 0},
		{`{"count_views": null}`, 0},
		{`{"count_views": 3.0}`, 3},
		{`{"views": "41"}`, 41},
	}
	for _, tt := range tests {
		var record metadata.Record
		if err := json.Unmarshal([]byte(tt.json), &record); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.json, err)
		}
		if record.CountViews != tt.want {
			t.Fatalf("%s: got %d, want %d", tt.json, record.CountViews, tt.want)
		}
	}

	var record metadata.Record
	if err := json.Unmarshal([]byte(`{"count_views": "lots"}`), &record); err == nil {
		t.Fatal("expected error for non-numeric count")
	}
}

func TestRecordFieldAliases(t *testing.T) {
	payload := `{
		"id": 5120345,
		"title": "Renamed title",
		"date_uploaded": "2012-03-04 05:06:07",
		"photo_page": "https://example.com/photos/x/5120345/",
		"geo": {"latitude": "37774900", "longitude": -122419400, "accuracy": 16}
	}`
	var record metadata.Record
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if record.ID != "5120345" {
		t.Fatalf("numeric id not decoded: %q", record.ID)
	}
	if record.Title != "Renamed title" {
		t.Fatalf("title alias not applied: %q", record.Title)
	}
	if record.DateImported != "2012-03-04 05:06:07" {
		t.Fatalf("import date alias not applied: %q", record.DateImported)
	}
	if record.PhotoPage == "" {
		t.Fatal("photo page alias not applied")
	}
	if len(record.Geo) != 1 || record.Geo[0].Latitude != 37774900 || record.Geo[0].Longitude != -122419400 {
		t.Fatalf("unexpected geo: %+v", record.Geo)
	}
}

func TestRecordNamePreferredOverTitle(t *testing.T) {
	var record metadata.Record
	if err := json.Unmarshal([]byte(`{"name": "Primary", "title": "Secondary"}`), &record); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if record.Title != "Primary" {
		t.Fatalf("expected name to win, got %q", record.Title)
	}
}
