package metadata_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"flashbulb/internal/metadata"
	"flashbulb/internal/services"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadSkipsMalformedRecords(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "photo_200.json", `{"id": "200", "name": "Second"}`)
	writeFile(t, dir, "photo_30.json", `{"id": "30", "name": "First"}`)
	writeFile(t, dir, "photo_40.json", `{"id": "40", "name": `)
	writeFile(t, dir, "photo_50.json", `{"id": "51", "name": "Mismatch"}`)
	writeFile(t, dir, "photo_60.json", `{"name": "No id"}`)
	writeFile(t, dir, "notes.txt", "ignored")

	result, err := metadata.NewLoader(nil).Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	var ids []string
	for _, r := range result.Records {
		ids = append(ids, r.ID)
	}
	want := []string{"30", "60", "200"}
	if len(ids) != len(want) {
		t.Fatalf("unexpected records: %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("records not sorted by id: %v", ids)
		}
	}
	if result.Records[1].Source != "photo_60.json" {
		t.Fatalf("unexpected source: %q", result.Records[1].Source)
	}

	if len(result.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %+v", result.Failures)
	}
	for _, failure := range result.Failures {
		if !errors.Is(failure.Err, services.ErrMetadata) {
			t.Fatalf("failure not marked as metadata error: %v", failure.Err)
		}
		if services.IsFatal(failure.Err) {
			t.Fatalf("record failure must be item-level: %v", failure.Err)
		}
	}
}

func TestLoadMergesAggregateComments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "account_profile.json", `{"nsid": "12345678@N00", "real_name": "Owner Name", "screen_name": "owner"}`)
	writeFile(t, dir, "photo_1.json", `{"id": "1", "comments": [{"id": "c1", "user": "55023503@N00", "comment": "Nice!", "date": "2010-01-01 00:00:00"}]}`)
	writeFile(t, dir, "photos_comments_part001.json", `{"comments": [
		{"photo_id": "1", "comment": "Nice!", "created": "2010-01-01 00:00:00"},
		{"photo_id": "1", "comment": "Thanks all", "comment_url": "https://example.com/c2", "created": "2010-01-02 00:00:00"},
		{"photo_id": "999", "comment": "Orphan"}
	]}`)

	result, err := metadata.NewLoader(nil).Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if result.Owner.NSID != "12345678@N00" || result.Owner.Name != "Owner Name" {
		t.Fatalf("unexpected owner: %+v", result.Owner)
	}
	if result.MergedComments != 1 {
		t.Fatalf("expected 1 merged comment, got %d", result.MergedComments)
	}
	comments := result.Records[0].Comments
	if len(comments) != 2 {
		t.Fatalf("expected 2 comments, got %+v", comments)
	}
	if comments[1].Text != "Thanks all" || comments[1].User != "12345678@N00" {
		t.Fatalf("unexpected merged comment: %+v", comments[1])
	}
}

func TestLoadAlbums(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "photo_1.json", `{"id": "1"}`)
	writeFile(t, dir, "albums.json", `{"albums": [
		{"id": "7215", "title": "Trip", "photos": ["1", "2", "0"], "cover_photo": "https://example.com/photos/x/2"},
		{"id": "7216", "title": "Single", "photos": "1"}
	]}`)
	writeFile(t, dir, "albums_part002.json", `{"albums": {"id": "7215", "title": "Duplicate"}}`)

	result, err := metadata.NewLoader(nil).Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(result.Albums) != 2 {
		t.Fatalf("expected 2 albums, got %+v", result.Albums)
	}
	trip := result.Albums[0]
	if trip.Title != "Trip" || len(trip.PhotoIDs) != 2 || trip.PhotoIDs[1] != "2" {
		t.Fatalf("unexpected album: %+v", trip)
	}
	if len(result.Albums[1].PhotoIDs) != 1 {
		t.Fatalf("scalar photo list not normalized: %+v", result.Albums[1])
	}
}

func TestLoadMissingDirectoryIsFatal(t *testing.T) {
	_, err := metadata.NewLoader(nil).Load(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
	if !services.IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
}
