package media_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/jarcoal/httpmock"

	"flashbulb/internal/media"
	"flashbulb/internal/services"
)

const posterURL = "https://live.example.com/123_abc_o.jpg"

func newPosterFetcher(t *testing.T, transport *httpmock.MockTransport) (*media.PosterFetcher, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "posters")
	fetcher, err := media.NewPosterFetcher(media.PosterConfig{
		Dir:        dir,
		UserAgent:  "flashbulb-test",
		HTTPClient: &http.Client{Transport: transport},
	}, nil)
	if err != nil {
		t.Fatalf("NewPosterFetcher failed: %v", err)
	}
	return fetcher, dir
}

func TestPosterFetchDownloads(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", posterURL, func(req *http.Request) (*http.Response, error) {
		if got := req.Header.Get("User-Agent"); got != "flashbulb-test" {
			t.Errorf("unexpected user agent %q", got)
		}
		resp := httpmock.NewStringResponse(http.StatusOK, "jpegdata")
		resp.Header.Set("Content-Type", "image/jpeg")
		return resp, nil
	})
	fetcher, dir := newPosterFetcher(t, transport)

	path, err := fetcher.Fetch(context.Background(), "123", posterURL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if path != filepath.Join(dir, "123.jpg") {
		t.Fatalf("unexpected poster path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "jpegdata" {
		t.Fatalf("unexpected poster contents %q (%v)", data, err)
	}

	// Second fetch reuses the file without a request.
	if _, err := fetcher.Fetch(context.Background(), "123", posterURL); err != nil {
		t.Fatalf("second Fetch failed: %v", err)
	}
	if calls := transport.GetTotalCallCount(); calls != 1 {
		t.Fatalf("expected one request, got %d", calls)
	}
}

func TestPosterFetchStatusFailure(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", posterURL, httpmock.NewStringResponder(http.StatusNotFound, "gone"))
	fetcher, dir := newPosterFetcher(t, transport)

	_, err := fetcher.Fetch(context.Background(), "123", posterURL)
	if !errors.Is(err, services.ErrPoster) {
		t.Fatalf("expected ErrPoster, got %v", err)
	}
	if services.IsFatal(err) {
		t.Fatal("poster failure must not be fatal")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "123.jpg")); !os.IsNotExist(statErr) {
		t.Fatalf("expected no poster on failure, stat err %v", statErr)
	}
}

func TestPosterFetchRejectsNonImage(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", posterURL, func(*http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(http.StatusOK, "<html>login</html>")
		resp.Header.Set("Content-Type", "text/html; charset=utf-8")
		return resp, nil
	})
	fetcher, _ := newPosterFetcher(t, transport)

	if _, err := fetcher.Fetch(context.Background(), "123", posterURL); !errors.Is(err, services.ErrPoster) {
		t.Fatalf("expected ErrPoster for html body, got %v", err)
	}
}

func TestPosterFetchRejectsBadURL(t *testing.T) {
	fetcher, _ := newPosterFetcher(t, httpmock.NewMockTransport())
	if _, err := fetcher.Fetch(context.Background(), "1", "ftp://example.com/a.jpg"); !errors.Is(err, services.ErrPoster) {
		t.Fatalf("expected ErrPoster for ftp url, got %v", err)
	}
}

func TestNewPosterFetcherRequiresDir(t *testing.T) {
	if _, err := media.NewPosterFetcher(media.PosterConfig{}, nil); err == nil {
		t.Fatal("expected error without directory")
	}
}
