package identity_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"flashbulb/internal/identity"
)

func TestExtractDisplayName(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
	}{
		{
			name: "og title",
			page: `<html><head><title>Ignored | Flickr</title><meta property="og:title" content="Jane  Doe"></head></html>`,
			want: "Jane Doe",
		},
		{
			name: "entity in og title",
			page: `<head><meta property="og:title" content="Tom &amp; Jerry" /></head>`,
			want: "Tom & Jerry",
		},
		{
			name: "title fallback strips suffix",
			page: `<html><head><title>
				Jane Doe | Flickr
			</title></head><body><p>hi</p></body></html>`,
			want: "Jane Doe",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := identity.ExtractDisplayName(strings.NewReader(tt.page))
			if err != nil {
				t.Fatalf("ExtractDisplayName returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractDisplayNameMissing(t *testing.T) {
	_, err := identity.ExtractDisplayName(strings.NewReader(`<html><body>nothing</body></html>`))
	if !errors.Is(err, identity.ErrNoDisplayName) {
		t.Fatalf("expected ErrNoDisplayName, got %v", err)
	}
}

func TestProfileClientDisplayName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/people/55023503@N00/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("User-Agent") != "flashbulb-test" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<head><meta property="og:title" content="Alice"></head>`))
	}))
	t.Cleanup(server.Close)

	client, err := identity.NewProfileClient(server.URL+"/", time.Second, identity.WithUserAgent("flashbulb-test"))
	if err != nil {
		t.Fatalf("NewProfileClient returned error: %v", err)
	}
	name, err := client.DisplayName(context.Background(), "55023503@N00")
	if err != nil {
		t.Fatalf("DisplayName returned error: %v", err)
	}
	if name != "Alice" {
		t.Fatalf("unexpected name %q", name)
	}
}

func TestProfileClientHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	client, err := identity.NewProfileClient(server.URL, time.Second)
	if err != nil {
		t.Fatalf("NewProfileClient returned error: %v", err)
	}
	if _, err := client.DisplayName(context.Background(), "1@N00"); err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestNewProfileClientRequiresBaseURL(t *testing.T) {
	if _, err := identity.NewProfileClient(" ", time.Second); err == nil {
		t.Fatal("expected error without base url")
	}
}
