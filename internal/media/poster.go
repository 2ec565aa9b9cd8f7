package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"flashbulb/internal/logging"
	"flashbulb/internal/services"
)

const (
	defaultPosterTimeout = 30 * time.Second
	maxPosterBytes       = 32 << 20
)

// PosterConfig describes the poster fetcher configuration.
type PosterConfig struct {
	// Dir receives fetched posters as <id><ext>.
	Dir        string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// PosterFetcher downloads poster stills for video items.
type PosterFetcher struct {
	dir       string
	userAgent string
	http      *http.Client
	logger    *slog.Logger
}

// NewPosterFetcher creates a PosterFetcher from cfg.
func NewPosterFetcher(cfg PosterConfig, logger *slog.Logger) (*PosterFetcher, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, errors.New("poster directory is required")
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultPosterTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &PosterFetcher{
		dir:       cfg.Dir,
		userAgent: strings.TrimSpace(cfg.UserAgent),
		http:      client,
		logger:    logging.NewComponentLogger(logger, "poster"),
	}, nil
}

// Fetch downloads rawURL into the poster directory and returns the local path.
// An existing non-empty poster for itemID is reused. Failures carry ErrPoster.
func (f *PosterFetcher) Fetch(ctx context.Context, itemID, rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", services.Wrap(services.ErrPoster, services.StageMedia, "fetch poster",
			fmt.Sprintf("invalid poster url %q", rawURL), err)
	}

	ext := strings.ToLower(path.Ext(parsed.Path))
	if KindForExt(ext) != KindPhoto {
		ext = ".jpg"
	}
	dest := filepath.Join(f.dir, itemID+ext)
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		return dest, nil
	}

	if err := f.download(ctx, parsed.String(), dest); err != nil {
		return "", services.Wrap(services.ErrPoster, services.StageMedia, "fetch poster", itemID, err)
	}
	f.logger.Debug("poster downloaded",
		logging.ItemID(itemID),
		logging.String("path", dest),
		logging.String(logging.FieldEventType, "poster_downloaded"),
	)
	return dest, nil
}

func (f *PosterFetcher) download(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && kindForContentType(ct) != KindPhoto {
		return fmt.Errorf("unexpected content type %q", ct)
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create poster directory: %w", err)
	}
	tmp, err := os.CreateTemp(f.dir, ".poster-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	written, err := io.Copy(tmp, io.LimitReader(resp.Body, maxPosterBytes+1))
	closeErr := tmp.Close()
	switch {
	case err != nil:
		err = fmt.Errorf("read body: %w", err)
	case closeErr != nil:
		err = fmt.Errorf("close temp file: %w", closeErr)
	case written == 0:
		err = errors.New("empty response body")
	case written > maxPosterBytes:
		err = fmt.Errorf("poster exceeds %d bytes", maxPosterBytes)
	}
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename poster: %w", err)
	}
	return nil
}
