package services

import (
	"errors"
	"fmt"
	"strings"
)

// Fatal markers abort the build.
var (
	ErrArchive       = errors.New("archive error")
	ErrConfiguration = errors.New("configuration error")
	ErrPreflight     = errors.New("preflight failure")
)

// Item-level markers exclude or degrade a single item; the build continues.
var (
	ErrMetadata  = errors.New("metadata error")
	ErrNoMedia   = errors.New("no matching media")
	ErrTimestamp = errors.New("unusable timestamp")
	ErrLookup    = errors.New("identity lookup failed")
	ErrPoster    = errors.New("poster unavailable")
	ErrThumbnail = errors.New("thumbnail failed")
)

// Pipeline stage names used in error detail, logs, and the run report.
const (
	StageConfig    = "config"
	StagePreflight = "preflight"
	StageArchive   = "archive"
	StageMetadata  = "metadata"
	StageIdentity  = "identity"
	StageMedia     = "media"
	StageNormalize = "normalize"
	StageGallery   = "gallery"
	StageThumbnail = "thumbnail"
	StageSite      = "site"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above; nil defaults to ErrMetadata.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrMetadata
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err carries a marker that must abort the build.
// Errors without any known marker are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrArchive), errors.Is(err, ErrConfiguration), errors.Is(err, ErrPreflight):
		return true
	case errors.Is(err, ErrMetadata), errors.Is(err, ErrNoMedia), errors.Is(err, ErrTimestamp),
		errors.Is(err, ErrLookup), errors.Is(err, ErrPoster), errors.Is(err, ErrThumbnail):
		return false
	default:
		return true
	}
}

// Reason returns the short marker text of err for reports, e.g. "no matching media".
func Reason(err error) string {
	for _, marker := range []error{
		ErrArchive, ErrConfiguration, ErrPreflight,
		ErrMetadata, ErrNoMedia, ErrTimestamp, ErrLookup, ErrPoster, ErrThumbnail,
	} {
		if errors.Is(err, marker) {
			return marker.Error()
		}
	}
	if err == nil {
		return ""
	}
	return "unexpected error"
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{stage, operation, message} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "build failure"
	}
	return strings.Join(parts, ": ")
}
