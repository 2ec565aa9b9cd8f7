package media

import (
	"fmt"
	"log/slog"
	"strings"

	"flashbulb/internal/logging"
	"flashbulb/internal/metadata"
	"flashbulb/internal/services"
)

// Match is the media chosen for one item.
type Match struct {
	ItemID string
	Kind   Kind
	// Original is the path of the payload file.
	Original string
	// PosterPath is a local still for a video: a sibling image sharing the
	// identifier, or a fetched poster once PosterFetcher has run.
	PosterPath string
	// PosterURL is the declared original URL when it names an image but the
	// payload is a video. Empty when a local poster exists.
	PosterURL string
}

// ThumbnailSource returns the image a thumbnail is generated from, or "" when
// no still is available.
func (m Match) ThumbnailSource() string {
	if m.Kind == KindVideo {
		return m.PosterPath
	}
	return m.Original
}

// Matcher selects media for records from an Index. It is not safe for
// concurrent use.
type Matcher struct {
	index   *Index
	logger  *slog.Logger
	claimed map[string]struct{}
}

// NewMatcher constructs a Matcher over index.
func NewMatcher(index *Index, logger *slog.Logger) *Matcher {
	return &Matcher{
		index:   index,
		logger:  logging.NewComponentLogger(logger, "media"),
		claimed: make(map[string]struct{}),
	}
}

// Match picks the original media file for record. A video candidate wins and
// a sibling image becomes its poster; otherwise an "_o" image wins, ties
// broken by name. A record with no candidate fails with ErrNoMedia.
func (m *Matcher) Match(record metadata.Record) (Match, error) {
	files := m.index.Candidates(record.ID)
	if len(files) == 0 {
		return Match{}, services.Wrap(services.ErrNoMedia, services.StageMedia, "match",
			fmt.Sprintf("no file embeds id %s", record.ID), nil)
	}

	video := pick(files, KindVideo)
	image := pick(files, KindPhoto)

	match := Match{ItemID: record.ID}
	switch {
	case video != nil:
		match.Kind = KindVideo
		match.Original = video.Path
		if image != nil {
			match.PosterPath = image.Path
		} else if KindForURL(record.Original) == KindPhoto {
			match.PosterURL = strings.TrimSpace(record.Original)
			m.logger.Debug("declared original is a poster image for a video",
				logging.ItemID(record.ID),
				logging.String("file", video.Name),
				logging.String(logging.FieldEventType, "video_poster_url"),
			)
		}
	case image != nil:
		match.Kind = KindPhoto
		match.Original = image.Path
	default:
		return Match{}, services.Wrap(services.ErrNoMedia, services.StageMedia, "match",
			fmt.Sprintf("no usable file for id %s", record.ID), nil)
	}

	for _, f := range files {
		m.claimed[f.Path] = struct{}{}
	}
	return match, nil
}

// Orphans returns media files that no matched record claimed.
func (m *Matcher) Orphans() []string {
	return m.index.Orphans(m.claimed)
}

// pick returns the preferred file of kind: "_o" originals first, then by name.
// files must already be sorted by name.
func pick(files []File, kind Kind) *File {
	var best *File
	for i := range files {
		f := &files[i]
		if f.Kind != kind {
			continue
		}
		if best == nil || (f.Original && !best.Original) {
			best = f
		}
	}
	return best
}
