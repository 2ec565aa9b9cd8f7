package pipeline

import (
	"errors"
	"sort"
	"time"

	"flashbulb/internal/gallery"
	"flashbulb/internal/services"
)

// Issue is one item-level problem recorded during a run.
type Issue struct {
	Stage  string `json:"stage"`
	ItemID string `json:"item_id,omitempty"`
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

// Report summarises a build run.
type Report struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration_ns"`
	SiteDir    string        `json:"site_dir"`
	LogPath    string        `json:"log_path,omitempty"`

	Extracted     bool `json:"extracted"`
	ArchiveFiles  int  `json:"archive_files"`
	Records       int  `json:"records"`
	MediaFiles    int  `json:"media_files"`
	MergedComment int  `json:"merged_comments"`

	Stats gallery.Stats `json:"stats"`

	AuthorsCached   int      `json:"authors_cached"`
	AuthorsResolved int      `json:"authors_resolved"`
	AuthorsPending  []string `json:"authors_pending,omitempty"`

	PostersFetched   int `json:"posters_fetched"`
	ThumbnailsMade   int `json:"thumbnails_generated"`
	ThumbnailsReused int `json:"thumbnails_reused"`
	Pages            int `json:"pages"`
	OriginalsCopied  int `json:"originals_copied"`
	OriginalsReused  int `json:"originals_reused"`
	LogsPruned       int `json:"logs_pruned,omitempty"`

	// Skipped items are absent from the site.
	Skipped []Issue `json:"skipped,omitempty"`
	// Flagged items are present with reduced output.
	Flagged []Issue `json:"flagged,omitempty"`
	// Orphans are media files no record claimed.
	Orphans []string `json:"orphans,omitempty"`
}

// Skip records that itemID was excluded at stage.
func (r *Report) Skip(stage, itemID string, err error) {
	r.Skipped = append(r.Skipped, newIssue(stage, itemID, err))
}

// Flag records that itemID was kept with reduced output at stage.
func (r *Report) Flag(stage, itemID string, err error) {
	r.Flagged = append(r.Flagged, newIssue(stage, itemID, err))
}

func newIssue(stage, itemID string, err error) Issue {
	if err == nil {
		err = errors.New("unknown error")
	}
	return Issue{Stage: stage, ItemID: itemID, Reason: services.Reason(err), Detail: err.Error()}
}

// SkippedByReason counts skipped items per reason, for summaries.
func (r *Report) SkippedByReason() map[string]int {
	counts := make(map[string]int)
	for _, issue := range r.Skipped {
		counts[issue.Reason]++
	}
	return counts
}

// SkippedIDs returns the sorted identifiers of skipped items.
func (r *Report) SkippedIDs() []string {
	ids := make([]string, 0, len(r.Skipped))
	for _, issue := range r.Skipped {
		if issue.ItemID != "" {
			ids = append(ids, issue.ItemID)
		}
	}
	sort.Strings(ids)
	return ids
}

func (r *Report) finish(now time.Time) {
	r.FinishedAt = now
	r.Duration = now.Sub(r.StartedAt)
}
