package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"flashbulb/internal/archive"
	"flashbulb/internal/config"
	"flashbulb/internal/gallery"
	"flashbulb/internal/identity"
	"flashbulb/internal/logging"
	"flashbulb/internal/media"
	"flashbulb/internal/metadata"
	"flashbulb/internal/namecache"
	"flashbulb/internal/normalize"
	"flashbulb/internal/preflight"
	"flashbulb/internal/services"
	"flashbulb/internal/site"
	"flashbulb/internal/thumbnail"
)

// PosterDirName is the working-directory subfolder holding fetched posters.
const PosterDirName = "posters"

// Pipeline builds a site from an export according to a Config.
type Pipeline struct {
	cfg        *config.Config
	logger     *slog.Logger
	runID      string
	lookup     identity.Lookup
	httpClient *http.Client
	preflight  bool
	now        func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithRunID sets the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(p *Pipeline) {
		if strings.TrimSpace(id) != "" {
			p.runID = id
		}
	}
}

// WithLookup replaces the profile-page author lookup.
func WithLookup(lookup identity.Lookup) Option {
	return func(p *Pipeline) {
		p.lookup = lookup
	}
}

// WithHTTPClient sets the client used for poster downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Pipeline) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithoutPreflight skips the filesystem readiness checks.
func WithoutPreflight() Option {
	return func(p *Pipeline) {
		p.preflight = false
	}
}

// WithClock overrides the time source used for the report and site footer.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// NewRunID returns a fresh build run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// New constructs a Pipeline for cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, services.StageConfig, "init", "configuration is required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pipeline{cfg: cfg, logger: logger, preflight: true, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.runID == "" {
		p.runID = NewRunID()
	}
	return p, nil
}

// RunID returns the identifier stamped on logs and the report.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Run executes one build. archives, when non-empty, replaces the configured
// archive patterns. The returned Report is non-nil even on error and holds
// whatever was gathered before the failure.
func (p *Pipeline) Run(ctx context.Context, archives []string) (*Report, error) {
	ctx = services.WithRunID(ctx, p.runID)
	report := &Report{RunID: p.runID, StartedAt: p.now(), SiteDir: p.cfg.Paths.SiteDir}
	defer func() { report.finish(p.now()) }()

	logger := logging.WithContext(ctx, p.logger)
	logger.Info("build started",
		logging.String("work_dir", p.cfg.Paths.WorkDir),
		logging.String("site_dir", p.cfg.Paths.SiteDir),
		logging.String(logging.FieldEventType, "build_start"),
	)

	if err := p.cfg.EnsureDirectories(); err != nil {
		return report, services.Wrap(services.ErrConfiguration, services.StageConfig, "ensure directories", "", err)
	}
	if p.preflight {
		if err := preflight.Err(preflight.RunAll(ctx, p.cfg)); err != nil {
			return report, err
		}
	}

	unpacked, err := p.unpack(ctx, archives, report)
	if err != nil {
		return report, err
	}

	entries, loaded, err := p.collect(ctx, unpacked, report)
	if err != nil {
		return report, err
	}

	if err := p.fetchPosters(ctx, entries, report); err != nil {
		return report, err
	}

	names, err := p.resolveAuthors(ctx, entries, loaded.Owner, report)
	if err != nil {
		return report, err
	}

	graph, err := gallery.NewBuilder(logger).Build(gallery.Input{
		Entries:  entries,
		Albums:   loaded.Albums,
		Owner:    loaded.Owner,
		Names:    names,
		Location: p.cfg.TimestampLocation(),
	})
	if err != nil {
		return report, err
	}

	if err := p.thumbnails(ctx, graph, report); err != nil {
		return report, err
	}

	if err := p.render(ctx, graph, report); err != nil {
		return report, err
	}
	report.Stats = graph.Stats()

	logger.Info("build finished",
		logging.Int("item_count", report.Stats.Items),
		logging.Int("skipped_count", len(report.Skipped)),
		logging.Int("flagged_count", len(report.Flagged)),
		logging.Int("pending_authors", len(report.AuthorsPending)),
		logging.Duration("elapsed", p.now().Sub(report.StartedAt)),
		logging.String(logging.FieldEventType, "build_complete"),
	)
	return report, nil
}

func (p *Pipeline) stageLogger(ctx context.Context, stage string) (context.Context, *slog.Logger) {
	ctx = services.WithStage(ctx, stage)
	return ctx, logging.WithContext(ctx, p.logger)
}

func (p *Pipeline) unpack(ctx context.Context, explicit []string, report *Report) (*archive.Result, error) {
	ctx, logger := p.stageLogger(ctx, services.StageArchive)

	paths, err := archive.ResolveArchives(explicit, p.cfg.ArchivePatterns())
	if err != nil {
		return nil, err
	}
	result, err := archive.NewUnpacker(p.cfg.Paths.WorkDir, logger).Unpack(ctx, paths)
	if err != nil {
		return nil, err
	}
	report.Extracted = !result.Skipped
	report.ArchiveFiles = result.Files
	for _, name := range result.Rejected {
		report.Flag(services.StageArchive, "", services.Wrap(services.ErrArchive, services.StageArchive,
			"extract", fmt.Sprintf("unsafe entry %q skipped", name), nil))
	}
	return result, nil
}

// collect loads, matches, and normalizes every record. Records failing any
// step are skipped and never reach the graph.
func (p *Pipeline) collect(ctx context.Context, unpacked *archive.Result, report *Report) ([]gallery.Entry, *metadata.Result, error) {
	mctx, logger := p.stageLogger(ctx, services.StageMetadata)
	loaded, err := metadata.NewLoader(logger).Load(mctx, unpacked.Dir)
	if err != nil {
		return nil, nil, err
	}
	report.Records = len(loaded.Records)
	report.MergedComment = loaded.MergedComments
	for _, failure := range loaded.Failures {
		report.Skip(services.StageMetadata, failure.ItemID, failure.Err)
	}

	mediaCtx, mediaLogger := p.stageLogger(ctx, services.StageMedia)
	index, err := media.BuildIndex(mediaCtx, unpacked.Dir)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrArchive, services.StageMedia, "index", unpacked.Dir, err)
	}
	report.MediaFiles = index.Len()
	matcher := media.NewMatcher(index, mediaLogger)

	earliest, latest := p.cfg.PlausibleWindow(unpacked.Marker.ExportDate)
	normalizer := normalize.NewNormalizer(normalize.Window{Earliest: earliest, Latest: latest}, p.cfg.TimestampLocation())
	_, normLogger := p.stageLogger(ctx, services.StageNormalize)

	entries := make([]gallery.Entry, 0, len(loaded.Records))
	for _, record := range loaded.Records {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		match, err := matcher.Match(record)
		if err != nil {
			p.skip(mediaLogger, report, services.StageMedia, record.ID, err)
			continue
		}
		fields, err := normalizer.Record(record)
		if err != nil {
			p.skip(normLogger, report, services.StageNormalize, record.ID, err)
			continue
		}
		entries = append(entries, gallery.Entry{Record: record, Fields: fields, Match: match})
	}
	report.Orphans = matcher.Orphans()
	if len(report.Orphans) > 0 {
		mediaLogger.Info("media files without metadata",
			logging.Int("orphan_count", len(report.Orphans)),
			logging.String(logging.FieldEventType, "media_orphans"),
		)
	}
	return entries, loaded, nil
}

func (p *Pipeline) skip(logger *slog.Logger, report *Report, stage, itemID string, err error) {
	report.Skip(stage, itemID, err)
	logging.WarnWithContext(logger, "item skipped", "item_skipped",
		logging.ItemID(itemID),
		logging.Error(err),
		logging.String(logging.FieldImpact, "item is left out of the site"),
		logging.String(logging.FieldErrorHint, "inspect the item's metadata and media in the working directory"),
	)
}

// fetchPosters downloads declared poster stills for videos lacking a local
// one. A failed download leaves the video without a thumbnail.
func (p *Pipeline) fetchPosters(ctx context.Context, entries []gallery.Entry, report *Report) error {
	var pending []int
	for i, e := range entries {
		if e.Match.Kind == media.KindVideo && e.Match.PosterPath == "" && e.Match.PosterURL != "" {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	ctx, logger := p.stageLogger(ctx, services.StageMedia)
	if !p.cfg.Media.FetchPosters {
		logger.Info("poster download disabled",
			logging.Int("video_count", len(pending)),
			logging.String(logging.FieldEventType, "posters_disabled"),
		)
		return nil
	}

	fetcher, err := media.NewPosterFetcher(media.PosterConfig{
		Dir:        filepath.Join(p.cfg.Paths.WorkDir, PosterDirName),
		UserAgent:  p.cfg.Identity.UserAgent,
		Timeout:    p.cfg.PosterTimeout(),
		HTTPClient: p.httpClient,
	}, logger)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, services.StageMedia, "poster fetcher", "", err)
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(max(1, p.cfg.Media.Workers))
	for _, i := range pending {
		group.Go(func() error {
			e := &entries[i]
			path, err := fetcher.Fetch(groupCtx, e.Record.ID, e.Match.PosterURL)
			if ctxErr := groupCtx.Err(); ctxErr != nil {
				return ctxErr
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Flag(services.StageMedia, e.Record.ID, err)
				logging.WarnWithContext(logger, "poster unavailable", "poster_failed",
					logging.ItemID(e.Record.ID),
					logging.String("url", e.Match.PosterURL),
					logging.Error(err),
					logging.String(logging.FieldImpact, "video is shown without a thumbnail"),
					logging.String(logging.FieldErrorHint, "place a still named after the video id next to it and rebuild"),
				)
				return nil
			}
			e.Match.PosterPath = path
			report.PostersFetched++
			return nil
		})
	}
	return group.Wait()
}

// resolveAuthors maps comment and note authors to display names. Lookup
// failures leave raw identifiers in place.
func (p *Pipeline) resolveAuthors(ctx context.Context, entries []gallery.Entry, owner metadata.Owner, report *Report) (map[string]string, error) {
	ctx, logger := p.stageLogger(ctx, services.StageIdentity)

	cache, err := namecache.Load(p.cfg.Paths.NameCache, logger)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, services.StageIdentity, "load name cache", p.cfg.Paths.NameCache, err)
	}

	lookup := p.lookup
	if lookup == nil && p.cfg.Identity.Enabled {
		client, err := identity.NewProfileClient(p.cfg.Identity.ProfileBaseURL, p.cfg.IdentityTimeout(),
			identity.WithUserAgent(p.cfg.Identity.UserAgent))
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, services.StageIdentity, "profile client", "", err)
		}
		lookup = client
	}

	resolver, err := identity.NewResolver(cache, lookup, identity.Options{
		Enabled:           p.cfg.Identity.Enabled,
		Concurrency:       p.cfg.Identity.Concurrency,
		RequestsPerSecond: p.cfg.Identity.RequestsPerSecond,
		FlushEvery:        p.cfg.Identity.FlushEvery,
		RetryPending:      p.cfg.Identity.RetryPending,
		Timeout:           p.cfg.IdentityTimeout(),
	}, logger)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, services.StageIdentity, "resolver", "", err)
	}
	if owner.NSID != "" {
		resolver.Seed(owner.NSID, owner.Name)
	}

	result, err := resolver.Resolve(ctx, gallery.CommentAuthors(entries))
	if err != nil {
		return nil, err
	}
	report.AuthorsCached = result.Cached
	report.AuthorsResolved = result.Resolved
	report.AuthorsPending = result.Pending
	return result.Names, nil
}

func (p *Pipeline) thumbnails(ctx context.Context, g *gallery.Graph, report *Report) error {
	ctx, logger := p.stageLogger(ctx, services.StageThumbnail)
	generator := thumbnail.NewGenerator(p.cfg.Thumbnails.Size, p.cfg.Thumbnails.Quality, logger)

	var jobs []thumbnail.Job
	for _, it := range g.Items {
		if it.ThumbnailSource == "" {
			continue
		}
		jobs = append(jobs, thumbnail.Job{
			ItemID: it.ID,
			Source: it.ThumbnailSource,
			Dest:   site.ThumbnailPath(p.cfg.Paths.SiteDir, it.ID),
		})
	}
	outcomes, err := generator.GenerateAll(ctx, jobs, p.cfg.Thumbnails.Workers)
	if err != nil {
		return err
	}
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			report.Flag(services.StageThumbnail, outcome.Job.ItemID, outcome.Err)
			continue
		}
		if it, ok := g.Item(outcome.Job.ItemID); ok {
			it.Thumbnail = outcome.Job.Dest
		}
		if outcome.Reused {
			report.ThumbnailsReused++
		} else {
			report.ThumbnailsMade++
		}
	}
	return nil
}

func (p *Pipeline) render(ctx context.Context, g *gallery.Graph, report *Report) error {
	ctx, logger := p.stageLogger(ctx, services.StageSite)
	renderer, err := site.NewRenderer(p.cfg.Paths.SiteDir, site.Options{
		Title:         p.cfg.Site.Title,
		Subtitle:      p.cfg.Site.Subtitle,
		NewestFirst:   p.cfg.Site.NewestFirst,
		CopyOriginals: p.cfg.Site.CopyOriginals,
		BuiltAt:       p.now(),
	}, logger)
	if err != nil {
		return err
	}
	summary, err := renderer.Render(ctx, g)
	if err != nil {
		return err
	}
	report.Pages = summary.Pages
	report.OriginalsCopied = summary.Originals
	report.OriginalsReused = summary.OriginalsReused
	return nil
}
