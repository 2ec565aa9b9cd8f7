package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"flashbulb/internal/logging"
	"flashbulb/internal/services"
)

const (
	DefaultSize    = 320
	DefaultQuality = 80
)

// Generator writes square JPEG thumbnails.
type Generator struct {
	size    int
	quality int
	logger  *slog.Logger
}

// NewGenerator returns a Generator producing size×size thumbnails at the
// given JPEG quality. Non-positive values use the defaults.
func NewGenerator(size, quality int, logger *slog.Logger) *Generator {
	if size <= 0 {
		size = DefaultSize
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Generator{size: size, quality: quality, logger: logging.NewComponentLogger(logger, "thumbnail")}
}

// Size returns the edge length of generated thumbnails.
func (g *Generator) Size() int {
	return g.size
}

// Generate writes a thumbnail of src to dest. It reports reused=true when
// dest already exists and is not older than src.
func (g *Generator) Generate(ctx context.Context, src, dest string) (reused bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, fmt.Errorf("stat source: %w", err)
	}
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 && !info.ModTime().Before(srcInfo.ModTime()) {
		return true, nil
	}

	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(src), err)
	}
	thumb := imaging.Thumbnail(img, g.size, g.size, imaging.Lanczos)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return false, fmt.Errorf("create thumbnail directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".thumb-*.jpg")
	if err != nil {
		return false, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	encodeErr := imaging.Encode(tmp, thumb, imaging.JPEG, imaging.JPEGQuality(g.quality))
	closeErr := tmp.Close()
	if err := errors.Join(encodeErr, closeErr); err != nil {
		os.Remove(tmpPath)
		return false, fmt.Errorf("encode thumbnail: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return false, fmt.Errorf("rename thumbnail: %w", err)
	}
	return false, nil
}

// Job is one thumbnail to produce.
type Job struct {
	ItemID string
	Source string
	Dest   string
}

// Outcome is the result of one Job.
type Outcome struct {
	Job    Job
	Reused bool
	// Err carries ErrThumbnail on failure.
	Err error
}

// GenerateAll runs jobs on at most workers goroutines (NumCPU when workers
// is not positive). Outcomes are returned in job order. Individual failures
// never stop the batch; only cancellation of ctx returns an error.
func (g *Generator) GenerateAll(ctx context.Context, jobs []Job, workers int) ([]Outcome, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	outcomes := make([]Outcome, len(jobs))
	var mu sync.Mutex
	generated, reused := 0, 0

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i, job := range jobs {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			wasReused, err := g.Generate(groupCtx, job.Source, job.Dest)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			outcome := Outcome{Job: job, Reused: wasReused}
			if err != nil {
				outcome.Err = services.Wrap(services.ErrThumbnail, services.StageThumbnail, "generate", job.ItemID, err)
				logging.WarnWithContext(g.logger, "thumbnail failed", "thumbnail_failed",
					logging.ItemID(job.ItemID),
					logging.String("source", job.Source),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check that the source is a readable image"),
					logging.String(logging.FieldImpact, "item is listed without a thumbnail"),
				)
			}
			outcomes[i] = outcome
			mu.Lock()
			if err == nil {
				if wasReused {
					reused++
				} else {
					generated++
				}
			}
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return outcomes, err
	}
	g.logger.Info("thumbnails ready",
		logging.Int("generated", generated),
		logging.Int("reused", reused),
		logging.Int("failed", len(jobs)-generated-reused),
		logging.String(logging.FieldEventType, "thumbnails_complete"),
	)
	return outcomes, nil
}
