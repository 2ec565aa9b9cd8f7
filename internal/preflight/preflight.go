package preflight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flashbulb/internal/config"
	"flashbulb/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Advisory results are reported but never stop a build.
	Advisory bool
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckCreatable("Working directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Site directory", cfg.Paths.SiteDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Paths.NameCache != "" {
		results = append(results, CheckFileWritable("Name cache", cfg.Paths.NameCache))
	}

	space := CheckFreeSpace("Site free space", cfg.Paths.SiteDir, MinFreeBytes)
	space.Advisory = true
	results = append(results, space)

	if cfg.Identity.Enabled {
		identity := CheckProfileEndpoint(ctx, cfg.Identity.ProfileBaseURL, cfg.Identity.UserAgent)
		identity.Advisory = true
		results = append(results, identity)
	}
	return results
}

// Err folds failed required results into a single ErrPreflight error, or
// returns nil when every required check passed.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if r.Passed || r.Advisory {
			continue
		}
		failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	if len(failed) == 0 {
		return nil
	}
	return services.Wrap(services.ErrPreflight, services.StagePreflight, "run checks",
		strings.Join(failed, "; "), errors.New("required checks failed"))
}
