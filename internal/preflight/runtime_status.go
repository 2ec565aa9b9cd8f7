package preflight

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"flashbulb/internal/archive"
	"flashbulb/internal/config"
	"flashbulb/internal/namecache"
)

// CheckIdentityFromConfig evaluates author lookup status from config and connectivity.
func CheckIdentityFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Author lookup"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Identity.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled (cache only)"}
	}
	check := CheckProfileEndpoint(ctx, cfg.Identity.ProfileBaseURL, cfg.Identity.UserAgent)
	return Result{Name: name, Passed: check.Passed, Detail: check.Detail, Advisory: true}
}

// CheckNameCacheFromConfig reports how many author names are cached.
func CheckNameCacheFromConfig(cfg *config.Config) Result {
	const name = "Name cache"

	if cfg == nil || strings.TrimSpace(cfg.Paths.NameCache) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	cache, err := namecache.Load(cfg.Paths.NameCache, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", cfg.Paths.NameCache, err)}
	}
	total, pending := cache.Count()
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%d names, %d pending (%s)", total-pending, pending, cfg.Paths.NameCache),
	}
}

// ExportProbe reports the state of the export inputs and working directory.
type ExportProbe struct {
	Archives  []string
	Extracted bool
	Marker    archive.Marker
	Err       error
}

// ProbeExport resolves archive inputs and reads the extraction marker.
func ProbeExport(cfg *config.Config) ExportProbe {
	var probe ExportProbe
	if cfg == nil {
		return probe
	}
	probe.Archives, probe.Err = archive.ResolveArchives(nil, cfg.ArchivePatterns())
	if probe.Err != nil {
		return probe
	}
	probe.Marker, probe.Extracted, probe.Err = archive.ReadMarker(cfg.Paths.WorkDir)
	return probe
}

// ExportDetail renders a display-friendly summary for status UIs.
func (p ExportProbe) ExportDetail() string {
	if p.Err != nil {
		return fmt.Sprintf("error: %v", p.Err)
	}
	if p.Extracted {
		when := p.Marker.CompletedAt.Format("2006-01-02 15:04")
		if p.Marker.Adopted {
			return fmt.Sprintf("Extracted (adopted existing files, %s)", when)
		}
		names := make([]string, 0, len(p.Marker.Archives))
		for _, src := range p.Marker.Archives {
			names = append(names, filepath.Base(src.Name))
		}
		return fmt.Sprintf("Extracted %d archive(s) at %s: %s", len(names), when, strings.Join(names, ", "))
	}
	if len(p.Archives) == 0 {
		return "No archives found"
	}
	return fmt.Sprintf("%d archive(s) ready to extract", len(p.Archives))
}
