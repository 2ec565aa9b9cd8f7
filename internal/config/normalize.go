package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeIdentity()
	c.normalizeTimestamps()
	c.normalizeMedia()
	c.normalizeThumbnails()
	c.normalizeSite()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("FLASHBULB_WORK_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.WorkDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("FLASHBULB_SITE_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.SiteDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.InputDir) == "" {
		c.Paths.InputDir = defaultInputDir
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if strings.TrimSpace(c.Paths.SiteDir) == "" {
		c.Paths.SiteDir = defaultSiteDir
	}
	if strings.TrimSpace(c.Paths.NameCache) == "" {
		c.Paths.NameCache = defaultNameCachePath()
	}

	var err error
	if c.Paths.InputDir, err = expandPath(c.Paths.InputDir); err != nil {
		return fmt.Errorf("paths.input_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.SiteDir, err = expandPath(c.Paths.SiteDir); err != nil {
		return fmt.Errorf("paths.site_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.NameCache, err = expandPath(c.Paths.NameCache); err != nil {
		return fmt.Errorf("paths.name_cache: %w", err)
	}

	patterns := make([]string, 0, len(c.Paths.Archives))
	seen := make(map[string]struct{}, len(c.Paths.Archives))
	for _, pattern := range c.Paths.Archives {
		trimmed := strings.TrimSpace(pattern)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		patterns = append(patterns, trimmed)
	}
	if len(patterns) == 0 {
		patterns = []string{defaultArchivePattern}
	}
	c.Paths.Archives = patterns
	return nil
}

func (c *Config) normalizeIdentity() {
	c.Identity.ProfileBaseURL = strings.TrimRight(strings.TrimSpace(c.Identity.ProfileBaseURL), "/")
	if c.Identity.ProfileBaseURL == "" {
		c.Identity.ProfileBaseURL = defaultProfileBaseURL
	}
	c.Identity.UserAgent = strings.TrimSpace(c.Identity.UserAgent)
	if c.Identity.UserAgent == "" {
		c.Identity.UserAgent = defaultIdentityUserAgent
	}
	if c.Identity.TimeoutSeconds <= 0 {
		c.Identity.TimeoutSeconds = defaultIdentityTimeoutSeconds
	}
	if c.Identity.Concurrency <= 0 {
		c.Identity.Concurrency = defaultIdentityConcurrency
	}
	if c.Identity.Concurrency > maxIdentityConcurrency {
		c.Identity.Concurrency = maxIdentityConcurrency
	}
	if c.Identity.RequestsPerSecond <= 0 {
		c.Identity.RequestsPerSecond = defaultIdentityRequestsPerSec
	}
	if c.Identity.FlushEvery <= 0 {
		c.Identity.FlushEvery = defaultIdentityFlushEvery
	}
}

func (c *Config) normalizeTimestamps() {
	c.Timestamps.Earliest = strings.TrimSpace(c.Timestamps.Earliest)
	if c.Timestamps.Earliest == "" {
		c.Timestamps.Earliest = defaultTimestampsEarliest
	}
	c.Timestamps.Latest = strings.TrimSpace(c.Timestamps.Latest)
	c.Timestamps.Location = strings.TrimSpace(c.Timestamps.Location)
	if c.Timestamps.Location == "" {
		c.Timestamps.Location = defaultTimestampsLocation
	}
}

func (c *Config) normalizeMedia() {
	if c.Media.PosterTimeoutSeconds <= 0 {
		c.Media.PosterTimeoutSeconds = defaultPosterTimeoutSeconds
	}
	if c.Media.Workers <= 0 {
		c.Media.Workers = defaultMediaWorkers
	}
}

func (c *Config) normalizeThumbnails() {
	if c.Thumbnails.Size == 0 {
		c.Thumbnails.Size = defaultThumbnailSize
	}
	if c.Thumbnails.Quality == 0 {
		c.Thumbnails.Quality = defaultThumbnailQuality
	}
	if c.Thumbnails.Workers <= 0 {
		c.Thumbnails.Workers = defaultThumbnailWorkers()
	}
}

func (c *Config) normalizeSite() {
	c.Site.Title = strings.TrimSpace(c.Site.Title)
	if c.Site.Title == "" {
		c.Site.Title = defaultSiteTitle
	}
	c.Site.Subtitle = strings.TrimSpace(c.Site.Subtitle)
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("FLASHBULB_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
