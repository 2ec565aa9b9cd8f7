package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateIdentity(); err != nil {
		return err
	}
	if err := c.validateTimestamps(); err != nil {
		return err
	}
	if err := c.validateThumbnails(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.WorkDir == c.Paths.SiteDir {
		return errors.New("paths.work_dir and paths.site_dir must differ")
	}
	for _, pattern := range c.Paths.Archives {
		if _, err := filepath.Match(pattern, "probe.zip"); err != nil {
			return fmt.Errorf("paths.archives: invalid pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func (c *Config) validateIdentity() error {
	parsed, err := url.Parse(c.Identity.ProfileBaseURL)
	if err != nil {
		return fmt.Errorf("identity.profile_base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("identity.profile_base_url must be an http(s) url, got %q", c.Identity.ProfileBaseURL)
	}
	return nil
}

func (c *Config) validateTimestamps() error {
	if _, err := time.LoadLocation(c.Timestamps.Location); err != nil {
		return fmt.Errorf("timestamps.location: %w", err)
	}
	earliest, err := time.Parse(dateLayout, c.Timestamps.Earliest)
	if err != nil {
		return fmt.Errorf("timestamps.earliest must be YYYY-MM-DD: %w", err)
	}
	if c.Timestamps.Latest == "" {
		return nil
	}
	latest, err := time.Parse(dateLayout, c.Timestamps.Latest)
	if err != nil {
		return fmt.Errorf("timestamps.latest must be YYYY-MM-DD: %w", err)
	}
	if latest.Before(earliest) {
		return errors.New("timestamps.latest must not precede timestamps.earliest")
	}
	return nil
}

func (c *Config) validateThumbnails() error {
	if c.Thumbnails.Size < minThumbnailSize || c.Thumbnails.Size > maxThumbnailSize {
		return fmt.Errorf("thumbnails.size must be between %d and %d", minThumbnailSize, maxThumbnailSize)
	}
	if c.Thumbnails.Quality < 1 || c.Thumbnails.Quality > 100 {
		return errors.New("thumbnails.quality must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
