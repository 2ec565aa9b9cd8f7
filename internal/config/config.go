package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains input, output, and cache locations.
type Paths struct {
	InputDir  string   `toml:"input_dir"`
	Archives  []string `toml:"archives"`
	WorkDir   string   `toml:"work_dir"`
	SiteDir   string   `toml:"site_dir"`
	LogDir    string   `toml:"log_dir"`
	NameCache string   `toml:"name_cache"`
}

// Identity contains settings for resolving comment author display names.
type Identity struct {
	Enabled           bool    `toml:"enabled"`
	ProfileBaseURL    string  `toml:"profile_base_url"`
	UserAgent         string  `toml:"user_agent"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	Concurrency       int     `toml:"concurrency"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	FlushEvery        int     `toml:"flush_every"`
	RetryPending      bool    `toml:"retry_pending"`
}

// Timestamps bounds the window in which a capture date is considered plausible.
type Timestamps struct {
	// Earliest is the first plausible capture date (YYYY-MM-DD).
	Earliest string `toml:"earliest"`
	// Latest is the last plausible capture date (YYYY-MM-DD). Empty means the
	// export date recorded during extraction, or the current time.
	Latest   string `toml:"latest"`
	Location string `toml:"location"`
}

// Media contains settings for media matching and poster retrieval.
type Media struct {
	FetchPosters         bool `toml:"fetch_posters"`
	PosterTimeoutSeconds int  `toml:"poster_timeout_seconds"`
	Workers              int  `toml:"workers"`
}

// Thumbnails contains settings for the square thumbnail generator.
type Thumbnails struct {
	Size    int `toml:"size"`
	Quality int `toml:"quality"`
	Workers int `toml:"workers"`
}

// Site contains settings for the generated static site.
type Site struct {
	Title         string `toml:"title"`
	Subtitle      string `toml:"subtitle"`
	NewestFirst   bool   `toml:"newest_first"`
	CopyOriginals bool   `toml:"copy_originals"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for Flashbulb.
//
// Configuration sections by subsystem:
//   - Paths: archive inputs, working/site directories, name cache file
//   - Identity: comment author lookup (rate, concurrency, persistence cadence)
//   - Timestamps: plausibility window for capture dates
//   - Media: poster retrieval for video items
//   - Thumbnails: square thumbnail size and quality
//   - Site: generated site presentation
//   - Logging: log format, level, and retention
type Config struct {
	Paths      Paths      `toml:"paths"`
	Identity   Identity   `toml:"identity"`
	Timestamps Timestamps `toml:"timestamps"`
	Media      Media      `toml:"media"`
	Thumbnails Thumbnails `toml:"thumbnails"`
	Site       Site       `toml:"site"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/flashbulb/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("flashbulb.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a build writes into. The working
// directory is left to the archive unpacker so an incomplete extraction is
// never mistaken for a finished one.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.SiteDir, c.Paths.LogDir, filepath.Dir(c.Paths.NameCache)} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ArchivePatterns returns the archive glob patterns resolved against the input directory.
func (c *Config) ArchivePatterns() []string {
	patterns := make([]string, 0, len(c.Paths.Archives))
	for _, pattern := range c.Paths.Archives {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(c.Paths.InputDir, pattern)
		}
		patterns = append(patterns, pattern)
	}
	return patterns
}

// PlausibleWindow returns the capture-date plausibility bounds. exportDate
// supplies the upper bound when timestamps.latest is unset; a zero exportDate,
// or any upper bound before the earliest one, falls back to now.
func (c *Config) PlausibleWindow(exportDate time.Time) (time.Time, time.Time) {
	loc := c.TimestampLocation()
	earliest, err := time.ParseInLocation(dateLayout, c.Timestamps.Earliest, loc)
	if err != nil {
		earliest, _ = time.ParseInLocation(dateLayout, defaultTimestampsEarliest, loc)
	}
	var latest time.Time
	if strings.TrimSpace(c.Timestamps.Latest) != "" {
		if parsed, err := time.ParseInLocation(dateLayout, c.Timestamps.Latest, loc); err == nil {
			latest = parsed.Add(24*time.Hour - time.Nanosecond)
		}
	}
	if latest.IsZero() {
		latest = exportDate
	}
	// An export date before the earliest bound came from untimestamped or
	// skewed archive entries and would reject every item.
	if latest.IsZero() || latest.Before(earliest) {
		latest = time.Now()
	}
	return earliest, latest
}

// TimestampLocation returns the location metadata timestamps are interpreted in.
func (c *Config) TimestampLocation() *time.Location {
	name := strings.TrimSpace(c.Timestamps.Location)
	if name == "" || strings.EqualFold(name, "UTC") {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IdentityTimeout returns the per-lookup timeout for author resolution.
func (c *Config) IdentityTimeout() time.Duration {
	return time.Duration(c.Identity.TimeoutSeconds) * time.Second
}

// PosterTimeout returns the per-request timeout for poster downloads.
func (c *Config) PosterTimeout() time.Duration {
	return time.Duration(c.Media.PosterTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultNameCachePath() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "flashbulb", "nsid_names.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/flashbulb/nsid_names.json"
	}
	return filepath.Join(home, ".cache", "flashbulb", "nsid_names.json")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
