package config

import "runtime"

const (
	dateLayout = "2006-01-02"

	defaultInputDir                 = "."
	defaultArchivePattern           = "*.zip"
	defaultWorkDir                  = "_extracted"
	defaultSiteDir                  = "public_html"
	defaultLogDir                   = "~/.local/share/flashbulb/logs"
	defaultLogRetentionDays         = 30
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
	defaultProfileBaseURL           = "https://www.flickr.com"
	defaultIdentityUserAgent        = "Flashbulb/dev (+static photo archive builder)"
	defaultIdentityTimeoutSeconds   = 15
	defaultIdentityConcurrency      = 4
	defaultIdentityRequestsPerSec   = 2.0
	defaultIdentityFlushEvery       = 25
	defaultTimestampsEarliest       = "2004-02-01"
	defaultTimestampsLocation       = "UTC"
	defaultPosterTimeoutSeconds     = 30
	defaultMediaWorkers             = 4
	defaultThumbnailSize            = 320
	defaultThumbnailQuality         = 80
	defaultSiteTitle                = "Flashbulb"
	maxIdentityConcurrency          = 32
	maxThumbnailSize                = 4096
	minThumbnailSize                = 16
	defaultThumbnailWorkersFallback = 4
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:  defaultInputDir,
			Archives:  []string{defaultArchivePattern},
			WorkDir:   defaultWorkDir,
			SiteDir:   defaultSiteDir,
			LogDir:    defaultLogDir,
			NameCache: defaultNameCachePath(),
		},
		Identity: Identity{
			Enabled:           true,
			ProfileBaseURL:    defaultProfileBaseURL,
			UserAgent:         defaultIdentityUserAgent,
			TimeoutSeconds:    defaultIdentityTimeoutSeconds,
			Concurrency:       defaultIdentityConcurrency,
			RequestsPerSecond: defaultIdentityRequestsPerSec,
			FlushEvery:        defaultIdentityFlushEvery,
			RetryPending:      true,
		},
		Timestamps: Timestamps{
			Earliest: defaultTimestampsEarliest,
			Location: defaultTimestampsLocation,
		},
		Media: Media{
			FetchPosters:         true,
			PosterTimeoutSeconds: defaultPosterTimeoutSeconds,
			Workers:              defaultMediaWorkers,
		},
		Thumbnails: Thumbnails{
			Size:    defaultThumbnailSize,
			Quality: defaultThumbnailQuality,
			Workers: defaultThumbnailWorkers(),
		},
		Site: Site{
			Title:         defaultSiteTitle,
			NewestFirst:   true,
			CopyOriginals: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

func defaultThumbnailWorkers() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return defaultThumbnailWorkersFallback
}
