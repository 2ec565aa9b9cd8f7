// Package config loads, normalizes, and validates Flashbulb configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// FLASHBULB_SITE_DIR. The Config type centralizes every knob the build
// pipeline and CLI need, so archive locations, the working directory, the
// author name cache, and the timestamp plausibility window are discovered in
// one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
