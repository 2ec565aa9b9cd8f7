// Package logging assembles the slog loggers used by Flashbulb.
//
// It owns the console and JSON handlers, the per-run log file that mirrors
// console output as JSON, and context helpers that tag log lines with item
// IDs, pipeline stages, and run IDs. NewNop provides a discard logger for
// tests and for wiring code that receives a nil logger.
package logging
