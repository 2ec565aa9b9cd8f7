package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RunLogPattern matches per-run log files written by NewForRun.
const RunLogPattern = "flashbulb-*.log"

// CleanupOldLogs removes files in dir matching pattern whose modification time
// is older than retentionDays. keep names a file that is never removed (the
// current run's log). A retentionDays value of 0 disables pruning. It returns
// the number of files removed.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, dir, pattern, keep string) int {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	keepAbs := ""
	if strings.TrimSpace(keep) != "" {
		if abs, err := filepath.Abs(keep); err == nil {
			keepAbs = abs
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if pattern != "" {
			if matched, err := filepath.Match(pattern, name); err != nil || !matched {
				continue
			}
		}
		fullPath := filepath.Join(dir, name)
		if abs, err := filepath.Abs(fullPath); err == nil {
			fullPath = abs
		}
		if fullPath == keepAbs {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(fullPath); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", fullPath),
				Error(err),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("log pruned", String("path", fullPath), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}
