package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"flashbulb/internal/services"
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses an export timestamp. Zone-less layouts are interpreted in
// loc. All-digit values are Unix epoch seconds. Zero dates such as
// "0000-00-00 00:00:00" do not parse.
func ParseTime(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	if isEpoch(raw) {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || secs <= 0 {
			return time.Time{}, false
		}
		return time.Unix(secs, 0).In(loc), true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			if t.Year() <= 0 {
				return time.Time{}, false
			}
			return t, true
		}
	}
	return time.Time{}, false
}

func isEpoch(raw string) bool {
	if len(raw) < 9 {
		return false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Window is the inclusive range of plausible capture dates.
type Window struct {
	Earliest time.Time
	Latest   time.Time
}

// Contains reports whether t lies inside the window.
func (w Window) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	if !w.Earliest.IsZero() && t.Before(w.Earliest) {
		return false
	}
	if !w.Latest.IsZero() && t.After(w.Latest) {
		return false
	}
	return true
}

// Timestamps is the outcome of timestamp resolution for one item.
type Timestamps struct {
	// Taken is the parsed capture time, zero when absent or unparseable.
	Taken time.Time
	// Imported is the parsed import time, zero when absent or unparseable.
	Imported time.Time
	// Resolved is the time used for ordering and grouping. Never zero on success.
	Resolved time.Time
	// Fallback is set when Resolved came from the import time.
	Fallback bool
}

// ResolveTimestamps picks the capture time when it parses and lies in the
// window, and otherwise the import time. It fails with ErrTimestamp when
// neither is usable.
func ResolveTimestamps(taken, imported string, window Window, loc *time.Location) (Timestamps, error) {
	var ts Timestamps
	ts.Taken, _ = ParseTime(taken, loc)
	ts.Imported, _ = ParseTime(imported, loc)

	if window.Contains(ts.Taken) {
		ts.Resolved = ts.Taken
		return ts, nil
	}
	if window.Contains(ts.Imported) {
		ts.Resolved = ts.Imported
		ts.Fallback = true
		return ts, nil
	}
	return ts, services.Wrap(services.ErrTimestamp, services.StageNormalize, "resolve timestamp",
		fmt.Sprintf("taken %q and imported %q are both unusable", taken, imported), nil)
}
