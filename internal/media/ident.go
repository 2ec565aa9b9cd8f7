package media

import (
	"path/filepath"
	"strings"

	"flashbulb/internal/textutil"
)

const originalSuffix = "_o"

// ExtractID returns the item identifier embedded in a media file name.
// Recognized shapes, checked in order:
//
//	{id}.{ext}             12345.jpg
//	{slug}_{id}_o.{ext}    beach-day_12345_o.jpg
//	{slug}_{id}.{ext}      beach-day_12345.mp4
//	{id}_{secret}_o.{ext}  12345_a1b2c3d4e5_o.jpg
//	{id}_{secret}.{ext}    12345_a1b2c3d4e5.jpg
//	{prefix}{id}.{ext}     video123.mp4
//
// JSON files are never media.
func ExtractID(filename string) (string, bool) {
	ids := CandidateIDs(filename)
	if len(ids) == 0 {
		return "", false
	}
	return ids[0], true
}

// CandidateIDs returns every identifier the file name could embed, most likely
// first. The index uses the alternates only when the primary reading matches
// no record, which disambiguates names like "2010_12345.jpg".
func CandidateIDs(filename string) []string {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	if ext == "" || strings.EqualFold(ext, ".json") || strings.HasPrefix(base, ".") {
		return nil
	}
	stem := strings.TrimSuffix(base, ext)
	stem = strings.TrimSuffix(stem, originalSuffix)
	if stem == "" {
		return nil
	}

	var out []string
	add := func(id string) {
		if id == "" {
			return
		}
		for _, existing := range out {
			if existing == id {
				return
			}
		}
		out = append(out, id)
	}

	if textutil.IsDigits(stem) {
		add(stem)
		return out
	}

	parts := strings.Split(stem, "_")
	last := parts[len(parts)-1]
	if len(parts) >= 2 {
		if textutil.IsDigits(last) {
			add(last)
		}
		if textutil.IsDigits(parts[0]) && isSecret(last) {
			add(parts[0])
		}
	}
	if len(out) == 0 {
		add(trailingDigits(last))
	}
	if len(parts) >= 2 {
		for i := len(parts) - 2; i >= 0; i-- {
			if textutil.IsDigits(parts[i]) {
				add(parts[i])
			}
		}
	}
	return out
}

// IsOriginalName reports whether the file name carries the "_o" original marker.
func IsOriginalName(filename string) bool {
	base := filepath.Base(filename)
	return strings.HasSuffix(strings.TrimSuffix(base, filepath.Ext(base)), originalSuffix)
}

// isSecret matches the short lowercase alphanumeric token exports append after
// the identifier.
func isSecret(s string) bool {
	if len(s) < 4 || len(s) > 16 {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func trailingDigits(s string) string {
	end := len(s)
	start := end
	for start > 0 && s[start-1] >= '0' && s[start-1] <= '9' {
		start--
	}
	return s[start:end]
}
