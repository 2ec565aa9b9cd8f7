package textutil

import (
	"strconv"
	"strings"
	"unicode"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is trimmed of leading/trailing whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// PathSegment converts a label such as a tag into a single URL path segment
// that is also a valid directory name. Letters and digits of any script are
// kept (lowercased), runs of anything else become one dash. Returns "unknown"
// when nothing usable remains.
func PathSegment(value string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.TrimSpace(value) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			dash = false
		case r == '_' || r == '.':
			if b.Len() > 0 {
				b.WriteRune(r)
			}
			dash = false
		default:
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-.")
	if out == "" {
		return "unknown"
	}
	return out
}

// SegmentSet hands out distinct path segments for labels. Labels that
// sanitize to the same segment get numeric suffixes in first-come order.
type SegmentSet struct {
	byLabel map[string]string
	used    map[string]struct{}
}

// NewSegmentSet returns an empty SegmentSet.
func NewSegmentSet() *SegmentSet {
	return &SegmentSet{byLabel: make(map[string]string), used: make(map[string]struct{})}
}

// Segment returns the segment assigned to label, assigning one if needed.
func (s *SegmentSet) Segment(label string) string {
	if seg, ok := s.byLabel[label]; ok {
		return seg
	}
	base := PathSegment(label)
	seg := base
	for n := 2; ; n++ {
		if _, taken := s.used[seg]; !taken {
			break
		}
		seg = base + "-" + strconv.Itoa(n)
	}
	s.used[seg] = struct{}{}
	s.byLabel[label] = seg
	return seg
}
