package normalize

import (
	"html"
	"strings"

	"github.com/k3a/html2text"
)

// Text reverses HTML entity escaping exactly once. Inline markup such as
// anchors and bold/italic tags is left untouched for the renderer to allowlist.
func Text(raw string) string {
	return strings.TrimSpace(html.UnescapeString(raw))
}

// PlainText returns a tag-free, whitespace-collapsed form of already
// unescaped rich text, suitable for search indexes and attributes.
func PlainText(rich string) string {
	if strings.TrimSpace(rich) == "" {
		return ""
	}
	plain := rich
	if strings.ContainsAny(rich, "<&") {
		plain = html2text.HTML2Text(rich)
	}
	return strings.Join(strings.Fields(plain), " ")
}

// Truncate shortens s to at most limit runes on a word boundary when possible.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	cut := string(runes[:limit])
	if idx := strings.LastIndexByte(cut, ' '); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}
