package media

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Kind distinguishes photos from videos.
type Kind string

const (
	KindUnknown Kind = ""
	KindPhoto   Kind = "photo"
	KindVideo   Kind = "video"
)

var photoExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {},
}

var videoExtensions = map[string]struct{}{
	".3gp": {}, ".avi": {}, ".mp4": {}, ".mov": {}, ".m4v": {},
	".mpg": {}, ".mpeg": {}, ".wmv": {}, ".webm": {},
}

// KindForExt classifies a file extension such as ".MP4". Unknown extensions
// return KindUnknown.
func KindForExt(ext string) Kind {
	ext = strings.ToLower(ext)
	if _, ok := photoExtensions[ext]; ok {
		return KindPhoto
	}
	if _, ok := videoExtensions[ext]; ok {
		return KindVideo
	}
	return KindUnknown
}

// KindForURL classifies the asset a URL points at by its path extension.
func KindForURL(raw string) Kind {
	raw = strings.TrimSpace(raw)
	if idx := strings.IndexAny(raw, "?#"); idx >= 0 {
		raw = raw[:idx]
	}
	return KindForExt(filepath.Ext(raw))
}

// DetectKind classifies path by extension and falls back to sniffing the
// first bytes of the file for unknown extensions.
func DetectKind(path string) Kind {
	if kind := KindForExt(filepath.Ext(path)); kind != KindUnknown {
		return kind
	}
	return sniffKind(path)
}

func sniffKind(path string) Kind {
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown
	}
	defer f.Close()
	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	if n == 0 {
		return KindUnknown
	}
	return kindForContentType(http.DetectContentType(buf[:n]))
}

func kindForContentType(contentType string) Kind {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return KindPhoto
	case strings.HasPrefix(contentType, "video/"):
		return KindVideo
	default:
		return KindUnknown
	}
}
