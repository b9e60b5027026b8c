package formkit

import (
	"mime"
	"net/http"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

// DefaultMediaType is reported when nothing better is known about a file.
const DefaultMediaType = "application/octet-stream"

// Types the mime package gets wrong or lacks on minimal systems.
var extensionTypes = map[string]string{
	"txt":  "text/plain",
	"csv":  "text/csv",
	"md":   "text/markdown",
	"json": "application/json",
	"xml":  "application/xml",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"svg":  "image/svg+xml",
	"webp": "image/webp",
	"mp3":  "audio/mpeg",
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"pdf":  "application/pdf",
	"zip":  "application/zip",
	"gz":   "application/gzip",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// GuessContentType determines the media type of a part that declared none,
// first from the file name extension, then from the content.
func GuessContentType(filename string, data []byte) string {
	_, ext := SplitExtension(filename)
	ext = strings.ToLower(ext)
	if ext != "" {
		if t, ok := extensionTypes[ext]; ok {
			return t
		}
		if t := mime.TypeByExtension("." + ext); t != "" {
			return MediaTypeBase(t)
		}
	}
	if len(data) > 0 {
		return MediaTypeBase(http.DetectContentType(data))
	}
	return DefaultMediaType
}

// MediaTypeBase drops any parameters and lowercases a media type.
func MediaTypeBase(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

var patternCache sync.Map // string -> glob.Glob

// MatchMediaType reports whether contentType matches pattern. Patterns are
// exact media types or globs such as "image/*" and "application/vnd.*";
// a '*' never crosses the '/' separator.
func MatchMediaType(pattern, contentType string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	contentType = MediaTypeBase(contentType)
	if pattern == contentType {
		return true
	}
	if !strings.ContainsAny(pattern, "*?[{") {
		return false
	}

	var g glob.Glob
	if cached, ok := patternCache.Load(pattern); ok {
		g = cached.(glob.Glob)
	} else {
		compiled, err := glob.Compile(pattern, '/')
		if err != nil {
			return false
		}
		patternCache.Store(pattern, compiled)
		g = compiled
	}
	return g.Match(contentType)
}

// IsImageFile returns true if the media type is an image
func IsImageFile(contentType string) bool {
	return strings.HasPrefix(MediaTypeBase(contentType), "image/")
}

// IsTextFile returns true if the media type is textual
func IsTextFile(contentType string) bool {
	t := MediaTypeBase(contentType)
	return strings.HasPrefix(t, "text/") ||
		t == "application/json" ||
		t == "application/xml"
}
