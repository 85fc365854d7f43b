package downloader

import (
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultFilename is used when nothing better can be derived
const DefaultFilename = "download"

var forbiddenNames = regexp.MustCompile(`[\\/<>:"|?*\x00-\x1f]`)

// fallbackExtensions covers types the mimetype tree knows without an extension
var fallbackExtensions = map[string]string{
	"application/octet-stream": ".bin",
	"binary/octet-stream":      ".bin",
	"text/markdown":            ".md",
}

// IsValidURL reports whether text is an absolute http or https URL with a host
func IsValidURL(text string) bool {
	u, err := url.Parse(strings.TrimSpace(text))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ResolveFilename picks a display filename for a resource. It prefers the
// Content-Disposition filename, then the last URL path segment when it has an
// extension, then "download" with an extension derived from the content type.
func ResolveFilename(rawURL, contentDisposition, contentType string) string {
	if name := dispositionFilename(contentDisposition); name != "" {
		return name
	}

	if u, err := url.Parse(rawURL); err == nil && !strings.HasSuffix(u.Path, "/") {
		if name := sanitizeFilename(path.Base(u.Path)); strings.Contains(name, ".") {
			return name
		}
	}

	if ext := extensionForType(contentType); ext != "" {
		return DefaultFilename + ext
	}
	return DefaultFilename
}

func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}

	if _, params, err := mime.ParseMediaType(header); err == nil {
		return sanitizeFilename(params["filename"])
	}

	idx := strings.Index(header, "filename=")
	if idx < 0 {
		return ""
	}
	value := header[idx+len("filename="):]
	if end := strings.Index(value, ";"); end >= 0 {
		value = value[:end]
	}
	return sanitizeFilename(strings.Trim(strings.TrimSpace(value), `"'`))
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = forbiddenNames.ReplaceAllString(name, "_")
	if name == "." || name == ".." {
		return ""
	}
	return name
}

func extensionForType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	mediaType = strings.ToLower(mediaType)
	if m := mimetype.Lookup(mediaType); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return fallbackExtensions[mediaType]
}

// detectMimeType sniffs a stored file, falling back to a generic binary type
func detectMimeType(path string) string {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream"
	}
	mediaType, _, err := mime.ParseMediaType(m.String())
	if err != nil {
		return m.String()
	}
	return mediaType
}
