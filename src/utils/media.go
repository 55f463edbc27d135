package utils

import (
	"net/http"
	"strings"
)

var imageExtensions = map[string]string{
	"image/png":                ".png",
	"image/x-icon":             ".ico",
	"image/vnd.microsoft.icon": ".ico",
	"image/jpeg":               ".jpg",
	"image/gif":                ".gif",
	"image/webp":               ".webp",
	"image/bmp":                ".bmp",
	"image/svg+xml":            ".svg",
	"image/avif":               ".avif",
}

// ExtensionFor maps an image media type to a file extension, defaulting to
// .png for unrecognised image types.
func ExtensionFor(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	if ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(mt))]; ok {
		return ext
	}
	return ".png"
}

// -----------------------------------------------------------------------------

// SniffImageType returns the image media type of body or "" when it is not an
// image. SVG is only trusted when the server declared it.
func SniffImageType(body []byte, declared string) string {
	sniffed := http.DetectContentType(body)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}

	declared = strings.ToLower(declared)
	if strings.HasPrefix(declared, "image/svg+xml") && strings.Contains(strings.ToLower(string(body)), "<svg") {
		return "image/svg+xml"
	}
	return ""
}
