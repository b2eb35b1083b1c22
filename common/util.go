package common

import (
	"path/filepath"
	"strings"
)

// VideoFormatToMimeType returns the MIME type for a container extension
func VideoFormatToMimeType(format string) string {
	format = strings.TrimPrefix(strings.ToLower(format), ".")
	switch format {
	case "mp4":
		return "video/mp4"
	case "avi":
		return "video/x-msvideo"
	case "mkv":
		return "video/x-matroska"
	case "webm":
		return "video/webm"
	case "mov":
		return "video/quicktime"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	default:
		return "video/mp4"
	}
}

// MimeTypeForPath returns the MIME type for a file based on its extension
func MimeTypeForPath(path string) string {
	return VideoFormatToMimeType(filepath.Ext(path))
}
