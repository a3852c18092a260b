package constants

import (
	"mime"
	"path/filepath"
	"strings"
)

// Format is the extraction route chosen for a document.
type Format string

const (
	FormatPDF     Format = "PDF"
	FormatImage   Format = "IMAGE"
	FormatUnknown Format = ""
)

const MimePDF = "application/pdf"

// AllowedExtensions holds the default extensions picked up by directory ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"gif":  {},
}

var extToMime = map[string]string{
	"pdf":  MimePDF,
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"bmp":  "image/bmp",
	"webp": "image/webp",
	"heic": "image/heic",
	"heif": "image/heif",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// NormalizeMime lowercases a MIME type and drops any parameters.
func NormalizeMime(mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mt
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// FormatForMime picks the extraction route for a declared MIME type.
func FormatForMime(mimeType string) Format {
	mt := NormalizeMime(mimeType)
	switch {
	case mt == MimePDF:
		return FormatPDF
	case strings.HasPrefix(mt, "image/") && len(mt) > len("image/"):
		return FormatImage
	default:
		return FormatUnknown
	}
}

// MimeForPath guesses a MIME type from the file extension. Unknown extensions return "".
func MimeForPath(path string) string {
	return extToMime[NormalizeExt(filepath.Ext(path))]
}
