package server

import (
	"path/filepath"
	"strings"
)

const (
	jsonContentType = "application/json; charset=utf-8"
	textContentType = "text/plain; charset=utf-8"
)

var videoContentTypes = map[string]string{
	".mkv":  "video/x-matroska",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".ts":   "video/mp2t",
	".m2ts": "video/mp2t",
}

// videoContentType guesses the content type of a video file by extension.
// An empty result lets http.ServeContent sniff.
func videoContentType(path string) string {
	return videoContentTypes[strings.ToLower(filepath.Ext(path))]
}
