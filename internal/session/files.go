package session

import (
	"path/filepath"
	"strings"
)

var subtitleExtensions = map[string]struct{}{
	".srt": {}, ".ass": {}, ".ssa": {}, ".vtt": {}, ".sub": {},
}

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".mkv": {}, ".avi": {}, ".mov": {}, ".flv": {}, ".wmv": {}, ".webm": {}, ".m4v": {},
}

// IsSubtitleFile reports whether name has an accepted subtitle extension.
func IsSubtitleFile(name string) bool {
	_, ok := subtitleExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// IsVideoFile reports whether name has an accepted video extension.
func IsVideoFile(name string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// SubtitleExtensions lists accepted subtitle extensions for help text.
func SubtitleExtensions() []string {
	return []string{".srt", ".ass", ".ssa", ".vtt", ".sub"}
}

func stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
