package staging

import (
	"path/filepath"
	"strings"
)

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
	"\x00", "",
)

// SanitizeFileName reduces an uploaded file name to a safe base name.
// Path components are stripped, separators become dashes and shell-hostile
// characters are dropped. Empty or dot-only results fall back to fallback.
func SanitizeFileName(name, fallback string) string {
	name = strings.TrimSpace(name)
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSpace(fileNameReplacer.Replace(name))
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return fallback
	}
	return name
}
