package utils

import (
	"time"

	"github.com/valyala/fasttemplate"
)

// RenderOutputPath expands {serial}, {package} and {timestamp} placeholders in an output
// path. Unknown placeholders are kept as written.
func RenderOutputPath(path, serial, pkg string, now time.Time) string {
	return fasttemplate.ExecuteStringStd(path, "{", "}", map[string]interface{}{
		"serial":    SanitizeFileName(serial),
		"package":   pkg,
		"timestamp": now.Format("20060102-150405"),
	})
}

// SanitizeFileName makes a device serial usable in a file name; remote serials contain ':'.
func SanitizeFileName(s string) string {
	b := []byte(s)
	for i, c := range b {
		switch c {
		case ':', '/', '\\', ' ', '\t':
			b[i] = '_'
		}
	}
	return string(b)
}
