package web

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
)

func itoa(value int) string {
	return strconv.Itoa(value)
}

// formatMillis renders a unix-millisecond timestamp in UTC.
func formatMillis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05")
}

func esc(value string) string {
	return templ.EscapeString(value)
}

// href sanitizes a URL for use inside an attribute. Inline raster and SVG
// images are allowed through since rendered rounds are served as data URLs.
func href(value string) string {
	if strings.HasPrefix(value, "data:image/") {
		return templ.EscapeString(value)
	}
	return templ.EscapeString(string(templ.URL(value)))
}

// writer collects the first write error so templates can be written as a
// flat sequence of calls.
type writer struct {
	w   io.Writer
	err error
}

func (w *writer) put(parts ...string) {
	for _, part := range parts {
		if w.err != nil {
			return
		}
		_, w.err = io.WriteString(w.w, part)
	}
}
