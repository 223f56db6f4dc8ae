// internal/app/system/htmlsanitize/htmlsanitize.go

// Package htmlsanitize strips unsafe markup from user-supplied rich text.
// Case summaries and opinion bodies come from a rich-text editor in the
// front end and are sanitized server-side before storage.
package htmlsanitize

import (
	"github.com/microcosm-cc/bluemonday"
)

var policy = buildPolicy()

func buildPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	// Clinical notes use tables (staging grids, lab values).
	p.AllowAttrs("colspan", "rowspan").OnElements("td", "th")
	p.AllowAttrs("class").OnElements("table", "thead", "tbody", "tr", "td", "th", "p", "span", "div")
	return p
}

// Sanitize returns s with scripts, event handlers, and unsafe URLs removed.
// Safe formatting (paragraphs, emphasis, lists, tables, https links) is kept.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return policy.Sanitize(s)
}
