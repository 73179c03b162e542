package sanitizer

import (
	"github.com/microcosm-cc/bluemonday"
)

// HTMLSanitizer strips scripts, event handlers and javascript: URLs from
// rich-text book and module content.
//
// Safe for concurrent use.
type HTMLSanitizer struct {
	policy *bluemonday.Policy
}

// NewHTMLSanitizer allows the formatting produced by the admin editor
// (headings, lists, tables, links, images) on top of the UGC policy.
func NewHTMLSanitizer() *HTMLSanitizer {
	policy := bluemonday.UGCPolicy()

	// the editor inlines pasted images
	policy.AllowDataURIImages()
	policy.AllowAttrs("class").Globally()
	policy.AllowAttrs("target").Matching(bluemonday.SpaceSeparatedTokens).OnElements("a")

	return &HTMLSanitizer{policy: policy}
}

// NewStrictHTMLSanitizer strips all markup.
func NewStrictHTMLSanitizer() *HTMLSanitizer {
	return &HTMLSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize returns html with unsafe elements and attributes removed.
func (s *HTMLSanitizer) Sanitize(html string) string {
	return s.policy.Sanitize(html)
}
