package sanitizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeStripsScripts(t *testing.T) {
	s := NewHTMLSanitizer()

	tests := []struct {
		name     string
		input    string
		contains string
		excludes string
	}{
		{"script tag", `<p>Salom</p><script>alert(1)</script>`, "<p>Salom</p>", "<script"},
		{"event handler", `<img src="a.png" onerror="alert(1)">`, `src="a.png"`, "onerror"},
		{"javascript url", `<a href="javascript:alert(1)">x</a>`, "x", "javascript:"},
		{"keeps headings", `<h2>Kirish</h2>`, "<h2>Kirish</h2>", ""},
		{"keeps tables", `<table><tr><td>1</td></tr></table>`, "<td>1</td>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := s.Sanitize(tt.input)
			assert.Contains(t, out, tt.contains)
			if tt.excludes != "" {
				assert.NotContains(t, out, tt.excludes)
			}
		})
	}
}

func TestStrictSanitizerRemovesMarkup(t *testing.T) {
	out := NewStrictHTMLSanitizer().Sanitize(`<p><strong>Dress</strong>Line</p>`)
	assert.Equal(t, "DressLine", out)
}
