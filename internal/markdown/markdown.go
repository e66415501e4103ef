// Package markdown renders the small markdown subset the chat widget
// displays: bold, italic and line breaks. Input is HTML-escaped first so
// webhook output can be injected into the page as-is.
package markdown

import (
	"regexp"
	"strings"
)

var (
	escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

	boldStar       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldUnderscore = regexp.MustCompile(`__(.+?)__`)
)

// Render converts text to display markup. Bold markers are resolved
// before italic ones so **x** is never read as nested italics.
func Render(text string) string {
	if text == "" {
		return ""
	}
	html := escaper.Replace(text)
	html = boldStar.ReplaceAllString(html, "<strong>$1</strong>")
	html = boldUnderscore.ReplaceAllString(html, "<strong>$1</strong>")
	html = replaceSingle(html, '*')
	html = replaceSingle(html, '_')
	return strings.ReplaceAll(html, "\n", "<br />")
}

// replaceSingle wraps single-marker spans in <em>. A marker only opens or
// closes a span when it is not adjacent to another of the same marker;
// done by hand because RE2 has no lookarounds.
func replaceSingle(s string, marker byte) string {
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		c := s[i]
		if c != marker {
			b.WriteByte(c)
			i++
			continue
		}
		adjacent := (i > 0 && s[i-1] == marker) || (i+1 < len(s) && s[i+1] == marker)
		if adjacent {
			b.WriteByte(c)
			i++
			continue
		}
		j := i + 1
		for j < len(s) && s[j] != marker {
			j++
		}
		if j >= len(s) || j == i+1 || (j+1 < len(s) && s[j+1] == marker) {
			b.WriteByte(c)
			i++
			continue
		}
		b.WriteString("<em>")
		b.WriteString(s[i+1 : j])
		b.WriteString("</em>")
		i = j + 1
	}
	return b.String()
}
