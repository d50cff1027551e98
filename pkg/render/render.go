// Package render turns chat message text into HTML for message bubbles.
package render

import (
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// HTML renders Markdown content. Raw HTML in the input is dropped so user
// text can never inject markup.
func HTML(content string) string {
	extensions := parser.CommonExtensions | parser.HardLineBreak
	p := parser.NewWithExtensions(extensions)

	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.SkipHTML | html.Safelink | html.NofollowLinks | html.NoreferrerLinks | html.HrefTargetBlank,
	})

	out := markdown.ToHTML([]byte(content), p, renderer)
	return strings.TrimSpace(string(out))
}
