package markdown

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Goldmark renders CommonMark + GFM. Raw HTML in content is not passed
// through.
type Goldmark struct {
	md goldmark.Markdown
}

// NewGoldmark builds the goldmark engine. The engine is stateless and safe
// for concurrent use.
func NewGoldmark() *Goldmark {
	return &Goldmark{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Linkify,
				emoji.Emoji,
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
			),
		),
	}
}

// Render converts content to HTML.
func (g *Goldmark) Render(content string) (template.HTML, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := g.md.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("markdown: convert: %w", err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec // raw HTML disabled above
}
