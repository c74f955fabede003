// Package markdown renders article content to HTML.
package markdown

import (
	"fmt"
	"html/template"
	"strings"
)

// Engine names accepted by New.
const (
	EngineBasic    = "basic"
	EngineGoldmark = "goldmark"
)

// Renderer converts Markdown content to HTML.
type Renderer interface {
	Render(content string) (template.HTML, error)
}

// New returns the renderer registered under engine. An empty engine
// selects goldmark.
func New(engine string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineGoldmark:
		return NewGoldmark(), nil
	case EngineBasic:
		return Basic{}, nil
	default:
		return nil, fmt.Errorf("markdown: unknown engine %q", engine)
	}
}
